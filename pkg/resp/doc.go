// Package resp implements the dblite wire protocol.
//
// Requests are arrays of bulk strings ("*<n>\r\n" followed by n
// "$<len>\r\n<bytes>\r\n" elements) or, for interactive use, a single
// whitespace separated inline line.
//
// Replies are one of:
//
//	+<status>\r\n               status
//	-<message>\r\n              error
//	:<n>\r\n                    integer
//	$<len>\r\n<bytes>\r\n       bulk string
//	$-1\r\n                     nil
//	*<n>\r\n<n replies>         array
//	%<n>\r\n<n key/value pairs> map
//	&<n>\r\n<n replies>         set
//
// Protocol errors are reported as *ProtocolError. A fatal error means the
// stream position is no longer known and the connection must be closed;
// a non-fatal error consumed the whole offending frame and the next frame
// can be read normally.
package resp
