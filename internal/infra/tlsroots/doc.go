// Package tlsroots loads TLS material for dblite.
//
// Reloader serves the RESP TLS listener's certificate and swaps it when
// the certificate or key file is rewritten, so rotations need no restart.
// ClientConfig builds the dblite-cli side, trusting the system roots plus
// an optional CA file.
package tlsroots
