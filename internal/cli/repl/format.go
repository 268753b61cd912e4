package repl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/dblite-go/pkg/resp"
)

// FormatValue renders a reply for the terminal.
func FormatValue(v resp.Value) string {
	var b strings.Builder
	writeValue(&b, v, "")
	return b.String()
}

func writeValue(b *strings.Builder, v resp.Value, indent string) {
	switch v.Kind {
	case resp.KindStatus:
		b.WriteString(v.Str)
	case resp.KindError:
		b.WriteString("(error) " + v.Str)
	case resp.KindInteger:
		fmt.Fprintf(b, "(integer) %d", v.Int)
	case resp.KindBulk:
		b.WriteString(strconv.Quote(v.Str))
	case resp.KindNil:
		b.WriteString("(nil)")
	case resp.KindArray, resp.KindSet:
		if len(v.Elems) == 0 {
			b.WriteString("(empty)")
			return
		}
		writeItems(b, v.Elems, indent)
	case resp.KindMap:
		if len(v.Elems) == 0 {
			b.WriteString("(empty)")
			return
		}
		for i := 0; i+1 < len(v.Elems); i += 2 {
			if i > 0 {
				b.WriteString("\n" + indent)
			}
			fmt.Fprintf(b, "%d# %s => ", i/2+1, v.Elems[i].Text())
			writeValue(b, v.Elems[i+1], indent+"   ")
		}
	default:
		b.WriteString(v.Text())
	}
}

func writeItems(b *strings.Builder, elems []resp.Value, indent string) {
	width := len(strconv.Itoa(len(elems)))
	for i, e := range elems {
		if i > 0 {
			b.WriteString("\n" + indent)
		}
		prefix := fmt.Sprintf("%*d) ", width, i+1)
		b.WriteString(prefix)
		writeValue(b, e, indent+strings.Repeat(" ", len(prefix)))
	}
}
