package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats data for a terminal.
type TableFormatter struct {
	NoHeaders bool
}

// Format writes data. Supported: Nil, string, integers, bool, []string,
// map[string]string, *Table and slices of structs.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch d := data.(type) {
	case nil, Nil:
		_, err := fmt.Fprintln(w, "(nil)")
		return err
	case string:
		_, err := fmt.Fprintln(w, d)
		return err
	case int, int64:
		_, err := fmt.Fprintf(w, "(integer) %d\n", d)
		return err
	case bool:
		_, err := fmt.Fprintf(w, "(integer) %d\n", map[bool]int{false: 0, true: 1}[d])
		return err
	case []string:
		return writeList(w, d)
	case map[string]string:
		return mapTable(d).RenderWithOptions(w, f.NoHeaders)
	case *Table:
		return d.RenderWithOptions(w, f.NoHeaders)
	}

	if t, ok := structSliceTable(data); ok {
		return t.RenderWithOptions(w, f.NoHeaders)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

func writeList(w io.Writer, items []string) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	width := len(fmt.Sprint(len(items)))
	for i, item := range items {
		if _, err := fmt.Fprintf(w, "%*d) %q\n", width, i+1, item); err != nil {
			return err
		}
	}
	return nil
}

func mapTable(m map[string]string) *Table {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, k := range keys {
		t.AddRow(k, m[k])
	}
	return t
}

// structSliceTable builds a table from a slice of structs, one column per
// exported field named after its json tag.
func structSliceTable(data any) (*Table, bool) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice || v.Type().Elem().Kind() != reflect.Struct {
		return nil, false
	}

	et := v.Type().Elem()
	t := &Table{}
	var fields []int
	for i := 0; i < et.NumField(); i++ {
		field := et.Field(i)
		if !field.IsExported() || field.Tag.Get("table") == "-" {
			continue
		}
		name := field.Name
		if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}
		t.Headers = append(t.Headers, strings.ToUpper(name))
		fields = append(fields, i)
	}

	for i := 0; i < v.Len(); i++ {
		row := make([]string, 0, len(fields))
		for _, idx := range fields {
			row = append(row, fmt.Sprint(v.Index(i).Field(idx).Interface()))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, true
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table with options.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
