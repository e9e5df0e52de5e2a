package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

// printer writes rows as an aligned table on terminals and as JSON lines
// everywhere else.
type printer struct {
	out   io.Writer
	table bool
}

func newPrinter(out io.Writer, format string) (*printer, error) {
	switch strings.ToLower(format) {
	case "table":
		return &printer{out: out, table: true}, nil
	case "json":
		return &printer{out: out}, nil
	case "auto", "":
		return &printer{out: out, table: isTerminal(out)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// rows prints one row per record. Each record is rendered in header order
// for tables and as an object for JSON.
func (p *printer) rows(header []string, records []map[string]any) error {
	if !p.table {
		enc := json.NewEncoder(p.out)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, rec := range records {
		cells := make([]string, len(header))
		for i, col := range header {
			cells[i] = formatCell(rec[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	case float64:
		return fmt.Sprintf("%.6g", v)
	case []string:
		if len(v) == 0 {
			return "-"
		}
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}
