package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/kitbuilder587/nli-search/internal/domain"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func writeRecords(w io.Writer, format string, records []domain.Record) error {
	switch strings.ToLower(format) {
	case formatTable, "":
		return writeTable(w, records)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if records == nil {
			records = []domain.Record{}
		}
		return enc.Encode(records)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown format %q (table, json, yaml)", domain.ErrInvalidArgument, format)
	}
}

func writeTable(w io.Writer, records []domain.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATOR\tDATE\tTYPE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, truncate(r.Title, 60), truncate(r.Creator, 30), r.Date, r.Type)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
