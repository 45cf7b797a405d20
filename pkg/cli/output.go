package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"harvest-hq/gateway/pkg/history"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is an aligned table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatJSONL is one JSON record per line, the same shape as the jsonl backend.
	FormatJSONL OutputFormat = "jsonl"
	// FormatCSV is CSV with a header row.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatJSONL, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (valid: text, json, jsonl, csv)", s))
	}
}

// csvHeaders are the columns of FormatCSV.
var csvHeaders = []string{"id", "timestamp", "model", "messages", "last_role", "last_content"}

// previewLength bounds the message preview in text output.
const previewLength = 60

// WriteRecords prints history records in format.
func WriteRecords(w io.Writer, format OutputFormat, records []history.Record) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if records == nil {
			records = []history.Record{}
		}
		return enc.Encode(records)

	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeaders); err != nil {
			return err
		}
		for _, r := range records {
			role, content := lastMessage(r)
			row := []string{
				strconv.FormatInt(r.ID, 10),
				r.Timestamp.UTC().Format(time.RFC3339),
				r.Model,
				strconv.Itoa(len(r.Messages)),
				role,
				content,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIMESTAMP\tMODEL\tMESSAGES\tLAST")
		for _, r := range records {
			role, content := lastMessage(r)
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s: %s\n",
				r.ID,
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				r.Model,
				len(r.Messages),
				role,
				preview(content, previewLength),
			)
		}
		return tw.Flush()
	}
}

func lastMessage(r history.Record) (role, content string) {
	if len(r.Messages) == 0 {
		return "", ""
	}
	m := r.Messages[len(r.Messages)-1]
	return m.Role, m.Content
}

// preview flattens s to one line and truncates it to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
