// Package report renders operation and link-check results for humans and
// machines.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/starford/raido/internal/linkcheck"
	"github.com/starford/raido/internal/models"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatCSV:
		return Format(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json, or csv)", s)
	}
}

// Render writes an operation result to w in the requested format.
func Render(w io.Writer, format Format, res *models.OperationResult) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatCSV:
		return renderCSV(w, res)
	default:
		return renderText(w, res)
	}
}

func renderText(w io.Writer, res *models.OperationResult) error {
	status := "ok"
	if !res.Success {
		status = "failed"
	}
	if _, err := fmt.Fprintf(w, "status: %s\n", status); err != nil {
		return err
	}
	writeList := func(label string, items []string) {
		for _, it := range items {
			fmt.Fprintf(w, "%s: %s\n", label, it)
		}
	}
	writeList("created", res.CreatedFiles)
	writeList("modified", res.ModifiedFiles)
	writeList("deleted", res.DeletedFiles)
	for _, c := range res.Changes {
		if c.Type != models.ChangeLinkUpdated {
			continue
		}
		fmt.Fprintf(w, "link: %s:%d: %s -> %s\n", c.FilePath, c.Line, c.OldValue, c.NewValue)
	}
	writeList("warning", res.Warnings)
	writeList("error", res.Errors)
	return nil
}

func renderCSV(w io.Writer, res *models.OperationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"type", "filePath", "oldValue", "newValue", "line"}); err != nil {
		return err
	}
	for _, c := range res.Changes {
		line := ""
		if c.Line > 0 {
			line = strconv.Itoa(c.Line)
		}
		if err := cw.Write([]string{c.Type, c.FilePath, c.OldValue, c.NewValue, line}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderLinkResults writes link-check verdicts to w in the requested format.
func RenderLinkResults(w io.Writer, format Format, results []linkcheck.Result) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"url", "status", "code", "detail", "refs"}); err != nil {
			return err
		}
		for _, r := range results {
			code := ""
			if r.Code > 0 {
				code = strconv.Itoa(r.Code)
			}
			if err := cw.Write([]string{r.URL, string(r.Status), code, r.Detail, strconv.Itoa(len(r.Refs))}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "%s: %s", r.Status, r.URL); err != nil {
				return err
			}
			if r.Code > 0 {
				fmt.Fprintf(w, " (%d)", r.Code)
			}
			if r.Detail != "" {
				fmt.Fprintf(w, " %s", r.Detail)
			}
			fmt.Fprintln(w)
		}
		return nil
	}
}
