package ui

import (
	"fmt"
	"io"
	"strings"

	"surveyor/internal/tree"
)

// RenderDetails writes a plain-text view of an open target: the issue with
// its location, report body and quickfixes, or the configuration report path.
func RenderDetails(w io.Writer, tgt tree.Target) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration: %s\n", tgt.Config)
	switch {
	case tgt.Hint != nil:
		h := tgt.Hint
		fmt.Fprintf(&b, "Issue:         %s\n", h.Title)
		fmt.Fprintf(&b, "Rule:          %s\n", h.RuleID)
		if h.Category != "" {
			fmt.Fprintf(&b, "Category:      %s\n", h.Category)
		}
		if h.Effort > 0 {
			fmt.Fprintf(&b, "Effort:        %d\n", h.Effort)
		}
		if h.Location.File != "" {
			fmt.Fprintf(&b, "Location:      %s:%d:%d\n", h.Location.File, h.Location.Line+1, h.Location.Column+1)
		}
		status := "open"
		if h.Complete {
			status = "complete"
		}
		fmt.Fprintf(&b, "Status:        %s\n", status)
		if body := strings.TrimSpace(h.Report); body != "" {
			b.WriteString("\n")
			b.WriteString(indent(body, "  "))
			b.WriteString("\n")
		}
		if len(h.Quickfixes) > 0 {
			b.WriteString("\nQuickfixes:\n")
			for _, q := range h.Quickfixes {
				marker := "-"
				if tgt.Quickfix != nil && tgt.Quickfix.ID == q.ID {
					marker = ">"
				}
				title := q.Title
				if title == "" {
					title = string(q.Type)
				}
				fmt.Fprintf(&b, "  %s %s [%s]\n", marker, title, q.Type)
				if q.Search != "" || q.Replacement != "" {
					fmt.Fprintf(&b, "      %q -> %q\n", q.Search, q.Replacement)
				}
			}
		}
	case tgt.Kind == tree.KindFile:
		fmt.Fprintf(&b, "File:          %s\n", tgt.File)
	default:
		report := tgt.Report
		if report == "" {
			report = "(no analysis results)"
		}
		fmt.Fprintf(&b, "Report:        %s\n", report)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
