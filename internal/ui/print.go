package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"surveyor/internal/tree"
)

// PrintOptions controls the non-interactive rendering.
type PrintOptions struct {
	// Width truncates labels to fit; 0 disables truncation.
	Width int
	// Depth limits expansion; 0 means fully expanded.
	Depth int
	// IDs appends the node's hint ID to issue rows.
	IDs bool
}

var (
	configColor   = color.New(color.FgCyan, color.Bold)
	resultsColor  = color.New(color.FgBlue)
	completeColor = color.New(color.FgGreen)
	errorColor    = color.New(color.FgRed, color.Bold)
	dimColor      = color.New(color.Faint)
)

// Print renders the tree with box-drawing guides. It materializes every
// node it visits through the regular lazy contract.
func Print(w io.Writer, t *tree.Tree, opts PrintOptions) error {
	bw := bufio.NewWriter(w)
	roots := t.Roots()
	if len(roots) == 0 {
		fmt.Fprintln(bw, dimColor.Sprint("no configurations"))
		return bw.Flush()
	}
	for _, id := range roots {
		printNode(bw, t, id, "", "", 1, opts)
	}
	return bw.Flush()
}

func printNode(w *bufio.Writer, t *tree.Tree, id tree.NodeID, lead, guide string, depth int, opts PrintOptions) {
	item := t.Item(id)
	label := item.Label
	if opts.IDs && t.Kind(id) == tree.KindHint {
		label += " (" + t.HintID(id) + ")"
	}
	if opts.Width > 0 {
		label = truncate(label, opts.Width-runewidth.StringWidth(lead)-2)
	}
	fmt.Fprintf(w, "%s%s %s\n", dimColor.Sprint(lead), Glyph(item), colorFor(item)(label))

	if opts.Depth > 0 && depth >= opts.Depth {
		return
	}
	kids := t.Children(id)
	for i, child := range kids {
		last := i == len(kids)-1
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}
		printNode(w, t, child, guide+connector, guide+next, depth+1, opts)
	}
}

func colorFor(item tree.Item) func(a ...interface{}) string {
	switch item.Context {
	case tree.ContextConfiguration:
		return configColor.Sprint
	case tree.ContextResults:
		return resultsColor.Sprint
	case tree.ContextIssueComplete:
		return completeColor.Sprint
	case tree.ContextError:
		return errorColor.Sprint
	default:
		return fmt.Sprint
	}
}

// Glyph is the one-cell marker shown before a label.
func Glyph(item tree.Item) string {
	switch item.Icon {
	case "configuration":
		return "◆"
	case "results":
		return "▣"
	case "report":
		return "≡"
	case "folder":
		return "▸"
	case "file":
		return "□"
	case "issue":
		return "○"
	case "complete":
		return "✓"
	case "quickfix":
		return "⚑"
	case "error":
		return "!"
	default:
		return "•"
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
