package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/bubbles/table"
	"github.com/muurk/commsframe/internal/protocol"
)

// MessageRow is one decoded message as shown by decode and replay.
type MessageRow struct {
	Index   int
	Source  string // capture remote address, empty for direct input
	ID      protocol.MsgID
	Kind    string
	Fields  string
	Unknown bool
}

// NewMessageRow describes msg for the message table.
func NewMessageRow(index int, source string, msg protocol.Message) MessageRow {
	_, unknown := msg.(*protocol.UnknownMessage)
	return MessageRow{
		Index:   index,
		Source:  source,
		ID:      msg.ID(),
		Kind:    msg.Name(),
		Fields:  describeFields(msg),
		Unknown: unknown,
	}
}

func describeFields(msg protocol.Message) string {
	if u, ok := msg.(*protocol.UnknownMessage); ok {
		return fmt.Sprintf("% x", u.Payload)
	}
	fields := msg.Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}

// MessageTable collects rows as a handler and renders them as a table.
type MessageTable struct {
	Source string
	rows   []MessageRow
}

// HandleMessage implements protocol.Handler.
func (t *MessageTable) HandleMessage(msg protocol.Message) {
	t.rows = append(t.rows, NewMessageRow(len(t.rows)+1, t.Source, msg))
}

// Add appends a row.
func (t *MessageTable) Add(row MessageRow) {
	t.rows = append(t.rows, row)
}

// Rows returns the collected rows.
func (t *MessageTable) Rows() []MessageRow {
	return t.rows
}

// Len returns the number of collected rows.
func (t *MessageTable) Len() int {
	return len(t.rows)
}

// Unknown returns how many rows hold messages with unregistered ids.
func (t *MessageTable) Unknown() int {
	n := 0
	for _, r := range t.rows {
		if r.Unknown {
			n++
		}
	}
	return n
}

func (t *MessageTable) hasSource() bool {
	for _, r := range t.rows {
		if r.Source != "" {
			return true
		}
	}
	return false
}

func (t *MessageTable) cells(r MessageRow, withSource bool) []string {
	cells := []string{fmt.Sprint(r.Index)}
	if withSource {
		cells = append(cells, r.Source)
	}
	return append(cells, fmt.Sprintf("0x%02x", uint64(r.ID)), r.Kind, r.Fields)
}

func (t *MessageTable) titles(withSource bool) []string {
	titles := []string{"#"}
	if withSource {
		titles = append(titles, "Source")
	}
	return append(titles, "ID", "Kind", "Fields")
}

// Render draws the rows with a bubbles table fitted to width.
func (t *MessageTable) Render(width int) string {
	withSource := t.hasSource()
	titles := t.titles(withSource)

	rows := make([]table.Row, 0, len(t.rows))
	widths := make([]int, len(titles))
	for i, title := range titles {
		widths[i] = len(title)
	}
	for _, r := range t.rows {
		cells := t.cells(r, withSource)
		for i, c := range cells {
			widths[i] = max(widths[i], len(c))
		}
		rows = append(rows, cells)
	}

	// Cell padding is 2 per column; the fields column takes what is left.
	last := len(widths) - 1
	used := 0
	for _, w := range widths[:last] {
		used += w + 2
	}
	widths[last] = max(min(widths[last], width-used-2), 10)

	columns := make([]table.Column, len(titles))
	for i, title := range titles {
		columns[i] = table.Column{Title: title, Width: widths[i]}
	}

	styles := table.DefaultStyles()
	styles.Header = TableHeaderStyle
	styles.Cell = TableCellStyle
	styles.Selected = TableCellStyle

	tbl := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
		table.WithFocused(false),
		table.WithStyles(styles),
	)
	return tbl.View()
}

// WritePlain writes the rows as tab-aligned text for pipes and files.
func (t *MessageTable) WritePlain(w io.Writer) error {
	withSource := t.hasSource()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.titles(withSource), "\t"))
	for _, r := range t.rows {
		fmt.Fprintln(tw, strings.Join(t.cells(r, withSource), "\t"))
	}
	return tw.Flush()
}
