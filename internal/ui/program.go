package ui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// RunOnceModel is a Bubble Tea model that renders once and exits.
type RunOnceModel struct {
	content string
}

// NewRunOnceModel creates a model that will render the given content and exit
func NewRunOnceModel(content string) RunOnceModel {
	return RunOnceModel{content: content}
}

// Init implements tea.Model
func (m RunOnceModel) Init() tea.Cmd {
	return tea.Quit
}

// Update implements tea.Model
func (m RunOnceModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View implements tea.Model
func (m RunOnceModel) View() string {
	return m.content
}

// RenderOnce renders content through Bubble Tea to out and exits.
func RenderOnce(out io.Writer, content string) error {
	p := tea.NewProgram(NewRunOnceModel(content),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)
	_, err := p.Run()
	return err
}

// Printer writes UI components to a writer. On a terminal it draws styled
// boxes and tables; otherwise it falls back to plain text.
type Printer struct {
	out   io.Writer
	width int
	tty   bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(w),
		tty:   IsTerminal(w),
	}
}

// Width returns the width used for rendering
func (p *Printer) Width() int {
	return p.width
}

// Styled reports whether the printer draws styled output.
func (p *Printer) Styled() bool {
	return p.tty
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box. Plain output skips it.
func (p *Printer) PrintHeader(h *Header) {
	if !p.tty {
		return
	}
	h.Width = p.width
	p.Println(h.Render())
}

// PrintResult prints a result box, or a one-line summary when not styled.
func (p *Printer) PrintResult(r *Result) {
	if p.tty {
		r.Width = p.width
		p.Println(r.Render())
		return
	}

	label := map[ResultType]string{ResultSuccess: "ok", ResultFailure: "error", ResultWarning: "warning"}[r.Type]
	p.Println(fmt.Sprintf("%s: %s", label, r.Title))
	for _, d := range r.Details {
		p.Println(fmt.Sprintf("  %s: %s", d.Key, d.Value))
	}
	if r.Error != nil {
		p.Println("  " + r.Error.Error())
	}
}

// PrintTable prints the message table. Styled output goes through
// RenderOnce.
func (p *Printer) PrintTable(t *MessageTable) error {
	if !p.tty {
		return t.WritePlain(p.out)
	}
	return RenderOnce(p.out, t.Render(p.width)+"\n")
}
