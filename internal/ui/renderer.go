package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// Renderer handles all terminal output with consistent styling.
type Renderer struct {
	out     io.Writer
	err     io.Writer
	noColor bool
	quiet   bool
}

// NewRenderer creates a Renderer on stdout/stderr. Color is disabled when
// stdout is not a terminal.
func NewRenderer() *Renderer {
	return &Renderer{
		out:     os.Stdout,
		err:     os.Stderr,
		noColor: !IsTerminal(os.Stdout),
	}
}

// Option is a functional option for configuring the Renderer.
type Option func(*Renderer)

// WithOutput sets the output writer. Color follows whether w is a terminal.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		r.out = w
		r.noColor = r.noColor || !IsTerminal(w)
	}
}

// WithError sets the error writer.
func WithError(w io.Writer) Option {
	return func(r *Renderer) {
		r.err = w
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) Option {
	return func(r *Renderer) {
		if noColor {
			r.noColor = true
		}
	}
}

// WithColor forces color output on, even when the writer is not a terminal.
func WithColor() Option {
	return func(r *Renderer) {
		r.noColor = false
	}
}

// WithQuiet enables quiet mode (suppresses status messages).
func WithQuiet(quiet bool) Option {
	return func(r *Renderer) {
		r.quiet = quiet
	}
}

// NewRendererWithOptions creates a new Renderer with the given options.
func NewRendererWithOptions(opts ...Option) *Renderer {
	r := NewRenderer()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Colored reports whether styles are applied.
func (r *Renderer) Colored() bool {
	return !r.noColor
}

// Render applies style if color is enabled.
func (r *Renderer) Render(style lipgloss.Style, s string) string {
	if r.noColor {
		return s
	}
	return style.Render(s)
}

// Status prints a status message (suppressed in quiet mode).
func (r *Renderer) Status(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintln(r.err, r.Render(StatusStyle, fmt.Sprintf(format, args...)))
}

// Info prints an informational message.
func (r *Renderer) Info(format string, args ...any) {
	fmt.Fprintln(r.out, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (r *Renderer) Success(format string, args ...any) {
	fmt.Fprintln(r.out, r.Render(SuccessStyle, fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func (r *Renderer) Warning(format string, args ...any) {
	fmt.Fprintln(r.err, r.Render(WarningStyle, "Warning: "+fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func (r *Renderer) Error(format string, args ...any) {
	fmt.Fprintln(r.err, r.Render(ErrorStyle, "Error: "+fmt.Sprintf(format, args...)))
}

// KeyValue prints a key-value pair.
func (r *Renderer) KeyValue(key, value string) {
	fmt.Fprintf(r.out, "%s %s\n", r.Render(LabelStyle, key+":"), value)
}

// Section prints a section title.
func (r *Renderer) Section(title string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.Render(SectionTitleStyle, title))
}

// Highlight wraps every occurrence of substr in line with HighlightStyle.
// Matching is case-sensitive, the same as line filtering.
func (r *Renderer) Highlight(line, substr string) string {
	if r.noColor || substr == "" || !strings.Contains(line, substr) {
		return line
	}
	parts := strings.Split(line, substr)
	return strings.Join(parts, HighlightStyle.Render(substr))
}

// Column alignment for Table.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Table renders rows under headers as a rounded go-pretty table.
func (r *Renderer) Table(headers []string, rows [][]string, aligns []Align) {
	columns := len(headers)
	if columns == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if !r.noColor {
		tw.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
	}

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				tr[i] = row[i]
			} else {
				tr[i] = ""
			}
		}
		tw.AppendRow(tr)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	fmt.Fprintln(r.out, tw.Render())
}

// NoResults prints a "no results" message.
func (r *Renderer) NoResults() {
	fmt.Fprintln(r.out, r.Render(MutedStyle, "No lines."))
}
