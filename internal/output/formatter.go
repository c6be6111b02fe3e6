// Package output writes log lines, file listings and aliases in text, json
// or csv form for the command-line interface.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/internal/source"
	"github.com/jmurray2011/parrot/internal/ui"
	"github.com/jmurray2011/parrot/pkg/timeutil"
)

// Format specifies the output format type.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", perrors.InvalidArgument("output", s, "must be text, json or csv")
}

// Formatter handles output formatting for different formats.
type Formatter struct {
	format    Format
	writer    io.Writer
	highlight string
	stamps    bool
	renderer  *ui.Renderer
}

// NewFormatter creates a new formatter with the specified format. Unknown
// formats fall back to text.
func NewFormatter(format string, writer io.Writer, opts ...ui.Option) *Formatter {
	f, err := ParseFormat(format)
	if err != nil {
		f = FormatText
	}
	opts = append([]ui.Option{ui.WithOutput(writer)}, opts...)
	return &Formatter{
		format:   f,
		writer:   writer,
		renderer: ui.NewRendererWithOptions(opts...),
	}
}

// WithHighlight marks occurrences of substr in text output.
func (f *Formatter) WithHighlight(substr string) *Formatter {
	f.highlight = substr
	return f
}

// WithTimestamps prefixes text lines with their observation time.
func (f *Formatter) WithTimestamps(on bool) *Formatter {
	f.stamps = on
	return f
}

type lineRecord struct {
	Line     string     `json:"line"`
	Observed *time.Time `json:"observed,omitempty"`
}

// FormatLines writes a one-shot read result.
func (f *Formatter) FormatLines(lines []string) error {
	switch f.format {
	case FormatJSON:
		if lines == nil {
			lines = []string{}
		}
		enc := json.NewEncoder(f.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	case FormatCSV:
		w := csv.NewWriter(f.writer)
		if err := w.Write([]string{"line"}); err != nil {
			return err
		}
		for _, line := range lines {
			if err := w.Write([]string{line}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		if len(lines) == 0 {
			f.renderer.NoResults()
			return nil
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(f.writer, f.renderer.Highlight(line, f.highlight)); err != nil {
				return err
			}
		}
		return nil
	}
}

// FormatLine writes one streamed line. JSON output is newline-delimited.
func (f *Formatter) FormatLine(line string, observed time.Time) error {
	switch f.format {
	case FormatJSON:
		rec := lineRecord{Line: line}
		if !observed.IsZero() {
			rec.Observed = &observed
		}
		return json.NewEncoder(f.writer).Encode(rec)
	case FormatCSV:
		w := csv.NewWriter(f.writer)
		if err := w.Write([]string{observed.Format(time.RFC3339Nano), line}); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	default:
		text := f.renderer.Highlight(line, f.highlight)
		if f.stamps && !observed.IsZero() {
			text = f.renderer.Render(ui.TimestampStyle, observed.Format("15:04:05.000")) + " " + text
		}
		_, err := fmt.Fprintln(f.writer, text)
		return err
	}
}

type fileRecord struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
	Current bool      `json:"current"`
}

// FormatFiles writes candidate files newest first. The first entry is the
// one that currently resolves as the log.
func (f *Formatter) FormatFiles(files []source.ResolvedFile) error {
	records := make([]fileRecord, len(files))
	for i, file := range files {
		records[i] = fileRecord{
			Name:    file.Name,
			Path:    file.Path,
			Size:    file.Size,
			Created: file.Created,
			Current: i == 0,
		}
	}

	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(f.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatCSV:
		w := csv.NewWriter(f.writer)
		if err := w.Write([]string{"name", "path", "size", "created", "current"}); err != nil {
			return err
		}
		for _, r := range records {
			row := []string{
				r.Name,
				r.Path,
				strconv.FormatInt(r.Size, 10),
				r.Created.Format(time.RFC3339),
				strconv.FormatBool(r.Current),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		if len(records) == 0 {
			f.renderer.NoResults()
			return nil
		}
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			marker := ""
			if r.Current {
				marker = f.renderer.Render(ui.CurrentMarkerStyle, "*")
			}
			rows = append(rows, []string{
				marker,
				r.Name,
				timeutil.FormatBytes(r.Size),
				r.Created.Local().Format("2006-01-02 15:04:05"),
			})
		}
		f.renderer.Table(
			[]string{"", "File", "Size", "Created"},
			rows,
			[]ui.Align{ui.AlignLeft, ui.AlignLeft, ui.AlignRight, ui.AlignLeft},
		)
		return nil
	}
}

// FormatAliases writes alias to pattern mappings sorted by alias.
func (f *Formatter) FormatAliases(aliases map[string]string) error {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(f.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(aliases)
	case FormatCSV:
		w := csv.NewWriter(f.writer)
		if err := w.Write([]string{"alias", "pattern"}); err != nil {
			return err
		}
		for _, name := range names {
			if err := w.Write([]string{name, aliases[name]}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		if len(names) == 0 {
			f.renderer.Info("%s", f.renderer.Render(ui.MutedStyle, "No aliases configured."))
			return nil
		}
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, aliases[name]})
		}
		f.renderer.Table([]string{"Alias", "Pattern"}, rows, nil)
		return nil
	}
}
