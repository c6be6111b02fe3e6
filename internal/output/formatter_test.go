package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jmurray2011/parrot/internal/source"
)

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		format string
		want   Format
	}{
		{"text", FormatText},
		{"json", FormatJSON},
		{"csv", FormatCSV},
		{"JSON", FormatJSON},
		{"", FormatText},
		{"yaml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f := NewFormatter(tt.format, &buf)
			if f.format != tt.want {
				t.Errorf("NewFormatter(%q).format = %v, want %v", tt.format, f.format, tt.want)
			}
		})
	}
}

func TestParseFormatRejectsUnknown(t *testing.T) {
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestFormatLinesText(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("text", &buf).WithHighlight("ERROR")

	if err := f.FormatLines([]string{"ERROR x", "ok"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Highlighting is skipped for non-terminal writers.
	if got := buf.String(); got != "ERROR x\nok\n" {
		t.Errorf("output = %q", got)
	}
}

func TestFormatLinesEmptyText(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter("text", &buf).FormatLines(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No lines") {
		t.Errorf("expected no-lines message, got %q", buf.String())
	}
}

func TestFormatLinesJSON(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{"lines", []string{"a", "b"}, []string{"a", "b"}},
		{"nil is empty array", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewFormatter("json", &buf).FormatLines(tt.lines); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []string
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("invalid json %q: %v", buf.String(), err)
			}
			if got == nil || len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormatLinesCSVQuotes(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter("csv", &buf).FormatLines([]string{`a,"b"`}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 2 || records[1][0] != `a,"b"` {
		t.Errorf("records = %v", records)
	}
}

func TestFormatLine(t *testing.T) {
	observed := time.Date(2025, 3, 1, 12, 30, 45, 123e6, time.UTC)

	t.Run("text with timestamps", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter("text", &buf).WithTimestamps(true)
		if err := f.FormatLine("hello", observed); err != nil {
			t.Fatal(err)
		}
		want := observed.Format("15:04:05.000") + " hello\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("ndjson", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter("json", &buf)
		if err := f.FormatLine("one", observed); err != nil {
			t.Fatal(err)
		}
		if err := f.FormatLine("two", time.Time{}); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 records, got %q", buf.String())
		}
		var rec lineRecord
		if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
			t.Fatal(err)
		}
		if rec.Line != "one" || rec.Observed == nil || !rec.Observed.Equal(observed) {
			t.Errorf("record = %+v", rec)
		}
		if strings.Contains(lines[1], "observed") {
			t.Errorf("zero time should be omitted: %s", lines[1])
		}
	})
}

func sampleFiles() []source.ResolvedFile {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []source.ResolvedFile{
		{Path: "/logs/MMDVM-2025-01-02.log", Name: "MMDVM-2025-01-02.log", Size: 2048, Created: created},
		{Path: "/logs/MMDVM-2025-01-01.log", Name: "MMDVM-2025-01-01.log", Size: 10, Created: created.Add(-24 * time.Hour)},
	}
}

func TestFormatFilesText(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter("text", &buf).FormatFiles(sampleFiles()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"MMDVM-2025-01-02.log", "MMDVM-2025-01-01.log", "2.0 KB", "10 B", "*"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatFilesJSONMarksCurrent(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter("json", &buf).FormatFiles(sampleFiles()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []fileRecord
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 2 || !got[0].Current || got[1].Current {
		t.Errorf("records = %+v", got)
	}
}

func TestFormatFilesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter("csv", &buf).FormatFiles(sampleFiles()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[1][2] != "2048" || records[1][4] != "true" || records[2][4] != "false" {
		t.Errorf("rows = %v", records[1:])
	}
}

func TestFormatAliases(t *testing.T) {
	aliases := map[string]string{"ysf": "YSFGateway", "mmdvm": "MMDVM"}

	t.Run("text sorted", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewFormatter("text", &buf).FormatAliases(aliases); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if strings.Index(out, "mmdvm") > strings.Index(out, "ysf") {
			t.Errorf("aliases not sorted:\n%s", out)
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewFormatter("csv", &buf).FormatAliases(aliases); err != nil {
			t.Fatal(err)
		}
		want := "alias,pattern\nmmdvm,MMDVM\nysf,YSFGateway\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewFormatter("text", &buf).FormatAliases(nil); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No aliases") {
			t.Errorf("got %q", buf.String())
		}
	})
}
