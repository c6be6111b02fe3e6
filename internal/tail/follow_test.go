package tail

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/internal/testutil"
)

func TestReadFrom_SeedsThenDeltas(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := testutil.WriteLog(t, fs, "/logs", "app.log", "a\nb\nc\n", time.Now())
	cur := &Cursor{Seed: 2}

	steps := []struct {
		appendText string
		want       []string
	}{
		{"", []string{"b", "c"}},
		{"", []string{}},
		{"d\n", []string{"d"}},
		{"e\nf\n", []string{"e", "f"}},
		{"partial", []string{}},
		{" line\n", []string{"partial line"}},
	}

	for i, step := range steps {
		if step.appendText != "" {
			testutil.AppendLog(t, fs, path, step.appendText)
		}
		got, err := ReadFrom(fs, path, cur, "")
		if err != nil {
			t.Fatalf("step %d: ReadFrom() error = %v", i, err)
		}
		if !reflect.DeepEqual(got, step.want) {
			t.Errorf("step %d: ReadFrom() = %q, want %q", i, got, step.want)
		}
	}
}

func TestReadFrom_Filter(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := testutil.WriteLog(t, fs, "/logs", "app.log", "start\n", time.Now())
	cur := &Cursor{}

	if _, err := ReadFrom(fs, path, cur, "ERROR"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	testutil.AppendLog(t, fs, path, "INFO a\nERROR b\nINFO c\nERROR d\n")

	got, err := ReadFrom(fs, path, cur, "ERROR")
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"ERROR b", "ERROR d"}) {
		t.Errorf("ReadFrom() = %q", got)
	}
}

func TestReadFrom_Truncation(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := testutil.WriteLog(t, fs, "/logs", "app.log", "old 1\nold 2\nold 3\n", time.Now())
	cur := &Cursor{}

	if _, err := ReadFrom(fs, path, cur, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := afero.WriteFile(fs, path, []byte("new\n"), 0644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	got, err := ReadFrom(fs, path, cur, "")
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"new"}) {
		t.Errorf("after truncation ReadFrom() = %q, want [new]", got)
	}
}

func TestReadFrom_Rotation(t *testing.T) {
	fs := afero.NewMemMapFs()
	first := testutil.WriteLog(t, fs, "/logs", "app.log.1", "a\nb\nc\nd\n", time.Now())
	cur := &Cursor{}

	if _, err := ReadFrom(fs, first, cur, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	second := testutil.WriteLog(t, fs, "/logs", "app.log.2", "x\ny\n", time.Now())
	got, err := ReadFrom(fs, second, cur, "")
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("after rotation ReadFrom() = %q, want [x y]", got)
	}
	if cur.Path != second {
		t.Errorf("cursor path = %s, want %s", cur.Path, second)
	}
}

func TestReadFrom_OversizedLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := testutil.WriteLog(t, fs, "/logs", "app.log", "", time.Now())
	cur := &Cursor{}
	if _, err := ReadFrom(fs, path, cur, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	testutil.AppendLog(t, fs, path, strings.Repeat("z", MaxChunk+10))
	got, err := ReadFrom(fs, path, cur, "")
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if len(got) != 1 || len(got[0]) != MaxChunk {
		t.Fatalf("expected one MaxChunk piece, got %d lines", len(got))
	}
	if cur.Offset != MaxChunk {
		t.Errorf("cursor offset = %d, want %d", cur.Offset, MaxChunk)
	}
}

func TestReadFrom_ResetAndErrors(t *testing.T) {
	fs := testutil.NewCountingFs(afero.NewMemMapFs())
	path := testutil.WriteLog(t, fs, "/logs", "app.log", "a\nb\n", time.Now())
	cur := &Cursor{}

	got, err := ReadFrom(fs, path, cur, "")
	if err != nil || !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("seed = %q, %v", got, err)
	}

	cur.Reset()
	got, err = ReadFrom(fs, path, cur, "")
	if err != nil || !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("after Reset = %q, %v", got, err)
	}

	if err := fs.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := ReadFrom(fs, path, cur, ""); !errors.Is(err, perrors.ErrFileUnreadable) {
		t.Errorf("expected ErrFileUnreadable, got %v", err)
	}
	if fs.OpenHandles() != 0 {
		t.Errorf("open handles = %d", fs.OpenHandles())
	}
}

func TestReadFrom_TruncatedAfterStat(t *testing.T) {
	mem := afero.NewMemMapFs()
	path := testutil.WriteLog(t, mem, "/logs", "app.log", "a\n", time.Now())
	cur := &Cursor{}

	if _, err := ReadFrom(mem, path, cur, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	offset := cur.Offset

	fs := &testutil.ShrunkFs{Fs: mem, Extra: 10}
	got, err := ReadFrom(fs, path, cur, "")
	if !errors.Is(err, perrors.ErrFileUnreadable) {
		t.Fatalf("ReadFrom() = %q, %v; want ErrFileUnreadable", got, err)
	}
	if cur.Offset != offset {
		t.Errorf("offset moved to %d past the end of the file (%d)", cur.Offset, offset)
	}

	// The cursor still works once sizes agree again.
	testutil.AppendLog(t, mem, path, "b\n")
	got, err = ReadFrom(mem, path, cur, "")
	if err != nil || !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("after recovery = %q, %v", got, err)
	}
}
