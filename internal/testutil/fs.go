// Package testutil holds filesystem helpers shared by the engine tests.
package testutil

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// CountingFs wraps an afero.Fs and tracks how many files are open.
type CountingFs struct {
	afero.Fs
	open   atomic.Int64
	opened atomic.Int64
}

// NewCountingFs wraps fs.
func NewCountingFs(fs afero.Fs) *CountingFs {
	return &CountingFs{Fs: fs}
}

// Open counts the returned handle until it is closed.
func (c *CountingFs) Open(name string) (afero.File, error) {
	f, err := c.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return c.track(f), nil
}

// OpenFile counts the returned handle until it is closed.
func (c *CountingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := c.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return c.track(f), nil
}

// OpenHandles returns the number of handles currently open.
func (c *CountingFs) OpenHandles() int64 { return c.open.Load() }

// Opened returns the number of handles ever opened.
func (c *CountingFs) Opened() int64 { return c.opened.Load() }

func (c *CountingFs) track(f afero.File) afero.File {
	c.open.Add(1)
	c.opened.Add(1)
	return &countedFile{File: f, fs: c}
}

type countedFile struct {
	afero.File
	fs     *CountingFs
	closed atomic.Bool
}

func (f *countedFile) Close() error {
	if f.closed.CompareAndSwap(false, true) {
		f.fs.open.Add(-1)
	}
	return f.File.Close()
}

// WriteLog writes content to dir/name on fs and stamps it with created as both
// access and modification time.
func WriteLog(t *testing.T, fs afero.Fs, dir, name, content string, created time.Time) string {
	t.Helper()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := fs.Chtimes(path, created, created); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

// AppendLog appends content to an existing file on fs.
func AppendLog(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", path, err)
	}
}

// ShrunkFs wraps an afero.Fs whose files report Extra more bytes from Stat
// than they hold, as when a file is truncated right after being sized.
type ShrunkFs struct {
	afero.Fs
	Extra int64
}

// Open returns a file whose Stat overstates its size.
func (s *ShrunkFs) Open(name string) (afero.File, error) {
	f, err := s.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return &shrunkFile{File: f, extra: s.Extra}, nil
}

type shrunkFile struct {
	afero.File
	extra int64
}

func (f *shrunkFile) Stat() (os.FileInfo, error) {
	fi, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return staleInfo{FileInfo: fi, size: fi.Size() + f.extra}, nil
}

type staleInfo struct {
	os.FileInfo
	size int64
}

func (i staleInfo) Size() int64 { return i.size }
