// Package tail reads bounded windows from the end of a log file and, in
// follow mode, the complete lines appended since a previous read.
package tail

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/spf13/afero"

	perrors "github.com/jmurray2011/parrot/internal/errors"
)

const (
	// Unlimited requests the whole file.
	Unlimited = -1

	// BlockSize is the unit of backward reads from EOF.
	BlockSize = 4096
)

// Read returns at most maxLines of the most recent lines of path, oldest
// first. The window is taken from the physical end of the file and only then
// filtered, so a filter can shrink the result but never reaches further back.
// An empty filter keeps every line.
//
// The file handle is released before Read returns. Any failure to open or
// read is reported as FileUnreadable and no partial window is returned.
func Read(fsys afero.Fs, path string, maxLines int, filter string) ([]string, error) {
	if maxLines == 0 {
		return []string{}, nil
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, perrors.FileUnreadable(path, err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, perrors.FileUnreadable(path, err)
	}

	lines, err := window(f, fi.Size(), maxLines)
	if err != nil {
		return nil, perrors.FileUnreadable(path, err)
	}
	return Filter(lines, filter), nil
}

// Filter keeps the lines containing substr, preserving order. Matching is
// case-sensitive with no escaping.
func Filter(lines []string, substr string) []string {
	if substr == "" {
		return lines
	}
	kept := lines[:0:0]
	for _, line := range lines {
		if strings.Contains(line, substr) {
			kept = append(kept, line)
		}
	}
	return kept
}

// window returns the last maxLines lines of the first size bytes of r.
func window(r io.ReaderAt, size int64, maxLines int) ([]string, error) {
	if size == 0 {
		return []string{}, nil
	}

	if maxLines < 0 {
		data := make([]byte, size)
		if err := readFull(r, data, 0); err != nil {
			return nil, err
		}
		return splitLines(data, false), nil
	}

	// The newline terminating the file does not separate two lines
	end := size
	last := make([]byte, 1)
	if err := readFull(r, last, size-1); err != nil {
		return nil, err
	}
	if last[0] == '\n' {
		end--
	}

	var (
		data     []byte
		pos      = end
		newlines int
	)
	for pos > 0 && newlines < maxLines {
		n := int64(BlockSize)
		if pos < n {
			n = pos
		}
		pos -= n

		block := make([]byte, n)
		if err := readFull(r, block, pos); err != nil {
			return nil, err
		}
		newlines += bytes.Count(block, []byte{'\n'})
		data = append(block, data...)
	}

	if end < size {
		data = append(data, '\n')
	}
	lines := splitLines(data, pos > 0)
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}

// readFull fills buf from r at off. A file that shrank since it was sized
// yields fewer bytes than asked for, which is an error even when ReadAt
// reports io.EOF.
func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d of %d bytes at offset %d: %w", n, len(buf), off, err)
}

// splitLines breaks data on '\n' and strips trailing whitespace from every
// line. A final newline ends the last line rather than starting an empty one.
// With partial set, the first segment began before data and is dropped.
func splitLines(data []byte, partial bool) []string {
	if len(data) == 0 {
		return []string{}
	}

	data = bytes.TrimSuffix(data, []byte{'\n'})
	segments := strings.Split(string(data), "\n")
	if partial {
		segments = segments[1:]
	}
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = strings.TrimRightFunc(s, unicode.IsSpace)
	}
	return lines
}
