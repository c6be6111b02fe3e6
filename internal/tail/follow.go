package tail

import (
	"bytes"

	"github.com/spf13/afero"

	perrors "github.com/jmurray2011/parrot/internal/errors"
)

// MaxChunk bounds how much a single follow read consumes. A line longer than
// this is emitted in MaxChunk pieces rather than stalling the cursor.
const MaxChunk = 1 << 20

// Cursor tracks a follow-mode position in a log file. The zero value seeds
// with a single line on its first read.
type Cursor struct {
	// Path is the file the offset refers to.
	Path string

	// Offset is the byte position just after the last line returned.
	Offset int64

	// Seed is how many trailing lines the first read returns.
	Seed int

	seeded bool
}

// Reset forgets the position so the next read seeds again.
func (c *Cursor) Reset() {
	c.Path = ""
	c.Offset = 0
	c.seeded = false
}

// ReadFrom returns the complete lines written to path since the cursor's last
// read and advances the cursor. An unterminated final line is held back until
// its newline arrives. The cursor restarts at the beginning of the file when
// path differs from the cursor's (rotation) or the file shrank (truncation).
func ReadFrom(fsys afero.Fs, path string, cur *Cursor, filter string) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, perrors.FileUnreadable(path, err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, perrors.FileUnreadable(path, err)
	}
	size := fi.Size()

	if !cur.seeded {
		seed := cur.Seed
		if seed == 0 {
			seed = 1
		}
		lines, err := window(f, size, seed)
		if err != nil {
			return nil, perrors.FileUnreadable(path, err)
		}
		cur.Path, cur.Offset, cur.seeded = path, size, true
		return Filter(lines, filter), nil
	}

	if path != cur.Path || size < cur.Offset {
		cur.Path, cur.Offset = path, 0
	}
	if size == cur.Offset {
		return []string{}, nil
	}

	n := size - cur.Offset
	if n > MaxChunk {
		n = MaxChunk
	}
	data := make([]byte, n)
	if err := readFull(f, data, cur.Offset); err != nil {
		return nil, perrors.FileUnreadable(path, err)
	}

	complete := bytes.LastIndexByte(data, '\n') + 1
	if complete == 0 {
		if n < MaxChunk {
			return []string{}, nil
		}
		complete = len(data)
	}

	cur.Offset += int64(complete)
	return Filter(splitLines(data[:complete], false), filter), nil
}
