// Package source decides which physical file is "the log" right now: among
// all files in a directory whose name starts with a pattern, the one created
// most recently. Resolution is recomputed on every call because rotation can
// produce a newer file at any time.
package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	perrors "github.com/jmurray2011/parrot/internal/errors"
)

// ResolvedFile is a log file candidate.
type ResolvedFile struct {
	Path    string
	Name    string
	Size    int64
	Created time.Time
}

// Resolver enumerates a log directory. The zero value is not usable; use
// NewResolver.
type Resolver struct {
	// Fs is the filesystem the directory lives on.
	Fs afero.Fs

	// CreatedAt extracts the creation timestamp of the file at path used
	// for ordering.
	CreatedAt func(path string, fi os.FileInfo) time.Time
}

// NewResolver creates a Resolver over fs using platform creation times.
func NewResolver(fsys afero.Fs) *Resolver {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Resolver{
		Fs:        fsys,
		CreatedAt: CreationTime,
	}
}

// Resolve returns the newest file in dir whose name starts with pattern.
// Equal creation times are broken by the lexicographically greatest name.
func (r *Resolver) Resolve(dir, pattern string) (ResolvedFile, error) {
	candidates, names, err := r.scan(dir, pattern)
	if err != nil {
		return ResolvedFile{}, err
	}
	if len(candidates) == 0 {
		return ResolvedFile{}, perrors.NoMatchingFile(dir, pattern, names)
	}
	return candidates[0], nil
}

// Candidates returns every file matching pattern, newest first.
func (r *Resolver) Candidates(dir, pattern string) ([]ResolvedFile, error) {
	candidates, _, err := r.scan(dir, pattern)
	return candidates, err
}

func (r *Resolver) scan(dir, pattern string) ([]ResolvedFile, []string, error) {
	if pattern == "" {
		return nil, nil, perrors.InvalidArgument("log_name", pattern, "must not be empty")
	}

	entries, err := afero.ReadDir(r.Fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isNotDir(r.Fs, dir) {
			return nil, nil, perrors.MissingDirectory(dir, err)
		}
		return nil, nil, perrors.FileUnreadable(dir, err)
	}

	var candidates []ResolvedFile
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		// Rotated logs are often reached through a "current" symlink
		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := r.Fs.Stat(path)
			if err != nil {
				continue // dangling link
			}
			entry = target
		}
		if entry.IsDir() {
			continue
		}

		names = append(names, name)
		if !strings.HasPrefix(name, pattern) {
			continue
		}
		candidates = append(candidates, ResolvedFile{
			Path:    path,
			Name:    name,
			Size:    entry.Size(),
			Created: r.createdAt(path, entry),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].Created.Equal(candidates[j].Created) {
			return candidates[i].Created.After(candidates[j].Created)
		}
		return candidates[i].Name > candidates[j].Name
	})

	return candidates, names, nil
}

func (r *Resolver) createdAt(path string, fi os.FileInfo) time.Time {
	if r.CreatedAt != nil {
		return r.CreatedAt(path, fi)
	}
	return CreationTime(path, fi)
}

func isNotDir(fsys afero.Fs, dir string) bool {
	fi, err := fsys.Stat(dir)
	return err == nil && !fi.IsDir()
}

// CreationTime returns the platform creation timestamp of the file at path
// described by fi. Linux reports the statx birth time, or the inode change
// time where the filesystem keeps no birth time. Darwin and Windows report
// their native creation times. Elsewhere, or when fi carries no platform
// stat, it falls back to the modification time.
func CreationTime(path string, fi os.FileInfo) time.Time {
	if t, ok := platformCreated(path, fi); ok {
		return t
	}
	return fi.ModTime()
}
