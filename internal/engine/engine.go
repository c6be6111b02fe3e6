// Package engine ties log resolution and tail reads together behind the two
// operations every transport exposes: a bulk read and a per-tick session read.
package engine

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/internal/logging"
	"github.com/jmurray2011/parrot/internal/source"
	"github.com/jmurray2011/parrot/internal/tail"
)

// Engine is immutable after construction and safe for concurrent use by any
// number of requests and sessions. Per-request overrides are passed as
// parameters and never stored.
type Engine struct {
	Fs       afero.Fs
	Resolver *source.Resolver
	Dir      string
	Name     string
	Aliases  map[string]string
	Logger   logging.Logger
}

// New creates an Engine reading the log named name in dir.
func New(fsys afero.Fs, dir, name string, aliases map[string]string) *Engine {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	copied := make(map[string]string, len(aliases))
	for k, v := range aliases {
		copied[k] = v
	}
	return &Engine{
		Fs:       fsys,
		Resolver: source.NewResolver(fsys),
		Dir:      dir,
		Name:     name,
		Aliases:  copied,
		Logger:   logging.NopLogger{},
	}
}

// ReadRequest describes one bulk read.
type ReadRequest struct {
	// Lines is the window size; nil reads the whole file.
	Lines *int

	// Filter keeps only lines containing it. Empty keeps everything.
	Filter string

	// Override replaces the configured log name for this request only. It
	// may name an alias.
	Override string
}

// ParseLines converts a textual line count. An empty string means the whole
// file (nil); anything but a non-negative integer is an InvalidArgument.
func ParseLines(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, perrors.InvalidArgument("lines", s, "is not an integer")
	}
	if n < 0 {
		return nil, perrors.InvalidArgument("lines", s, "must not be negative")
	}
	return &n, nil
}

// Read resolves the current log file and returns its last lines.
func (e *Engine) Read(ctx context.Context, req ReadRequest) ([]string, error) {
	if req.Lines != nil && *req.Lines < 0 {
		return nil, perrors.InvalidArgument("lines", strconv.Itoa(*req.Lines), "must not be negative")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxLines := tail.Unlimited
	if req.Lines != nil {
		maxLines = *req.Lines
	}
	return e.Tail(req.Override, req.Filter, maxLines)
}

// Tail performs one re-emission tick: resolve, then window and filter.
func (e *Engine) Tail(override, filter string, maxLines int) ([]string, error) {
	file, err := e.Resolve(override)
	if err != nil {
		return nil, err
	}
	return tail.Read(e.Fs, file.Path, maxLines, filter)
}

// Follow performs one follow-mode tick: resolve, then read what was appended
// since cur. Rotation to a new file restarts the cursor on that file.
func (e *Engine) Follow(cur *tail.Cursor, override, filter string) ([]string, error) {
	file, err := e.Resolve(override)
	if err != nil {
		return nil, err
	}
	if cur.Path != "" && cur.Path != file.Path {
		e.Logger.Info("log rotated", "from", cur.Path, "to", file.Path)
	}
	return tail.ReadFrom(e.Fs, file.Path, cur, filter)
}

// Resolve returns the file currently representing the log.
func (e *Engine) Resolve(override string) (source.ResolvedFile, error) {
	file, err := e.Resolver.Resolve(e.Dir, e.Pattern(override))
	if err != nil {
		return source.ResolvedFile{}, err
	}
	e.Logger.Debug("resolved log file", "path", file.Path)
	return file, nil
}

// Files lists every candidate for the log, newest first.
func (e *Engine) Files(override string) ([]source.ResolvedFile, error) {
	return e.Resolver.Candidates(e.Dir, e.Pattern(override))
}

// Pattern returns the name prefix to resolve. An override naming an alias
// expands to the alias pattern; any other override is used as-is.
func (e *Engine) Pattern(override string) string {
	if override == "" {
		return e.Name
	}
	if pattern, ok := e.Aliases[override]; ok {
		return pattern
	}
	return override
}

// Alias returns the pattern configured for name.
func (e *Engine) Alias(name string) (string, error) {
	pattern, ok := e.Aliases[name]
	if !ok {
		return "", perrors.AliasNotFoundError(name, e.AliasNames())
	}
	return pattern, nil
}

// AliasNames returns the configured alias names, sorted.
func (e *Engine) AliasNames() []string {
	names := make([]string, 0, len(e.Aliases))
	for name := range e.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
