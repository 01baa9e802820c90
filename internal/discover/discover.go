// Package discover enumerates the TypeScript sources a run operates on,
// either from explicit paths or from a tsconfig.json project file.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/src-d/enry/v2"
)

// Sentinel errors.
var (
	ErrNoInputs   = errors.New("no input files")
	ErrBadPattern = errors.New("invalid glob pattern")
)

const declarationSuffix = ".d.ts"

// Options configures a Finder.
type Options struct {
	Logger     *slog.Logger
	Extensions []string
	// Exclude holds doublestar patterns matched against slash separated
	// paths relative to the walked root.
	Exclude []string
}

// Finder walks directories and filters candidate files.
type Finder struct {
	logger     *slog.Logger
	extensions map[string]bool
	exclude    []string
}

// New validates the exclude patterns and returns a Finder.
func New(opts Options) (*Finder, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &Finder{logger: logger, extensions: exts, exclude: opts.Exclude}, nil
}

// Paths expands files and directories into a sorted, de-duplicated list.
// Explicit files bypass the vendor and exclude filters but must still have
// an accepted extension.
func (f *Finder) Paths(ctx context.Context, paths []string) ([]string, error) {
	seen := make(map[string]bool)

	var out []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if f.hasExtension(path) {
				add(filepath.Clean(path))
			}

			continue
		}

		err = f.walk(ctx, path, func(rel string) bool { return !f.excluded(rel) }, add)
		if err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		return nil, ErrNoInputs
	}

	slices.Sort(out)

	return out, nil
}

func (f *Finder) walk(ctx context.Context, root string, keep func(rel string) bool, add func(string)) error {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if rel != "." && (enry.IsDotFile(rel) || enry.IsVendor(rel+"/")) {
				f.logger.Debug("skipping directory", "path", path)

				return filepath.SkipDir
			}

			return nil
		}

		if !f.hasExtension(path) || enry.IsDotFile(rel) || enry.IsVendor(rel) || !keep(rel) {
			return nil
		}

		add(path)

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	return nil
}

func (f *Finder) hasExtension(path string) bool {
	if strings.HasSuffix(strings.ToLower(path), declarationSuffix) {
		return false
	}

	return f.extensions[strings.ToLower(filepath.Ext(path))]
}

func (f *Finder) excluded(rel string) bool {
	return matchAny(f.exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}
