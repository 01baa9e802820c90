package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"github.com/tailscale/hujson"
)

// ErrProject is returned when a project file cannot be read or parsed.
var ErrProject = errors.New("invalid project file")

// Default tsconfig patterns used when the project leaves them unset.
var (
	defaultInclude        = []string{"**/*"}
	defaultProjectExclude = []string{"node_modules", "bower_components", "jspm_packages"}
)

// Project is the subset of a tsconfig.json that selects inputs.
type Project struct {
	Dir     string
	Files   []string
	Include []string
	Exclude []string
}

// LoadProject reads a tsconfig.json. Comments and trailing commas are
// accepted. The "extends" chain is not followed.
func LoadProject(file string) (*Project, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProject, err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProject, file, err)
	}

	v := viper.New()
	v.SetConfigType("json")

	if err := v.ReadConfig(bytes.NewReader(std)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProject, file, err)
	}

	proj := &Project{
		Dir:     filepath.Dir(file),
		Files:   v.GetStringSlice("files"),
		Include: normalizePatterns(v.GetStringSlice("include")),
		Exclude: normalizePatterns(v.GetStringSlice("exclude")),
	}

	if len(proj.Include) == 0 && len(proj.Files) == 0 {
		proj.Include = defaultInclude
	}

	if !v.IsSet("exclude") {
		proj.Exclude = normalizePatterns(defaultProjectExclude)
	}

	return proj, nil
}

// normalizePatterns maps tsconfig patterns onto doublestar: a pattern
// without wildcards or extension names a directory and matches everything
// beneath it.
func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "./")
		if !strings.ContainsAny(p, "*?[{") && path.Ext(p) == "" {
			p = strings.TrimSuffix(p, "/") + "/**/*"
		}

		out = append(out, p)
	}

	return out
}

// Project enumerates the files selected by a tsconfig.json.
func (f *Finder) Project(ctx context.Context, file string) ([]string, error) {
	proj, err := LoadProject(file)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var out []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, name := range proj.Files {
		p := filepath.Join(proj.Dir, filepath.FromSlash(name))
		if f.hasExtension(p) {
			add(p)
		}
	}

	if len(proj.Include) > 0 {
		keep := func(rel string) bool {
			return matchAny(proj.Include, rel) && !matchAny(proj.Exclude, rel) && !f.excluded(rel)
		}

		if err := f.walk(ctx, proj.Dir, keep, add); err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputs, file)
	}

	slices.Sort(out)

	f.logger.Debug("project enumerated", "project", file, "files", len(out))

	return out, nil
}
