// Package discovery finds the source files and dependency manifests of a project.
package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/treesitter"
)

// IgnoreFileNames are read from both the project root and the invocation directory
var IgnoreFileNames = []string{".gitignore", ".autodocignore"}

// File is one discovered source file
type File struct {
	Path     string // absolute
	Rel      string // slash-separated, relative to the project root
	Language string
	Size     int64
}

// Options controls which files are returned
type Options struct {
	Include []string // gitignore-style patterns; empty includes everything
	Exclude []string
	// InvocationDir is where the tool was started; its ignore files apply too
	InvocationDir string
	// Limit caps the result after sorting (0 means no cap)
	Limit int
}

// Finder applies include, exclude and ignore-file rules relative to one root
type Finder struct {
	root    string
	include *ignore.GitIgnore
	exclude *ignore.GitIgnore
	ignores []*ignore.GitIgnore
	logger  *slog.Logger
}

// NewFinder compiles the pattern sets and loads up to four ignore files
func NewFinder(root string, opts Options) (*Finder, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.FileSystemError(err, "resolve project path")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "project path %s", root)
	}
	if !info.IsDir() {
		return nil, errors.ValidationErrorf("project path %s is not a directory", root)
	}

	f := &Finder{
		root:   abs,
		logger: logging.Component("discovery"),
	}
	if len(opts.Include) > 0 {
		f.include = ignore.CompileIgnoreLines(opts.Include...)
	}
	if len(opts.Exclude) > 0 {
		f.exclude = ignore.CompileIgnoreLines(opts.Exclude...)
	}
	f.ignores = loadIgnoreFiles(ignoreFilePaths(abs, opts.InvocationDir), f.logger)
	return f, nil
}

// ignoreFilePaths lists the candidate ignore files, root first, without duplicates
func ignoreFilePaths(root, invocationDir string) []string {
	dirs := []string{root}
	if invocationDir != "" {
		if abs, err := filepath.Abs(invocationDir); err == nil && abs != root {
			dirs = append(dirs, abs)
		}
	}
	var paths []string
	for _, dir := range dirs {
		for _, name := range IgnoreFileNames {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

func loadIgnoreFiles(paths []string, logger *slog.Logger) []*ignore.GitIgnore {
	var out []*ignore.GitIgnore
	for _, p := range paths {
		gi, err := ignore.CompileIgnoreFile(p)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("unreadable ignore file", "path", p, "error", err)
			}
			continue
		}
		logger.Debug("loaded ignore file", "path", p)
		out = append(out, gi)
	}
	return out
}

// Ignored reports whether a root-relative path is excluded or ignored
func (f *Finder) Ignored(rel string, isDir bool) bool {
	candidates := []string{rel}
	if isDir {
		candidates = append(candidates, rel+"/")
	}
	for _, c := range candidates {
		if f.exclude != nil && f.exclude.MatchesPath(c) {
			return true
		}
		for _, gi := range f.ignores {
			if gi.MatchesPath(c) {
				return true
			}
		}
	}
	return false
}

// Included reports whether a file path matches the include set
func (f *Finder) Included(rel string) bool {
	return f.include == nil || f.include.MatchesPath(rel)
}

// Walk visits every non-ignored regular file under the root in lexical order
func (f *Finder) Walk(fn func(path, rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			f.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == f.root {
			return nil
		}

		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || f.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}
		if f.Ignored(rel, false) {
			return nil
		}
		return fn(path, rel, d)
	})
}

// SourceFiles returns the files to document, sorted by relative path
func (f *Finder) SourceFiles(limit int) ([]File, error) {
	var files []File
	err := f.Walk(func(path, rel string, d fs.DirEntry) error {
		if !f.Included(rel) || isGeneratedFile(rel) {
			return nil
		}
		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, File{
			Path:     path,
			Rel:      rel,
			Language: treesitter.LanguageName(rel),
			Size:     size,
		})
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "walk %s", f.root)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	if limit > 0 && len(files) > limit {
		f.logger.Info("limiting discovered files", "found", len(files), "limit", limit)
		files = files[:limit]
	}
	return files, nil
}

// isGeneratedFile returns true if file is likely generated
func isGeneratedFile(rel string) bool {
	generatedSuffixes := []string{
		".min.js",
		".bundle.js",
		".generated.ts",
		".generated.js",
		".pb.go",
		".pb.js",
		".pb.ts",
		".d.ts",
		"_pb.js",
		"_pb.ts",
		"_pb2.py",
	}
	for _, s := range generatedSuffixes {
		if strings.HasSuffix(rel, s) {
			return true
		}
	}
	return false
}

// Summary describes a discovery result for logs and prompts
func Summary(files []File) string {
	byLang := map[string]int{}
	for _, f := range files {
		lang := f.Language
		if lang == "" {
			lang = "other"
		}
		byLang[lang]++
	}
	langs := make([]string, 0, len(byLang))
	for l := range byLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	parts := make([]string, len(langs))
	for i, l := range langs {
		parts[i] = fmt.Sprintf("%s=%d", l, byLang[l])
	}
	return fmt.Sprintf("%d files (%s)", len(files), strings.Join(parts, ", "))
}
