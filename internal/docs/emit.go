package docs

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/models"
)

// DocsDir is the directory, relative to the output root, holding per-file pages
const DocsDir = "docs"

// Result lists the files an Emit call wrote
type Result struct {
	Readme   string
	Pages    []string
	HTML     []string
	HTMLRoot string
}

// Emitter writes README.md and one page per documented file under Root
type Emitter struct {
	Root   string
	HTML   bool
	logger *slog.Logger
}

// NewEmitter creates an emitter writing under root
func NewEmitter(root string, html bool) *Emitter {
	return &Emitter{Root: root, HTML: html, logger: logging.Component("docs")}
}

// Emit renders summary. Files that failed to read are listed in the README but
// get no page.
func (e *Emitter) Emit(summary *models.ProjectSummary) (Result, error) {
	var res Result
	links := make(map[string]string)

	for _, file := range summary.CodeFiles {
		if file.ProcessingStatus == models.StatusErrorRead {
			continue
		}
		rel := filepath.ToSlash(filepath.Join(DocsDir, DocPath(file.FileLocation)))
		dest := filepath.Join(e.Root, filepath.FromSlash(rel))
		if err := e.write(dest, &FileFormatter{File: file}); err != nil {
			return res, err
		}
		links[file.FileLocation] = rel
		res.Pages = append(res.Pages, dest)
	}

	for _, d := range summary.Diagrams {
		if d.FilePath == "" {
			continue
		}
		if rel, err := filepath.Rel(e.Root, d.FilePath); err == nil {
			links[d.FilePath] = filepath.ToSlash(rel)
		}
	}

	res.Readme = filepath.Join(e.Root, "README.md")
	if err := e.write(res.Readme, &ReadmeFormatter{Summary: summary, Links: links}); err != nil {
		return res, err
	}

	if e.HTML {
		html, err := e.mirror(append([]string{res.Readme}, res.Pages...))
		if err != nil {
			return res, err
		}
		res.HTML = html
		res.HTMLRoot = html[0]
	}

	e.logger.Info("documentation written", "root", e.Root, "pages", len(res.Pages), "html", len(res.HTML))
	return res, nil
}

func (e *Emitter) write(dest string, f Formatter) error {
	var buf bytes.Buffer
	if err := f.Format(&buf); err != nil {
		return errors.InternalErrorf("format %s: %v", dest, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.FileSystemErrorf(err, "create %s", filepath.Dir(dest))
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0644); err != nil {
		return errors.FileSystemErrorf(err, "write %s", dest)
	}
	return nil
}
