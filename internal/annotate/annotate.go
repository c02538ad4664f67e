// Package annotate writes usage documentation for every extracted code object,
// using retrieved project context.
package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/llm/prompts"
	"github.com/rohankatakam/autodoc/internal/models"
	"github.com/rohankatakam/autodoc/internal/vectorstore"
)

// Entry is one element of a per-file annotation document
type Entry struct {
	CodeObject models.CodeObject `json:"codeObject"`
	Annotation models.Annotation `json:"annotation"`
}

// Report summarises an annotation pass
type Report struct {
	Files     int
	Annotated int
	Failed    int
	Paths     []string
}

// Annotator runs the annotation pass
type Annotator struct {
	llm    llm.Inferer
	store  vectorstore.Store
	topK   int
	now    func() time.Time
	logger *slog.Logger
}

// New creates an annotator; store may be nil when retrieval is off
func New(inferer llm.Inferer, store vectorstore.Store, topK int) *Annotator {
	if store == nil {
		store = vectorstore.Noop{}
	}
	if topK <= 0 {
		topK = 3
	}
	return &Annotator{
		llm:    inferer,
		store:  store,
		topK:   topK,
		now:    time.Now,
		logger: logging.Component("annotate"),
	}
}

type answer struct {
	Purpose string `json:"purpose"`
	Details string `json:"details"`
}

// Annotate documents every object of every file that has extracted objects,
// whatever its status. The annotation is attached to the object in summary and
// one timestamped JSON file per source file is written under outDir. Only
// context cancellation stops the pass.
func (a *Annotator) Annotate(ctx context.Context, summary *models.ProjectSummary, outDir string) (Report, error) {
	var report Report
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, errors.FileSystemError(err, "create annotation directory")
	}
	stamp := a.now().UTC().Format("20060102_150405")

	for i := range summary.CodeFiles {
		file := &summary.CodeFiles[i]
		if file.CodeObjects.Count() == 0 {
			continue
		}

		var entries []Entry
		var walkErr error
		file.CodeObjects.Walk(func(_ models.Category, obj *models.CodeObject) {
			if walkErr != nil {
				return
			}
			ann, err := a.annotateObject(ctx, summary.ProjectName, file.FileLocation, obj)
			if err != nil {
				if ctx.Err() != nil {
					walkErr = ctx.Err()
					return
				}
				report.Failed++
				a.logger.Warn("annotation failed", "file", file.FileLocation, "object", obj.Name, "error", err)
				return
			}
			obj.Annotation = &ann
			report.Annotated++

			bare := *obj
			bare.Annotation = nil
			bare.SubObjects = nil
			entries = append(entries, Entry{CodeObject: bare, Annotation: ann})
		})
		if walkErr != nil {
			return report, walkErr
		}
		if len(entries) == 0 {
			continue
		}

		path := filepath.Join(outDir, fmt.Sprintf("%s_%s.json", flatten(file.FileLocation), stamp))
		if err := writeEntries(path, entries); err != nil {
			return report, err
		}
		report.Files++
		report.Paths = append(report.Paths, path)
	}

	a.logger.Info("annotation pass complete", "files", report.Files, "objects", report.Annotated, "failed", report.Failed)
	return report, nil
}

func (a *Annotator) annotateObject(ctx context.Context, project, location string, obj *models.CodeObject) (models.Annotation, error) {
	query := strings.TrimSpace(obj.Name + " " + obj.Description)
	if query == "" {
		query = obj.CodeSnippet
	}

	var related, refs []string
	hits, err := a.store.Search(ctx, project, query, a.topK)
	if err != nil {
		a.logger.Debug("context search failed", "object", obj.Name, "error", err)
	}
	for _, h := range hits {
		related = append(related, h.Text)
		refs = append(refs, h.ChunkID)
	}

	prompt := prompts.Annotation(prompts.AnnotationInput{
		ProjectName: project,
		FilePath:    location,
		ObjectType:  string(obj.Type),
		ObjectName:  obj.Name,
		Description: obj.Description,
		Snippet:     obj.CodeSnippet,
		Context:     related,
	})
	res, err := a.llm.Infer(ctx, prompt, llm.ModeJSON, "")
	if err != nil {
		return models.Annotation{}, err
	}

	var ans answer
	switch {
	case res.Failure != nil:
		// prose answers are still usable documentation
		ans.Details = strings.TrimSpace(res.Failure.Original)
	default:
		if err := llm.Decode(res.Value, &ans); err != nil {
			return models.Annotation{}, errors.ParseErrorf(err, "decode annotation")
		}
	}
	if ans.Purpose == "" && ans.Details == "" {
		return models.Annotation{}, errors.ParseError("empty annotation")
	}

	return models.Annotation{
		Purpose:    ans.Purpose,
		Details:    ans.Details,
		Generated:  a.now().UTC(),
		SourceRefs: refs,
	}, nil
}

func flatten(location string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ".", "_")
	return r.Replace(strings.TrimPrefix(location, "./"))
}

func writeEntries(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.InternalErrorf("encode annotations: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.FileSystemErrorf(err, "write %s", path)
	}
	return nil
}
