package docs

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/rohankatakam/autodoc/internal/errors"
)

// mdLinks points relative .md links at their .html mirrors
type mdLinks struct{}

func (mdLinks) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			link.Destination = []byte(htmlTarget(string(link.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

func htmlTarget(dest string) string {
	if strings.Contains(dest, "://") || !strings.HasSuffix(dest, ".md") {
		return dest
	}
	return strings.TrimSuffix(dest, ".md") + ".html"
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
		parser.WithASTTransformers(util.Prioritized(mdLinks{}, 100)),
	),
)

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;max-width:960px;margin:2em auto;padding:0 1em;line-height:1.5}
pre{background:#f6f8fa;padding:12px;overflow:auto}
code{background:#f6f8fa;padding:1px 4px}
table{border-collapse:collapse}td,th{border:1px solid #ddd;padding:4px 8px}
img{max-width:100%%}
</style>
</head>
<body>
%s
</body>
</html>
`

// RenderHTML converts Markdown into a standalone HTML page
func RenderHTML(title string, md []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(htmlPage, html.EscapeString(title), body.String())), nil
}

// mirror writes an .html file next to every Markdown file in paths
func (e *Emitter) mirror(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		md, err := os.ReadFile(p)
		if err != nil {
			return out, errors.FileSystemErrorf(err, "read %s", p)
		}
		title := p
		if line, _, _ := strings.Cut(string(md), "\n"); strings.HasPrefix(line, "# ") {
			title = strings.TrimPrefix(line, "# ")
		}
		page, err := RenderHTML(title, md)
		if err != nil {
			return out, errors.InternalErrorf("render %s: %v", p, err)
		}
		dest := strings.TrimSuffix(p, ".md") + ".html"
		if err := os.WriteFile(dest, page, 0644); err != nil {
			return out, errors.FileSystemErrorf(err, "write %s", dest)
		}
		out = append(out, dest)
	}
	return out, nil
}
