package discovery

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/autodoc/internal/models"
)

// manifestParser extracts dependencies from one manifest's bytes
type manifestParser func(data []byte) ([]models.Dependency, error)

// manifestParsers is keyed by exact file name
var manifestParsers = map[string]manifestParser{
	"package.json":     jsonSections("dependencies", "devDependencies", "peerDependencies", "optionalDependencies"),
	"composer.json":    jsonSections("require", "require-dev"),
	"bower.json":       jsonSections("dependencies", "devDependencies"),
	"deno.json":        jsonSections("imports"),
	"Cargo.toml":       tomlSections("dependencies", "dev-dependencies", "build-dependencies"),
	"Pipfile":          tomlSections("packages", "dev-packages"),
	"pyproject.toml":   parsePyProject,
	"pubspec.yaml":     yamlSections("dependencies", "dev_dependencies"),
	"environment.yml":  parseCondaEnv,
	"go.mod":           parseGoMod,
	"requirements.txt": parseRequirements,
	"Gemfile":          parseGemfile,
}

// manifestPatterns catch the manifest families whose names vary
var manifestPatterns = []struct {
	glob   string
	parser manifestParser
}{
	{"requirements*.txt", parseRequirements},
	{"*.requirements.txt", parseRequirements},
}

func parserFor(name string) manifestParser {
	if p, ok := manifestParsers[name]; ok {
		return p
	}
	for _, mp := range manifestPatterns {
		if ok, _ := path.Match(mp.glob, name); ok {
			return mp.parser
		}
	}
	return nil
}

// IsManifest reports whether a file name is a known dependency manifest
func IsManifest(name string) bool {
	return parserFor(name) != nil
}

// Dependencies walks the project for manifests and returns the flattened,
// de-duplicated dependency list. Unparseable manifests are logged and skipped.
func (f *Finder) Dependencies() ([]models.Dependency, error) {
	var deps []models.Dependency
	seen := map[string]bool{}

	err := f.Walk(func(p, rel string, d fs.DirEntry) error {
		parse := parserFor(d.Name())
		if parse == nil {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			f.logger.Warn("cannot read manifest", "path", rel, "error", err)
			return nil
		}
		found, err := parse(data)
		if err != nil {
			f.logger.Warn("cannot parse manifest", "path", rel, "error", err)
			return nil
		}
		for _, dep := range found {
			dep.Manifest = rel
			key := rel + "\x00" + dep.Name
			if dep.Name == "" || seen[key] {
				continue
			}
			seen[key] = true
			deps = append(deps, dep)
		}
		f.logger.Debug("parsed manifest", "path", rel, "dependencies", len(found))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}

// flatten lifts the entries of each named top-level section into one list.
// Only one level is flattened: a nested table value contributes its
// "version" key when present.
func flatten(doc map[string]any, sections ...string) []models.Dependency {
	var out []models.Dependency
	for _, section := range sections {
		entries, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, models.Dependency{
				Name:    name,
				Version: versionOf(entries[name]),
				Scope:   section,
			})
		}
	}
	return out
}

func versionOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["version"].(string); ok {
			return s
		}
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
	return ""
}

func jsonSections(sections ...string) manifestParser {
	return func(data []byte) ([]models.Dependency, error) {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return flatten(doc, sections...), nil
	}
}

func tomlSections(sections ...string) manifestParser {
	return func(data []byte) ([]models.Dependency, error) {
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return flatten(doc, sections...), nil
	}
}

func yamlSections(sections ...string) manifestParser {
	return func(data []byte) ([]models.Dependency, error) {
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return flatten(doc, sections...), nil
	}
}

// pep508Name captures the distribution name at the start of a requirement
var pep508Name = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*(.*)$`)

func splitRequirement(req string) (name, version string) {
	req = strings.TrimSpace(req)
	if i := strings.Index(req, ";"); i >= 0 {
		req = req[:i]
	}
	m := pep508Name.FindStringSubmatch(req)
	if m == nil {
		return "", ""
	}
	return m[1], strings.TrimSpace(m[3])
}

func parsePyProject(data []byte) ([]models.Dependency, error) {
	var doc struct {
		Project struct {
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry map[string]any `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var out []models.Dependency
	for _, req := range doc.Project.Dependencies {
		if name, ver := splitRequirement(req); name != "" {
			out = append(out, models.Dependency{Name: name, Version: ver, Scope: "dependencies"})
		}
	}
	groups := make([]string, 0, len(doc.Project.OptionalDependencies))
	for g := range doc.Project.OptionalDependencies {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		for _, req := range doc.Project.OptionalDependencies[g] {
			if name, ver := splitRequirement(req); name != "" {
				out = append(out, models.Dependency{Name: name, Version: ver, Scope: "optional:" + g})
			}
		}
	}
	for _, dep := range flatten(doc.Tool.Poetry, "dependencies", "dev-dependencies") {
		if dep.Name == "python" {
			continue
		}
		out = append(out, dep)
	}
	return out, nil
}

func parseCondaEnv(data []byte) ([]models.Dependency, error) {
	var doc struct {
		Dependencies []any `yaml:"dependencies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var out []models.Dependency
	for _, d := range doc.Dependencies {
		s, ok := d.(string)
		if !ok {
			continue
		}
		name, ver, _ := strings.Cut(s, "=")
		out = append(out, models.Dependency{Name: strings.TrimSpace(name), Version: strings.TrimLeft(ver, "="), Scope: "dependencies"})
	}
	return out, nil
}

func parseRequirements(data []byte) ([]models.Dependency, error) {
	var out []models.Dependency
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if name, ver := splitRequirement(line); name != "" {
			out = append(out, models.Dependency{Name: name, Version: ver, Scope: "dependencies"})
		}
	}
	return out, sc.Err()
}

// parseGoMod reads require directives in both single-line and block form
func parseGoMod(data []byte) ([]models.Dependency, error) {
	var out []models.Dependency
	inBlock := false
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		scope := "require"
		if i := strings.Index(line, "//"); i >= 0 {
			if strings.Contains(line[i:], "indirect") {
				scope = "indirect"
			}
			line = strings.TrimSpace(line[:i])
		}
		switch {
		case line == "":
			continue
		case line == "require (":
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		case strings.HasPrefix(line, "require "):
			line = strings.TrimSpace(strings.TrimPrefix(line, "require "))
		case !inBlock:
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out = append(out, models.Dependency{Name: fields[0], Version: fields[1], Scope: scope})
	}
	return out, sc.Err()
}

var gemLine = regexp.MustCompile(`^\s*gem\s+["']([^"']+)["'](?:\s*,\s*["']([^"']+)["'])?`)

func parseGemfile(data []byte) ([]models.Dependency, error) {
	var out []models.Dependency
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if m := gemLine.FindStringSubmatch(sc.Text()); m != nil {
			out = append(out, models.Dependency{Name: m[1], Version: m[2], Scope: "dependencies"})
		}
	}
	return out, sc.Err()
}
