package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func rels(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Rel
	}
	return out
}

var defaultOpts = Options{
	Include: []string{"**/*.js", "**/*.ts", "**/*.py", "**/*.go"},
	Exclude: []string{"node_modules", "dist", "*.min.js"},
}

func TestSourceFilesAppliesPatterns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.js":                "",
		"src/app.ts":              "",
		"src/app.min.js":          "",
		"src/types.d.ts":          "",
		"lib/util.py":             "",
		"README.md":               "",
		"node_modules/x/index.js": "",
		"dist/bundle.js":          "",
	})

	files, err := discover(root, defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.js", "lib/util.py", "src/app.ts"}, rels(files))
	assert.Equal(t, "TypeScript", files[2].Language)
	assert.True(t, filepath.IsAbs(files[0].Path))
}

func discover(root string, opts Options) ([]File, error) {
	f, err := NewFinder(root, opts)
	if err != nil {
		return nil, err
	}
	return f.SourceFiles(opts.Limit)
}

func TestIgnoreFilesFromRootAndInvocationDir(t *testing.T) {
	root := t.TempDir()
	cwd := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":     "generated/\n",
		".autodocignore": "scripts/*.py\n",
		"a.js":           "",
		"generated/g.js": "",
		"scripts/s.py":   "",
		"legacy/old.js":  "",
	})
	writeFiles(t, cwd, map[string]string{".autodocignore": "legacy\n"})

	opts := defaultOpts
	opts.InvocationDir = cwd
	files, err := discover(root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, rels(files))
}

func TestLimit(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.go": "", "b.go": "", "c.go": "", "d.go": ""})

	opts := defaultOpts
	opts.Limit = 3
	files, err := discover(root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, rels(files))
}

func TestDiscoverRejectsMissingRoot(t *testing.T) {
	_, err := discover(filepath.Join(t.TempDir(), "missing"), defaultOpts)
	assert.Error(t, err)
}

func TestDependenciesPackageJSON(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json": `{"name": "demo", "dependencies": {"lodash": "^4.0.0"}}`,
	})

	f, err := NewFinder(root, defaultOpts)
	require.NoError(t, err)
	deps, err := f.Dependencies()
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "lodash", deps[0].Name)
	assert.Equal(t, "^4.0.0", deps[0].Version)
	assert.Equal(t, "dependencies", deps[0].Scope)
	assert.Equal(t, "package.json", deps[0].Manifest)
}

func TestDependenciesAcrossEcosystems(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"go.mod": `module example.com/x

go 1.22

require github.com/spf13/cobra v1.8.1

require (
	github.com/stretchr/testify v1.10.0
	golang.org/x/sys v0.20.0 // indirect
)
`,
		"api/requirements.txt": "# web\nflask==3.0.0\nrequests>=2.0 ; python_version > '3.8'\n-r base.txt\n",
		"rust/Cargo.toml": `[package]
name = "x"

[dependencies]
serde = { version = "1.0", features = ["derive"] }
rand = "0.8"
`,
		"py/pyproject.toml": `[project]
name = "svc"
dependencies = ["httpx>=0.27", "pydantic[email]==2.7.0"]
`,
		"app/pubspec.yaml": "name: app\ndependencies:\n  http: ^1.2.0\n",
		"Gemfile":          "source 'https://rubygems.org'\ngem 'rails', '~> 7.1'\ngem \"puma\"\n",
		"node_modules/lodash/package.json": `{"dependencies": {"ignored": "1"}}`,
	})

	f, err := NewFinder(root, defaultOpts)
	require.NoError(t, err)
	deps, err := f.Dependencies()
	require.NoError(t, err)

	byName := map[string]string{}
	for _, d := range deps {
		byName[d.Name] = d.Version
	}
	assert.Equal(t, "v1.8.1", byName["github.com/spf13/cobra"])
	assert.Equal(t, "v1.10.0", byName["github.com/stretchr/testify"])
	assert.Contains(t, byName, "golang.org/x/sys")
	assert.Equal(t, "==3.0.0", byName["flask"])
	assert.Equal(t, ">=2.0", byName["requests"])
	assert.Equal(t, "1.0", byName["serde"])
	assert.Equal(t, "0.8", byName["rand"])
	assert.Equal(t, ">=0.27", byName["httpx"])
	assert.Equal(t, "==2.7.0", byName["pydantic"])
	assert.Equal(t, "^1.2.0", byName["http"])
	assert.Equal(t, "~> 7.1", byName["rails"])
	assert.Contains(t, byName, "puma")
	assert.NotContains(t, byName, "ignored")
}

func TestBrokenManifestIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json":     `{"dependencies": `,
		"requirements.txt": "numpy\n",
	})

	f, err := NewFinder(root, defaultOpts)
	require.NoError(t, err)
	deps, err := f.Dependencies()
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "numpy", deps[0].Name)
}

func TestIsManifest(t *testing.T) {
	assert.True(t, IsManifest("requirements-dev.txt"))
	assert.True(t, IsManifest("Cargo.toml"))
	assert.False(t, IsManifest("main.go"))
}

func TestSummary(t *testing.T) {
	s := Summary([]File{{Language: "Go"}, {Language: "Go"}, {Language: ""}})
	assert.Equal(t, "3 files (Go=2, other=1)", s)
}
