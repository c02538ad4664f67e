package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func find(decls []Declaration, kind, name string) *Declaration {
	for i := range decls {
		if decls[i].Kind == kind && decls[i].Name == name {
			return &decls[i]
		}
	}
	return nil
}

func TestDeclarationsJavaScript(t *testing.T) {
	src := `import React from "react";

export class Cart {
  constructor(items) {
    this.items = items;
  }
  total() {
    return 0;
  }
}

const add = (a, b) => a + b;
[1, 2].map((x) => x * 2);
`
	decls, err := Declarations("cart.js", []byte(src))
	require.NoError(t, err)

	assert.NotNil(t, find(decls, "import", "react"))
	cls := find(decls, "class", "Cart")
	require.NotNil(t, cls)
	assert.Equal(t, 3, cls.Line)

	ctor := find(decls, "constructor", "constructor")
	require.NotNil(t, ctor)
	assert.Equal(t, "Cart", ctor.Owner)

	total := find(decls, "method", "total")
	require.NotNil(t, total)
	assert.Equal(t, 7, total.Line)

	assert.NotNil(t, find(decls, "function", "add"))
	for _, d := range decls {
		assert.NotEqual(t, "", d.Name, "unbound callbacks are skipped")
	}
}

func TestDeclarationsTypeScript(t *testing.T) {
	src := `interface Shape { area(): number }
type ID = string;
function make(id: ID): Shape { return null as any; }
`
	decls, err := Declarations("shape.ts", []byte(src))
	require.NoError(t, err)

	assert.NotNil(t, find(decls, "interface", "Shape"))
	assert.NotNil(t, find(decls, "type", "ID"))
	mk := find(decls, "function", "make")
	require.NotNil(t, mk)
	assert.Equal(t, "function make(id: ID): Shape", mk.Signature)
}

func TestDeclarationsPython(t *testing.T) {
	src := `from os import path

class Store(Base):
    def __init__(self):
        pass

    def get(self, key) -> str:
        return key
`
	decls, err := Declarations("store.py", []byte(src))
	require.NoError(t, err)

	assert.NotNil(t, find(decls, "import", "os"))
	assert.NotNil(t, find(decls, "class", "Store"))
	assert.NotNil(t, find(decls, "constructor", "__init__"))
	get := find(decls, "method", "get")
	require.NotNil(t, get)
	assert.Equal(t, "Store", get.Owner)
	assert.Equal(t, 7, get.Line)
}

func TestDeclarationsGo(t *testing.T) {
	src := `package srv

import "net/http"

type Server struct{}

type Handler interface{ Serve() }

func (s *Server) Start(addr string) error { return nil }

func New() *Server { return &Server{} }
`
	decls, err := Declarations("srv.go", []byte(src))
	require.NoError(t, err)

	assert.NotNil(t, find(decls, "import", "net/http"))
	assert.NotNil(t, find(decls, "class", "Server"))
	assert.NotNil(t, find(decls, "interface", "Handler"))
	start := find(decls, "method", "Start")
	require.NotNil(t, start)
	assert.Equal(t, "Server", start.Owner)
	assert.NotNil(t, find(decls, "function", "New"))
}

func TestDeclarationsToleratesTruncatedChunk(t *testing.T) {
	decls, err := Declarations("half.py", []byte("def ok():\n    return 1\n\ndef broken(:\n"))
	require.NoError(t, err)
	assert.NotNil(t, find(decls, "function", "ok"))
}

func TestUnsupportedLanguage(t *testing.T) {
	_, err := Declarations("main.rs", []byte("fn main() {}"))
	assert.Error(t, err)
	assert.Equal(t, "", Outline("main.rs", "fn main() {}"))
	assert.Equal(t, "", LanguageName("main.rs"))
}

func TestOutlineFormat(t *testing.T) {
	out := FormatOutline([]Declaration{
		{Kind: "class", Name: "Cart", Signature: "Cart", Line: 3},
		{Kind: "method", Name: "total", Owner: "Cart", Signature: "total()", Line: 7},
		{Kind: "import", Name: "react", Signature: `import React from "react";`, Line: 1},
	})
	assert.Equal(t, "class Cart (line 3): Cart\nmethod Cart.total (line 7): total()\nimport react (line 1)", out)
	assert.Equal(t, "", FormatOutline(nil))
}

func TestOutlineTruncates(t *testing.T) {
	decls := make([]Declaration, maxOutlineEntries+5)
	for i := range decls {
		decls[i] = Declaration{Kind: "variable", Name: "v", Line: i + 1}
	}
	assert.Contains(t, FormatOutline(decls), "... 5 more")
}
