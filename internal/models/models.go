package models

import (
	"sort"
	"strings"
	"time"
)

// Category is one kind of code construct extracted by a dedicated prompt
type Category string

const (
	CategoryClasses    Category = "classes"
	CategoryFunctions  Category = "functions"
	CategoryVariables  Category = "variables"
	CategoryTypes      Category = "types"
	CategoryInterfaces Category = "interfaces"
	CategoryImports    Category = "imports"
	CategoryExports    Category = "exports"
)

// AllCategories is the fixed extraction order. Category N+1 is never requested
// before category N has answered.
var AllCategories = []Category{
	CategoryClasses,
	CategoryFunctions,
	CategoryVariables,
	CategoryTypes,
	CategoryInterfaces,
	CategoryImports,
	CategoryExports,
}

// IsKnown reports whether c is one of AllCategories
func (c Category) IsKnown() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultObjectType is the type assumed for objects a category prompt returns
// without one
func (c Category) DefaultObjectType() ObjectType {
	switch c {
	case CategoryClasses:
		return TypeClass
	case CategoryFunctions:
		return TypeFunction
	case CategoryVariables:
		return TypeVariable
	case CategoryTypes:
		return TypeType
	case CategoryInterfaces:
		return TypeInterface
	case CategoryImports:
		return TypeImport
	case CategoryExports:
		return TypeExport
	default:
		return ""
	}
}

// ObjectType is the construct kind reported for a single CodeObject
type ObjectType string

const (
	TypeClass       ObjectType = "class"
	TypeFunction    ObjectType = "function"
	TypeVariable    ObjectType = "variable"
	TypeType        ObjectType = "type"
	TypeImport      ObjectType = "import"
	TypeExport      ObjectType = "export"
	TypeInterface   ObjectType = "interface"
	TypeConstructor ObjectType = "constructor"
	TypeMethod      ObjectType = "method"
)

// Parameter describes one function parameter
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Returns describes a function return value
type Returns struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// CodeObject is one identified code construct. A CodeObject exclusively owns its
// SubObjects tree.
type CodeObject struct {
	Name               string       `json:"name,omitempty"`
	Type               ObjectType   `json:"type"`
	Description        string       `json:"description,omitempty"`
	CodeSnippet        string       `json:"codeSnippet,omitempty"`
	CodeLine           LineNumber   `json:"codeLine"`
	CodeIndent         int          `json:"codeIndent,omitempty"`
	FileName           string       `json:"fileName,omitempty"`
	FileLocation       string       `json:"fileLocation,omitempty"`
	FunctionParameters []Parameter  `json:"functionParameters,omitempty"`
	FunctionReturns    *Returns     `json:"functionReturns,omitempty"`
	IsExported         bool         `json:"isExported,omitempty"`
	IsPrivate          bool         `json:"isPrivate,omitempty"`
	IsAsync            bool         `json:"isAsync,omitempty"`
	SubObjects         []CodeObject `json:"subObjects,omitempty"`
	Annotation         *Annotation  `json:"annotation,omitempty"`

	// sightings counts how many extractions reported this identity. It only
	// lives for the duration of a pipeline run.
	sightings int
}

// IdentityKey is the deduplication key: (name, type) when a name is present,
// otherwise (content, type).
type IdentityKey struct {
	Value  string
	Type   ObjectType
	ByName bool
}

// Key returns the identity of the object for deduplication purposes
func (o CodeObject) Key() IdentityKey {
	name := strings.TrimSpace(o.Name)
	if name != "" {
		return IdentityKey{Value: name, Type: o.Type, ByName: true}
	}
	return IdentityKey{Value: strings.TrimSpace(o.CodeSnippet), Type: o.Type}
}

// Sightings returns how many extraction results reported this object (minimum 1)
func (o CodeObject) Sightings() int {
	if o.sightings < 1 {
		return 1
	}
	return o.sightings
}

// WithSightings returns a copy of o carrying n sightings
func (o CodeObject) WithSightings(n int) CodeObject {
	o.sightings = n
	return o
}

// Annotation is the documentation produced by the annotation pass for a single object
type Annotation struct {
	Purpose    string    `json:"purpose,omitempty"`
	Details    string    `json:"details,omitempty"`
	Generated  time.Time `json:"generated"`
	SourceRefs []string  `json:"sourceRefs,omitempty"`
}

// ObjectMap groups code objects by category. Slice order is discovery order.
type ObjectMap map[Category][]CodeObject

// Count returns the total number of top-level objects across categories
func (m ObjectMap) Count() int {
	total := 0
	for _, objs := range m {
		total += len(objs)
	}
	return total
}

// Clone returns a deep copy of the map
func (m ObjectMap) Clone() ObjectMap {
	if m == nil {
		return nil
	}
	out := make(ObjectMap, len(m))
	for cat, objs := range m {
		out[cat] = cloneObjects(objs)
	}
	return out
}

func cloneObjects(objs []CodeObject) []CodeObject {
	if objs == nil {
		return nil
	}
	out := make([]CodeObject, len(objs))
	for i, obj := range objs {
		out[i] = obj
		out[i].SubObjects = cloneObjects(obj.SubObjects)
		out[i].FunctionParameters = append([]Parameter(nil), obj.FunctionParameters...)
		if obj.FunctionReturns != nil {
			r := *obj.FunctionReturns
			out[i].FunctionReturns = &r
		}
		if obj.Annotation != nil {
			a := *obj.Annotation
			out[i].Annotation = &a
		}
	}
	return out
}

// Walk visits every object (including nested sub-objects) in category order
func (m ObjectMap) Walk(fn func(cat Category, obj *CodeObject)) {
	for _, cat := range m.Categories() {
		objs := m[cat]
		for i := range objs {
			walkObject(cat, &objs[i], fn)
		}
	}
}

func walkObject(cat Category, obj *CodeObject, fn func(Category, *CodeObject)) {
	fn(cat, obj)
	for i := range obj.SubObjects {
		walkObject(cat, &obj.SubObjects[i], fn)
	}
}

// Categories returns the categories present in the map, known categories first
// in extraction order followed by unknown ones sorted by name
func (m ObjectMap) Categories() []Category {
	var out []Category
	for _, cat := range AllCategories {
		if _, ok := m[cat]; ok {
			out = append(out, cat)
		}
	}
	var extra []Category
	for cat := range m {
		if !cat.IsKnown() {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// ProcessingStatus records the outcome of processing a single source file
type ProcessingStatus string

const (
	StatusSuccess         ProcessingStatus = "success"
	StatusEmpty           ProcessingStatus = "empty"
	StatusErrorRead       ProcessingStatus = "error_read"
	StatusErrorParse      ProcessingStatus = "error_parse"
	StatusErrorLLMSummary ProcessingStatus = "error_llm_summary"
)

// CodeSummary is the LLM-written description of a file or chunk
type CodeSummary struct {
	Goal     string   `json:"goal"`
	Features []string `json:"features,omitempty"`
}

// Text renders the summary as plain text
func (s CodeSummary) Text() string {
	var sb strings.Builder
	sb.WriteString(s.Goal)
	for _, f := range s.Features {
		sb.WriteString("\n- ")
		sb.WriteString(f)
	}
	return sb.String()
}

// CodeFileSummary is one source file's aggregate
type CodeFileSummary struct {
	FileName         string           `json:"fileName"`
	FileLocation     string           `json:"fileLocation"`
	Language         string           `json:"language"`
	CodeSummary      CodeSummary      `json:"codeSummary"`
	CodeObjects      ObjectMap        `json:"codeObjects"`
	ChunkCount       int              `json:"chunkCount"`
	LineCount        int              `json:"lineCount"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	ProcessingError  string           `json:"processingError,omitempty"`
}

// RagMetadata describes a chunk's retrieval record
type RagMetadata struct {
	FileName     string    `json:"filename"`
	FileLocation string    `json:"fileLocation"`
	ChunkID      string    `json:"chunkId"`
	ChunkIndex   int       `json:"chunkIndex"`
	StartLine    int       `json:"startLine"`
	EndLine      int       `json:"endLine"`
	CodeObjects  ObjectMap `json:"codeObjects"`
	Summary      string    `json:"summary,omitempty"` // set after the vector store save
	CreatedAt    time.Time `json:"createdAt"`
}

// SearchHit is one result attached to a RagData record after a search
type SearchHit struct {
	ChunkID string  `json:"chunkId"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// RagData is one chunk's retrieval record. It is never mutated after creation
// except to attach search results.
type RagData struct {
	Metadata      RagMetadata `json:"metadata"`
	DocumentData  string      `json:"documentData"`
	SearchResults []SearchHit `json:"searchResults,omitempty"`
}

// WithSearchResults returns a copy of r with hits attached
func (r RagData) WithSearchResults(hits []SearchHit) RagData {
	r.SearchResults = append([]SearchHit(nil), hits...)
	return r
}

// Dependency is one entry from a dependency manifest
type Dependency struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Manifest string `json:"manifest"`
}

// DiagramArtifact is a rendered diagram
type DiagramArtifact struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	FilePath string `json:"filePath,omitempty"`
	Repaired bool   `json:"repaired,omitempty"`
}

// ProjectSummary is the root aggregate and the unit of persistence
type ProjectSummary struct {
	RunID           string            `json:"runId"`
	ProjectName     string            `json:"projectName"`
	ProjectPath     string            `json:"projectPath"`
	TeamContext     string            `json:"teamContext,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	CodeFiles       []CodeFileSummary `json:"codeFiles"`
	RagData         []RagData         `json:"ragData"`
	Dependencies    []Dependency      `json:"dependencies"`
	Diagrams        []DiagramArtifact `json:"diagrams,omitempty"`
	FilesDiscovered int               `json:"filesDiscovered"`
	StartedAt       time.Time         `json:"startedAt"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
}

// AssignFileOwnership rewrites every reachable CodeObject's file name and location
// so they match the owning CodeFileSummary
func (p *ProjectSummary) AssignFileOwnership() {
	for i := range p.CodeFiles {
		file := &p.CodeFiles[i]
		file.CodeObjects.Walk(func(_ Category, obj *CodeObject) {
			obj.FileName = file.FileName
			obj.FileLocation = file.FileLocation
		})
	}
}

// StatusCounts tallies files per processing status
func (p *ProjectSummary) StatusCounts() map[ProcessingStatus]int {
	counts := make(map[ProcessingStatus]int)
	for _, f := range p.CodeFiles {
		counts[f.ProcessingStatus]++
	}
	return counts
}
