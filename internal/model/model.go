// Package model defines core data structures for reponav.
package model

// TagKind indicates whether a tag is a definition or a reference.
type TagKind string

const (
	Definition TagKind = "def"
	Reference  TagKind = "ref"
)

// Tag represents a single type-name occurrence extracted from source code.
type Tag struct {
	Name string
	Kind TagKind
	Line int
	File string
}

// FileInfo holds metadata and extracted tags for a single source file.
type FileInfo struct {
	Path     string
	Language string
	Tags     []Tag
}

// TypeTable maps a declared type name to the file that declares it.
// A name declared in several files keeps the last declaration seen.
type TypeTable map[string]string

// DependencyTable maps each file to the files it depends on.
// Files iterate in insertion order; dependencies keep first-seen order
// without duplicates.
type DependencyTable struct {
	files []string
	deps  map[string][]string
}

// NewDependencyTable returns an empty table.
func NewDependencyTable() *DependencyTable {
	return &DependencyTable{deps: make(map[string][]string)}
}

// AddFile registers file as a key. Registering twice is a no-op.
func (t *DependencyTable) AddFile(file string) {
	if _, ok := t.deps[file]; ok {
		return
	}
	t.files = append(t.files, file)
	t.deps[file] = nil
}

// AddDependency records that from depends on to. Self-edges and
// duplicates are dropped.
func (t *DependencyTable) AddDependency(from, to string) {
	if from == to {
		return
	}
	t.AddFile(from)
	for _, d := range t.deps[from] {
		if d == to {
			return
		}
	}
	t.deps[from] = append(t.deps[from], to)
}

// Files returns the keys in insertion order.
func (t *DependencyTable) Files() []string {
	out := make([]string, len(t.files))
	copy(out, t.files)
	return out
}

// Dependencies returns the files that file depends on.
func (t *DependencyTable) Dependencies(file string) []string {
	deps := t.deps[file]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// Len returns the number of keys.
func (t *DependencyTable) Len() int {
	return len(t.files)
}

// Component is a strongly connected component: a representative file and
// the other members of its cycle. Partners is empty for acyclic files.
type Component struct {
	Representative string
	Partners       []string
}

// Failure records a file that could not be analyzed.
type Failure struct {
	File   string
	Reason string
}
