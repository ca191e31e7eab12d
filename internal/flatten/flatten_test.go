package flatten

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phobologic/reponav/internal/model"
)

func TestDependencies(t *testing.T) {
	t.Parallel()

	deps := model.NewDependencyTable()
	deps.AddFile("A.src")
	deps.AddFile("B.src")
	deps.AddDependency("B.src", "A.src")

	tokens := Dependencies(deps, nil)
	assert.Equal(t, []string{"A.src", ";", "B.src", ":", "A.src", ";"}, tokens)
	assert.Equal(t, "A.src;B.src:A.src;", strings.Join(tokens, ""))
}

func TestDependenciesDisplayNames(t *testing.T) {
	t.Parallel()

	deps := model.NewDependencyTable()
	deps.AddDependency("/root/c.cs", "/root/a.cs")
	deps.AddDependency("/root/c.cs", "/root/b.cs")

	tokens := Dependencies(deps, func(s string) string { return strings.TrimPrefix(s, "/root/") })
	assert.Equal(t, []string{"c.cs", ":", "a.cs", "\t", "b.cs", ";"}, tokens)
}

func TestComponents(t *testing.T) {
	t.Parallel()

	tokens := Components([]model.Component{
		{Representative: "A.src", Partners: []string{"B.src", "C.src"}},
		{Representative: "D.src", Partners: []string{}},
	})
	assert.Equal(t, "A.src:B.src\tC.src;D.src;", strings.Join(tokens, ""))
}

func TestEmptyInputs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{}, Components(nil))
	assert.Equal(t, []string{}, Dependencies(model.NewDependencyTable(), nil))
}

func TestFailures(t *testing.T) {
	t.Parallel()

	tokens := Failures([]string{"A.src", ";"}, []model.Failure{{File: "x.txt", Reason: "unsupported file type"}}, nil)
	assert.Equal(t, []string{"A.src", ";", FailedKey, ":", "x.txt", "\t", "unsupported file type", ";"}, tokens)
}

func TestRecords(t *testing.T) {
	t.Parallel()

	tokens := []string{"A", ";", "B", ":", "A", "\t", "C", ";", "D", ":", "E"}
	got := Records(tokens)
	want := []Record{
		{Key: "A"},
		{Key: "B", Elements: []string{"A", "C"}},
		{Key: "D", Elements: []string{"E"}},
	}
	assert.Equal(t, want, got)
}

func TestRender(t *testing.T) {
	t.Parallel()

	got := Render([]string{"A.src", ";", "B.src", ":", "A.src", "\t", "C.src", ";"})
	assert.Equal(t, "A.src\nB.src: A.src, C.src\n", got)
}
