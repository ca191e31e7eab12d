package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/reponav/internal/lang"
	"github.com/phobologic/reponav/internal/model"
)

func setup(t *testing.T, langName string) func(source string) []model.Tag {
	t.Helper()
	l := lang.Languages[langName]
	if l == nil {
		t.Fatalf("language %q not registered", langName)
	}
	q, err := l.GetTypeQuery()
	if err != nil {
		t.Fatalf("GetTypeQuery: %v", err)
	}
	ext := l.Extensions[0]
	return func(source string) []model.Tag {
		p := l.NewParser()
		tags, err := ExtractTags(context.Background(), p, q, []byte(source), "test"+ext)
		require.NoError(t, err)
		return tags
	}
}

func names(tags []model.Tag, kind model.TagKind) []string {
	var out []string
	for _, tag := range tags {
		if tag.Kind == kind {
			out = append(out, tag.Name)
		}
	}
	return out
}

func TestGoTypes(t *testing.T) {
	t.Parallel()
	extract := setup(t, "go")

	tags := extract(`package a

type Widget struct {
	Part Gear
}

type Gear int

func use(w *Widget) {}
`)

	assert.Equal(t, []string{"Widget", "Gear"}, names(tags, model.Definition))
	refs := names(tags, model.Reference)
	assert.Contains(t, refs, "Gear")
	assert.Contains(t, refs, "Widget")

	for _, tag := range tags {
		assert.Equal(t, "test.go", tag.File)
		if tag.Kind == model.Reference && tag.Name == "Widget" {
			assert.Equal(t, 9, tag.Line)
		}
	}
}

func TestGoDefinitionNotReportedAsReference(t *testing.T) {
	t.Parallel()
	extract := setup(t, "go")

	tags := extract("package a\n\ntype Lonely struct{}\n")
	assert.Equal(t, []string{"Lonely"}, names(tags, model.Definition))
	assert.Empty(t, names(tags, model.Reference))
}

func TestCSharpTypes(t *testing.T) {
	t.Parallel()
	extract := setup(t, "csharp")

	tags := extract(`namespace Navigator
{
    class NavigatorServer
    {
        Comm comm;
    }
    interface IFileMgr { }
    struct Point { }
    enum Mode { A, B }
}
`)

	assert.Equal(t, []string{"NavigatorServer", "IFileMgr", "Point", "Mode"}, names(tags, model.Definition))
	assert.Contains(t, names(tags, model.Reference), "Comm")
	assert.NotContains(t, names(tags, model.Reference), "NavigatorServer")
}

func TestPythonTypes(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python")

	tags := extract("class Foo(Base):\n    pass\n")
	assert.Equal(t, []string{"Foo"}, names(tags, model.Definition))
	assert.Contains(t, names(tags, model.Reference), "Base")
	assert.NotContains(t, names(tags, model.Reference), "Foo")
}

func TestRubyTypes(t *testing.T) {
	t.Parallel()
	extract := setup(t, "ruby")

	tags := extract("module Shop\n  class Cart < Base\n  end\nend\n")
	assert.Equal(t, []string{"Shop", "Cart"}, names(tags, model.Definition))
	assert.Equal(t, []string{"Base"}, names(tags, model.Reference))
}

func TestEmptySource(t *testing.T) {
	t.Parallel()
	extract := setup(t, "go")

	assert.Empty(t, extract(""))
}
