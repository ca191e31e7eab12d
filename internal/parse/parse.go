// Package parse extracts type declarations and references from source files
// using tree-sitter.
package parse

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/reponav/internal/lang"
	"github.com/phobologic/reponav/internal/model"
)

var captureKinds = map[string]model.TagKind{
	"definition.type": model.Definition,
	"reference.type":  model.Reference,
}

// ExtractTags parses source and returns type definition and reference tags
// in source order. The parser must be created for the query's language.
// filePath is used only for Tag.File.
//
// A declaration's own name node is reported once, as a definition.
func ExtractTags(ctx context.Context, parser *sitter.Parser, query *sitter.Query, source []byte, filePath string) ([]model.Tag, error) {
	if len(source) == 0 {
		return nil, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	type occurrence struct {
		tag   model.Tag
		start uint32
	}

	var (
		occurrences []occurrence
		defStarts   = make(map[uint32]struct{})
	)

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode *sitter.Node
		var kind model.TagKind
		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if k, ok := captureKinds[cname]; ok {
				kind = k
			}
		}
		if nameNode == nil || kind == "" {
			continue
		}

		if kind == model.Definition {
			defStarts[nameNode.StartByte()] = struct{}{}
		}
		occurrences = append(occurrences, occurrence{
			tag: model.Tag{
				Name: lang.NodeText(nameNode, source),
				Kind: kind,
				Line: int(nameNode.StartPoint().Row) + 1,
				File: filePath,
			},
			start: nameNode.StartByte(),
		})
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].start < occurrences[j].start
	})

	tags := make([]model.Tag, 0, len(occurrences))
	for _, o := range occurrences {
		if o.tag.Kind == model.Reference {
			if _, isDef := defStarts[o.start]; isDef {
				continue
			}
		}
		tags = append(tags, o.tag)
	}
	return tags, nil
}
