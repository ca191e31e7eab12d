// Package flatten encodes analysis results as the flat token sequence
// carried in reply arguments.
//
// A record is a key token, optionally followed by ":" and a list of
// elements separated by "\t", and always terminated by ";":
//
//	A.src ;
//	B.src : A.src \t C.src ;
package flatten

import (
	"strings"

	"github.com/phobologic/reponav/internal/model"
)

// Grammar tokens.
const (
	ListStart = ":"
	Separator = "\t"
	RecordEnd = ";"
)

// FailedKey is the key of records that report files the analyzer skipped.
// Each such record carries the file and the reason as its two elements.
const FailedKey = "!failed"

// Record is one key with its ordered elements.
type Record struct {
	Key      string
	Elements []string
}

// Append adds the tokens for one record to tokens.
func Append(tokens []string, key string, elements []string) []string {
	tokens = append(tokens, key)
	if len(elements) == 0 {
		return append(tokens, RecordEnd)
	}
	tokens = append(tokens, ListStart)
	for i, e := range elements {
		if i > 0 {
			tokens = append(tokens, Separator)
		}
		tokens = append(tokens, e)
	}
	return append(tokens, RecordEnd)
}

// Dependencies flattens a dependency table. name maps table keys to the
// display names sent on the wire; nil keeps keys as they are.
func Dependencies(deps *model.DependencyTable, name func(string) string) []string {
	if name == nil {
		name = func(s string) string { return s }
	}
	tokens := []string{}
	for _, file := range deps.Files() {
		targets := deps.Dependencies(file)
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = name(t)
		}
		tokens = Append(tokens, name(file), names)
	}
	return tokens
}

// Components flattens strong components: the representative is the key
// and its partners are the elements.
func Components(components []model.Component) []string {
	tokens := []string{}
	for _, c := range components {
		tokens = Append(tokens, c.Representative, c.Partners)
	}
	return tokens
}

// Failures appends one FailedKey record per failure.
func Failures(tokens []string, failures []model.Failure, name func(string) string) []string {
	if name == nil {
		name = func(s string) string { return s }
	}
	for _, f := range failures {
		tokens = Append(tokens, FailedKey, []string{name(f.File), f.Reason})
	}
	return tokens
}

// Records splits a token sequence back into records. Tokens after the last
// ";" form a final record so truncated input is still displayed.
func Records(tokens []string) []Record {
	var records []Record
	var cur *Record
	inList := false
	for _, tok := range tokens {
		switch {
		case tok == RecordEnd:
			if cur != nil {
				records = append(records, *cur)
			}
			cur, inList = nil, false
		case cur == nil:
			cur = &Record{Key: tok}
		case tok == ListStart && !inList:
			inList = true
		case tok == Separator:
		default:
			cur.Elements = append(cur.Elements, tok)
		}
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records
}

// Render turns a token sequence into one line per record, the way a log
// or console shows it: "key: a, b".
func Render(tokens []string) string {
	var b strings.Builder
	for _, r := range Records(tokens) {
		b.WriteString(r.Key)
		if len(r.Elements) > 0 {
			b.WriteString(": ")
			b.WriteString(strings.Join(r.Elements, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
