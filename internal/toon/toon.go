// Package toon renders navigator replies as TOON (Token-Oriented Object
// Notation) for terminal output.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/reponav/internal/flatten"
	"github.com/phobologic/reponav/internal/message"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeReply renders a reply envelope. Listings become a one-column table,
// analysis results a key/elements table followed by any failed files, and
// error replies an error block.
func EncodeReply(env message.Envelope) string {
	parts := []string{fmt.Sprintf("command: %s", encodeValue(string(env.Command)))}

	if env.IsError() {
		re := env.Err().(*message.RemoteError)
		parts = append(parts,
			fmt.Sprintf("error: %s", encodeValue(re.Code)),
			fmt.Sprintf("message: %s", encodeValue(re.Message)),
		)
		return strings.Join(parts, "\n")
	}

	switch env.Command {
	case message.PerformDepAnalysis:
		parts = append(parts, EncodeRecords("dependencies", "file", "depends_on", env.Arguments)...)
	case message.PerformStrongComp:
		parts = append(parts, EncodeRecords("components", "representative", "partners", env.Arguments)...)
	case message.GetTopDirs, message.GetCurrentDirs, message.MoveIntoFolderDirs, message.MoveOutOfFolderDirs:
		parts = append(parts, EncodeList("dirs", env.Arguments))
	case message.GetTopFiles, message.GetCurrentFiles, message.MoveIntoFolderFiles, message.MoveOutOfFolderFiles:
		parts = append(parts, EncodeList("files", env.Arguments))
	default:
		parts = append(parts, EncodeList("arguments", env.Arguments))
	}
	return strings.Join(parts, "\n")
}

// EncodeList renders names as a one-column table.
func EncodeList(name string, values []string) string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return formatTabular(name, []string{"name"}, rows)
}

// EncodeRecords renders a flattened token stream as a two-column table.
// Elements are space separated in the second column. Failed-file records
// go to a separate "failed" table, present only when there are failures.
func EncodeRecords(name, keyColumn, elementsColumn string, tokens []string) []string {
	var rows, failed [][]string
	for _, r := range flatten.Records(tokens) {
		if r.Key == flatten.FailedKey {
			row := []string{"", ""}
			copy(row, r.Elements)
			failed = append(failed, row)
			continue
		}
		rows = append(rows, []string{r.Key, strings.Join(r.Elements, " ")})
	}

	parts := []string{formatTabular(name, []string{keyColumn, elementsColumn}, rows)}
	if len(failed) > 0 {
		parts = append(parts, formatTabular("failed", []string{"file", "reason"}, failed))
	}
	return parts
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return quote(value)
	}
	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}
	if looksNumeric.MatchString(value) {
		return value
	}
	if needsQuoting.MatchString(value) || strings.HasPrefix(value, "-") || strings.HasPrefix(value, "!") {
		return quote(value)
	}
	return value
}

func quote(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(value) + `"`
}
