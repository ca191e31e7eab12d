package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/reponav/internal/message"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"true keyword", "True", `"True"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"float", "3.14", "3.14"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"bang prefix", "!failed", `"!failed"`},
		{"path", "Server/Comm/Channel.cs", "Server/Comm/Channel.cs"},
		{"spaces inside", "path escapes root", "path escapes root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func reply(cmd message.Command, args ...string) message.Envelope {
	return message.NewRequest("client", "server", cmd).Reply(args...)
}

func TestEncodeListing(t *testing.T) {
	t.Parallel()

	got := EncodeReply(reply(message.MoveIntoFolderDirs, "Comm", "Util"))
	want := "command: moveIntoFolderDirs\ndirs[2]{name}:\n  Comm\n  Util"
	if got != want {
		t.Errorf("EncodeReply =\n%s\nwant\n%s", got, want)
	}

	got = EncodeReply(reply(message.GetTopFiles))
	want = "command: getTopFiles\nfiles[0]{name}:"
	if got != want {
		t.Errorf("EncodeReply =\n%s\nwant\n%s", got, want)
	}
}

func TestEncodeDependencies(t *testing.T) {
	t.Parallel()

	tokens := []string{
		"A.cs", ";",
		"B.cs", ":", "A.cs", "\t", "C.cs", ";",
		"!failed", ":", "x.txt", "\t", "unsupported file type", ";",
	}
	got := EncodeReply(reply(message.PerformDepAnalysis, tokens...))

	for _, want := range []string{
		"command: performDepAnalysis",
		"dependencies[2]{file,depends_on}:",
		"  A.cs,\"\"",
		"  B.cs,A.cs C.cs",
		"failed[1]{file,reason}:",
		"  x.txt,unsupported file type",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestEncodeComponentsWithoutFailures(t *testing.T) {
	t.Parallel()

	got := EncodeReply(reply(message.PerformStrongComp, "A.cs", ":", "B.cs", ";"))
	want := "command: performStrongComp\ncomponents[1]{representative,partners}:\n  A.cs,B.cs"
	if got != want {
		t.Errorf("EncodeReply =\n%s\nwant\n%s", got, want)
	}
}

func TestEncodeError(t *testing.T) {
	t.Parallel()

	req := message.NewRequest("client", "server", message.MoveIntoFolderFiles, "..")
	got := EncodeReply(req.ErrorReply(message.CodePathEscape, `"..": path escapes root`))
	want := `command: moveIntoFolderFiles
error: path_escape
message: "\"..\": path escapes root"`
	if got != want {
		t.Errorf("EncodeReply =\n%s\nwant\n%s", got, want)
	}
}
