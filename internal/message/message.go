// Package message defines the envelopes exchanged between a navigator
// client and server.
package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind distinguishes requests, replies and the shutdown signal.
type Kind int

const (
	Request Kind = iota + 1
	Reply
	Shutdown
)

var kindNames = map[Kind]string{
	Request:  "request",
	Reply:    "reply",
	Shutdown: "shutdown",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown envelope kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, s := range kindNames {
		if s == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown envelope kind %q", string(b))
}

// Endpoint names a participant: "host:port" or a logical name.
type Endpoint string

// Command identifies the operation a request asks for.
type Command string

const (
	GetTopFiles          Command = "getTopFiles"
	GetTopDirs           Command = "getTopDirs"
	GetCurrentFiles      Command = "getCurrentFiles"
	GetCurrentDirs       Command = "getCurrentDirs"
	MoveIntoFolderFiles  Command = "moveIntoFolderFiles"
	MoveIntoFolderDirs   Command = "moveIntoFolderDirs"
	MoveOutOfFolderFiles Command = "moveOutOfFolderFiles"
	MoveOutOfFolderDirs  Command = "moveOutOfFolderDirs"
	PerformDepAnalysis   Command = "performDepAnalysis"
	PerformStrongComp    Command = "performStrongComp"
)

// Commands lists every command the server registers.
var Commands = []Command{
	GetTopFiles,
	GetTopDirs,
	GetCurrentFiles,
	GetCurrentDirs,
	MoveIntoFolderFiles,
	MoveIntoFolderDirs,
	MoveOutOfFolderFiles,
	MoveOutOfFolderDirs,
	PerformDepAnalysis,
	PerformStrongComp,
}

// Envelope is the unit of exchange. The field order of the JSON encoding
// is kind, from, to, command, author, arguments; id and replyTo follow.
type Envelope struct {
	Kind      Kind     `json:"kind"`
	From      Endpoint `json:"from"`
	To        Endpoint `json:"to"`
	Command   Command  `json:"command,omitempty"`
	Author    string   `json:"author,omitempty"`
	Arguments []string `json:"arguments"`
	ID        string   `json:"id,omitempty"`
	ReplyTo   string   `json:"replyTo,omitempty"`
}

// NewRequest builds a request with a fresh ID.
func NewRequest(from, to Endpoint, cmd Command, args ...string) Envelope {
	if args == nil {
		args = []string{}
	}
	return Envelope{
		Kind:      Request,
		From:      from,
		To:        to,
		Command:   cmd,
		Arguments: args,
		ID:        uuid.NewString(),
	}
}

// NewShutdown builds the control envelope that stops a serving loop.
func NewShutdown(from, to Endpoint) Envelope {
	return Envelope{
		Kind:      Shutdown,
		From:      from,
		To:        to,
		Arguments: []string{},
		ID:        uuid.NewString(),
	}
}

// Reply builds the reply to e: endpoints swapped, command echoed and
// ReplyTo set to e's ID.
func (e Envelope) Reply(args ...string) Envelope {
	if args == nil {
		args = []string{}
	}
	return Envelope{
		Kind:      Reply,
		From:      e.To,
		To:        e.From,
		Command:   e.Command,
		Arguments: args,
		ID:        uuid.NewString(),
		ReplyTo:   e.ID,
	}
}

// Clone returns a copy of e with its own argument slice and a new ID.
func (e Envelope) Clone() Envelope {
	c := e
	c.Arguments = append([]string{}, e.Arguments...)
	c.ID = uuid.NewString()
	return c
}

// Encode returns the JSON encoding of e.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a JSON envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if e.Kind == 0 {
		return Envelope{}, errors.New("decoding envelope: missing kind")
	}
	if e.Arguments == nil {
		e.Arguments = []string{}
	}
	return e, nil
}
