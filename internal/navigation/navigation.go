// Package navigation tracks where a client is inside the served directory
// tree across request/reply round trips.
package navigation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/phobologic/reponav/internal/discover"
	"github.com/phobologic/reponav/internal/message"
)

var (
	// ErrPathEscape is returned when a folder name would leave the root.
	ErrPathEscape = discover.ErrEscape
	// ErrInvalidName is returned for an empty folder name.
	ErrInvalidName = errors.New("invalid folder name")
)

// State is a current root-relative path plus the LIFO history of the paths
// it descended from. The zero path with an empty history is the root.
type State struct {
	root     string
	patterns []string
	current  string
	history  []string
}

// NewState returns a State positioned at root. patterns optionally limits
// which file names Files lists.
func NewState(root string, patterns []string) *State {
	return &State{root: root, patterns: patterns}
}

// Current returns the slash-separated path relative to the root.
func (s *State) Current() string {
	return s.current
}

// History returns a copy of the history stack, bottom first.
func (s *State) History() []string {
	return append([]string(nil), s.history...)
}

// AtRoot reports whether there is nothing left to ascend to.
func (s *State) AtRoot() bool {
	return len(s.history) == 0
}

// Reset moves back to the root and clears the history.
func (s *State) Reset() {
	s.current = ""
	s.history = nil
}

// Descend moves into the child folder name. Folders that listings hide are
// reported as not found. The current path is pushed onto the history only
// once the target is known to be a directory.
func (s *State) Descend(name string) error {
	name = strings.TrimRight(strings.ReplaceAll(name, `\`, "/"), "/")
	if name == "" || name == "." {
		return ErrInvalidName
	}
	if err := discover.CheckRelative(name); err != nil {
		return err
	}
	next := path.Join(s.current, name)
	for _, seg := range strings.Split(name, "/") {
		if seg != "" && discover.Hidden(seg) {
			return fmt.Errorf("%q: %w", next, discover.ErrNotFound)
		}
	}
	abs, err := discover.Resolve(s.root, next)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q: %w", next, discover.ErrNotFound)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%q: %w", next, discover.ErrNotDir)
	}
	s.history = append(s.history, s.current)
	s.current = next
	return nil
}

// Ascend pops the history into the current path. At the root it does
// nothing and returns false.
func (s *State) Ascend() bool {
	if len(s.history) == 0 {
		return false
	}
	top := len(s.history) - 1
	s.current = s.history[top]
	s.history = s.history[:top]
	return true
}

// Files lists the files in the current folder.
func (s *State) Files() ([]string, error) {
	l, err := discover.List(s.root, s.current, s.patterns)
	if err != nil {
		return nil, err
	}
	return l.Files, nil
}

// Dirs lists the folders in the current folder.
func (s *State) Dirs() ([]string, error) {
	l, err := discover.List(s.root, s.current, s.patterns)
	if err != nil {
		return nil, err
	}
	return l.Dirs, nil
}

// ErrorCode maps a navigation error to the code carried in error replies.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, discover.ErrEscape):
		return message.CodePathEscape
	case errors.Is(err, discover.ErrNotFound):
		return message.CodeNotFound
	case errors.Is(err, discover.ErrNotDir):
		return message.CodeNotDirectory
	case errors.Is(err, ErrInvalidName):
		return message.CodeInvalidArgument
	default:
		return message.CodeInternal
	}
}

// Sessions holds one State per endpoint so that clients browsing at the
// same time do not move each other around.
type Sessions struct {
	mu       sync.Mutex
	root     string
	patterns []string
	states   map[message.Endpoint]*State
}

// NewSessions returns an empty session set rooted at root.
func NewSessions(root string, patterns []string) *Sessions {
	return &Sessions{
		root:     root,
		patterns: patterns,
		states:   make(map[message.Endpoint]*State),
	}
}

// Get returns the State for ep, creating it at the root on first use.
func (s *Sessions) Get(ep message.Endpoint) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[ep]
	if !ok {
		st = NewState(s.root, s.patterns)
		s.states[ep] = st
	}
	return st
}

// Len returns the number of known sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
