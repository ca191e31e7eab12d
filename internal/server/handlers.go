package server

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/reponav/internal/analysis"
	"github.com/phobologic/reponav/internal/discover"
	"github.com/phobologic/reponav/internal/flatten"
	"github.com/phobologic/reponav/internal/graph"
	"github.com/phobologic/reponav/internal/message"
	"github.com/phobologic/reponav/internal/model"
	"github.com/phobologic/reponav/internal/navigation"
)

type listKind int

const (
	listFiles listKind = iota
	listDirs
)

func (s *Server) register() {
	t := s.table

	t.Register(message.GetTopFiles, s.top(listFiles))
	t.Register(message.GetTopDirs, s.top(listDirs))
	t.Register(message.GetCurrentFiles, s.current(listFiles))
	t.Register(message.GetCurrentDirs, s.current(listDirs))
	t.Register(message.MoveIntoFolderFiles, s.moveInto(listFiles))
	t.Register(message.MoveIntoFolderDirs, s.moveInto(listDirs))
	t.Register(message.MoveOutOfFolderFiles, s.moveOutOf(listFiles))
	t.Register(message.MoveOutOfFolderDirs, s.moveOutOf(listDirs))
	t.Register(message.PerformDepAnalysis, s.performDepAnalysis)
	t.Register(message.PerformStrongComp, s.performStrongComp)
}

func listing(st *navigation.State, env message.Envelope, kind listKind) message.Envelope {
	var (
		names []string
		err   error
	)
	if kind == listDirs {
		names, err = st.Dirs()
	} else {
		names, err = st.Files()
	}
	if err != nil {
		return env.ErrorReply(navigation.ErrorCode(err), err.Error())
	}
	return env.Reply(names...)
}

func (s *Server) top(kind listKind) func(context.Context, *navigation.State, message.Envelope) message.Envelope {
	return func(_ context.Context, st *navigation.State, env message.Envelope) message.Envelope {
		st.Reset()
		return listing(st, env, kind)
	}
}

func (s *Server) current(kind listKind) func(context.Context, *navigation.State, message.Envelope) message.Envelope {
	return func(_ context.Context, st *navigation.State, env message.Envelope) message.Envelope {
		return listing(st, env, kind)
	}
}

// moveInto descends only when exactly one folder name is given; any other
// argument count leaves the session where it is and lists it.
func (s *Server) moveInto(kind listKind) func(context.Context, *navigation.State, message.Envelope) message.Envelope {
	return func(_ context.Context, st *navigation.State, env message.Envelope) message.Envelope {
		if len(env.Arguments) == 1 {
			if err := st.Descend(env.Arguments[0]); err != nil {
				return env.ErrorReply(navigation.ErrorCode(err), err.Error())
			}
		}
		return listing(st, env, kind)
	}
}

func (s *Server) moveOutOf(kind listKind) func(context.Context, *navigation.State, message.Envelope) message.Envelope {
	return func(_ context.Context, st *navigation.State, env message.Envelope) message.Envelope {
		st.Ascend()
		return listing(st, env, kind)
	}
}

func (s *Server) performDepAnalysis(ctx context.Context, _ *navigation.State, env message.Envelope) message.Envelope {
	res, pre, errReply := s.analyze(ctx, env)
	if errReply != nil {
		return *errReply
	}
	tokens := flatten.Dependencies(res.Deps, s.relName)
	return env.Reply(s.appendFailures(tokens, pre, res.Failures)...)
}

func (s *Server) performStrongComp(ctx context.Context, _ *navigation.State, env message.Envelope) message.Envelope {
	res, pre, errReply := s.analyze(ctx, env)
	if errReply != nil {
		return *errReply
	}
	components := graph.Build(res.Deps, s.relName).StrongComponents()
	tokens := flatten.Components(components)
	return env.Reply(s.appendFailures(tokens, pre, res.Failures)...)
}

func (s *Server) analyze(ctx context.Context, env message.Envelope) (*analysis.Result, []model.Failure, *message.Envelope) {
	if !hasNames(env.Arguments) {
		r := env.ErrorReply(message.CodeInvalidArgument, "no files given")
		return nil, nil, &r
	}
	files, failures := s.resolveFiles(env.Arguments)
	res, err := s.analyzer.Analyze(ctx, files)
	if err != nil {
		r := env.ErrorReply(message.CodeInternal, err.Error())
		return nil, nil, &r
	}
	return res, failures, nil
}

// hasNames reports whether any argument is more than white space.
func hasNames(args []string) bool {
	for _, a := range args {
		if strings.TrimSpace(a) != "" {
			return true
		}
	}
	return false
}

// resolveFiles turns root-relative arguments into absolute paths.
// Directories expand to the supported source files beneath them. Arguments
// that cannot be resolved come back as failures keyed by the argument.
func (s *Server) resolveFiles(args []string) ([]string, []model.Failure) {
	var (
		files    []string
		failures []model.Failure
	)
	for _, arg := range args {
		rel := strings.TrimSpace(arg)
		if rel == "" {
			continue
		}
		abs, err := discover.Resolve(s.root, rel)
		if err != nil {
			failures = append(failures, model.Failure{File: arg, Reason: reason(err)})
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = discover.ErrNotFound
			}
			failures = append(failures, model.Failure{File: arg, Reason: reason(err)})
			continue
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}
		entries, err := discover.Files(s.root, rel, nil)
		if err != nil {
			failures = append(failures, model.Failure{File: arg, Reason: reason(err)})
			continue
		}
		for _, e := range entries {
			files = append(files, filepath.Join(s.root, filepath.FromSlash(e.Path)))
		}
	}
	return files, failures
}

func reason(err error) string {
	switch {
	case errors.Is(err, discover.ErrEscape):
		return discover.ErrEscape.Error()
	case errors.Is(err, discover.ErrNotFound):
		return discover.ErrNotFound.Error()
	default:
		return err.Error()
	}
}

func (s *Server) appendFailures(tokens []string, pre, analyzed []model.Failure) []string {
	tokens = flatten.Failures(tokens, pre, nil)
	return flatten.Failures(tokens, analyzed, s.relName)
}

func (s *Server) relName(abs string) string {
	return discover.Rel(s.root, abs)
}
