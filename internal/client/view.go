package client

import (
	"context"
	"path"
	"slices"

	"github.com/phobologic/reponav/internal/dispatch"
	"github.com/phobologic/reponav/internal/flatten"
	"github.com/phobologic/reponav/internal/message"
	"github.com/phobologic/reponav/internal/model"
)

// View is the client's picture of the remote session.
type View struct {
	// Path mirrors the server-side folder, relative to the served root.
	Path  string
	Files []string
	Dirs  []string
	// Selected holds root-relative files queued for analysis.
	Selected     []string
	Dependencies []flatten.Record
	Components   []flatten.Record
	// Failed lists files the last analysis could not read or parse.
	Failed    []model.Failure
	LastError error

	history []string
}

func (v View) clone() View {
	v.Files = slices.Clone(v.Files)
	v.Dirs = slices.Clone(v.Dirs)
	v.Selected = slices.Clone(v.Selected)
	v.Dependencies = slices.Clone(v.Dependencies)
	v.Components = slices.Clone(v.Components)
	v.Failed = slices.Clone(v.Failed)
	v.history = slices.Clone(v.history)
	return v
}

// exchange is what a mirror handler sees: the view to update and the
// request the reply answers. request is zero for unmatched replies.
type exchange struct {
	view    *View
	request message.Envelope
}

type viewHandler = dispatch.Handler[*exchange]

func mirrorTable() *dispatch.Table[*exchange] {
	t := dispatch.NewTable[*exchange]()

	t.Register(message.GetTopFiles, atTop(setFiles))
	t.Register(message.GetTopDirs, atTop(setDirs))
	t.Register(message.GetCurrentFiles, setFiles)
	t.Register(message.GetCurrentDirs, setDirs)
	t.Register(message.MoveIntoFolderFiles, movedInto(setFiles))
	t.Register(message.MoveIntoFolderDirs, movedInto(setDirs))
	t.Register(message.MoveOutOfFolderFiles, movedOut(setFiles))
	t.Register(message.MoveOutOfFolderDirs, movedOut(setDirs))
	t.Register(message.PerformDepAnalysis, func(_ context.Context, x *exchange, env message.Envelope) message.Envelope {
		x.view.Dependencies, x.view.Failed = splitFailures(env.Arguments)
		return env
	})
	t.Register(message.PerformStrongComp, func(_ context.Context, x *exchange, env message.Envelope) message.Envelope {
		x.view.Components, x.view.Failed = splitFailures(env.Arguments)
		return env
	})
	return t
}

func setFiles(_ context.Context, x *exchange, env message.Envelope) message.Envelope {
	x.view.Files = slices.Clone(env.Arguments)
	return env
}

func setDirs(_ context.Context, x *exchange, env message.Envelope) message.Envelope {
	x.view.Dirs = slices.Clone(env.Arguments)
	return env
}

func atTop(next viewHandler) viewHandler {
	return func(ctx context.Context, x *exchange, env message.Envelope) message.Envelope {
		x.view.Path = ""
		x.view.history = nil
		return next(ctx, x, env)
	}
}

// movedInto follows the server: only a single-argument request descends.
func movedInto(next viewHandler) viewHandler {
	return func(ctx context.Context, x *exchange, env message.Envelope) message.Envelope {
		if args := x.request.Arguments; len(args) == 1 {
			x.view.history = append(x.view.history, x.view.Path)
			x.view.Path = path.Join(x.view.Path, args[0])
		}
		return next(ctx, x, env)
	}
}

func movedOut(next viewHandler) viewHandler {
	return func(ctx context.Context, x *exchange, env message.Envelope) message.Envelope {
		if n := len(x.view.history); n > 0 {
			x.view.Path = x.view.history[n-1]
			x.view.history = x.view.history[:n-1]
		}
		return next(ctx, x, env)
	}
}

func splitFailures(tokens []string) ([]flatten.Record, []model.Failure) {
	var (
		records  []flatten.Record
		failures []model.Failure
	)
	for _, r := range flatten.Records(tokens) {
		if r.Key != flatten.FailedKey {
			records = append(records, r)
			continue
		}
		f := model.Failure{}
		if len(r.Elements) > 0 {
			f.File = r.Elements[0]
		}
		if len(r.Elements) > 1 {
			f.Reason = r.Elements[1]
		}
		failures = append(failures, f)
	}
	return records, failures
}

// View returns a snapshot of the current view.
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

// Select adds name, relative to the current folder, to the analysis
// selection. Selecting a file twice keeps one entry.
func (c *Client) Select(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rel := path.Join(c.view.Path, name)
	if !slices.Contains(c.view.Selected, rel) {
		c.view.Selected = append(c.view.Selected, rel)
	}
	return rel
}

// ClearSelection empties the analysis selection.
func (c *Client) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Selected = nil
}

// AnalyzeSelection runs cmd (performDepAnalysis or performStrongComp) on
// the selected files.
func (c *Client) AnalyzeSelection(ctx context.Context, cmd message.Command) (message.Envelope, error) {
	c.mu.Lock()
	selected := slices.Clone(c.view.Selected)
	c.mu.Unlock()
	return c.Call(ctx, cmd, selected...)
}
