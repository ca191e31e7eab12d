package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/reponav/internal/comm"
	"github.com/phobologic/reponav/internal/flatten"
	"github.com/phobologic/reponav/internal/message"
	"github.com/phobologic/reponav/internal/server"
)

func startServer(t *testing.T, files map[string]string) *Client {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	srv, err := server.New(server.Options{Root: root})
	require.NoError(t, err)

	clientEnd, serverEnd := comm.Pipe(16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx, serverEnd) }()

	c := New(clientEnd, Options{Endpoint: "tester", Timeout: 5 * time.Second})
	go func() { _ = c.Run(ctx) }()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var tree = map[string]string{
	"Program.cs":             "class Program { Navigator nav; }",
	"Server/Navigator.cs":    "class Navigator { Channel ch; }",
	"Server/Comm/Channel.cs": "class Channel { Navigator owner; }",
	"Client/Window.cs":       "class Window {}",
}

func TestBrowse(t *testing.T) {
	t.Parallel()
	c := startServer(t, tree)
	ctx := context.Background()

	_, err := c.Call(ctx, message.GetTopFiles)
	require.NoError(t, err)
	_, err = c.Call(ctx, message.GetTopDirs)
	require.NoError(t, err)

	v := c.View()
	assert.Equal(t, "", v.Path)
	assert.Equal(t, []string{"Program.cs"}, v.Files)
	assert.Equal(t, []string{"Client", "Server"}, v.Dirs)

	_, err = c.Call(ctx, message.MoveIntoFolderFiles, "Server")
	require.NoError(t, err)
	_, err = c.Call(ctx, message.GetCurrentDirs)
	require.NoError(t, err)

	v = c.View()
	assert.Equal(t, "Server", v.Path)
	assert.Equal(t, []string{"Navigator.cs"}, v.Files)
	assert.Equal(t, []string{"Comm"}, v.Dirs)

	_, err = c.Call(ctx, message.MoveOutOfFolderDirs)
	require.NoError(t, err)
	v = c.View()
	assert.Equal(t, "", v.Path)
	assert.Equal(t, []string{"Client", "Server"}, v.Dirs)
}

func TestErrorReplySetsLastError(t *testing.T) {
	t.Parallel()
	c := startServer(t, tree)
	ctx := context.Background()

	_, err := c.Call(ctx, message.GetTopFiles)
	require.NoError(t, err)

	reply, err := c.Call(ctx, message.MoveIntoFolderFiles, "..")
	var remote *message.RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, message.CodePathEscape, remote.Code)
	assert.True(t, reply.IsError())

	v := c.View()
	assert.Equal(t, "", v.Path)
	assert.Equal(t, []string{"Program.cs"}, v.Files)
	assert.Equal(t, err, v.LastError)

	_, err = c.Call(ctx, message.GetCurrentFiles)
	require.NoError(t, err)
	assert.NoError(t, c.View().LastError)
}

func TestAnalyzeSelection(t *testing.T) {
	t.Parallel()
	c := startServer(t, tree)
	ctx := context.Background()

	assert.Equal(t, "Program.cs", c.Select("Program.cs"))
	_, err := c.Call(ctx, message.MoveIntoFolderFiles, "Server")
	require.NoError(t, err)
	assert.Equal(t, "Server/Navigator.cs", c.Select("Navigator.cs"))
	c.Select("Navigator.cs")
	c.Select("Comm/Channel.cs")
	c.Select("Missing.cs")

	assert.Equal(t, []string{"Program.cs", "Server/Navigator.cs", "Server/Comm/Channel.cs", "Server/Missing.cs"},
		c.View().Selected)

	_, err = c.AnalyzeSelection(ctx, message.PerformDepAnalysis)
	require.NoError(t, err)
	v := c.View()
	assert.Equal(t, []flatten.Record{
		{Key: "Program.cs", Elements: []string{"Server/Navigator.cs"}},
		{Key: "Server/Navigator.cs", Elements: []string{"Server/Comm/Channel.cs"}},
		{Key: "Server/Comm/Channel.cs", Elements: []string{"Server/Navigator.cs"}},
	}, v.Dependencies)
	require.Len(t, v.Failed, 1)
	assert.Equal(t, "Server/Missing.cs", v.Failed[0].File)

	_, err = c.AnalyzeSelection(ctx, message.PerformStrongComp)
	require.NoError(t, err)
	assert.Equal(t, []flatten.Record{
		{Key: "Program.cs"},
		{Key: "Server/Navigator.cs", Elements: []string{"Server/Comm/Channel.cs"}},
	}, c.View().Components)

	c.ClearSelection()
	assert.Empty(t, c.View().Selected)
}

func TestPostDeliversToInbox(t *testing.T) {
	t.Parallel()
	c := startServer(t, tree)

	id, err := c.Post(message.GetTopDirs)
	require.NoError(t, err)

	select {
	case reply := <-c.Inbox():
		assert.Equal(t, id, reply.ReplyTo)
		assert.Equal(t, []string{"Client", "Server"}, reply.Arguments)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply on inbox")
	}
	assert.Equal(t, []string{"Client", "Server"}, c.View().Dirs)
}

func TestCallTimesOut(t *testing.T) {
	t.Parallel()

	clientEnd, serverEnd := comm.Pipe(4)
	defer serverEnd.Close()

	c := New(clientEnd, Options{Timeout: 20 * time.Millisecond})
	go func() { _ = c.Run(context.Background()) }()

	_, err := c.Call(context.Background(), message.GetTopFiles)
	assert.ErrorIs(t, err, ErrTimeout)

	// A late reply still reaches the view and the inbox.
	req, err := serverEnd.Receive(context.Background())
	require.NoError(t, err)
	require.NoError(t, serverEnd.Send(req.Reply("late.cs")))

	select {
	case reply := <-c.Inbox():
		assert.Equal(t, []string{"late.cs"}, reply.Arguments)
	case <-time.After(5 * time.Second):
		t.Fatal("late reply not delivered")
	}
	assert.Equal(t, []string{"late.cs"}, c.View().Files)
}

func TestTransportFailureFailsPendingCalls(t *testing.T) {
	t.Parallel()

	clientEnd, serverEnd := comm.Pipe(4)
	c := New(clientEnd, Options{})
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(context.Background()) }()

	callErr := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), message.GetTopFiles)
		callErr <- err
	}()

	_, err := serverEnd.Receive(context.Background())
	require.NoError(t, err)
	require.NoError(t, serverEnd.Close())

	select {
	case err := <-callErr:
		assert.ErrorIs(t, err, comm.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("pending call did not fail")
	}
	assert.NoError(t, <-runErr)

	_, err = c.Post(message.GetTopFiles)
	assert.ErrorIs(t, err, comm.ErrClosed)

	_, open := <-c.Inbox()
	assert.False(t, open)
}

func TestRequestsCarryAuthor(t *testing.T) {
	t.Parallel()

	clientEnd, serverEnd := comm.Pipe(4)
	defer serverEnd.Close()

	c := New(clientEnd, Options{Endpoint: "me", Server: "there", Author: "Jim"})
	_, err := c.Post(message.GetTopFiles)
	require.NoError(t, err)

	req, err := serverEnd.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, message.Endpoint("me"), req.From)
	assert.Equal(t, message.Endpoint("there"), req.To)
	assert.Equal(t, "Jim", req.Author)
}

func TestShutdownStopsServer(t *testing.T) {
	t.Parallel()

	srv, err := server.New(server.Options{Root: t.TempDir()})
	require.NoError(t, err)
	clientEnd, serverEnd := comm.Pipe(4)
	go func() { _ = srv.Serve(context.Background(), serverEnd) }()

	c := New(clientEnd, Options{})
	require.NoError(t, c.Shutdown())

	select {
	case <-srv.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
