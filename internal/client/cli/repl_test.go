package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  map[string][]string
	fail  map[string]error
}

func (f *fakeExec) record(name string, args ...string) error {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return f.fail[name]
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }

func (f *fakeExec) Register(ctx context.Context) error { return f.record("register") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) WhoAmI(ctx context.Context) error  { return f.record("whoami") }
func (f *fakeExec) Refresh(ctx context.Context) error { return f.record("refresh") }
func (f *fakeExec) Posts(ctx context.Context) error   { return f.record("posts") }
func (f *fakeExec) ShowPost(ctx context.Context, args []string) error {
	return f.record("post", args...)
}
func (f *fakeExec) AddPost(ctx context.Context) error { return f.record("addpost") }
func (f *fakeExec) EditPost(ctx context.Context, args []string) error {
	return f.record("editpost", args...)
}
func (f *fakeExec) DeletePost(ctx context.Context, args []string) error {
	return f.record("delpost", args...)
}
func (f *fakeExec) Comments(ctx context.Context, args []string) error {
	return f.record("comments", args...)
}
func (f *fakeExec) AddComment(ctx context.Context, args []string) error {
	return f.record("comment", args...)
}
func (f *fakeExec) Profile(ctx context.Context, args []string) error {
	return f.record("profile", args...)
}
func (f *fakeExec) EditProfile(ctx context.Context) error { return f.record("editprofile") }
func (f *fakeExec) Chat(ctx context.Context, args []string) error {
	return f.record("chat", args...)
}
func (f *fakeExec) History(ctx context.Context) error { return f.record("history") }
func (f *fakeExec) Transcribe(ctx context.Context, args []string) error {
	return f.record("stt", args...)
}
func (f *fakeExec) Extract(ctx context.Context, args []string) error {
	return f.record("extract", args...)
}
func (f *fakeExec) Play(ctx context.Context, args []string) error {
	return f.record("play", args...)
}
func (f *fakeExec) Pause(ctx context.Context) error      { return f.record("pause") }
func (f *fakeExec) Resume(ctx context.Context) error     { return f.record("resume") }
func (f *fakeExec) Stop(ctx context.Context) error       { return f.record("stop") }
func (f *fakeExec) Record(ctx context.Context) error     { return f.record("record") }
func (f *fakeExec) StopRecord(ctx context.Context) error { return f.record("stoprecord") }
func (f *fakeExec) Cache(ctx context.Context) error      { return f.record("cache") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	captureOutput(t)

	input := strings.Join([]string{
		"help",
		"login",
		"posts",
		"post 3",
		"comment 3 ¡Muy bien!",
		"translate good morning",
		"tts hola",
		"play 3",
		"pause",
		"resume",
		"stop",
		"record",
		"stoprecord",
		"",
		"logout",
		"exit",
		"posts",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr(input))

	assert.Equal(t, []string{
		"login", "posts", "post", "comment", "chat", "chat", "play",
		"pause", "resume", "stop", "record", "stoprecord", "logout",
	}, exec.calls)
	assert.Equal(t, []string{"3", "¡Muy", "bien!"}, exec.args["comment"])
	assert.Equal(t, []string{"tts", "hola"}, exec.args["chat"])
	assert.Equal(t, []string{"3"}, exec.args["play"])
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	out := captureOutput(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "" }, rdr("help\n"))
	assert.Contains(t, *out, helpLoggedOut)

	*out = nil
	runREPL(context.Background(), &fakeExec{loggedIn: true}, func() string { return "(amy)" }, rdr("help\n"))
	assert.Contains(t, *out, helpLoggedIn)
	assert.Contains(t, *out, "lp (amy)> ")
}

func TestRunREPL_PrintsDescribedErrorsAndContinues(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{fail: map[string]error{"posts": common.ErrNetworkUnreachable}}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("posts\nfoobar\nwhoami\nquit\n"))

	assert.Equal(t, []string{"posts", "whoami"}, exec.calls)
	assert.Contains(t, *out, "Error: Unable to connect to server. Please check your internet connection.")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("posts\ncache"))
	assert.Equal(t, []string{"posts", "cache"}, exec.calls)
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	out := captureOutput(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, rdr("posts\n"))
	require.Empty(t, exec.calls)
	assert.Equal(t, []string{"Bye!"}, *out)
}
