package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/common"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error

	Posts(ctx context.Context) error
	ShowPost(ctx context.Context, args []string) error
	AddPost(ctx context.Context) error
	EditPost(ctx context.Context, args []string) error
	DeletePost(ctx context.Context, args []string) error
	Comments(ctx context.Context, args []string) error
	AddComment(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error
	EditProfile(ctx context.Context) error

	Chat(ctx context.Context, args []string) error
	History(ctx context.Context) error
	Transcribe(ctx context.Context, args []string) error
	Extract(ctx context.Context, args []string) error

	Play(ctx context.Context, args []string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Record(ctx context.Context) error
	StopRecord(ctx context.Context) error
	Cache(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = `Available commands:
  posts | l                 list posts
  post <id>                 show a post with its comments
  addpost                   create a post (optional attachment)
  editpost <id>             edit your post
  delpost <id>              delete your post
  comments <id>             list comments of a post
  comment <id> <text>       comment on a post
  profile [user id]         show a profile (yours by default)
  editprofile               change bio or profile picture
  translate <text>          translate text
  grammar <text>            check grammar
  tts <text>                speak text aloud
  chat <action> <text>      run translate, grammar, tts or stt
  stt <audio file>          transcribe an audio file
  record / stoprecord       transcribe your voice (max 60s)
  history                   past AI interactions
  play <post id | url>      play (or stop) media
  pause / resume / stop     control playback
  extract <post id>         extract text of a PDF/DOCX post
  cache                     list downloaded media
  whoami, refresh, logout, exit`
)

// runREPL reads commands from reader, one per line, and dispatches them to
// a. Handler errors are printed with common.Describe and never stop the
// loop. It returns on "exit"/"quit", at end of input, or when ctx is done.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			printlnFn("Bye!")
			return
		}

		printlnFn(fmt.Sprintf("lp %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "l", "posts":
			cmdErr = a.Posts(ctx)
		case "post":
			cmdErr = a.ShowPost(ctx, args)
		case "addpost":
			cmdErr = a.AddPost(ctx)
		case "editpost":
			cmdErr = a.EditPost(ctx, args)
		case "delpost":
			cmdErr = a.DeletePost(ctx, args)
		case "comments":
			cmdErr = a.Comments(ctx, args)
		case "comment":
			cmdErr = a.AddComment(ctx, args)
		case "profile":
			cmdErr = a.Profile(ctx, args)
		case "editprofile":
			cmdErr = a.EditProfile(ctx)

		case "chat":
			cmdErr = a.Chat(ctx, args)
		case "translate", "grammar", "tts":
			cmdErr = a.Chat(ctx, append([]string{cmd}, args...))
		case "stt":
			cmdErr = a.Transcribe(ctx, args)
		case "history":
			cmdErr = a.History(ctx)
		case "extract":
			cmdErr = a.Extract(ctx, args)

		case "play":
			cmdErr = a.Play(ctx, args)
		case "pause":
			cmdErr = a.Pause(ctx)
		case "resume":
			cmdErr = a.Resume(ctx)
		case "stop":
			cmdErr = a.Stop(ctx)
		case "record":
			cmdErr = a.Record(ctx)
		case "stoprecord":
			cmdErr = a.StopRecord(ctx)
		case "cache":
			cmdErr = a.Cache(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", common.Describe(cmdErr))
		}
		if err != nil {
			return
		}
	}
}
