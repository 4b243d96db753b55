package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/client/ai"
	"github.com/dmitrijs2005/lingopost/internal/common"
)

// Chat runs "<action> <text>". stt takes a file path instead of text.
func (a *App) Chat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return common.Invalid("usage: chat <translate|grammar|tts|stt> <text>")
	}
	action, err := ai.ParseAction(args[0])
	if err != nil {
		return err
	}
	if action == ai.STT {
		return a.Transcribe(ctx, args[1:])
	}

	me, err := a.me()
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")

	var res ai.Result
	if action == ai.TTS {
		res, err = a.ai.Speak(ctx, me.UserID, text)
	} else {
		res, err = a.ai.Invoke(ctx, action, ai.Payload{UserID: me.UserID, Text: text})
	}
	if err != nil {
		return err
	}

	a.printResult(res)
	return nil
}

// Transcribe sends a local audio file to speech-to-text.
func (a *App) Transcribe(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return common.Invalid("usage: stt <audio file>")
	}
	return a.transcribe(ctx, strings.Join(args, " "), false)
}

func (a *App) transcribe(ctx context.Context, path string, fromRecording bool) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	res, err := a.ai.Invoke(ctx, ai.STT, ai.Payload{UserID: me.UserID, FilePath: path, FromRecording: fromRecording})
	if err != nil {
		return err
	}
	a.printResult(res)
	return nil
}

func (a *App) History(ctx context.Context) error {
	msgs, err := a.ai.History(ctx)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "No history yet")
	}
	for _, m := range msgs {
		fmt.Fprintf(a.out, "#%d [%s] %s\n", m.ID, m.Action, m.UserInput)
		if m.Response != "" {
			fmt.Fprintln(a.out, indent(m.Response))
		}
		if m.AudioPath != "" {
			fmt.Fprintf(a.out, "  audio: %s\n", m.AudioPath)
		}
	}
	return nil
}

// Record starts a microphone capture; StopRecord (or the time limit)
// finishes it and sends it to speech-to-text.
func (a *App) Record(ctx context.Context) error {
	if _, err := a.me(); err != nil {
		return err
	}
	if err := a.audio.StartRecording(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Recording... type 'stoprecord' to finish (max 60s)")
	return nil
}

func (a *App) StopRecord(ctx context.Context) error {
	path, err := a.audio.StopRecording(ctx)
	if err != nil {
		return err
	}
	return a.sendRecording(ctx, path)
}

// recordingFinished handles a capture stopped by the time limit.
func (a *App) recordingFinished(ctx context.Context, path string, err error) {
	fmt.Fprintln(a.out, "\nRecording limit reached")
	if err == nil {
		err = a.sendRecording(ctx, path)
	}
	if err != nil {
		fmt.Fprintln(a.out, "Error:", common.Describe(err))
	}
}

func (a *App) sendRecording(ctx context.Context, path string) error {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.log.Warn(ctx, "remove recording", "path", path, "err", err)
		}
	}()
	fmt.Fprintln(a.out, "Transcribing...")
	return a.transcribe(ctx, path, true)
}

func (a *App) printResult(res ai.Result) {
	switch {
	case res.Empty:
		fmt.Fprintln(a.out, "No speech detected. Please try again.")
		return
	case res.Text != "":
		fmt.Fprintln(a.out, res.Text)
	}
	if res.DetectedLanguage != "" {
		fmt.Fprintf(a.out, "(detected language: %s)\n", res.DetectedLanguage)
	}
	if res.Action == ai.TTS && res.AudioPath != "" {
		fmt.Fprintln(a.out, "Playing... type 'stop' to stop")
	}
}
