// Package ai dispatches the language tools of the backend: translation,
// grammar checking, text-to-speech and speech-to-text.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/upload"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/google/uuid"
)

type Action string

const (
	Translate Action = "translate"
	Grammar   Action = "grammar"
	TTS       Action = "tts"
	STT       Action = "stt"
)

// ParseAction accepts an action name case-insensitively.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case Translate, Grammar, TTS, STT:
		return a, nil
	default:
		return "", common.Invalid("unknown action %q, expected translate, grammar, tts or stt", s)
	}
}

// Payload is the input of one action. Text is used by translate, grammar and
// tts; FilePath (a local audio file) by stt.
type Payload struct {
	UserID   int64
	Text     string
	FilePath string
	MimeType string
	// FromRecording marks audio captured live, which uses the regular
	// timeout instead of the extended upload timeout.
	FromRecording bool
}

// Result is the outcome of one action. Empty means the audio held no speech.
type Result struct {
	Action           Action
	MessageID        int64
	Text             string
	AudioPath        string
	DetectedLanguage string
	Empty            bool
}

// Sender performs a JSON call. *client.HTTPClient satisfies it.
type Sender interface {
	Do(ctx context.Context, r client.Request, out any) error
}

// Uploader sends multipart jobs. *upload.Pipeline satisfies it.
type Uploader interface {
	Submit(ctx context.Context, job models.UploadJob, out any, opts ...upload.SubmitOption) error
}

// Player plays a sound in the shared audio slot. *audio.Session satisfies it.
type Player interface {
	Play(ctx context.Context, src, ownerID string) error
}

type Dispatcher struct {
	http    Sender
	uploads Uploader
	player  Player
	log     logging.Logger
}

func NewDispatcher(http Sender, uploads Uploader, player Player, log logging.Logger) *Dispatcher {
	return &Dispatcher{http: http, uploads: uploads, player: player, log: log}
}

type chatRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
	Action Action `json:"action"`
}

// Invoke runs action. Text actions go to /chat as JSON; stt uploads the
// audio file to /speech-to-text.
func (d *Dispatcher) Invoke(ctx context.Context, action Action, p Payload) (Result, error) {
	if p.UserID <= 0 {
		return Result{}, common.ErrNoSession
	}

	switch action {
	case Translate, Grammar, TTS:
		return d.chat(ctx, action, p)
	case STT:
		return d.transcribe(ctx, p)
	default:
		return Result{}, common.Invalid("unknown action %q", action)
	}
}

func (d *Dispatcher) chat(ctx context.Context, action Action, p Payload) (Result, error) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return Result{}, common.Invalid("text is required for %s", action)
	}

	body, err := client.JSONBody(chatRequest{UserID: p.UserID, Text: text, Action: action})
	if err != nil {
		return Result{}, err
	}

	var msg models.ChatMessage
	err = d.http.Do(ctx, client.Request{
		Method:      http.MethodPost,
		Path:        "/chat",
		Body:        body,
		ContentType: "application/json",
	}, &msg)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", action, err)
	}

	d.log.Debug(ctx, "ai action done", "action", action, "message_id", msg.ID)
	return resultFrom(action, msg), nil
}

func (d *Dispatcher) transcribe(ctx context.Context, p Payload) (Result, error) {
	path := strings.TrimSpace(p.FilePath)
	if path == "" {
		return Result{}, common.Invalid("an audio file is required for speech-to-text")
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return Result{}, common.Invalid("speech-to-text needs a local audio file, not %s", path)
	}

	att, err := upload.AttachmentFromFile(path, p.MimeType)
	if err != nil {
		return Result{}, err
	}

	job := models.UploadJob{
		Kind:       models.UploadAudio,
		Method:     http.MethodPost,
		Endpoint:   "/speech-to-text",
		Fields:     map[string]string{"user_id": strconv.FormatInt(p.UserID, 10)},
		FileField:  "audio_file",
		Attachment: att,
	}
	var opts []upload.SubmitOption
	if !p.FromRecording {
		opts = append(opts, upload.WithExtendedTimeout())
	}

	var msg models.ChatMessage
	if err := d.uploads.Submit(ctx, job, &msg, opts...); err != nil {
		if noSpeech(err) {
			d.log.Info(ctx, "no speech detected", "file", att.Filename)
			return Result{Action: STT, Empty: true}, nil
		}
		return Result{}, fmt.Errorf("stt: %w", err)
	}
	return resultFrom(STT, msg), nil
}

// Speak synthesizes text and plays it in the shared audio slot, replacing
// whatever was playing.
func (d *Dispatcher) Speak(ctx context.Context, userID int64, text string) (Result, error) {
	res, err := d.Invoke(ctx, TTS, Payload{UserID: userID, Text: text})
	if err != nil {
		return Result{}, err
	}
	if res.AudioPath == "" {
		return res, fmt.Errorf("tts: %w: response has no audio", common.ErrUnexpectedStatus)
	}
	if d.player == nil {
		return res, nil
	}
	if err := d.player.Play(ctx, res.AudioPath, speechOwner(res.MessageID)); err != nil {
		return res, fmt.Errorf("play speech: %w", err)
	}
	return res, nil
}

// speechOwner names the audio slot owner of a TTS reply. Replies without
// an id get a fresh owner so they never toggle each other off.
func speechOwner(messageID int64) string {
	if messageID == 0 {
		return "tts-" + uuid.NewString()
	}
	return "tts-" + strconv.FormatInt(messageID, 10)
}

// History lists the user's past AI interactions.
func (d *Dispatcher) History(ctx context.Context) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := d.http.Do(ctx, client.Request{Method: http.MethodGet, Path: "/chat/history"}, &msgs); err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return msgs, nil
}

func resultFrom(action Action, msg models.ChatMessage) Result {
	return Result{
		Action:           action,
		MessageID:        msg.ID,
		Text:             msg.Response,
		AudioPath:        msg.AudioPath,
		DetectedLanguage: msg.DetectedLanguage,
	}
}

func noSpeech(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, common.ErrValidationRejected) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Detail), "no speech")
}
