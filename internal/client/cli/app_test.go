package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/client/ai"
	"github.com/dmitrijs2005/lingopost/internal/client/audio"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/services"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/netx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ------------ fakes ------------

type fakeAuth struct {
	loginEmail, loginPassword string
	registered                services.Registration
	loggedOut                 bool
	err                       error
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (models.Session, error) {
	f.loginEmail, f.loginPassword = email, password
	return models.Session{UserID: 7, Username: "amy", Email: email, BearerToken: "T1"}, f.err
}
func (f *fakeAuth) Register(ctx context.Context, r services.Registration) (models.Session, error) {
	f.registered = r
	return models.Session{UserID: 7, Username: r.Username, Email: r.Email, BearerToken: "T1"}, f.err
}
func (f *fakeAuth) Logout(ctx context.Context) error { f.loggedOut = true; return f.err }
func (f *fakeAuth) Refresh(ctx context.Context) (models.Session, error) {
	return models.Session{}, f.err
}
func (f *fakeAuth) Current(ctx context.Context) (models.Session, error) {
	return models.Session{UserID: 7, Username: "amy", Email: "amy@example.com"}, f.err
}

type fakePosts struct {
	post    models.Post
	created services.PostDraft
	updated services.PostDraft
	deleted int64
}

func (f *fakePosts) List(ctx context.Context) ([]models.Post, error) {
	return []models.Post{f.post}, nil
}
func (f *fakePosts) Get(ctx context.Context, id int64) (models.Post, error) {
	if id != f.post.ID {
		return models.Post{}, common.ErrNotFound
	}
	return f.post, nil
}
func (f *fakePosts) Create(ctx context.Context, userID int64, d services.PostDraft, progress netx.ProgressFunc) (models.PostCreated, error) {
	f.created = d
	return models.PostCreated{PostID: 12}, nil
}
func (f *fakePosts) Update(ctx context.Context, id int64, d services.PostDraft, progress netx.ProgressFunc) (models.PostUpdated, error) {
	f.updated = d
	return models.PostUpdated{}, nil
}
func (f *fakePosts) Delete(ctx context.Context, id int64) error { f.deleted = id; return nil }

type fakeComments struct {
	added string
}

func (f *fakeComments) List(ctx context.Context, postID int64) ([]models.Comment, error) {
	return []models.Comment{{ID: 1, PostID: postID, UserID: 8, CommentText: "¡Genial!"}}, nil
}
func (f *fakeComments) Add(ctx context.Context, postID, userID int64, text string) (models.CommentCreated, error) {
	f.added = text
	return models.CommentCreated{CommentID: 5}, nil
}

type fakeAudio struct {
	snap     audio.Snapshot
	played   []string
	recorded string
	closed   bool
	pauseErr error
	playErr  error
}

func (f *fakeAudio) Play(ctx context.Context, src, ownerID string) error {
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, src+"|"+ownerID)
	if f.snap.OwnerID == ownerID {
		f.snap = audio.Snapshot{State: audio.Idle}
		return nil
	}
	f.snap = audio.Snapshot{State: audio.Playing, OwnerID: ownerID}
	return nil
}
func (f *fakeAudio) Pause(ctx context.Context) error  { return f.pauseErr }
func (f *fakeAudio) Resume(ctx context.Context) error { return nil }
func (f *fakeAudio) Stop(ctx context.Context) error {
	f.snap = audio.Snapshot{State: audio.Idle}
	return nil
}
func (f *fakeAudio) StartRecording(ctx context.Context) error {
	f.snap = audio.Snapshot{State: audio.Recording}
	return nil
}
func (f *fakeAudio) StopRecording(ctx context.Context) (string, error) {
	f.snap = audio.Snapshot{State: audio.Idle}
	return f.recorded, nil
}
func (f *fakeAudio) State() audio.Snapshot { return f.snap }
func (f *fakeAudio) Close() error          { f.closed = true; return nil }

type fakeAI struct {
	invoked []ai.Payload
	spoken  string
	result  ai.Result
}

func (f *fakeAI) Invoke(ctx context.Context, action ai.Action, p ai.Payload) (ai.Result, error) {
	f.invoked = append(f.invoked, p)
	res := f.result
	res.Action = action
	return res, nil
}
func (f *fakeAI) Speak(ctx context.Context, userID int64, text string) (ai.Result, error) {
	f.spoken = text
	return ai.Result{Action: ai.TTS, Text: text, AudioPath: "/uploads/tts_1.mp3"}, nil
}
func (f *fakeAI) History(ctx context.Context) ([]models.ChatMessage, error) {
	return []models.ChatMessage{{ID: 2, Action: "translate", UserInput: "hi", Response: "hola"}}, nil
}

type fakeMedia struct{}

func (fakeMedia) List(ctx context.Context) ([]*models.CachedMediaEntry, error) {
	return []*models.CachedMediaEntry{{
		RemoteURL: "http://api/uploads/a.mp3", LocalPath: "/data/media/1a2b3c4d-a.mp3",
		SizeBytes: 2048, FetchedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}}, nil
}

// ------------ helpers ------------

type testApp struct {
	*App
	out      *bytes.Buffer
	auth     *fakeAuth
	posts    *fakePosts
	comments *fakeComments
	audio    *fakeAudio
	ai       *fakeAI
}

func newTestApp(t *testing.T, input string, loggedIn bool) *testApp {
	t.Helper()
	ta := &testApp{
		out:      &bytes.Buffer{},
		auth:     &fakeAuth{},
		posts:    &fakePosts{post: models.Post{ID: 3, UserID: 7, Title: "Verbs", Description: "ser vs estar", MediaURL: "/uploads/verbs.mp3"}},
		comments: &fakeComments{},
		audio:    &fakeAudio{snap: audio.Snapshot{State: audio.Idle}},
		ai:       &fakeAI{},
	}
	ta.App = &App{
		log:      logging.Nop(),
		auth:     ta.auth,
		posts:    ta.posts,
		comments: ta.comments,
		ai:       ta.ai,
		audio:    ta.audio,
		media:    fakeMedia{},
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      ta.out,
	}
	if loggedIn {
		ta.sessionChanged(&models.Session{UserID: 7, Username: "amy", BearerToken: "T1"})
	}
	return ta
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(w io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

// ------------ tests ------------

func TestLogin(t *testing.T) {
	stubPassword(t, "secret1")
	ta := newTestApp(t, "amy@example.com\n", false)

	require.NoError(t, ta.Login(context.Background()))
	assert.Equal(t, "amy@example.com", ta.auth.loginEmail)
	assert.Equal(t, "secret1", ta.auth.loginPassword)
	assert.Contains(t, ta.out.String(), "Logged in as amy")
}

func TestRegister(t *testing.T) {
	stubPassword(t, "secret1")
	ta := newTestApp(t, "amy\namy@example.com\nLearning Spanish\n", false)

	require.NoError(t, ta.Register(context.Background()))
	assert.Equal(t, services.Registration{Username: "amy", Email: "amy@example.com", Password: "secret1", Bio: "Learning Spanish"}, ta.auth.registered)
	assert.Contains(t, ta.out.String(), "Welcome, amy!")
}

func TestLogout_ReleasesAudio(t *testing.T) {
	ta := newTestApp(t, "", true)

	require.NoError(t, ta.Logout(context.Background()))
	assert.True(t, ta.audio.closed)
	assert.True(t, ta.auth.loggedOut)
}

func TestSessionChangedDrivesStatus(t *testing.T) {
	ta := newTestApp(t, "", true)
	assert.Equal(t, "(amy)", ta.getStatus())
	assert.True(t, ta.isLoggedIn())

	ta.audio.snap = audio.Snapshot{State: audio.Playing, OwnerID: "post-3"}
	assert.Equal(t, "(amy playing)", ta.getStatus())

	ta.sessionChanged(nil)
	ta.audio.snap = audio.Snapshot{State: audio.Idle}
	assert.Equal(t, "", ta.getStatus())
	assert.False(t, ta.isLoggedIn())
}

func TestShowPost(t *testing.T) {
	ta := newTestApp(t, "", true)

	require.NoError(t, ta.ShowPost(context.Background(), []string{"3"}))
	out := ta.out.String()
	assert.Contains(t, out, "#3 Verbs (by user #7) [media]")
	assert.Contains(t, out, "ser vs estar")
	assert.Contains(t, out, "user #8: ¡Genial!")

	err := ta.ShowPost(context.Background(), []string{"x"})
	require.ErrorIs(t, err, common.ErrValidation)
	err = ta.ShowPost(context.Background(), nil)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestAddPost(t *testing.T) {
	ta := newTestApp(t, "Verbs\nser vs estar\nline two\n\n/tmp/lesson.pdf\n", true)

	require.NoError(t, ta.AddPost(context.Background()))
	assert.Equal(t, services.PostDraft{Title: "Verbs", Description: "ser vs estar\nline two", AttachmentPath: "/tmp/lesson.pdf"}, ta.posts.created)
	assert.Contains(t, ta.out.String(), "Post #12 created")
}

func TestAddPost_RequiresLogin(t *testing.T) {
	ta := newTestApp(t, "", false)
	require.ErrorIs(t, ta.AddPost(context.Background()), common.ErrNoSession)
}

func TestEditPost_KeepsEmptyAnswers(t *testing.T) {
	ta := newTestApp(t, "\n\n\n", true)

	require.NoError(t, ta.EditPost(context.Background(), []string{"3"}))
	assert.Equal(t, services.PostDraft{Title: "Verbs", Description: "ser vs estar"}, ta.posts.updated)
}

func TestAddComment(t *testing.T) {
	ta := newTestApp(t, "", true)

	require.NoError(t, ta.AddComment(context.Background(), []string{"3", "¡Muy", "bien!"}))
	assert.Equal(t, "¡Muy bien!", ta.comments.added)

	err := ta.AddComment(context.Background(), []string{"3"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestPlay_PostMediaAndToggle(t *testing.T) {
	ta := newTestApp(t, "", true)
	ctx := context.Background()

	require.NoError(t, ta.Play(ctx, []string{"3"}))
	assert.Equal(t, audio.Snapshot{State: audio.Playing, OwnerID: "post-3"}, ta.audio.State())

	require.NoError(t, ta.Play(ctx, []string{"3"}))
	assert.Equal(t, audio.Idle, ta.audio.State().State)

	assert.Equal(t, []string{"/uploads/verbs.mp3|post-3", "/uploads/verbs.mp3|post-3"}, ta.audio.played)
	assert.Contains(t, ta.out.String(), "Playing...")
	assert.Contains(t, ta.out.String(), "Stopped")
}

func TestPlay_UnknownPost(t *testing.T) {
	ta := newTestApp(t, "", true)
	require.ErrorIs(t, ta.Play(context.Background(), []string{"99"}), common.ErrNotFound)
}

func TestPlay_WhileRecordingIsSaved(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.audio.playErr = fmt.Errorf("play while stopping: %w", audio.ErrInvalidState)

	require.NoError(t, ta.Play(context.Background(), []string{"https://cdn.example/a.mp3"}))
	assert.Contains(t, ta.out.String(), "Still saving the recording")
	assert.NotContains(t, ta.out.String(), "Playing...")
}

func TestPause_WhenIdleIsNotAnError(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.audio.pauseErr = audio.ErrInvalidState

	require.NoError(t, ta.Pause(context.Background()))
	assert.Contains(t, ta.out.String(), "Nothing is playing")
}

func TestChat(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.ai.result = ai.Result{Text: "buenos días", DetectedLanguage: "en"}
	ctx := context.Background()

	require.NoError(t, ta.Chat(ctx, []string{"translate", "good", "morning"}))
	require.Len(t, ta.ai.invoked, 1)
	assert.Equal(t, ai.Payload{UserID: 7, Text: "good morning"}, ta.ai.invoked[0])
	assert.Contains(t, ta.out.String(), "buenos días")

	require.NoError(t, ta.Chat(ctx, []string{"tts", "hola"}))
	assert.Equal(t, "hola", ta.ai.spoken)

	require.ErrorIs(t, ta.Chat(ctx, []string{"summarize", "x"}), common.ErrValidation)
	require.ErrorIs(t, ta.Chat(ctx, nil), common.ErrValidation)
}

func TestChat_RequiresLogin(t *testing.T) {
	ta := newTestApp(t, "", false)
	require.ErrorIs(t, ta.Chat(context.Background(), []string{"grammar", "me is"}), common.ErrNoSession)
}

func TestStopRecord_TranscribesAndRemovesFile(t *testing.T) {
	ta := newTestApp(t, "", true)
	path := filepath.Join(t.TempDir(), "rec.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))
	ta.audio.recorded = path
	ta.ai.result = ai.Result{Empty: true}
	ctx := context.Background()

	require.NoError(t, ta.Record(ctx))
	assert.Equal(t, audio.Recording, ta.audio.State().State)

	require.NoError(t, ta.StopRecord(ctx))
	require.Len(t, ta.ai.invoked, 1)
	assert.Equal(t, ai.Payload{UserID: 7, FilePath: path, FromRecording: true}, ta.ai.invoked[0])
	assert.Contains(t, ta.out.String(), "No speech detected")
	assert.NoFileExists(t, path)
}

func TestRecordingFinishedByLimit(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.ai.result = ai.Result{Text: "hola amigo"}

	ta.recordingFinished(context.Background(), filepath.Join(t.TempDir(), "rec.wav"), nil)
	assert.Contains(t, ta.out.String(), "Recording limit reached")
	assert.Contains(t, ta.out.String(), "hola amigo")

	ta.out.Reset()
	ta.recordingFinished(context.Background(), "", common.ErrRecordingTooShort)
	assert.Contains(t, ta.out.String(), "Recording too short")
}

func TestHistoryAndCache(t *testing.T) {
	ta := newTestApp(t, "", true)
	ctx := context.Background()

	require.NoError(t, ta.History(ctx))
	require.NoError(t, ta.Cache(ctx))

	out := ta.out.String()
	assert.Contains(t, out, "#2 [translate] hi")
	assert.Contains(t, out, "hola")
	assert.Contains(t, out, "2.0 KB")
	assert.Contains(t, out, "http://api/uploads/a.mp3")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := progressPrinter(&buf, "uploading")
	p(0.5)
	p(0.5)
	p(1)
	assert.Equal(t, "\ruploading  50%\ruploading 100%\n", buf.String())
}
