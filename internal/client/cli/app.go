package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dmitrijs2005/lingopost/internal/client/ai"
	"github.com/dmitrijs2005/lingopost/internal/client/audio"
	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/config"
	"github.com/dmitrijs2005/lingopost/internal/client/localdb"
	"github.com/dmitrijs2005/lingopost/internal/client/mediacache"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/repositories/media"
	"github.com/dmitrijs2005/lingopost/internal/client/services"
	"github.com/dmitrijs2005/lingopost/internal/client/session"
	"github.com/dmitrijs2005/lingopost/internal/client/upload"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/cryptox"
	"github.com/dmitrijs2005/lingopost/internal/filex"
	"github.com/dmitrijs2005/lingopost/internal/logging"
)

// audioSlot is the part of *audio.Session the REPL drives.
type audioSlot interface {
	Play(ctx context.Context, src, ownerID string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (string, error)
	State() audio.Snapshot
	Close() error
}

// aiDispatcher is the part of *ai.Dispatcher the REPL drives.
type aiDispatcher interface {
	Invoke(ctx context.Context, action ai.Action, p ai.Payload) (ai.Result, error)
	Speak(ctx context.Context, userID int64, text string) (ai.Result, error)
	History(ctx context.Context) ([]models.ChatMessage, error)
}

type mediaIndex interface {
	List(ctx context.Context) ([]*models.CachedMediaEntry, error)
}

type App struct {
	log logging.Logger

	auth      services.AuthService
	posts     services.PostService
	comments  services.CommentService
	users     services.UserService
	documents services.DocumentService
	ai        aiDispatcher
	audio     audioSlot
	media     mediaIndex

	// current mirrors the session store for the prompt and for user ids.
	current atomic.Pointer[models.Session]

	reader  *bufio.Reader
	out     io.Writer
	closers []func() error
}

// NewApp opens local storage under cfg.DataDir and wires every component.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}

	db, err := localdb.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", common.ErrStorageUnavailable, err)
	}

	a := &App{
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closers: []func() error{db.Close},
	}

	store, err := openSessionStore(ctx, cfg, db, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	store.Subscribe(a.sessionChanged)
	if err := store.Restore(ctx); err != nil {
		// degrade to logged out
		log.Warn(ctx, "cannot restore session", "err", err)
	}

	hc, err := client.New(cfg.BaseURL, store,
		client.WithLogger(log),
		client.WithTimeouts(cfg.RequestTimeout, cfg.UploadTimeout),
		client.WithUnauthorizedHandler(func(token string) {
			a.sessionRejected(context.WithoutCancel(ctx), store, token)
		}),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	cache, err := mediacache.New(cfg.MediaDir(), media.NewSQLiteRepository(db), hc, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	player := cfg.Player
	if len(player) == 0 {
		player = audio.DetectPlayer()
	}
	recorder := cfg.Recorder
	if len(recorder) == 0 {
		recorder = audio.DetectRecorder()
	}
	slot := audio.NewSession(audio.NewExecDriver(player, recorder, log), cache, cfg.RecordingsDir(), log)
	slot.OnRecordingFinished(func(path string, err error) {
		a.recordingFinished(context.WithoutCancel(ctx), path, err)
	})
	a.closers = append([]func() error{slot.Close}, a.closers...)

	uploads := upload.New(hc, log)

	a.auth = services.NewAuthService(hc, store, log)
	a.posts = services.NewPostService(hc, uploads, log)
	a.comments = services.NewCommentService(hc)
	a.users = services.NewUserService(hc, uploads)
	a.documents = services.NewDocumentService(cache, uploads, log)
	a.ai = ai.NewDispatcher(hc, uploads, slot, log)
	a.audio = slot
	a.media = cache

	return a, nil
}

func openSessionStore(ctx context.Context, cfg *config.Config, db *sql.DB, log logging.Logger) (*session.Store, error) {
	deviceKey, err := cryptox.LoadOrCreateDeviceKey(cfg.DeviceKeyPath())
	if err != nil {
		return nil, fmt.Errorf("%w: device key: %w", common.ErrStorageUnavailable, err)
	}
	defer common.WipeByteArray(deviceKey)

	key, err := cryptox.DeriveKey(deviceKey, nil, "lingopost session token")
	if err != nil {
		return nil, err
	}
	sealer, err := cryptox.NewSealer(key)
	if err != nil {
		return nil, err
	}
	return session.NewStore(db, sealer, log), nil
}

// Run starts the REPL. It returns when the user exits, at end of input, or
// at the next prompt after ctx is done.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error(ctx, "shutdown", "err", err)
		}
	}()

	fmt.Fprintln(a.out, "Welcome to LingoPost CLI (type 'help' for commands)")
	if s := a.current.Load(); s != nil {
		fmt.Fprintf(a.out, "Logged in as %s\n", s.Username)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close releases the audio slot and the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) isLoggedIn() bool {
	return a.current.Load() != nil
}

func (a *App) sessionChanged(s *models.Session) {
	a.current.Store(s)
}

// sessionRejected runs when the backend answers 401 to an authenticated
// call. The session is dropped only if the rejected token is still current.
func (a *App) sessionRejected(ctx context.Context, store *session.Store, token string) {
	cleared, err := store.ClearIfToken(ctx, token)
	if err != nil {
		a.log.Error(ctx, "clear rejected session", "err", err)
	}
	if cleared {
		if a.audio != nil {
			_ = a.audio.Close()
		}
		fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
	}
}

func (a *App) me() (models.Session, error) {
	s := a.current.Load()
	if s == nil {
		return models.Session{}, common.ErrNoSession
	}
	return *s, nil
}

func (a *App) getStatus() string {
	s := ""
	if cur := a.current.Load(); cur != nil {
		s = cur.Username
	}
	if a.audio != nil {
		if st := a.audio.State(); st.State != audio.Idle {
			if s != "" {
				s += " "
			}
			s += string(st.State)
		}
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}
