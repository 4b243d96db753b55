// Package session keeps the authenticated identity of the CLI.
//
// Store holds the current Session in memory and persists it to the local
// metadata table, with the bearer token sealed by a device key. Writes are
// last-write-wins; subscribers are told about every change.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/cryptox"
	"github.com/dmitrijs2005/lingopost/internal/dbx"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const (
	keySession = "session"
	keySavedAt = "session_saved_at"
)

// record is the persisted form of a Session.
type record struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	SealedToken []byte    `json:"sealed_token"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
	log    logging.Logger
	now    func() time.Time

	// writeMu orders persisted writes so the last Save or Clear wins on disk
	// as well as in memory.
	writeMu sync.Mutex

	mu       sync.RWMutex
	current  *models.Session
	restored bool

	subMu   sync.Mutex
	subs    map[uint64]func(*models.Session)
	nextSub uint64
}

func NewStore(db *sql.DB, sealer *cryptox.Sealer, log logging.Logger) *Store {
	return &Store{
		db:     db,
		sealer: sealer,
		log:    log,
		now:    time.Now,
		subs:   make(map[uint64]func(*models.Session)),
	}
}

// FromLogin builds a Session from a login or refresh response. The expiry is
// read from the token without verifying its signature; the backend remains
// the authority on validity.
func FromLogin(resp models.LoginResponse, email string) models.Session {
	s := models.Session{
		UserID:      resp.UserID,
		Username:    resp.Username,
		Email:       email,
		BearerToken: resp.AccessToken,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.ExpiresAt = exp.Time
		}
	}
	return s
}

// Restore loads the persisted session into memory. A missing record leaves
// the store logged out without error.
func (s *Store) Restore(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, err := metadata.NewSQLiteRepository(s.db).Get(ctx, keySession)
	if err != nil {
		return fmt.Errorf("%w: restore session: %w", common.ErrStorageUnavailable, err)
	}

	var sess *models.Session
	if raw != nil {
		decoded, err := s.decode(raw)
		if err != nil {
			// unreadable record, e.g. the device key changed
			s.log.Warn(ctx, "discarding unreadable session record", "err", err)
		} else {
			sess = &decoded
		}
	}

	s.mu.Lock()
	s.current = sess
	s.restored = true
	s.mu.Unlock()

	s.publish(sess)
	return nil
}

// Save persists sess and makes it current. On a storage failure the
// in-memory state is left unchanged.
func (s *Store) Save(ctx context.Context, sess models.Session) error {
	if sess.BearerToken == "" {
		return common.Invalid("session without a bearer token")
	}

	raw, err := s.encode(sess)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	savedAt := strconv.FormatInt(s.now().UnixMilli(), 10)
	err = dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keySession, raw); err != nil {
			return err
		}
		return repo.Set(ctx, keySavedAt, []byte(savedAt))
	})
	if err != nil {
		return fmt.Errorf("%w: save session: %w", common.ErrStorageUnavailable, err)
	}

	cp := sess
	s.mu.Lock()
	s.current = &cp
	s.restored = true
	s.mu.Unlock()

	s.log.Info(ctx, "session saved", "user_id", sess.UserID, "username", sess.Username)
	s.publish(&cp)
	return nil
}

// Load returns the current session or common.ErrNoSession. The persisted
// record is read on first use.
func (s *Store) Load(ctx context.Context) (models.Session, error) {
	s.mu.RLock()
	restored := s.restored
	s.mu.RUnlock()

	if !restored {
		if err := s.Restore(ctx); err != nil {
			return models.Session{}, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Session{}, common.ErrNoSession
	}
	return *s.current, nil
}

// Token is the bearer token of the current session, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.BearerToken
}

// Clear forgets the session. The in-memory session is dropped even if the
// persisted record cannot be removed.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.clearLocked(ctx)
}

// ClearIfToken clears the session only while token is still current, so a
// late 401 for a replaced session does not log the new one out.
func (s *Store) ClearIfToken(ctx context.Context, token string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.Token() != token {
		return false, nil
	}
	return true, s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.restored = true
	s.mu.Unlock()
	s.publish(nil)

	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, keySession, keySavedAt)
	})
	if err != nil {
		return fmt.Errorf("%w: clear session: %w", common.ErrStorageUnavailable, err)
	}
	s.log.Info(ctx, "session cleared")
	return nil
}

// Subscribe registers fn to be called with each new session (nil after a
// clear). The returned func unregisters it.
func (s *Store) Subscribe(fn func(*models.Session)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(sess *models.Session) {
	s.subMu.Lock()
	fns := make([]func(*models.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		if sess == nil {
			fn(nil)
			continue
		}
		cp := *sess
		fn(&cp)
	}
}

func (s *Store) encode(sess models.Session) ([]byte, error) {
	raw, err := json.Marshal(record{
		UserID:      sess.UserID,
		Username:    sess.Username,
		Email:       sess.Email,
		SealedToken: s.sealer.Seal([]byte(sess.BearerToken)),
		ExpiresAt:   sess.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

var errEmptyToken = errors.New("empty token")

func (s *Store) decode(raw []byte) (models.Session, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	token, err := s.sealer.Open(rec.SealedToken)
	if err != nil {
		return models.Session{}, fmt.Errorf("open token: %w", err)
	}
	if len(token) == 0 {
		return models.Session{}, errEmptyToken
	}
	return models.Session{
		UserID:      rec.UserID,
		Username:    rec.Username,
		Email:       rec.Email,
		BearerToken: string(token),
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}
