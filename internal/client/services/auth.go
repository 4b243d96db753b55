// Package services contains the application services of the LingoPost CLI.
// This file defines the authentication service: login, registration with
// automatic login, logout and token refresh.
package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/session"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/validation"
)

// Sender performs one REST call. *client.HTTPClient satisfies it.
type Sender interface {
	Do(ctx context.Context, r client.Request, out any) error
}

// SessionStore is the part of *session.Store the services need.
type SessionStore interface {
	Save(ctx context.Context, s models.Session) error
	Load(ctx context.Context) (models.Session, error)
	Clear(ctx context.Context) error
}

// Registration is the input of AuthService.Register.
type Registration struct {
	Username       string `json:"username" validate:"required,max=50"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	Bio            string `json:"bio,omitempty" validate:"max=500"`
	ProfilePicture string `json:"profile_picture,omitempty" validate:"omitempty,url"`
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate and make the returned session current.
//   - Register: create the account, then log in with the same credentials.
//   - Logout: forget the local session; the backend keeps no server session.
//   - Refresh: exchange the current token for a fresh one.
//
// Inputs are validated before any network call.
type AuthService interface {
	Login(ctx context.Context, email, password string) (models.Session, error)
	Register(ctx context.Context, r Registration) (models.Session, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (models.Session, error)
	Current(ctx context.Context) (models.Session, error)
}

type authService struct {
	http  Sender
	store SessionStore
	log   logging.Logger
}

func NewAuthService(http Sender, store SessionStore, log logging.Logger) AuthService {
	return &authService{http: http, store: store, log: log}
}

func (a *authService) Login(ctx context.Context, email, password string) (models.Session, error) {
	in := credentials{Email: email, Password: password}
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}

	body, err := client.JSONBody(in)
	if err != nil {
		return models.Session{}, err
	}

	var resp models.LoginResponse
	err = a.http.Do(ctx, client.Request{
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Body:        body,
		ContentType: "application/json",
		Anonymous:   true,
	}, &resp)
	if err != nil {
		return models.Session{}, fmt.Errorf("login: %w", err)
	}

	return a.establish(ctx, resp, email)
}

func (a *authService) Register(ctx context.Context, r Registration) (models.Session, error) {
	if err := validation.Struct(r); err != nil {
		return models.Session{}, err
	}

	body, err := client.JSONBody(r)
	if err != nil {
		return models.Session{}, err
	}

	var created models.MessageResponse
	err = a.http.Do(ctx, client.Request{
		Method:      http.MethodPost,
		Path:        "/auth/register",
		Body:        body,
		ContentType: "application/json",
		Anonymous:   true,
	}, &created)
	if err != nil {
		return models.Session{}, fmt.Errorf("register: %w", err)
	}
	a.log.Info(ctx, "account registered", "username", r.Username)

	return a.Login(ctx, r.Email, r.Password)
}

func (a *authService) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

func (a *authService) Refresh(ctx context.Context) (models.Session, error) {
	cur, err := a.store.Load(ctx)
	if err != nil {
		return models.Session{}, err
	}

	var resp models.LoginResponse
	if err := a.http.Do(ctx, client.Request{Method: http.MethodPost, Path: "/auth/refresh"}, &resp); err != nil {
		return models.Session{}, fmt.Errorf("refresh: %w", err)
	}
	return a.establish(ctx, resp, cur.Email)
}

func (a *authService) Current(ctx context.Context) (models.Session, error) {
	return a.store.Load(ctx)
}

func (a *authService) establish(ctx context.Context, resp models.LoginResponse, email string) (models.Session, error) {
	sess := session.FromLogin(resp, email)
	if err := a.store.Save(ctx, sess); err != nil {
		return models.Session{}, err
	}
	a.log.Info(ctx, "logged in", "user_id", sess.UserID, "username", sess.Username)
	return sess, nil
}
