package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lingopost/internal/client/services"
	"github.com/dmitrijs2005/lingopost/internal/common"
)

// Register prompts for the account details, creates the account and logs
// in with it.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	bio, err := getSimpleText(a.reader, "Tell us about yourself (optional)", a.out)
	if err != nil {
		return err
	}

	sess, err := a.auth.Register(ctx, services.Registration{
		Username: username,
		Email:    email,
		Password: string(password),
		Bio:      bio,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", sess.Username)
	return nil
}

// Login prompts for credentials and makes the returned session current.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.auth.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", sess.Username)
	return nil
}

// Logout stops any audio and forgets the session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.audio.Close(); err != nil {
		a.log.Warn(ctx, "release audio on logout", "err", err)
	}
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	sess, err := a.auth.Current(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> (user #%d)\n", sess.Username, sess.Email, sess.UserID)
	if !sess.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "token expires %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if _, err := a.auth.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}
