package cli

import (
	"context"
	"fmt"
)

// Profile shows the user given in args, or the logged-in user.
func (a *App) Profile(ctx context.Context, args []string) error {
	var id int64
	if len(args) > 0 {
		var err error
		if id, err = parseID(args, "profile [user id]"); err != nil {
			return err
		}
	} else {
		me, err := a.me()
		if err != nil {
			return err
		}
		id = me.UserID
	}

	u, err := a.users.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> (user #%d)\n", u.Username, u.Email, u.ID)
	if u.Bio != "" {
		fmt.Fprintln(a.out, indent(u.Bio))
	}
	if u.ProfilePicture != "" {
		fmt.Fprintf(a.out, "  picture: %s\n", u.ProfilePicture)
	}
	return nil
}

// EditProfile updates the bio and/or the picture. Empty answers keep the
// current values.
func (a *App) EditProfile(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}

	bio, err := getMultiline(a.reader, "New bio (empty keeps the current one)", a.out)
	if err != nil {
		return err
	}
	picture, err := getSimpleText(a.reader, "New picture path (jpg or png, up to 5 MB, optional)", a.out)
	if err != nil {
		return err
	}

	var bioPtr *string
	if bio != "" {
		bioPtr = &bio
	}
	if _, err := a.users.UpdateProfile(ctx, me.UserID, bioPtr, picture); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated")
	return nil
}
