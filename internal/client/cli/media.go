package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/lingopost/internal/client/audio"
	"github.com/dmitrijs2005/lingopost/internal/common"
)

// Play plays the media of a post (by id) or a URL. Repeating the command
// for what is already playing stops it.
func (a *App) Play(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return common.Invalid("usage: play <post id | url>")
	}

	src, owner := args[0], args[0]
	if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		post, err := a.posts.Get(ctx, id)
		if err != nil {
			return err
		}
		if post.MediaURL == "" {
			return common.Invalid("post #%d has no media", id)
		}
		src, owner = post.MediaURL, "post-"+strconv.FormatInt(id, 10)
	}

	if err := a.audio.Play(ctx, src, owner); err != nil {
		switch {
		case errors.Is(err, audio.ErrSuperseded):
			return nil
		case errors.Is(err, audio.ErrInvalidState):
			fmt.Fprintln(a.out, "Still saving the recording, try again in a moment")
			return nil
		}
		return err
	}

	if st := a.audio.State(); st.OwnerID == owner {
		fmt.Fprintln(a.out, "Playing... type 'pause' or 'stop'")
	} else {
		fmt.Fprintln(a.out, "Stopped")
	}
	return nil
}

func (a *App) Pause(ctx context.Context) error {
	if err := a.audio.Pause(ctx); err != nil {
		if errors.Is(err, audio.ErrInvalidState) {
			fmt.Fprintln(a.out, "Nothing is playing")
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Paused")
	return nil
}

func (a *App) Resume(ctx context.Context) error {
	if err := a.audio.Resume(ctx); err != nil {
		if errors.Is(err, audio.ErrInvalidState) {
			fmt.Fprintln(a.out, "Nothing is paused")
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Resumed")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if err := a.audio.Stop(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Stopped")
	return nil
}

// Extract prints the text of a post's PDF or DOCX attachment.
func (a *App) Extract(ctx context.Context, args []string) error {
	id, err := parseID(args, "extract <post id>")
	if err != nil {
		return err
	}
	post, err := a.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.MediaURL == "" {
		return common.Invalid("post #%d has no attachment", id)
	}

	doc, err := a.documents.Extract(ctx, post.MediaURL, progressPrinter(a.out, "downloading"))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, doc.Text)
	return nil
}

// Cache lists downloaded media, newest first.
func (a *App) Cache(ctx context.Context) error {
	entries, err := a.media.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "Media cache is empty")
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%s  %8s  %s\n    -> %s\n",
			e.FetchedAt.Local().Format("2006-01-02 15:04"), humanBytes(e.SizeBytes), e.RemoteURL, e.LocalPath)
	}
	return nil
}
