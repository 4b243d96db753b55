package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/services"
	"github.com/dmitrijs2005/lingopost/internal/common"
)

func (a *App) Posts(ctx context.Context) error {
	posts, err := a.posts.List(ctx)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts yet")
		return nil
	}
	for _, p := range posts {
		fmt.Fprintln(a.out, postLine(p))
	}
	return nil
}

func (a *App) ShowPost(ctx context.Context, args []string) error {
	id, err := parseID(args, "post <id>")
	if err != nil {
		return err
	}
	post, err := a.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	comments, err := a.comments.List(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, postLine(post))
	if post.Description != "" {
		fmt.Fprintln(a.out, indent(post.Description))
	}
	if post.MediaURL != "" {
		fmt.Fprintf(a.out, "  media: %s\n", post.MediaURL)
	}
	fmt.Fprintf(a.out, "  %d comment(s)\n", len(comments))
	for _, c := range comments {
		fmt.Fprintln(a.out, commentLine(c))
	}
	return nil
}

func (a *App) AddPost(ctx context.Context) error {
	me, err := a.me()
	if err != nil {
		return err
	}

	var d services.PostDraft
	if d.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if d.Description, err = getMultiline(a.reader, "Description", a.out); err != nil {
		return err
	}
	if d.AttachmentPath, err = getSimpleText(a.reader, "Attachment path (optional, up to 10 MB)", a.out); err != nil {
		return err
	}

	created, err := a.posts.Create(ctx, me.UserID, d, progressPrinter(a.out, "uploading"))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Post #%d created\n", created.PostID)
	return nil
}

// EditPost prompts for new values; empty answers keep the current ones.
func (a *App) EditPost(ctx context.Context, args []string) error {
	id, err := parseID(args, "editpost <id>")
	if err != nil {
		return err
	}
	cur, err := a.posts.Get(ctx, id)
	if err != nil {
		return err
	}

	d := services.PostDraft{Title: cur.Title, Description: cur.Description}
	title, err := getSimpleText(a.reader, fmt.Sprintf("Title [%s]", cur.Title), a.out)
	if err != nil {
		return err
	}
	if title != "" {
		d.Title = title
	}
	desc, err := getMultiline(a.reader, "Description (empty keeps the current one)", a.out)
	if err != nil {
		return err
	}
	if desc != "" {
		d.Description = desc
	}
	if d.AttachmentPath, err = getSimpleText(a.reader, "New attachment path (optional)", a.out); err != nil {
		return err
	}

	if _, err := a.posts.Update(ctx, id, d, progressPrinter(a.out, "uploading")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Post #%d updated\n", id)
	return nil
}

func (a *App) DeletePost(ctx context.Context, args []string) error {
	id, err := parseID(args, "delpost <id>")
	if err != nil {
		return err
	}
	if err := a.posts.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Post #%d deleted\n", id)
	return nil
}

func (a *App) Comments(ctx context.Context, args []string) error {
	id, err := parseID(args, "comments <post id>")
	if err != nil {
		return err
	}
	comments, err := a.comments.List(ctx, id)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Fprintln(a.out, "No comments yet")
	}
	for _, c := range comments {
		fmt.Fprintln(a.out, commentLine(c))
	}
	return nil
}

func (a *App) AddComment(ctx context.Context, args []string) error {
	id, err := parseID(args, "comment <post id> <text>")
	if err != nil {
		return err
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	if text == "" {
		return common.Invalid("usage: comment <post id> <text>")
	}

	out, err := a.comments.Add(ctx, id, me.UserID, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Comment #%d added\n", out.CommentID)
	return nil
}

func postLine(p models.Post) string {
	s := fmt.Sprintf("#%d %s (by user #%d)", p.ID, p.Title, p.UserID)
	if p.MediaURL != "" {
		s += " [media]"
	}
	return s
}

func commentLine(c models.Comment) string {
	return fmt.Sprintf("  - user #%d: %s", c.UserID, c.CommentText)
}
