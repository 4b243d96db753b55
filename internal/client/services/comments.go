package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/common"
)

type CommentService interface {
	List(ctx context.Context, postID int64) ([]models.Comment, error)
	Add(ctx context.Context, postID, userID int64, text string) (models.CommentCreated, error)
}

type commentService struct {
	http Sender
}

func NewCommentService(http Sender) CommentService {
	return &commentService{http: http}
}

func (c *commentService) List(ctx context.Context, postID int64) ([]models.Comment, error) {
	var comments []models.Comment
	path := "/comments/" + strconv.FormatInt(postID, 10)
	if err := c.http.Do(ctx, client.Request{Method: http.MethodGet, Path: path}, &comments); err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}
	return comments, nil
}

func (c *commentService) Add(ctx context.Context, postID, userID int64, text string) (models.CommentCreated, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.CommentCreated{}, common.Invalid("comment text is required")
	}

	body, err := client.JSONBody(map[string]any{
		"post_id":      postID,
		"user_id":      userID,
		"comment_text": text,
	})
	if err != nil {
		return models.CommentCreated{}, err
	}

	var out models.CommentCreated
	err = c.http.Do(ctx, client.Request{Method: http.MethodPost, Path: "/comments", Body: body, ContentType: "application/json"}, &out)
	if err != nil {
		return models.CommentCreated{}, fmt.Errorf("add comment: %w", err)
	}
	return out, nil
}
