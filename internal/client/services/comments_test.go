package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments_Add(t *testing.T) {
	var body map[string]any
	s := &fakeSender{respond: func(r client.Request, out any) error {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		*out.(*models.CommentCreated) = models.CommentCreated{CommentID: 9}
		return nil
	}}
	svc := NewCommentService(s)

	out, err := svc.Add(context.Background(), 3, 7, "  ¡Muy bien!  ")
	require.NoError(t, err)
	assert.Equal(t, int64(9), out.CommentID)
	assert.Equal(t, http.MethodPost, s.last.Method)
	assert.Equal(t, "/comments", s.last.Path)
	assert.Equal(t, map[string]any{"post_id": float64(3), "user_id": float64(7), "comment_text": "¡Muy bien!"}, body)
}

func TestComments_AddEmpty(t *testing.T) {
	s := &fakeSender{}
	_, err := NewCommentService(s).Add(context.Background(), 3, 7, " ")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, s.calls)
}

func TestComments_List(t *testing.T) {
	s := &fakeSender{respond: func(r client.Request, out any) error {
		*out.(*[]models.Comment) = []models.Comment{{ID: 1, CommentText: "hi"}}
		return nil
	}}

	got, err := NewCommentService(s).List(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "/comments/3", s.last.Path)
}
