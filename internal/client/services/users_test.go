package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestUsers_UpdateProfile(t *testing.T) {
	pic := tempFile(t, "me.png", pngHeader)
	u := &fakeUploader{respond: func(job models.UploadJob, out any) error {
		*out.(*models.User) = models.User{ID: 7, Bio: job.Fields["bio"], ProfilePicture: "/uploads/me.png"}
		return nil
	}}
	svc := NewUserService(&fakeSender{}, u)

	bio := "Aprendiendo"
	user, err := svc.UpdateProfile(context.Background(), 7, &bio, pic)
	require.NoError(t, err)
	assert.Equal(t, "Aprendiendo", user.Bio)
	assert.Equal(t, models.UploadProfile, u.last.Kind)
	assert.Equal(t, "/users/7", u.last.Endpoint)
	assert.Equal(t, "image/png", u.last.Attachment.MimeType)
}

func TestUsers_UpdateProfileRejectsWrongImageType(t *testing.T) {
	gif := tempFile(t, "me.gif", []byte("GIF89a\x01\x00\x01\x00"))
	u := &fakeUploader{}

	_, err := NewUserService(&fakeSender{}, u).UpdateProfile(context.Background(), 7, nil, gif)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestUsers_UpdateProfileNothingToDo(t *testing.T) {
	u := &fakeUploader{}
	_, err := NewUserService(&fakeSender{}, u).UpdateProfile(context.Background(), 7, nil, "")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, u.calls)
}
