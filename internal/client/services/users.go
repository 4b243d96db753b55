package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/upload"
	"github.com/dmitrijs2005/lingopost/internal/common"
)

// UserService reads profiles and updates the caller's own. Profile pictures
// follow the image policy (jpeg or png, at most 5 MB).
type UserService interface {
	Get(ctx context.Context, id int64) (models.User, error)
	UpdateProfile(ctx context.Context, id int64, bio *string, picturePath string) (models.User, error)
}

type userService struct {
	http    Sender
	uploads Uploader
}

func NewUserService(http Sender, uploads Uploader) UserService {
	return &userService{http: http, uploads: uploads}
}

func (u *userService) Get(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	if err := u.http.Do(ctx, client.Request{Method: http.MethodGet, Path: userPath(id)}, &user); err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// UpdateProfile changes the bio (when bio is non-nil) and/or the picture
// (when picturePath is set).
func (u *userService) UpdateProfile(ctx context.Context, id int64, bio *string, picturePath string) (models.User, error) {
	if bio == nil && picturePath == "" {
		return models.User{}, common.Invalid("nothing to update")
	}

	job := models.UploadJob{
		Kind:     models.UploadProfile,
		Method:   http.MethodPut,
		Endpoint: userPath(id),
		Fields:   map[string]string{},
	}
	if bio != nil {
		job.Fields["bio"] = *bio
	}
	if picturePath != "" {
		att, err := upload.AttachmentFromFile(picturePath, "")
		if err != nil {
			return models.User{}, err
		}
		job.FileField = "document"
		job.Attachment = att
	}

	var user models.User
	if err := u.uploads.Submit(ctx, job, &user, upload.WithExtendedTimeout()); err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}
