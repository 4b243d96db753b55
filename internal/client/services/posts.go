package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/upload"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/netx"
)

// Uploader sends multipart jobs. *upload.Pipeline satisfies it.
type Uploader interface {
	Submit(ctx context.Context, job models.UploadJob, out any, opts ...upload.SubmitOption) error
}

// PostDraft is the editable content of a post. AttachmentPath is an optional
// local file; an empty path keeps the current attachment on update.
type PostDraft struct {
	Title          string
	Description    string
	AttachmentPath string
}

// PostService manages posts. Attachments follow the general upload policy.
type PostService interface {
	List(ctx context.Context) ([]models.Post, error)
	Get(ctx context.Context, id int64) (models.Post, error)
	Create(ctx context.Context, userID int64, d PostDraft, progress netx.ProgressFunc) (models.PostCreated, error)
	Update(ctx context.Context, id int64, d PostDraft, progress netx.ProgressFunc) (models.PostUpdated, error)
	Delete(ctx context.Context, id int64) error
}

type postService struct {
	http    Sender
	uploads Uploader
	log     logging.Logger
}

func NewPostService(http Sender, uploads Uploader, log logging.Logger) PostService {
	return &postService{http: http, uploads: uploads, log: log}
}

func (p *postService) List(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := p.http.Do(ctx, client.Request{Method: http.MethodGet, Path: "/posts"}, &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (p *postService) Get(ctx context.Context, id int64) (models.Post, error) {
	var post models.Post
	if err := p.http.Do(ctx, client.Request{Method: http.MethodGet, Path: postPath(id)}, &post); err != nil {
		return models.Post{}, fmt.Errorf("get post %d: %w", id, err)
	}
	return post, nil
}

func (p *postService) Create(ctx context.Context, userID int64, d PostDraft, progress netx.ProgressFunc) (models.PostCreated, error) {
	if strings.TrimSpace(d.Title) == "" {
		return models.PostCreated{}, common.Invalid("title is required")
	}

	job, err := postJob(http.MethodPost, "/posts", d)
	if err != nil {
		return models.PostCreated{}, err
	}
	job.Fields["user_id"] = strconv.FormatInt(userID, 10)

	var out models.PostCreated
	if err := p.uploads.Submit(ctx, job, &out, upload.WithExtendedTimeout(), upload.WithProgress(progress)); err != nil {
		return models.PostCreated{}, fmt.Errorf("create post: %w", err)
	}
	p.log.Info(ctx, "post created", "post_id", out.PostID)
	return out, nil
}

func (p *postService) Update(ctx context.Context, id int64, d PostDraft, progress netx.ProgressFunc) (models.PostUpdated, error) {
	job, err := postJob(http.MethodPut, postPath(id), d)
	if err != nil {
		return models.PostUpdated{}, err
	}

	var out models.PostUpdated
	if err := p.uploads.Submit(ctx, job, &out, upload.WithExtendedTimeout(), upload.WithProgress(progress)); err != nil {
		return models.PostUpdated{}, fmt.Errorf("update post %d: %w", id, err)
	}
	return out, nil
}

func (p *postService) Delete(ctx context.Context, id int64) error {
	if err := p.http.Do(ctx, client.Request{Method: http.MethodDelete, Path: postPath(id)}, nil); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	p.log.Info(ctx, "post deleted", "post_id", id)
	return nil
}

func postJob(method, endpoint string, d PostDraft) (models.UploadJob, error) {
	job := models.UploadJob{
		Kind:     models.UploadPost,
		Method:   method,
		Endpoint: endpoint,
		Fields: map[string]string{
			"title":       strings.TrimSpace(d.Title),
			"description": d.Description,
		},
	}
	if d.AttachmentPath != "" {
		att, err := upload.AttachmentFromFile(d.AttachmentPath, "")
		if err != nil {
			return models.UploadJob{}, err
		}
		job.FileField = "document"
		job.Attachment = att
	}
	return job, nil
}

func postPath(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10)
}
