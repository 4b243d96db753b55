package services

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/upload"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/netx"
)

// MediaFetcher makes remote media available locally. *mediacache.Cache
// satisfies it.
type MediaFetcher interface {
	Fetch(ctx context.Context, remoteURL string, progress netx.ProgressFunc) (string, error)
}

// DocumentService extracts the text of a post's PDF or DOCX attachment.
type DocumentService interface {
	Extract(ctx context.Context, mediaURL string, progress netx.ProgressFunc) (models.ExtractedDocument, error)
}

type documentService struct {
	media   MediaFetcher
	uploads Uploader
	log     logging.Logger
}

func NewDocumentService(media MediaFetcher, uploads Uploader, log logging.Logger) DocumentService {
	return &documentService{media: media, uploads: uploads, log: log}
}

// Extract downloads the document through the media cache and sends it to the
// extraction endpoint.
func (d *documentService) Extract(ctx context.Context, mediaURL string, progress netx.ProgressFunc) (models.ExtractedDocument, error) {
	ext := strings.ToLower(path.Ext(strings.SplitN(mediaURL, "?", 2)[0]))
	if !slices.Contains(upload.Policies[models.UploadDocument].Extensions, ext) {
		return models.ExtractedDocument{}, common.Invalid("only PDF and DOCX documents can be extracted, got %q", ext)
	}

	local, err := d.media.Fetch(ctx, mediaURL, progress)
	if err != nil {
		return models.ExtractedDocument{}, err
	}

	att, err := upload.AttachmentFromFile(local, "")
	if err != nil {
		return models.ExtractedDocument{}, err
	}

	job := models.UploadJob{
		Kind:       models.UploadDocument,
		Method:     http.MethodPost,
		Endpoint:   "/document/extract",
		FileField:  "file",
		Attachment: att,
	}

	var out models.ExtractedDocument
	if err := d.uploads.Submit(ctx, job, &out, upload.WithExtendedTimeout()); err != nil {
		return models.ExtractedDocument{}, fmt.Errorf("extract %s: %w", mediaURL, err)
	}
	d.log.Info(ctx, "document extracted", "url", mediaURL, "chars", len(out.Text))
	return out, nil
}
