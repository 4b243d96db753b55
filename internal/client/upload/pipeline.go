// Package upload validates and sends multipart uploads: post attachments,
// profile pictures, audio for transcription and documents for extraction.
//
// Validation runs before any network I/O; an upload that breaks its policy
// never reaches the server. Bodies are streamed from disk, never buffered
// whole in memory.
package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/client/client"
	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/filex"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/netx"
	"github.com/google/uuid"
)

// Sender performs one HTTP request. *client.HTTPClient satisfies it.
type Sender interface {
	Do(ctx context.Context, r client.Request, out any) error
}

type submitOptions struct {
	extended bool
	progress netx.ProgressFunc
}

type SubmitOption func(*submitOptions)

// WithExtendedTimeout uses the long upload timeout.
func WithExtendedTimeout() SubmitOption {
	return func(o *submitOptions) { o.extended = true }
}

// WithProgress reports the fraction of the attachment sent.
func WithProgress(fn netx.ProgressFunc) SubmitOption {
	return func(o *submitOptions) { o.progress = fn }
}

type Pipeline struct {
	sender Sender
	log    logging.Logger
	now    func() time.Time
	newID  func() string
}

func New(sender Sender, log logging.Logger) *Pipeline {
	return &Pipeline{
		sender: sender,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// ProposeFilename builds the name sent for an attachment:
// <stem>-<unix millis>-<8 hex chars><ext>, restricted to URL-safe characters.
func ProposeFilename(original string, now time.Time, id string) string {
	ext := filepath.Ext(original)
	stem := filex.SafeName(strings.TrimSuffix(filepath.Base(original), ext))
	if ext = strings.ToLower(filex.SafeName(strings.TrimPrefix(ext, "."))); ext != "" {
		ext = "." + ext
	}
	if stem == "" {
		stem = "file"
	}
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%d-%s%s", stem, now.UnixMilli(), id, ext)
}

// Submit validates job and sends it, decoding the JSON response into out.
func (p *Pipeline) Submit(ctx context.Context, job models.UploadJob, out any, opts ...SubmitOption) error {
	var o submitOptions
	for _, fn := range opts {
		fn(&o)
	}

	if err := Validate(&job); err != nil {
		p.log.Warn(ctx, "upload rejected locally", "kind", job.Kind, "endpoint", job.Endpoint, "err", err)
		return err
	}

	var proposed string
	if job.Attachment != nil {
		proposed = ProposeFilename(job.Attachment.Filename, p.now(), p.newID())
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeBody(mw, job, proposed, o.progress))
	}()
	// unblocks the writer if the request ends before the body is consumed
	defer pr.Close()

	start := p.now()
	err := p.sender.Do(ctx, client.Request{
		Method:      job.Method,
		Path:        job.Endpoint,
		Body:        pr,
		ContentType: mw.FormDataContentType(),
		Extended:    o.extended,
	}, out)
	if err != nil {
		return err
	}

	p.log.Info(ctx, "upload sent", "kind", job.Kind, "endpoint", job.Endpoint,
		"file", proposed, "elapsed", p.now().Sub(start))
	return nil
}

func writeBody(mw *multipart.Writer, job models.UploadJob, proposed string, progress netx.ProgressFunc) error {
	keys := make([]string, 0, len(job.Fields))
	for k := range job.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, job.Fields[k]); err != nil {
			return err
		}
	}

	if a := job.Attachment; a != nil {
		f, err := os.Open(a.LocalPath)
		if err != nil {
			return err
		}
		defer f.Close()

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, job.FileField, proposed))
		ct := a.MimeType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		total := a.SizeBytes
		if fi, err := f.Stat(); err == nil {
			total = fi.Size()
		}
		if _, err := netx.CopyWithProgress(part, f, total, progress); err != nil {
			return err
		}
	}

	return mw.Close()
}
