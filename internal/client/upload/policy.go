package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/validation"
	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxGeneralBytes      int64 = 10 << 20
	MaxProfileImageBytes int64 = 5 << 20
)

// Policy is the client-side admission rule for one UploadKind.
type Policy struct {
	MaxBytes int64
	// Extensions lists accepted lowercase extensions; empty accepts any.
	Extensions []string
	// MIMEPrefix, when set, must prefix the attachment's MIME type.
	MIMEPrefix        string
	RequireAttachment bool
}

var Policies = map[models.UploadKind]Policy{
	models.UploadPost: {
		MaxBytes: MaxGeneralBytes,
	},
	models.UploadProfile: {
		MaxBytes:   MaxProfileImageBytes,
		Extensions: []string{".jpg", ".jpeg", ".png"},
	},
	models.UploadAudio: {
		MaxBytes:          MaxGeneralBytes,
		MIMEPrefix:        "audio/",
		RequireAttachment: true,
	},
	models.UploadDocument: {
		MaxBytes:          MaxGeneralBytes,
		Extensions:        []string{".pdf", ".docx"},
		RequireAttachment: true,
	},
}

// AttachmentFromFile describes the local file at path. An empty mimeType is
// detected from the file content.
func AttachmentFromFile(path, mimeType string) (*models.Attachment, error) {
	path = strings.TrimPrefix(path, "file://")
	fi, err := os.Stat(path)
	if err != nil {
		return nil, common.Invalid("cannot read %s: %v", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, common.Invalid("%s is not a regular file", path)
	}

	if mimeType == "" {
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, common.Invalid("cannot read %s: %v", path, err)
		}
		mimeType = mt.String()
	}

	return &models.Attachment{
		LocalPath: path,
		MimeType:  mimeType,
		Filename:  filepath.Base(path),
		SizeBytes: fi.Size(),
	}, nil
}

// Validate checks job against its kind's policy. It touches only the local
// filesystem.
func Validate(job *models.UploadJob) error {
	if err := validation.Struct(job); err != nil {
		return err
	}

	policy, ok := Policies[job.Kind]
	if !ok {
		return common.Invalid("unknown upload kind %q", job.Kind)
	}

	a := job.Attachment
	if a == nil {
		if policy.RequireAttachment {
			return common.Invalid("a file is required for this upload")
		}
		return nil
	}

	// the declared size may be stale
	fi, err := os.Stat(a.LocalPath)
	if err != nil {
		return common.Invalid("cannot read %s: %v", a.LocalPath, err)
	}
	size := max(fi.Size(), a.SizeBytes)
	if size > policy.MaxBytes {
		return common.Invalid("file %s is %s, the limit is %s", a.Filename, humanSize(size), humanSize(policy.MaxBytes))
	}

	if len(policy.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(a.Filename))
		if !slices.Contains(policy.Extensions, ext) {
			return common.Invalid("file type %q is not allowed, expected one of %s", ext, strings.Join(policy.Extensions, ", "))
		}
	}

	if policy.MIMEPrefix != "" && !strings.HasPrefix(a.MimeType, policy.MIMEPrefix) {
		return common.Invalid("file %s must be %s*, got %q", a.Filename, policy.MIMEPrefix, a.MimeType)
	}
	return nil
}

func humanSize(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
	if n >= 1<<10 {
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
