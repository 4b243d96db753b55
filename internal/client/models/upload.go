package models

// UploadKind selects the validation policy of an upload.
type UploadKind string

const (
	UploadPost     UploadKind = "post"
	UploadProfile  UploadKind = "profile"
	UploadAudio    UploadKind = "audio"
	UploadDocument UploadKind = "document"
)

// Attachment is a local file to be sent as one multipart part.
type Attachment struct {
	LocalPath string `validate:"required"`
	MimeType  string
	Filename  string `validate:"required"`
	SizeBytes int64  `validate:"gte=0"`
}

// UploadJob describes one multipart request: plain text Fields plus an
// optional Attachment sent under FileField.
type UploadJob struct {
	Kind       UploadKind `validate:"required,oneof=post profile audio document"`
	Method     string     `validate:"required,oneof=POST PUT"`
	Endpoint   string     `validate:"required,startswith=/"`
	Fields     map[string]string
	FileField  string      `validate:"required_with=Attachment"`
	Attachment *Attachment `validate:"omitempty"`
}
