package filestorage

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

// Kind is a top-level upload directory
type Kind string

const (
	KindImage    Kind = "images"
	KindVideo    Kind = "videos"
	KindDocument Kind = "documents"
)

// Kinds lists every upload directory
var Kinds = []Kind{KindImage, KindVideo, KindDocument}

// ParseKind validates a kind coming from a URL
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Upload form fields
const (
	FieldImage     = "image"
	FieldThumbnail = "thumbnail"
	FieldVideo     = "video"
	FieldDocument  = "document"
)

// Rule is the allow-list for one form field. Types maps a MIME type to its extensions.
type Rule struct {
	Kind    Kind
	MaxSize int64
	Types   map[string][]string
}

// Policy holds one Rule per upload field
type Policy struct {
	rules map[string]Rule
}

// Limits configures the per-kind size caps
type Limits struct {
	MaxVideoSize    int64
	MaxDocumentSize int64
	MaxImageSize    int64
}

var (
	videoTypes = map[string][]string{
		"video/mp4":       {".mp4", ".m4v"},
		"video/webm":      {".webm"},
		"video/ogg":       {".ogv", ".ogg"},
		"video/quicktime": {".mov", ".qt"},
	}
	imageTypes = map[string][]string{
		"image/jpeg": {".jpg", ".jpeg"},
		"image/png":  {".png"},
		"image/gif":  {".gif"},
		"image/webp": {".webp"},
	}
	documentTypes = map[string][]string{
		"application/pdf":    {".pdf"},
		"application/msword": {".doc"},
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	}
)

// NewPolicy builds the unified upload policy
func NewPolicy(limits Limits) *Policy {
	image := Rule{Kind: KindImage, MaxSize: limits.MaxImageSize, Types: imageTypes}
	return &Policy{
		rules: map[string]Rule{
			FieldImage:     image,
			FieldThumbnail: image,
			FieldVideo:     {Kind: KindVideo, MaxSize: limits.MaxVideoSize, Types: videoTypes},
			FieldDocument:  {Kind: KindDocument, MaxSize: limits.MaxDocumentSize, Types: documentTypes},
		},
	}
}

// Rule returns the rule for field
func (p *Policy) Rule(field string) (Rule, bool) {
	r, ok := p.rules[field]
	return r, ok
}

// MaxRequestSize is the largest file payload one request can carry: the
// largest single file plus a thumbnail sent alongside it.
func (p *Policy) MaxRequestSize() int64 {
	var max int64
	for _, r := range p.rules {
		if r.MaxSize > max {
			max = r.MaxSize
		}
	}
	return max + p.rules[FieldThumbnail].MaxSize
}

// Check validates the declared MIME type, the extension and the size of an upload.
// The extension must belong to the declared MIME type since both are client supplied.
func (p *Policy) Check(field string, fh *multipart.FileHeader) (Rule, string, error) {
	rule, ok := p.rules[field]
	if !ok {
		return Rule{}, "", apperrors.NewBadRequestError(fmt.Sprintf("Unexpected upload field %q", field))
	}

	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil {
		return rule, "", unsupported(field, "Invalid Content-Type")
	}
	mediaType = strings.ToLower(mediaType)

	exts, ok := rule.Types[mediaType]
	if !ok {
		return rule, "", unsupported(field, fmt.Sprintf("File type %s is not allowed for %s", mediaType, field))
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !contains(exts, ext) {
		return rule, "", unsupported(field, fmt.Sprintf("File extension %q does not match %s", ext, mediaType))
	}

	if fh.Size > rule.MaxSize {
		return rule, "", tooLarge(field, rule)
	}

	return rule, ext, nil
}

func tooLarge(field string, rule Rule) error {
	return &apperrors.CustomError{
		Err:     apperrors.ErrFileTooLarge,
		Message: fmt.Sprintf("%s exceeds the %s limit", field, humanize.IBytes(uint64(rule.MaxSize))),
		Field:   field,
	}
}

func unsupported(field, message string) error {
	return &apperrors.CustomError{
		Err:     apperrors.ErrUnsupportedMediaType,
		Message: message,
		Field:   field,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
