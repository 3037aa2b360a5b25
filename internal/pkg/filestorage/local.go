package filestorage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// PublicPrefix is the URL prefix stored on records for local files
const PublicPrefix = "/uploads"

// StoredFile describes a file written by LocalStorage
type StoredFile struct {
	Kind Kind
	Name string
	// URL is the value persisted on course records, e.g. /uploads/videos/<name>
	URL  string
	Path string
	Ext  string
	Size int64
}

// LocalStorage saves uploads under <basePath>/<kind>/ with random names
type LocalStorage struct {
	basePath string
	policy   *Policy
	logger   zerolog.Logger
}

// NewLocalStorage creates the storage root and one directory per kind
func NewLocalStorage(basePath string, policy *Policy, logger zerolog.Logger) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path %s: %w", basePath, err)
	}

	for _, kind := range Kinds {
		dir := filepath.Join(abs, string(kind))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Str("path", dir).Msg("Failed to create storage directory")
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	logger.Info().Str("path", abs).Msg("Local storage directories ensured")

	return &LocalStorage{
		basePath: abs,
		policy:   policy,
		logger:   logger,
	}, nil
}

// Policy returns the upload policy
func (ls *LocalStorage) Policy() *Policy {
	return ls.policy
}

// Root returns the absolute directory for kind
func (ls *LocalStorage) Root(kind Kind) string {
	return filepath.Join(ls.basePath, string(kind))
}

// Save validates fileHeader against the policy for field and writes it under a random name.
// A partially written file is removed before returning an error.
func (ls *LocalStorage) Save(field string, fileHeader *multipart.FileHeader) (*StoredFile, error) {
	if fileHeader == nil {
		return nil, apperrors.NewValidationError(field, field+" file is required")
	}

	rule, ext, err := ls.policy.Check(field, fileHeader)
	if err != nil {
		return nil, err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file name: %w", err)
	}
	name := strings.ReplaceAll(id.String(), "-", "") + ext
	dstPath := filepath.Join(ls.Root(rule.Kind), name)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	// The header size is client supplied, so the copy enforces the cap again
	written, copyErr := io.Copy(dst, io.LimitReader(src, rule.MaxSize+1))
	closeErr := dst.Close()
	if copyErr == nil && written > rule.MaxSize {
		copyErr = tooLarge(field, rule)
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dstPath)
		ls.logger.Warn().Err(err).Str("field", field).Msg("Upload aborted, partial file removed")
		if copyErr != nil && apperrors.Is(copyErr, apperrors.ErrFileTooLarge) {
			return nil, copyErr
		}
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	ls.logger.Info().
		Str("field", field).
		Str("saved_as", name).
		Int64("size", written).
		Msg("File saved")

	return &StoredFile{
		Kind: rule.Kind,
		Name: name,
		URL:  path.Join(PublicPrefix, string(rule.Kind), name),
		Path: dstPath,
		Ext:  ext,
		Size: written,
	}, nil
}

// Resolve maps a client supplied filename to a path inside the kind root.
// Names outside the allow-list fail with ErrInvalidFilename, escapes with ErrPathOutsideRoot.
func (ls *LocalStorage) Resolve(kind Kind, name string) (string, error) {
	if !validation.IsSafeFilename(name) {
		return "", apperrors.ErrInvalidFilename
	}

	root := ls.Root(kind)
	full := filepath.Join(root, name)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", apperrors.ErrPathOutsideRoot
	}
	return full, nil
}

// LocalKindAndName splits a stored URL like /uploads/videos/x.mp4.
// External URLs return ok == false.
func LocalKindAndName(url string) (Kind, string, bool) {
	rest, found := strings.CutPrefix(url, PublicPrefix+"/")
	if !found {
		return "", "", false
	}
	dir, name, found := strings.Cut(rest, "/")
	if !found {
		return "", "", false
	}
	kind, ok := ParseKind(dir)
	if !ok || !validation.IsSafeFilename(name) {
		return "", "", false
	}
	return kind, name, true
}

// Delete removes a file referenced by a stored URL. External URLs and missing files are ignored.
func (ls *LocalStorage) Delete(url string) error {
	kind, name, ok := LocalKindAndName(url)
	if !ok {
		return nil
	}

	full, err := ls.Resolve(kind, name)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		ls.logger.Error().Err(err).Str("path", full).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	ls.logger.Info().Str("url", url).Msg("File deleted")
	return nil
}
