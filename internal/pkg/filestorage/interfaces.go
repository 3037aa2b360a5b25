package filestorage

import (
	"mime/multipart"

	"github.com/rs/zerolog"
)

// FileStorage defines the operations services need from upload storage
type FileStorage interface {
	// Save validates and writes an upload for the given form field
	Save(field string, fileHeader *multipart.FileHeader) (*StoredFile, error)

	// Delete removes a file by its stored URL, ignoring external URLs
	Delete(url string) error

	// Resolve returns the on-disk path of name inside the kind root
	Resolve(kind Kind, name string) (string, error)
}

// Batch tracks every file written while handling one request so a failure
// anywhere can unlink all of them.
type Batch struct {
	storage FileStorage
	logger  zerolog.Logger
	files   []*StoredFile
}

// NewBatch starts an empty batch
func NewBatch(storage FileStorage, logger zerolog.Logger) *Batch {
	return &Batch{storage: storage, logger: logger}
}

// Save writes through the storage and records the file
func (b *Batch) Save(field string, fileHeader *multipart.FileHeader) (*StoredFile, error) {
	stored, err := b.storage.Save(field, fileHeader)
	if err != nil {
		return nil, err
	}
	b.files = append(b.files, stored)
	return stored, nil
}

// Files returns the files written so far
func (b *Batch) Files() []*StoredFile {
	return b.files
}

// Rollback deletes every recorded file
func (b *Batch) Rollback() {
	for _, f := range b.files {
		if err := b.storage.Delete(f.URL); err != nil {
			b.logger.Error().Err(err).Str("url", f.URL).Msg("Failed to remove orphaned upload")
		}
	}
	b.files = nil
}
