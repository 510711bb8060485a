// Package storage is the blob store for uploaded files (chat attachments,
// profile photos). Blob content lives in MySQL alongside the rest of the
// data; writes are wrapped in a bounded exponential-backoff retry because
// uploads are the one operation the platform retries on transient failure.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/models"
)

// ErrBlobTooLarge rejects uploads over the configured size limit before any
// store write happens.
var ErrBlobTooLarge = errors.New("file exceeds maximum allowed size")

// ErrBlobNotFound is returned when no blob exists under the requested id.
var ErrBlobNotFound = errors.New("attachment not found")

// BlobStore saves and serves attachments.
type BlobStore struct {
	db       *gorm.DB
	log      *logrus.Logger
	maxBytes int64
	attempts int
	backoff  time.Duration
	sleep    func(time.Duration)
}

// NewBlobStore creates a BlobStore. attempts bounds the upload retry
// budget; backoff is the initial retry delay, doubling per attempt.
func NewBlobStore(db *gorm.DB, log *logrus.Logger, maxBytes int64, attempts int, backoff time.Duration) *BlobStore {
	return &BlobStore{
		db:       db,
		log:      log,
		maxBytes: maxBytes,
		attempts: attempts,
		backoff:  backoff,
		sleep:    time.Sleep,
	}
}

// Save stores a blob owned by ownerID under the given purpose namespace and
// returns the persisted record. Transient store failures are retried with
// exponential backoff until the budget is exhausted.
func (s *BlobStore) Save(ownerID, purpose, fileName, fileType string, data []byte) (*models.Attachment, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, ErrBlobTooLarge
	}

	attachment := &models.Attachment{
		OwnerID:  ownerID,
		Purpose:  purpose,
		FileName: fileName,
		FileType: fileType,
		Size:     int64(len(data)),
		Data:     data,
	}

	attempt := 0
	err := WithBackoff(s.attempts, s.backoff, s.sleep, func() error {
		attempt++
		if err := s.db.Create(attachment).Error; err != nil {
			s.log.WithFields(logrus.Fields{
				"owner":   ownerID,
				"purpose": purpose,
				"attempt": attempt,
			}).WithError(err).Warn("attachment write failed")
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	return attachment, nil
}

// Get loads a blob by id.
func (s *BlobStore) Get(id string) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := s.db.First(&attachment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return &attachment, nil
}

// Delete removes a blob by id.
func (s *BlobStore) Delete(id string) error {
	result := s.db.Delete(&models.Attachment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBlobNotFound
	}
	return nil
}
