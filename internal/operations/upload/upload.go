// Package upload handles object upload operations.
//
// Payloads up to the multipart threshold are written through a single upload
// session; larger payloads are split into parts by the multipart coordinator.
package upload

import (
	"context"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/transfer/part"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/transfer/plan"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// Request describes one upload.
type Request struct {
	// Threshold is the multipart threshold and part size
	Threshold int64

	// ChunkSize bounds each write; non-positive writes a part at once
	ChunkSize int64

	// Metadata is stored with the object as given
	Metadata map[string]string

	// Checksum is the declared base64 MD5 of the payload, if any
	Checksum string

	// Progress receives cumulative byte counts
	Progress storjtypes.ProgressTracker
}

// Uploader handles uploads with automatic multipart detection.
type Uploader struct {
	backend     backend.Backend
	coordinator *multipart.Coordinator
}

// New creates a new Uploader instance.
func New(b backend.Backend) *Uploader {
	return &Uploader{
		backend:     b,
		coordinator: multipart.NewCoordinator(b),
	}
}

// Upload verifies the payload checksum and stores payload under bucket/key.
// A checksum mismatch fails before any backend call.
func (u *Uploader) Upload(
	ctx context.Context,
	bucket, key string,
	payload []byte,
	req Request,
) (*storjtypes.UploadResult, error) {
	startTime := time.Now()

	if err := validation.VerifyChecksum(payload, req.Checksum); err != nil {
		return nil, errors.NewObjectError("upload", bucket, key, err)
	}

	size := int64(len(payload))
	observe := progressObserver(req.Progress, size)

	p := plan.Compute(size, req.Threshold)
	result := &storjtypes.UploadResult{
		Key:       key,
		Size:      size,
		Multipart: p.Mode == plan.Multipart,
	}

	if p.Mode == plan.Multipart {
		parts, err := u.coordinator.Upload(ctx, bucket, key, payload, req.Threshold, req.ChunkSize, req.Metadata, observe)
		if err != nil {
			return nil, err
		}
		result.Parts = parts
	} else {
		if err := u.uploadSingle(ctx, bucket, key, payload, req, observe); err != nil {
			return nil, err
		}
		result.Parts = 1
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// uploadSingle writes payload through one upload session. The session is
// aborted on every path; aborting a committed session is a no-op.
func (u *Uploader) uploadSingle(
	ctx context.Context,
	bucket, key string,
	payload []byte,
	req Request,
	observe part.Observer,
) error {
	session, err := u.backend.OpenUpload(ctx, bucket, key)
	if err != nil {
		return errors.NewObjectError("openUpload", bucket, key, err)
	}
	defer func() { _ = session.Abort() }()

	if _, err := part.WriteRange(session, payload, 0, int64(len(payload)), req.ChunkSize, observe); err != nil {
		return errors.NewObjectError("upload", bucket, key, err)
	}

	if err := session.SetCustomMetadata(ctx, req.Metadata); err != nil {
		return errors.NewObjectError("setCustomMetadata", bucket, key, err)
	}

	if err := session.Commit(); err != nil {
		return errors.NewObjectError("commitUpload", bucket, key, err)
	}

	return nil
}

func progressObserver(tracker storjtypes.ProgressTracker, total int64) part.Observer {
	if tracker == nil {
		return nil
	}
	var sent int64
	return func(n int64) {
		sent += n
		tracker.Update(sent, total)
	}
}
