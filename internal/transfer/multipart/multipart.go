// Package multipart handles multipart upload operations: parts are opened,
// written and committed strictly in ascending order, then the whole upload
// is committed with its metadata.
package multipart

import (
	"context"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/transfer/part"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/transfer/plan"
)

// Coordinator drives multipart uploads against a backend.
type Coordinator struct {
	backend backend.Backend
}

// NewCoordinator creates a new multipart coordinator.
func NewCoordinator(b backend.Backend) *Coordinator {
	return &Coordinator{backend: b}
}

// Upload uploads payload to bucket/key in parts of partSize bytes, each written
// in chunks of chunkSize bytes, and returns the number of parts committed.
//
// A failure leaves the multipart upload uncommitted. Nothing is retried.
func (c *Coordinator) Upload(
	ctx context.Context,
	bucket, key string,
	payload []byte,
	partSize, chunkSize int64,
	metadata map[string]string,
	observe part.Observer,
) (int, error) {
	if partSize <= 0 {
		return 0, errors.NewObjectError("multipartUpload", bucket, key, errors.ErrInvalidInput).
			WithMessage("part size must be positive")
	}

	size := int64(len(payload))
	partCount := plan.Compute(size, partSize).PartCount

	handle, err := c.backend.BeginMultipartUpload(ctx, bucket, key)
	if err != nil {
		return 0, errors.NewObjectError("beginMultipartUpload", bucket, key, err)
	}

	for i := 1; i <= partCount; i++ {
		start, end := plan.PartRange(i, partSize, size)
		if err := c.uploadPart(ctx, bucket, key, handle, i, payload, start, end, chunkSize, observe); err != nil {
			return i - 1, err
		}
	}

	if err := c.backend.CommitMultipartUpload(ctx, bucket, key, handle, metadata); err != nil {
		return partCount, errors.NewObjectError("commitMultipartUpload", bucket, key, err)
	}

	return partCount, nil
}

// uploadPart writes and commits one part. The part session is aborted on
// every path; aborting a committed session is a no-op.
func (c *Coordinator) uploadPart(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	number int,
	payload []byte,
	start, end, chunkSize int64,
	observe part.Observer,
) error {
	session, err := c.backend.OpenPart(ctx, bucket, key, handle, uint32(number))
	if err != nil {
		return errors.NewObjectError("openPart", bucket, key, err).WithMessage(fmt.Sprintf("part %d", number))
	}
	defer func() { _ = session.Abort() }()

	if _, err := part.WriteRange(session, payload, start, end, chunkSize, observe); err != nil {
		return errors.NewObjectError("uploadPart", bucket, key, err).WithMessage(fmt.Sprintf("part %d", number))
	}

	if err := session.Commit(); err != nil {
		return errors.NewObjectError("commitPart", bucket, key, err).WithMessage(fmt.Sprintf("part %d", number))
	}

	return nil
}
