package storj

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/compose"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/delete"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

const (
	// MiB is one mebibyte.
	MiB = 1024 * 1024

	// DefaultChunkSize is the default upload and download chunk size.
	DefaultChunkSize = 5 * MiB

	// MinMultipartUploadThreshold is the smallest multipart threshold honored.
	// Lower configured values are raised to it.
	MinMultipartUploadThreshold = 5 * MiB
)

// Client transfers objects in one bucket of a backend.
// A Client is safe for concurrent use; its configuration never changes after New.
type Client struct {
	backend backend.Backend
	bucket  string
	config  storjtypes.ClientConfig
	log     logrus.FieldLogger

	uploader *upload.Uploader
	reader   *download.Reader
	composer *compose.Composer
	deleter  *delete.Deleter
}

// New creates a client for bucket on backend b.
//
// Example:
//
//	client, err := storj.New(b, "media",
//	    storj.WithUploadChunkSize(8*storj.MiB),
//	    storj.WithMultipartUploadThreshold(64*storj.MiB),
//	)
func New(b backend.Backend, bucket string, opts ...storjtypes.Option) (*Client, error) {
	if b == nil {
		return nil, errors.NewError("client initialization", errors.ErrInvalidInput).
			WithMessage("backend cannot be nil")
	}
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	cfg := storjtypes.ClientConfig{
		UploadChunkSize:          DefaultChunkSize,
		DownloadChunkSize:        DefaultChunkSize,
		MultipartUploadThreshold: MinMultipartUploadThreshold,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validation.ValidateChunkSize("upload chunk size", cfg.UploadChunkSize); err != nil {
		return nil, err
	}
	if err := validation.ValidateChunkSize("download chunk size", cfg.DownloadChunkSize); err != nil {
		return nil, err
	}
	cfg.MultipartUploadThreshold = max(cfg.MultipartUploadThreshold, MinMultipartUploadThreshold)
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	uploader := upload.New(b)
	reader := download.New(b, cfg.DownloadChunkSize)

	return &Client{
		backend:  b,
		bucket:   bucket,
		config:   cfg,
		log:      cfg.Logger.WithField("component", "storj"),
		uploader: uploader,
		reader:   reader,
		composer: compose.NewComposer(reader, uploader),
		deleter:  delete.New(b),
	}, nil
}

// Bucket returns the bucket the client operates on.
func (c *Client) Bucket() string {
	return c.bucket
}

// Config returns a copy of the client configuration.
func (c *Client) Config() storjtypes.ClientConfig {
	return c.config
}

// Close releases the backend if it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return errors.NewError("close", err).WithBucket(c.bucket)
		}
	}
	return nil
}
