package storj

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/metadata"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// DefaultURLExpiry is how long private URLs stay valid unless WithExpiresIn is given.
const DefaultURLExpiry = 5 * time.Minute

// Upload reads reader to the end and stores it under key.
// See Put for the upload semantics.
func (c *Client) Upload(
	ctx context.Context,
	key string,
	reader io.Reader,
	opts ...storjtypes.UploadOption,
) (*storjtypes.UploadResult, error) {
	if reader == nil {
		return nil, errors.NewObjectError("upload", c.bucket, key, errors.ErrInvalidInput).
			WithMessage("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewObjectError("upload", c.bucket, key, err)
	}
	return c.Put(ctx, key, data, opts...)
}

// Put stores data under key.
//
// Payloads larger than the multipart threshold are uploaded in parts; smaller
// ones through a single session. When a checksum is given it is verified
// before anything is sent to the backend.
//
// Errors:
//   - ErrInvalidObjectKey: If key is empty or malformed
//   - ErrInvalidInput: If custom metadata is malformed
//   - ErrIntegrity: If the payload does not match the declared checksum
//   - Backend errors wrapped in Error type
func (c *Client) Put(
	ctx context.Context,
	key string,
	data []byte,
	opts ...storjtypes.UploadOption,
) (result *storjtypes.UploadResult, err error) {
	fields := logrus.Fields{"size": len(data)}
	done := c.instrument("upload", key, fields)
	defer func() { done(err) }()

	cfg, err := c.uploadConfig(key, opts)
	if err != nil {
		return nil, err
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = metadata.DetectContentType(key, data)
	}

	req := upload.Request{
		Threshold: c.config.MultipartUploadThreshold,
		ChunkSize: c.config.UploadChunkSize,
		Metadata:  metadata.Merge(cfg.CustomMetadata, contentType, dispositionOf(cfg)),
		Checksum:  cfg.Checksum,
		Progress:  cfg.ProgressTracker,
	}
	if cfg.ChunkSize > 0 {
		req.ChunkSize = cfg.ChunkSize
	}

	result, err = c.uploader.Upload(ctx, c.bucket, key, data, req)
	finishProgress(cfg.ProgressTracker, err)
	if err != nil {
		return nil, err
	}

	fields["multipart"] = result.Multipart
	fields["parts"] = result.Parts
	return result, nil
}

// UpdateMetadata replaces the custom metadata of key. A content type is required.
func (c *Client) UpdateMetadata(ctx context.Context, key string, opts ...storjtypes.UploadOption) (err error) {
	done := c.instrument("updateMetadata", key, nil)
	defer func() { done(err) }()

	cfg, err := c.uploadConfig(key, opts)
	if err != nil {
		return err
	}
	if cfg.ContentType == "" {
		return errors.NewObjectError("updateMetadata", c.bucket, key, errors.ErrInvalidInput).
			WithMessage("content type is required")
	}

	md := metadata.Merge(cfg.CustomMetadata, cfg.ContentType, dispositionOf(cfg))
	if err := c.backend.UpdateObjectMetadata(ctx, c.bucket, key, md); err != nil {
		return errors.NewObjectError("updateMetadata", c.bucket, key, err)
	}
	return nil
}

// Download returns the whole object stored under key, or the range selected
// with WithRange.
func (c *Client) Download(ctx context.Context, key string, opts ...storjtypes.DownloadOption) (data []byte, err error) {
	fields := logrus.Fields{}
	done := c.instrument("download", key, fields)
	defer func() { done(err) }()

	cfg, err := c.downloadConfig(key, opts)
	if err != nil {
		return nil, err
	}

	data, err = c.reader.Read(ctx, c.bucket, key, cfg.Range, cfg.ProgressTracker)
	finishProgress(cfg.ProgressTracker, err)
	if err != nil {
		return nil, err
	}

	fields["size"] = len(data)
	return data, nil
}

// DownloadChunk returns the bytes of key selected by rng.
func (c *Client) DownloadChunk(ctx context.Context, key string, rng storjtypes.ByteRange) ([]byte, error) {
	return c.Download(ctx, key, WithRange(rng.Offset, rng.Length))
}

// Stream downloads key chunk by chunk and hands every chunk to consume.
// Chunks are only valid during the call. An empty object produces no calls;
// an error returned by consume stops the stream and is returned.
func (c *Client) Stream(
	ctx context.Context,
	key string,
	consume func(chunk []byte) error,
	opts ...storjtypes.DownloadOption,
) (err error) {
	done := c.instrument("stream", key, nil)
	defer func() { done(err) }()

	if consume == nil {
		return errors.NewObjectError("stream", c.bucket, key, errors.ErrInvalidInput).
			WithMessage("consumer cannot be nil")
	}

	cfg, err := c.downloadConfig(key, opts)
	if err != nil {
		return err
	}

	err = c.reader.Stream(ctx, c.bucket, key, cfg.Range, download.Consumer(consume), cfg.ProgressTracker)
	finishProgress(cfg.ProgressTracker, err)
	return err
}

// Compose concatenates the objects in sources, in order, into dest.
// Nothing is written if any source cannot be read.
func (c *Client) Compose(
	ctx context.Context,
	sources []string,
	dest string,
	opts ...storjtypes.UploadOption,
) (result *storjtypes.UploadResult, err error) {
	fields := logrus.Fields{"sources": len(sources)}
	done := c.instrument("compose", dest, fields)
	defer func() { done(err) }()

	for _, key := range sources {
		if err := validation.ValidateObjectKey(key); err != nil {
			return nil, err
		}
	}

	cfg, err := c.uploadConfig(dest, opts)
	if err != nil {
		return nil, err
	}

	req := upload.Request{
		Threshold: c.config.MultipartUploadThreshold,
		ChunkSize: c.config.UploadChunkSize,
		Metadata:  metadata.Merge(cfg.CustomMetadata, cfg.ContentType, dispositionOf(cfg)),
		Checksum:  cfg.Checksum,
		Progress:  cfg.ProgressTracker,
	}
	if cfg.ChunkSize > 0 {
		req.ChunkSize = cfg.ChunkSize
	}

	result, err = c.composer.Compose(ctx, c.bucket, sources, dest, req)
	finishProgress(cfg.ProgressTracker, err)
	if err != nil {
		return nil, err
	}

	fields["size"] = result.Size
	return result, nil
}

// Delete removes key. Deleting a missing object succeeds.
func (c *Client) Delete(ctx context.Context, key string) (err error) {
	done := c.instrument("delete", key, nil)
	defer func() { done(err) }()

	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	return c.deleter.Delete(ctx, c.bucket, key)
}

// DeletePrefixed removes every object whose key starts with prefix.
func (c *Client) DeletePrefixed(ctx context.Context, prefix string) (result *storjtypes.DeleteResult, err error) {
	fields := logrus.Fields{"prefix": prefix}
	done := c.instrument("deletePrefixed", "", fields)
	defer func() { done(err) }()

	result, err = c.deleter.DeletePrefixed(ctx, c.bucket, prefix)
	if result != nil {
		fields["deleted"] = len(result.Deleted)
	}
	return result, err
}

// Exists reports whether key exists.
func (c *Client) Exists(ctx context.Context, key string) (exists bool, err error) {
	fields := logrus.Fields{}
	done := c.instrument("exists", key, fields)
	defer func() { done(err) }()

	if err := validation.ValidateObjectKey(key); err != nil {
		return false, err
	}

	_, err = c.backend.StatObject(ctx, c.bucket, key)
	switch {
	case err == nil:
		exists = true
	case errors.IsObjectNotFound(err):
		err = nil
	default:
		return false, errors.NewObjectError("exists", c.bucket, key, err)
	}

	fields["exists"] = exists
	return exists, nil
}

// Object returns the stored information about key.
func (c *Client) Object(ctx context.Context, key string) (info *storjtypes.ObjectInfo, err error) {
	done := c.instrument("stat", key, nil)
	defer func() { done(err) }()

	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	info, err = c.backend.StatObject(ctx, c.bucket, key)
	if err != nil {
		return nil, errors.NewObjectError("stat", c.bucket, key, err)
	}
	return info, nil
}

// URL returns a download URL for key. Public clients return URLs that do
// not expire; private ones expire after WithExpiresIn (default 5 minutes).
// Backends that cannot sign URLs fail with ErrNotImplemented.
func (c *Client) URL(ctx context.Context, key string, opts ...storjtypes.URLOption) (u string, err error) {
	done := c.instrument("url", key, logrus.Fields{"public": c.config.Public})
	defer func() { done(err) }()

	if err := validation.ValidateObjectKey(key); err != nil {
		return "", err
	}

	signer, ok := c.backend.(backend.URLSigner)
	if !ok {
		return "", errors.NewObjectError("url", c.bucket, key, errors.ErrNotImplemented).
			WithMessage("backend cannot sign URLs")
	}

	cfg := &storjtypes.URLOptionConfig{ExpiresIn: DefaultURLExpiry}
	for _, opt := range opts {
		opt(cfg)
	}

	expiresIn := cfg.ExpiresIn
	if c.config.Public {
		expiresIn = 0
	} else if expiresIn <= 0 {
		expiresIn = DefaultURLExpiry
	}

	u, err = signer.SignURL(ctx, c.bucket, key, expiresIn)
	if err != nil {
		return "", errors.NewObjectError("url", c.bucket, key, err)
	}
	return u, nil
}

// HeadersForDirectUpload returns the headers a client must send when
// uploading key directly, for example to a pre-signed URL.
func (c *Client) HeadersForDirectUpload(
	key, contentType, checksum string,
	opts ...storjtypes.UploadOption,
) map[string]string {
	cfg := &storjtypes.UploadOptionConfig{ContentType: contentType, Checksum: checksum}
	for _, opt := range opts {
		opt(cfg)
	}
	return metadata.DirectUploadHeaders(cfg.ContentType, cfg.Checksum, dispositionOf(cfg), cfg.CustomMetadata)
}

func (c *Client) uploadConfig(key string, opts []storjtypes.UploadOption) (*storjtypes.UploadOptionConfig, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	cfg := &storjtypes.UploadOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.ValidateMetadata(cfg.CustomMetadata); err != nil {
		return nil, errors.NewObjectError("upload", c.bucket, key, err)
	}
	return cfg, nil
}

func (c *Client) downloadConfig(key string, opts []storjtypes.DownloadOption) (*storjtypes.DownloadOptionConfig, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	cfg := &storjtypes.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.ValidateRange(cfg.Range); err != nil {
		return nil, errors.NewObjectError("download", c.bucket, key, err)
	}
	return cfg, nil
}

// Checksum returns the base64-encoded MD5 digest of data, the form WithChecksum expects.
func Checksum(data []byte) string {
	return validation.Checksum(data)
}

// dispositionOf formats the configured disposition. Without both a kind and
// a filename it is empty and the field is omitted.
func dispositionOf(cfg *storjtypes.UploadOptionConfig) string {
	return metadata.ContentDisposition(cfg.Disposition, cfg.Filename)
}

func finishProgress(tracker storjtypes.ProgressTracker, err error) {
	if tracker == nil {
		return
	}
	if err != nil {
		tracker.Error(err)
		return
	}
	tracker.Complete()
}
