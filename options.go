package storj

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// WithUploadChunkSize sets the largest write issued to an upload session.
// Zero writes each part in one call. Default is 5 MiB.
func WithUploadChunkSize(size int64) storjtypes.Option {
	return func(c *storjtypes.ClientConfig) {
		c.UploadChunkSize = size
	}
}

// WithDownloadChunkSize sets the largest read issued to a download session.
// Zero reads the whole remaining range in one call. Default is 5 MiB.
func WithDownloadChunkSize(size int64) storjtypes.Option {
	return func(c *storjtypes.ClientConfig) {
		c.DownloadChunkSize = size
	}
}

// WithMultipartUploadThreshold sets the payload size above which uploads are
// split into parts of this size. Values below 5 MiB are raised to 5 MiB.
func WithMultipartUploadThreshold(threshold int64) storjtypes.Option {
	return func(c *storjtypes.ClientConfig) {
		c.MultipartUploadThreshold = threshold
	}
}

// WithLogger sets the logger used for operation logs.
// Default is the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) storjtypes.Option {
	return func(c *storjtypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithPublic makes URL return links that do not expire.
func WithPublic(public bool) storjtypes.Option {
	return func(c *storjtypes.ClientConfig) {
		c.Public = public
	}
}

// WithContentType sets the content type stored with the object.
// When unset it is detected from the payload, then from the key extension.
func WithContentType(contentType string) storjtypes.UploadOption {
	return func(c *storjtypes.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithChecksum sets the expected base64-encoded MD5 digest of the payload.
func WithChecksum(checksum string) storjtypes.UploadOption {
	return func(c *storjtypes.UploadOptionConfig) {
		c.Checksum = checksum
	}
}

// WithDisposition sets the content disposition kind. It only takes effect
// together with WithFilename.
func WithDisposition(disposition storjtypes.Disposition) storjtypes.UploadOption {
	return func(c *storjtypes.UploadOptionConfig) {
		c.Disposition = disposition
	}
}

// WithFilename sets the filename advertised in the content disposition. It
// only takes effect together with WithDisposition.
func WithFilename(filename string) storjtypes.UploadOption {
	return func(c *storjtypes.UploadOptionConfig) {
		c.Filename = filename
	}
}

// WithCustomMetadata adds custom metadata. Repeated calls merge; the reserved
// content-type and content-disposition keys are always overwritten.
func WithCustomMetadata(metadata map[string]string) storjtypes.UploadOption {
	return func(c *storjtypes.UploadOptionConfig) {
		if c.CustomMetadata == nil {
			c.CustomMetadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			c.CustomMetadata[k] = v
		}
	}
}

// WithProgress sets a progress tracker for upload operations.
func WithProgress(tracker storjtypes.ProgressTracker) storjtypes.UploadOption {
	return func(c *storjtypes.UploadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithUploadChunkSizeOverride overrides the client upload chunk size for one upload.
func WithUploadChunkSizeOverride(size int64) storjtypes.UploadOption {
	return func(c *storjtypes.UploadOptionConfig) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithDownloadProgress sets a progress tracker for download operations.
func WithDownloadProgress(tracker storjtypes.ProgressTracker) storjtypes.DownloadOption {
	return func(c *storjtypes.DownloadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithRange limits a download to length bytes starting at offset.
func WithRange(offset, length int64) storjtypes.DownloadOption {
	return func(c *storjtypes.DownloadOptionConfig) {
		c.Range = &storjtypes.ByteRange{Offset: offset, Length: length}
	}
}

// WithExpiresIn sets how long a private URL stays valid. Default is 5 minutes.
func WithExpiresIn(expiresIn time.Duration) storjtypes.URLOption {
	return func(c *storjtypes.URLOptionConfig) {
		c.ExpiresIn = expiresIn
	}
}
