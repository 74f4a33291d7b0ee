// Package storjtypes provides shared type definitions for the storj module.
package storjtypes

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Disposition is the kind part of a Content-Disposition value.
type Disposition string

// Supported dispositions
const (
	// DispositionAttachment asks the user agent to save the object
	DispositionAttachment Disposition = "attachment"

	// DispositionInline asks the user agent to render the object
	DispositionInline Disposition = "inline"
)

// Reserved custom metadata keys written by the client. They always take
// precedence over caller-supplied keys of the same name.
const (
	MetadataContentType        = "content-type"
	MetadataContentDisposition = "content-disposition"
)

// ByteRange selects Length bytes starting at Offset.
type ByteRange struct {
	// Offset is the first byte of the range
	Offset int64

	// Length is the number of bytes in the range
	Length int64
}

// End returns the exclusive end offset of the range.
func (r ByteRange) End() int64 {
	return r.Offset + r.Length
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Key is the object key
	Key string

	// Size is the object size in bytes
	Size int64

	// Created is when the object was committed
	Created time.Time

	// Custom contains the object's custom metadata, including the reserved keys
	Custom map[string]string
}

// ContentType returns the stored content type, if any.
func (o *ObjectInfo) ContentType() string {
	return o.Custom[MetadataContentType]
}

// ContentDisposition returns the stored content disposition, if any.
func (o *ObjectInfo) ContentDisposition() string {
	return o.Custom[MetadataContentDisposition]
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads and downloads.
type ProgressTracker interface {
	// Update is called after every chunk with the running total
	Update(bytesTransferred, totalBytes int64)

	// Complete is called once when the transfer finishes successfully
	Complete()

	// Error is called once when the transfer fails
	Error(err error)
}

// UploadResult contains information about a committed upload.
type UploadResult struct {
	// Key is the committed object key
	Key string

	// Size is the number of bytes written
	Size int64

	// Multipart reports whether the multipart path was used
	Multipart bool

	// Parts is the number of parts committed (1 for a single-part upload)
	Parts int

	// Duration is how long the upload took
	Duration time.Duration
}

// DeleteResult contains the outcome of a prefix deletion.
type DeleteResult struct {
	// Deleted lists the keys that were removed
	Deleted []string

	// Duration is how long the sweep took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds client-level configuration. It is copied into the client
// at construction and never changes afterwards.
type ClientConfig struct {
	UploadChunkSize          int64
	DownloadChunkSize        int64
	MultipartUploadThreshold int64
	Public                   bool
	Logger                   logrus.FieldLogger
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType     string
	Checksum        string
	Disposition     Disposition
	Filename        string
	CustomMetadata  map[string]string
	ProgressTracker ProgressTracker
	ChunkSize       int64
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	Range           *ByteRange
	ProgressTracker ProgressTracker
}

// URLOptionConfig holds configuration for URL generation via functional options.
type URLOptionConfig struct {
	ExpiresIn time.Duration
}

type (
	// Option is a functional option for configuring the client.
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload and metadata operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
	// URLOption is a functional option for configuring URL generation.
	URLOption func(*URLOptionConfig)
)
