// Package backend defines the capability interface the transfer engine needs
// from an object store, so that network, gateway and in-memory stores can be
// swapped without touching the engine.
package backend

import (
	"context"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// UploadHandle identifies an in-progress multipart upload.
type UploadHandle string

// Range is a byte range requested from a download session.
type Range = storjtypes.ByteRange

// ObjectInfo is the object descriptor returned by stat and list.
type ObjectInfo = storjtypes.ObjectInfo

// Backend defines the object operations used by this module.
// Implementations report a missing key with an error wrapping errors.ErrObjectNotFound.
type Backend interface {
	// OpenUpload opens a single-part upload session
	OpenUpload(ctx context.Context, bucket, key string) (UploadSession, error)

	// BeginMultipartUpload starts a multipart upload and returns its handle
	BeginMultipartUpload(ctx context.Context, bucket, key string) (UploadHandle, error)

	// OpenPart opens the session for one part of a multipart upload.
	// Part numbers start at 1.
	OpenPart(ctx context.Context, bucket, key string, handle UploadHandle, partNumber uint32) (PartSession, error)

	// CommitMultipartUpload assembles the committed parts into the final object
	CommitMultipartUpload(
		ctx context.Context,
		bucket, key string,
		handle UploadHandle,
		metadata map[string]string,
	) error

	// OpenDownload opens a download session, optionally bounded by rng
	OpenDownload(ctx context.Context, bucket, key string, rng *Range) (DownloadSession, error)

	// StatObject returns information about an object
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// DeleteObject removes an object
	DeleteObject(ctx context.Context, bucket, key string) error

	// ListObjects lists objects under prefix recursively
	ListObjects(ctx context.Context, bucket, prefix string) ObjectIterator

	// UpdateObjectMetadata replaces an object's custom metadata
	UpdateObjectMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error
}

// UploadSession is a writable single-part upload.
// Write may accept fewer bytes than offered without returning an error.
// Abort after Commit is a no-op.
type UploadSession interface {
	Write(p []byte) (int, error)
	SetCustomMetadata(ctx context.Context, metadata map[string]string) error
	Commit() error
	Abort() error
}

// PartSession is a writable part of a multipart upload.
type PartSession interface {
	Write(p []byte) (int, error)
	Commit() error
	Abort() error
}

// DownloadSession is a readable object stream. Read returns io.EOF at end of stream.
type DownloadSession interface {
	// Length is the number of bytes the session will deliver
	Length() int64
	Read(p []byte) (int, error)
	Close() error
}

// ObjectIterator walks a listing lazily.
type ObjectIterator interface {
	Next() bool
	Item() ObjectInfo
	Err() error
}

// URLSigner is implemented by backends that can issue download URLs.
type URLSigner interface {
	// SignURL returns a URL for key. A zero expiresIn requests a URL that does not expire.
	SignURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error)
}

// SliceIterator is an ObjectIterator over an in-memory listing.
type SliceIterator struct {
	items []ObjectInfo
	pos   int
	err   error
}

// NewSliceIterator returns an iterator over items. A non-nil err is reported
// by Err once the items are exhausted.
func NewSliceIterator(items []ObjectInfo, err error) *SliceIterator {
	return &SliceIterator{items: items, err: err}
}

// Next advances the iterator.
func (it *SliceIterator) Next() bool {
	if it.pos >= len(it.items) {
		return false
	}
	it.pos++
	return true
}

// Item returns the current object.
func (it *SliceIterator) Item() ObjectInfo {
	return it.items[it.pos-1]
}

// Err returns the listing error, if any.
func (it *SliceIterator) Err() error {
	if it.pos < len(it.items) {
		return nil
	}
	return it.err
}
