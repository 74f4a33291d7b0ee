// Package testutil provides test utilities and mocks for the storj module.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
)

// MockBackend is a mock implementation of backend.Backend for testing.
// It allows customization of each operation through function fields.
// Unset fields fall back to harmless defaults.
type MockBackend struct {
	OpenUploadFunc            func(context.Context, string, string) (backend.UploadSession, error)
	BeginMultipartUploadFunc  func(context.Context, string, string) (backend.UploadHandle, error)
	OpenPartFunc              func(context.Context, string, string, backend.UploadHandle, uint32) (backend.PartSession, error)
	CommitMultipartUploadFunc func(context.Context, string, string, backend.UploadHandle, map[string]string) error
	OpenDownloadFunc          func(context.Context, string, string, *backend.Range) (backend.DownloadSession, error)
	StatObjectFunc            func(context.Context, string, string) (*backend.ObjectInfo, error)
	DeleteObjectFunc          func(context.Context, string, string) error
	ListObjectsFunc           func(context.Context, string, string) backend.ObjectIterator
	UpdateObjectMetadataFunc  func(context.Context, string, string, map[string]string) error

	// Calls counts invocations per method name
	Calls map[string]int
}

func (m *MockBackend) record(name string) {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[name]++
}

// OpenUpload mocks backend.Backend.OpenUpload.
func (m *MockBackend) OpenUpload(ctx context.Context, bucket, key string) (backend.UploadSession, error) {
	m.record("OpenUpload")
	if m.OpenUploadFunc != nil {
		return m.OpenUploadFunc(ctx, bucket, key)
	}
	return &StubUploadSession{}, nil
}

// BeginMultipartUpload mocks backend.Backend.BeginMultipartUpload.
func (m *MockBackend) BeginMultipartUpload(ctx context.Context, bucket, key string) (backend.UploadHandle, error) {
	m.record("BeginMultipartUpload")
	if m.BeginMultipartUploadFunc != nil {
		return m.BeginMultipartUploadFunc(ctx, bucket, key)
	}
	return "upload-1", nil
}

// OpenPart mocks backend.Backend.OpenPart.
func (m *MockBackend) OpenPart(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	partNumber uint32,
) (backend.PartSession, error) {
	m.record("OpenPart")
	if m.OpenPartFunc != nil {
		return m.OpenPartFunc(ctx, bucket, key, handle, partNumber)
	}
	return &StubUploadSession{}, nil
}

// CommitMultipartUpload mocks backend.Backend.CommitMultipartUpload.
func (m *MockBackend) CommitMultipartUpload(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	metadata map[string]string,
) error {
	m.record("CommitMultipartUpload")
	if m.CommitMultipartUploadFunc != nil {
		return m.CommitMultipartUploadFunc(ctx, bucket, key, handle, metadata)
	}
	return nil
}

// OpenDownload mocks backend.Backend.OpenDownload.
func (m *MockBackend) OpenDownload(
	ctx context.Context,
	bucket, key string,
	rng *backend.Range,
) (backend.DownloadSession, error) {
	m.record("OpenDownload")
	if m.OpenDownloadFunc != nil {
		return m.OpenDownloadFunc(ctx, bucket, key, rng)
	}
	return nil, errors.NewObjectError("download", bucket, key, errors.ErrObjectNotFound)
}

// StatObject mocks backend.Backend.StatObject.
func (m *MockBackend) StatObject(ctx context.Context, bucket, key string) (*backend.ObjectInfo, error) {
	m.record("StatObject")
	if m.StatObjectFunc != nil {
		return m.StatObjectFunc(ctx, bucket, key)
	}
	return nil, errors.NewObjectError("stat", bucket, key, errors.ErrObjectNotFound)
}

// DeleteObject mocks backend.Backend.DeleteObject.
func (m *MockBackend) DeleteObject(ctx context.Context, bucket, key string) error {
	m.record("DeleteObject")
	if m.DeleteObjectFunc != nil {
		return m.DeleteObjectFunc(ctx, bucket, key)
	}
	return nil
}

// ListObjects mocks backend.Backend.ListObjects.
func (m *MockBackend) ListObjects(ctx context.Context, bucket, prefix string) backend.ObjectIterator {
	m.record("ListObjects")
	if m.ListObjectsFunc != nil {
		return m.ListObjectsFunc(ctx, bucket, prefix)
	}
	return backend.NewSliceIterator(nil, nil)
}

// UpdateObjectMetadata mocks backend.Backend.UpdateObjectMetadata.
func (m *MockBackend) UpdateObjectMetadata(
	ctx context.Context,
	bucket, key string,
	metadata map[string]string,
) error {
	m.record("UpdateObjectMetadata")
	if m.UpdateObjectMetadataFunc != nil {
		return m.UpdateObjectMetadataFunc(ctx, bucket, key, metadata)
	}
	return nil
}

// Writes returns the number of write sessions opened so far.
func (m *MockBackend) Writes() int {
	return m.Calls["OpenUpload"] + m.Calls["BeginMultipartUpload"] + m.Calls["OpenPart"]
}

var _ backend.Backend = (*MockBackend)(nil)
