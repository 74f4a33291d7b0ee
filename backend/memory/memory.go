// Package memory provides an in-process backend that keeps objects in maps.
// It is safe for concurrent use and serves tests and local tooling.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
)

type object struct {
	data    []byte
	created time.Time
	custom  map[string]string
}

type pendingUpload struct {
	bucket string
	key    string
	parts  map[uint32][]byte
}

// Backend is an in-memory object store.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]map[string]*object
	uploads map[backend.UploadHandle]*pendingUpload
	now     func() time.Time
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		objects: make(map[string]map[string]*object),
		uploads: make(map[backend.UploadHandle]*pendingUpload),
		now:     time.Now,
	}
}

// OpenUpload opens a single-part upload session.
func (b *Backend) OpenUpload(_ context.Context, bucket, key string) (backend.UploadSession, error) {
	return &uploadSession{backend: b, bucket: bucket, key: key}, nil
}

// BeginMultipartUpload starts a multipart upload identified by a random UUID.
func (b *Backend) BeginMultipartUpload(_ context.Context, bucket, key string) (backend.UploadHandle, error) {
	handle := backend.UploadHandle(uuid.NewString())

	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[handle] = &pendingUpload{bucket: bucket, key: key, parts: make(map[uint32][]byte)}
	return handle, nil
}

// OpenPart opens the session for one part of a pending upload.
func (b *Backend) OpenPart(
	_ context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	partNumber uint32,
) (backend.PartSession, error) {
	if partNumber == 0 {
		return nil, errors.NewObjectError("openPart", bucket, key, errors.ErrInvalidInput).
			WithMessage("part numbers start at 1")
	}
	if _, err := b.pending(bucket, key, handle); err != nil {
		return nil, err
	}
	return &partSession{backend: b, bucket: bucket, key: key, handle: handle, number: partNumber}, nil
}

// CommitMultipartUpload joins the committed parts in ascending order.
func (b *Backend) CommitMultipartUpload(
	_ context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	metadata map[string]string,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	upload, ok := b.uploads[handle]
	if !ok || upload.bucket != bucket || upload.key != key {
		return unknownUpload(bucket, key, handle)
	}

	var data bytes.Buffer
	for _, n := range slices.Sorted(maps.Keys(upload.parts)) {
		data.Write(upload.parts[n])
	}

	delete(b.uploads, handle)
	b.store(bucket, key, data.Bytes(), metadata)
	return nil
}

// OpenDownload opens a download over a snapshot of the object.
func (b *Backend) OpenDownload(
	_ context.Context,
	bucket, key string,
	rng *backend.Range,
) (backend.DownloadSession, error) {
	_, data, err := b.lookup("download", bucket, key)
	if err != nil {
		return nil, err
	}

	if rng != nil {
		size := int64(len(data))
		if rng.Offset < 0 || rng.Length < 0 || rng.End() > size {
			return nil, errors.NewObjectError("download", bucket, key, errors.ErrInvalidRange).
				WithMessage(fmt.Sprintf("range [%d, %d) outside object of %d bytes", rng.Offset, rng.End(), size))
		}
		data = data[rng.Offset:rng.End()]
	}

	return &downloadSession{reader: bytes.NewReader(data), length: int64(len(data))}, nil
}

// StatObject returns information about an object.
func (b *Backend) StatObject(_ context.Context, bucket, key string) (*backend.ObjectInfo, error) {
	info, _, err := b.lookup("stat", bucket, key)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteObject removes an object.
func (b *Backend) DeleteObject(_ context.Context, bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[bucket][key]; !ok {
		return errors.NewObjectError("delete", bucket, key, errors.ErrObjectNotFound)
	}
	delete(b.objects[bucket], key)
	return nil
}

// ListObjects lists the objects under prefix in key order.
func (b *Backend) ListObjects(_ context.Context, bucket, prefix string) backend.ObjectIterator {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var items []backend.ObjectInfo
	for _, key := range slices.Sorted(maps.Keys(b.objects[bucket])) {
		if strings.HasPrefix(key, prefix) {
			items = append(items, describe(key, b.objects[bucket][key]))
		}
	}
	return backend.NewSliceIterator(items, nil)
}

// UpdateObjectMetadata replaces an object's custom metadata.
func (b *Backend) UpdateObjectMetadata(_ context.Context, bucket, key string, metadata map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	obj, ok := b.objects[bucket][key]
	if !ok {
		return errors.NewObjectError("updateMetadata", bucket, key, errors.ErrObjectNotFound)
	}
	obj.custom = maps.Clone(metadata)
	return nil
}

// SignURL returns a memory:// URL for an existing object.
func (b *Backend) SignURL(_ context.Context, bucket, key string, expiresIn time.Duration) (string, error) {
	if _, _, err := b.lookup("signURL", bucket, key); err != nil {
		return "", err
	}

	u := url.URL{Scheme: "memory", Host: bucket, Path: "/" + key}
	if expiresIn > 0 {
		u.RawQuery = url.Values{"expires": {b.now().Add(expiresIn).UTC().Format(time.RFC3339)}}.Encode()
	}
	return u.String(), nil
}

// Pending returns the number of multipart uploads that were begun but not committed.
func (b *Backend) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.uploads)
}

func (b *Backend) store(bucket, key string, data []byte, metadata map[string]string) {
	if b.objects[bucket] == nil {
		b.objects[bucket] = make(map[string]*object)
	}
	b.objects[bucket][key] = &object{
		data:    data,
		created: b.now(),
		custom:  maps.Clone(metadata),
	}
}

// lookup snapshots an object under the read lock. Stored data is never
// modified in place, so the returned slice stays valid after unlocking.
func (b *Backend) lookup(op, bucket, key string) (backend.ObjectInfo, []byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[bucket][key]
	if !ok {
		return backend.ObjectInfo{}, nil, errors.NewObjectError(op, bucket, key, errors.ErrObjectNotFound)
	}
	return describe(key, obj), obj.data, nil
}

func (b *Backend) pending(bucket, key string, handle backend.UploadHandle) (*pendingUpload, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	upload, ok := b.uploads[handle]
	if !ok || upload.bucket != bucket || upload.key != key {
		return nil, unknownUpload(bucket, key, handle)
	}
	return upload, nil
}

func unknownUpload(bucket, key string, handle backend.UploadHandle) error {
	return errors.NewObjectError("multipart", bucket, key, errors.ErrInvalidInput).
		WithMessage(fmt.Sprintf("unknown upload %s", handle))
}

func describe(key string, obj *object) backend.ObjectInfo {
	return backend.ObjectInfo{
		Key:     key,
		Size:    int64(len(obj.data)),
		Created: obj.created,
		Custom:  maps.Clone(obj.custom),
	}
}

var errSessionClosed = fmt.Errorf("memory: session already finished")

type uploadSession struct {
	backend  *Backend
	bucket   string
	key      string
	buf      bytes.Buffer
	metadata map[string]string
	done     bool
}

func (s *uploadSession) Write(p []byte) (int, error) {
	if s.done {
		return 0, errSessionClosed
	}
	return s.buf.Write(p)
}

func (s *uploadSession) SetCustomMetadata(_ context.Context, metadata map[string]string) error {
	if s.done {
		return errSessionClosed
	}
	s.metadata = maps.Clone(metadata)
	return nil
}

func (s *uploadSession) Commit() error {
	if s.done {
		return errSessionClosed
	}
	s.done = true

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.store(s.bucket, s.key, bytes.Clone(s.buf.Bytes()), s.metadata)
	return nil
}

func (s *uploadSession) Abort() error {
	s.done = true
	return nil
}

type partSession struct {
	backend *Backend
	bucket  string
	key     string
	handle  backend.UploadHandle
	number  uint32
	buf     bytes.Buffer
	done    bool
}

func (s *partSession) Write(p []byte) (int, error) {
	if s.done {
		return 0, errSessionClosed
	}
	return s.buf.Write(p)
}

func (s *partSession) Commit() error {
	if s.done {
		return errSessionClosed
	}
	s.done = true

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	upload, ok := s.backend.uploads[s.handle]
	if !ok {
		return unknownUpload(s.bucket, s.key, s.handle)
	}
	upload.parts[s.number] = bytes.Clone(s.buf.Bytes())
	return nil
}

func (s *partSession) Abort() error {
	s.done = true
	return nil
}

type downloadSession struct {
	reader *bytes.Reader
	length int64
}

func (s *downloadSession) Length() int64 {
	return s.length
}

func (s *downloadSession) Read(p []byte) (int, error) {
	n, err := s.reader.Read(p)
	if err == io.EOF && n > 0 {
		return n, nil
	}
	return n, err //nolint:wrapcheck // io.Reader contract
}

func (s *downloadSession) Close() error {
	return nil
}

var (
	_ backend.Backend   = (*Backend)(nil)
	_ backend.URLSigner = (*Backend)(nil)
)
