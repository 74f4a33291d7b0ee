// Package network implements backend.Backend on the native Storj network
// through storj.io/uplink. Upload, part and download sessions map one to one
// onto uplink sessions; download URLs are linkshare URLs registered with the
// Storj auth service.
package network

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"storj.io/uplink"
	"storj.io/uplink/edge"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
)

const (
	// DefaultAuthService is the auth service that registers shared access grants.
	DefaultAuthService = "auth.storjshare.io:7777"

	// DefaultLinkshareURL is the base URL of linkshare download links.
	DefaultLinkshareURL = "https://link.storjshare.io"
)

// Config holds the settings needed to reach a Storj project.
type Config struct {
	// AccessGrant is the serialized access grant (required)
	AccessGrant string

	// AuthService is the auth service address used to register shared access
	AuthService string

	// LinkshareURL is the base URL used to build download links
	LinkshareURL string

	// EnsureBuckets are created on open when they do not exist
	EnsureBuckets []string
}

// Backend is a backend.Backend on an uplink project.
type Backend struct {
	access   *uplink.Access
	project  *uplink.Project
	auth     edge.Config
	linkBase string
}

// New parses the access grant, opens the project and ensures the configured buckets.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.AccessGrant == "" {
		return nil, errors.NewError("network initialization", errors.ErrInvalidInput).
			WithMessage("access grant is required")
	}

	access, err := uplink.ParseAccess(cfg.AccessGrant)
	if err != nil {
		return nil, errors.NewError("parseAccess", errors.ErrInvalidInput).
			WithMessage(err.Error())
	}

	project, err := uplink.OpenProject(ctx, access)
	if err != nil {
		return nil, errors.NewError("openProject", err)
	}

	for _, bucket := range cfg.EnsureBuckets {
		if _, err := project.EnsureBucket(ctx, bucket); err != nil {
			_ = project.Close()
			return nil, errors.NewError("ensureBucket", err).WithBucket(bucket)
		}
	}

	authService := cfg.AuthService
	if authService == "" {
		authService = DefaultAuthService
	}
	linkBase := cfg.LinkshareURL
	if linkBase == "" {
		linkBase = DefaultLinkshareURL
	}

	return &Backend{
		access:   access,
		project:  project,
		auth:     edge.Config{AuthServiceAddress: authService},
		linkBase: linkBase,
	}, nil
}

// Close closes the project.
func (b *Backend) Close() error {
	return b.project.Close()
}

// OpenUpload opens an uplink upload.
func (b *Backend) OpenUpload(ctx context.Context, bucket, key string) (backend.UploadSession, error) {
	upload, err := b.project.UploadObject(ctx, bucket, key, nil)
	if err != nil {
		return nil, translate("openUpload", bucket, key, err)
	}
	return &uploadSession{upload: upload, bucket: bucket, key: key}, nil
}

// BeginMultipartUpload begins an uplink multipart upload.
func (b *Backend) BeginMultipartUpload(ctx context.Context, bucket, key string) (backend.UploadHandle, error) {
	info, err := b.project.BeginUpload(ctx, bucket, key, nil)
	if err != nil {
		return "", translate("beginUpload", bucket, key, err)
	}
	return backend.UploadHandle(info.UploadID), nil
}

// OpenPart opens an uplink part upload.
func (b *Backend) OpenPart(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	partNumber uint32,
) (backend.PartSession, error) {
	part, err := b.project.UploadPart(ctx, bucket, key, string(handle), partNumber)
	if err != nil {
		return nil, translate("uploadPart", bucket, key, err)
	}
	return &partSession{part: part, bucket: bucket, key: key}, nil
}

// CommitMultipartUpload commits the upload with metadata attached.
func (b *Backend) CommitMultipartUpload(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	metadata map[string]string,
) error {
	_, err := b.project.CommitUpload(ctx, bucket, key, string(handle), &uplink.CommitUploadOptions{
		CustomMetadata: uplink.CustomMetadata(metadata),
	})
	return translate("commitUpload", bucket, key, err)
}

// OpenDownload opens an uplink download over rng, or the whole object.
func (b *Backend) OpenDownload(
	ctx context.Context,
	bucket, key string,
	rng *backend.Range,
) (backend.DownloadSession, error) {
	if rng != nil && rng.Length == 0 {
		if _, err := b.project.StatObject(ctx, bucket, key); err != nil {
			return nil, translate("download", bucket, key, err)
		}
		return emptyDownload{}, nil
	}

	download, err := b.project.DownloadObject(ctx, bucket, key, downloadOptions(rng))
	if err != nil {
		return nil, translate("download", bucket, key, err)
	}

	return &downloadSession{
		download: download,
		length:   sessionLength(rng, download.Info().System.ContentLength),
		bucket:   bucket,
		key:      key,
	}, nil
}

// StatObject stats an object.
func (b *Backend) StatObject(ctx context.Context, bucket, key string) (*backend.ObjectInfo, error) {
	obj, err := b.project.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, translate("stat", bucket, key, err)
	}
	info := describe(obj)
	return &info, nil
}

// DeleteObject deletes an object. A delete that removed nothing reports not found.
func (b *Backend) DeleteObject(ctx context.Context, bucket, key string) error {
	obj, err := b.project.DeleteObject(ctx, bucket, key)
	if err != nil {
		return translate("delete", bucket, key, err)
	}
	if obj == nil {
		return errors.NewObjectError("delete", bucket, key, errors.ErrObjectNotFound)
	}
	return nil
}

// ListObjects lists objects under prefix recursively with system and custom metadata.
func (b *Backend) ListObjects(ctx context.Context, bucket, prefix string) backend.ObjectIterator {
	return &objectIterator{
		it: b.project.ListObjects(ctx, bucket, &uplink.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
			System:    true,
			Custom:    true,
		}),
		bucket: bucket,
		prefix: prefix,
	}
}

// UpdateObjectMetadata replaces the custom metadata of an object.
func (b *Backend) UpdateObjectMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error {
	err := b.project.UpdateObjectMetadata(ctx, bucket, key, uplink.CustomMetadata(metadata), nil)
	return translate("updateMetadata", bucket, key, err)
}

// SignURL shares download access to key and returns its linkshare URL.
// Access shared with a zero expiresIn never expires.
func (b *Backend) SignURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error) {
	shared, err := b.access.Share(
		sharePermission(time.Now(), expiresIn),
		uplink.SharePrefix{Bucket: bucket, Prefix: key},
	)
	if err != nil {
		return "", errors.NewObjectError("share", bucket, key, err)
	}

	creds, err := b.auth.RegisterAccess(ctx, shared, &edge.RegisterAccessOptions{Public: true})
	if err != nil {
		return "", errors.NewObjectError("registerAccess", bucket, key, err)
	}

	u, err := edge.JoinShareURL(b.linkBase, creds.AccessKeyID, bucket, key, &edge.ShareURLOptions{Raw: true})
	if err != nil {
		return "", errors.NewObjectError("joinShareURL", bucket, key, err)
	}
	return u, nil
}

// sharePermission grants download access, expiring expiresIn after now when positive.
func sharePermission(now time.Time, expiresIn time.Duration) uplink.Permission {
	perm := uplink.Permission{AllowDownload: true}
	if expiresIn > 0 {
		perm.NotAfter = now.Add(expiresIn)
	}
	return perm
}

// downloadOptions converts rng to uplink options. Nil downloads the whole object.
func downloadOptions(rng *backend.Range) *uplink.DownloadOptions {
	if rng == nil {
		return nil
	}
	return &uplink.DownloadOptions{Offset: rng.Offset, Length: rng.Length}
}

// sessionLength is the number of bytes a download over rng delivers from an
// object of size bytes. Uplink reports the full object size on ranged downloads.
func sessionLength(rng *backend.Range, size int64) int64 {
	if rng == nil {
		return size
	}
	if rng.Length < 0 {
		return max(size-rng.Offset, 0)
	}
	return min(rng.Length, max(size-rng.Offset, 0))
}

func describe(obj *uplink.Object) backend.ObjectInfo {
	info := backend.ObjectInfo{
		Key:     obj.Key,
		Size:    obj.System.ContentLength,
		Created: obj.System.Created,
	}
	if len(obj.Custom) > 0 {
		info.Custom = make(map[string]string, len(obj.Custom))
		for k, v := range obj.Custom {
			info.Custom[k] = v
		}
	}
	return info
}

// translate wraps err with op context, mapping uplink misses to ErrObjectNotFound.
func translate(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, uplink.ErrObjectNotFound) {
		return errors.NewObjectError(op, bucket, key, errors.ErrObjectNotFound).
			WithMessage(err.Error())
	}
	return errors.NewObjectError(op, bucket, key, err)
}

type uploadSession struct {
	upload *uplink.Upload
	bucket string
	key    string
}

func (s *uploadSession) Write(p []byte) (int, error) {
	n, err := s.upload.Write(p)
	return n, translate("write", s.bucket, s.key, err)
}

func (s *uploadSession) SetCustomMetadata(ctx context.Context, metadata map[string]string) error {
	return translate("setMetadata", s.bucket, s.key, s.upload.SetCustomMetadata(ctx, uplink.CustomMetadata(metadata)))
}

func (s *uploadSession) Commit() error {
	return translate("commit", s.bucket, s.key, s.upload.Commit())
}

// Abort reports nothing for a committed upload.
func (s *uploadSession) Abort() error {
	if err := s.upload.Abort(); err != nil && !stderrors.Is(err, uplink.ErrUploadDone) {
		return translate("abort", s.bucket, s.key, err)
	}
	return nil
}

type partSession struct {
	part   *uplink.PartUpload
	bucket string
	key    string
}

func (s *partSession) Write(p []byte) (int, error) {
	n, err := s.part.Write(p)
	return n, translate("writePart", s.bucket, s.key, err)
}

func (s *partSession) Commit() error {
	return translate("commitPart", s.bucket, s.key, s.part.Commit())
}

func (s *partSession) Abort() error {
	if err := s.part.Abort(); err != nil && !stderrors.Is(err, uplink.ErrUploadDone) {
		return translate("abortPart", s.bucket, s.key, err)
	}
	return nil
}

type downloadSession struct {
	download *uplink.Download
	length   int64
	bucket   string
	key      string
}

func (s *downloadSession) Length() int64 {
	return s.length
}

// Read passes io.EOF through unwrapped.
func (s *downloadSession) Read(p []byte) (int, error) {
	n, err := s.download.Read(p)
	if err != nil && !stderrors.Is(err, io.EOF) {
		return n, translate("read", s.bucket, s.key, err)
	}
	return n, err
}

func (s *downloadSession) Close() error {
	return translate("closeDownload", s.bucket, s.key, s.download.Close())
}

// emptyDownload serves a zero-length range without opening a download.
type emptyDownload struct{}

func (emptyDownload) Length() int64 { return 0 }

func (emptyDownload) Read([]byte) (int, error) { return 0, io.EOF }

func (emptyDownload) Close() error { return nil }

type objectIterator struct {
	it     *uplink.ObjectIterator
	bucket string
	prefix string
}

func (i *objectIterator) Next() bool {
	for i.it.Next() {
		if !i.it.Item().IsPrefix {
			return true
		}
	}
	return false
}

func (i *objectIterator) Item() backend.ObjectInfo {
	return describe(i.it.Item())
}

func (i *objectIterator) Err() error {
	if err := i.it.Err(); err != nil {
		return errors.NewObjectError("list", i.bucket, i.prefix, err)
	}
	return nil
}
