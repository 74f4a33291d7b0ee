// Package gateway implements backend.Backend against the Storj S3-compatible
// gateway, or any other S3 endpoint, with the AWS SDK.
//
// S3 has no streaming upload session, so upload and part sessions buffer what
// is written and send it when committed. Multipart uploads keep a ledger of
// committed part ETags per upload handle until the upload is completed.
package gateway

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

const (
	// DefaultEndpoint is the hosted Storj S3 gateway.
	DefaultEndpoint = "https://gateway.storjshare.io"

	// DefaultRegion is the region the gateway signs requests for.
	DefaultRegion = "us-east-1"

	// MaxPresignExpiry is the longest validity S3 accepts for a pre-signed URL.
	// Requests for URLs that do not expire get this instead.
	MaxPresignExpiry = 7 * 24 * time.Hour
)

// Config holds the gateway connection settings.
type Config struct {
	// Endpoint is the gateway URL
	Endpoint string

	// Region is the signing region
	Region string

	// AccessKeyID and SecretAccessKey are gateway credentials.
	// When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// VirtualHostedStyle addresses buckets as subdomains instead of path segments
	VirtualHostedStyle bool
}

// Backend is a backend.Backend on an S3 API.
type Backend struct {
	api     S3API
	presign Presigner

	mu      sync.Mutex
	uploads map[backend.UploadHandle]*ledger
}

// ledger records the parts committed to one multipart upload.
type ledger struct {
	bucket string
	key    string
	parts  []types.CompletedPart
}

// New creates a gateway backend from cfg.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.NewError("gateway initialization", errors.ErrInvalidInput).
				WithMessage("access key id and secret access key must be set together")
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewError("gateway initialization", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = !cfg.VirtualHostedStyle
	})

	return NewWithClient(client, s3.NewPresignClient(client)), nil
}

// NewWithClient creates a gateway backend on an existing S3 client.
// A nil presign leaves the backend without URL signing support.
func NewWithClient(api S3API, presign Presigner) *Backend {
	return &Backend{
		api:     api,
		presign: presign,
		uploads: make(map[backend.UploadHandle]*ledger),
	}
}

// OpenUpload opens a buffered upload that is sent with PutObject on commit.
// The session sends under ctx.
func (b *Backend) OpenUpload(ctx context.Context, bucket, key string) (backend.UploadSession, error) {
	return &uploadSession{ctx: ctx, owner: b, bucket: bucket, key: key}, nil
}

// BeginMultipartUpload creates a multipart upload and opens its ledger.
func (b *Backend) BeginMultipartUpload(ctx context.Context, bucket, key string) (backend.UploadHandle, error) {
	out, err := b.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", translate("createMultipartUpload", bucket, key, err)
	}

	handle := backend.UploadHandle(aws.ToString(out.UploadId))
	b.mu.Lock()
	b.uploads[handle] = &ledger{bucket: bucket, key: key}
	b.mu.Unlock()

	return handle, nil
}

// OpenPart opens a buffered part that is sent with UploadPart on commit.
func (b *Backend) OpenPart(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	partNumber uint32,
) (backend.PartSession, error) {
	if _, err := b.lookupUpload(bucket, key, handle); err != nil {
		return nil, err
	}
	if partNumber == 0 {
		return nil, errors.NewObjectError("openPart", bucket, key, errors.ErrInvalidInput).
			WithMessage("part numbers start at 1")
	}
	return &partSession{
		ctx:    ctx,
		owner:  b,
		bucket: bucket,
		key:    key,
		handle: handle,
		number: int32(partNumber),
	}, nil
}

// CommitMultipartUpload completes the upload from its ledger, then applies metadata.
func (b *Backend) CommitMultipartUpload(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	metadata map[string]string,
) error {
	l, err := b.lookupUpload(bucket, key, handle)
	if err != nil {
		return err
	}

	b.mu.Lock()
	parts := slices.Clone(l.parts)
	b.mu.Unlock()
	slices.SortFunc(parts, func(a, c types.CompletedPart) int {
		return int(aws.ToInt32(a.PartNumber) - aws.ToInt32(c.PartNumber))
	})

	_, err = b.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(string(handle)),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return translate("completeMultipartUpload", bucket, key, err)
	}

	b.mu.Lock()
	delete(b.uploads, handle)
	b.mu.Unlock()

	if len(metadata) == 0 {
		return nil
	}
	return b.UpdateObjectMetadata(ctx, bucket, key, metadata)
}

// OpenDownload issues a GetObject, with a Range header when rng is set.
func (b *Backend) OpenDownload(
	ctx context.Context,
	bucket, key string,
	rng *backend.Range,
) (backend.DownloadSession, error) {
	// S3 has no empty byte range, so existence is checked with a HeadObject.
	if rng != nil && rng.Length == 0 {
		if _, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			return nil, translate("download", bucket, key, err)
		}
		return &downloadSession{body: io.NopCloser(bytes.NewReader(nil))}, nil
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if header := rangeHeader(rng); header != "" {
		input.Range = aws.String(header)
	}

	out, err := b.api.GetObject(ctx, input)
	if err != nil {
		return nil, translate("download", bucket, key, err)
	}

	return &downloadSession{body: out.Body, length: aws.ToInt64(out.ContentLength)}, nil
}

// StatObject issues a HeadObject.
func (b *Backend) StatObject(ctx context.Context, bucket, key string) (*backend.ObjectInfo, error) {
	out, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("stat", bucket, key, err)
	}

	return &backend.ObjectInfo{
		Key:     key,
		Size:    aws.ToInt64(out.ContentLength),
		Created: aws.ToTime(out.LastModified),
		Custom:  joinMetadata(out.Metadata, aws.ToString(out.ContentType), aws.ToString(out.ContentDisposition)),
	}, nil
}

// DeleteObject issues a DeleteObject. S3 does not report missing keys on delete.
func (b *Backend) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return translate("delete", bucket, key, err)
}

// ListObjects pages through ListObjectsV2 lazily.
func (b *Backend) ListObjects(ctx context.Context, bucket, prefix string) backend.ObjectIterator {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	return &objectIterator{
		ctx:       ctx,
		paginator: s3.NewListObjectsV2Paginator(b.api, input),
		bucket:    bucket,
		prefix:    prefix,
	}
}

// UpdateObjectMetadata replaces the metadata of an object with a self copy.
func (b *Backend) UpdateObjectMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error {
	custom, contentType, disposition := splitMetadata(metadata)

	input := &s3.CopyObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(copySource(bucket, key)),
		MetadataDirective: types.MetadataDirectiveReplace,
		Metadata:          custom,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if disposition != "" {
		input.ContentDisposition = aws.String(disposition)
	}

	if _, err := b.api.CopyObject(ctx, input); err != nil {
		return translate("updateMetadata", bucket, key, err)
	}
	return nil
}

// SignURL returns a pre-signed GET URL. A zero expiresIn is capped at MaxPresignExpiry.
func (b *Backend) SignURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error) {
	if b.presign == nil {
		return "", errors.NewObjectError("signURL", bucket, key, errors.ErrNotImplemented)
	}
	if expiresIn <= 0 || expiresIn > MaxPresignExpiry {
		expiresIn = MaxPresignExpiry
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", errors.NewObjectError("signURL", bucket, key, err)
	}
	return req.URL, nil
}

// Pending returns the number of multipart uploads that were begun but not completed.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}

func (b *Backend) lookupUpload(bucket, key string, handle backend.UploadHandle) (*ledger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.uploads[handle]
	if !ok || l.bucket != bucket || l.key != key {
		return nil, errors.NewObjectError("multipartUpload", bucket, key, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown upload %s", handle))
	}
	return l, nil
}

func (b *Backend) recordPart(handle backend.UploadHandle, part types.CompletedPart) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.uploads[handle]
	if !ok {
		return
	}
	l.parts = slices.DeleteFunc(l.parts, func(p types.CompletedPart) bool {
		return aws.ToInt32(p.PartNumber) == aws.ToInt32(part.PartNumber)
	})
	l.parts = append(l.parts, part)
}

// rangeHeader formats rng as an HTTP Range header. Nil or empty ranges yield "".
func rangeHeader(rng *backend.Range) string {
	if rng == nil || rng.Length <= 0 {
		return ""
	}
	return fmt.Sprintf("bytes=%d-%d", rng.Offset, rng.End()-1)
}

func copySource(bucket, key string) string {
	return bucket + "/" + url.PathEscape(key)
}

// splitMetadata moves the reserved keys out of metadata into their S3 headers.
func splitMetadata(metadata map[string]string) (custom map[string]string, contentType, disposition string) {
	custom = make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch k {
		case storjtypes.MetadataContentType:
			contentType = v
		case storjtypes.MetadataContentDisposition:
			disposition = v
		default:
			custom[k] = v
		}
	}
	return custom, contentType, disposition
}

// joinMetadata is the inverse of splitMetadata.
func joinMetadata(custom map[string]string, contentType, disposition string) map[string]string {
	md := make(map[string]string, len(custom)+2)
	for k, v := range custom {
		md[k] = v
	}
	if contentType != "" {
		md[storjtypes.MetadataContentType] = contentType
	}
	if disposition != "" {
		md[storjtypes.MetadataContentDisposition] = disposition
	}
	return md
}

// translate wraps err with op context and maps S3 error codes onto sentinels.
func translate(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return errors.NewObjectError(op, bucket, key, errors.ErrObjectNotFound).
				WithMessage(apiErr.ErrorMessage())
		case "InvalidRange":
			return errors.NewObjectError(op, bucket, key, errors.ErrInvalidRange).
				WithMessage(apiErr.ErrorMessage())
		}
	}
	return errors.NewObjectError(op, bucket, key, err)
}

type uploadSession struct {
	ctx      context.Context
	owner    *Backend
	bucket   string
	key      string
	buf      bytes.Buffer
	metadata map[string]string
	done     bool
}

func (s *uploadSession) Write(p []byte) (int, error) {
	if s.done {
		return 0, errors.NewObjectError("write", s.bucket, s.key, io.ErrClosedPipe)
	}
	return s.buf.Write(p)
}

func (s *uploadSession) SetCustomMetadata(_ context.Context, metadata map[string]string) error {
	s.metadata = metadata
	return nil
}

func (s *uploadSession) Commit() error {
	if s.done {
		return errors.NewObjectError("commit", s.bucket, s.key, io.ErrClosedPipe)
	}
	s.done = true

	custom, contentType, disposition := splitMetadata(s.metadata)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(s.buf.Bytes()),
		ContentLength: aws.Int64(int64(s.buf.Len())),
		Metadata:      custom,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if disposition != "" {
		input.ContentDisposition = aws.String(disposition)
	}

	_, err := s.owner.api.PutObject(s.ctx, input)
	return translate("putObject", s.bucket, s.key, err)
}

func (s *uploadSession) Abort() error {
	s.done = true
	s.buf.Reset()
	return nil
}

type partSession struct {
	ctx    context.Context
	owner  *Backend
	bucket string
	key    string
	handle backend.UploadHandle
	number int32
	buf    bytes.Buffer
	done   bool
}

func (s *partSession) Write(p []byte) (int, error) {
	if s.done {
		return 0, errors.NewObjectError("writePart", s.bucket, s.key, io.ErrClosedPipe)
	}
	return s.buf.Write(p)
}

func (s *partSession) Commit() error {
	if s.done {
		return errors.NewObjectError("commitPart", s.bucket, s.key, io.ErrClosedPipe)
	}
	s.done = true

	out, err := s.owner.api.UploadPart(s.ctx, &s3.UploadPartInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		UploadId:      aws.String(string(s.handle)),
		PartNumber:    aws.Int32(s.number),
		Body:          bytes.NewReader(s.buf.Bytes()),
		ContentLength: aws.Int64(int64(s.buf.Len())),
	})
	if err != nil {
		return translate("uploadPart", s.bucket, s.key, err)
	}

	s.owner.recordPart(s.handle, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(s.number),
	})
	return nil
}

func (s *partSession) Abort() error {
	s.done = true
	s.buf.Reset()
	return nil
}

type downloadSession struct {
	body   io.ReadCloser
	length int64
}

func (s *downloadSession) Length() int64 {
	return s.length
}

func (s *downloadSession) Read(p []byte) (int, error) {
	return s.body.Read(p)
}

func (s *downloadSession) Close() error {
	return s.body.Close()
}

type objectIterator struct {
	ctx       context.Context
	paginator *s3.ListObjectsV2Paginator
	bucket    string
	prefix    string

	page []types.Object
	cur  types.Object
	err  error
}

func (i *objectIterator) Next() bool {
	for len(i.page) == 0 {
		if i.err != nil || !i.paginator.HasMorePages() {
			return false
		}
		out, err := i.paginator.NextPage(i.ctx)
		if err != nil {
			i.err = errors.NewObjectError("list", i.bucket, i.prefix, err)
			return false
		}
		i.page = out.Contents
	}

	i.cur, i.page = i.page[0], i.page[1:]
	return true
}

func (i *objectIterator) Item() backend.ObjectInfo {
	return backend.ObjectInfo{
		Key:     aws.ToString(i.cur.Key),
		Size:    aws.ToInt64(i.cur.Size),
		Created: aws.ToTime(i.cur.LastModified),
	}
}

func (i *objectIterator) Err() error {
	return i.err
}
