package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/testutil"
)

func TestBackend_OpenUpload(t *testing.T) {
	var got *s3.PutObjectInput
	var body []byte
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			got = params
			var err error
			body, err = io.ReadAll(params.Body)
			require.NoError(t, err)
			return &s3.PutObjectOutput{ETag: aws.String("etag")}, nil
		},
	}
	b := NewWithClient(mock, nil)
	ctx := context.Background()

	session, err := b.OpenUpload(ctx, "media", "docs/a.txt")
	require.NoError(t, err)

	n, err := session.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = session.Write([]byte("world"))
	require.NoError(t, err)

	require.NoError(t, session.SetCustomMetadata(ctx, map[string]string{
		"content-type":        "text/plain",
		"content-disposition": `inline; filename="a.txt"`,
		"owner":               "alice",
	}))
	assert.Nil(t, got, "nothing is sent before commit")

	require.NoError(t, session.Commit())
	require.NotNil(t, got)
	assert.Equal(t, "media", aws.ToString(got.Bucket))
	assert.Equal(t, "docs/a.txt", aws.ToString(got.Key))
	assert.Equal(t, "hello world", string(body))
	assert.Equal(t, int64(11), aws.ToInt64(got.ContentLength))
	assert.Equal(t, "text/plain", aws.ToString(got.ContentType))
	assert.Equal(t, `inline; filename="a.txt"`, aws.ToString(got.ContentDisposition))
	assert.Equal(t, map[string]string{"owner": "alice"}, got.Metadata)

	assert.NoError(t, session.Abort(), "abort after commit is a no-op")
	_, err = session.Write([]byte("late"))
	assert.Error(t, err)
}

func TestBackend_OpenUpload_PutError(t *testing.T) {
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
		},
	}
	b := NewWithClient(mock, nil)

	session, err := b.OpenUpload(context.Background(), "media", "a")
	require.NoError(t, err)
	err = session.Commit()
	require.Error(t, err)
	assert.False(t, errors.IsObjectNotFound(err))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "putObject", e.Op)
}

func TestBackend_Multipart(t *testing.T) {
	var (
		mu        sync.Mutex
		uploaded  = map[int32]string{}
		completed *s3.CompleteMultipartUploadInput
		copied    *s3.CopyObjectInput
	)
	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(_ context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-42")}, nil
		},
		UploadPartFunc: func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			assert.Equal(t, "upload-42", aws.ToString(params.UploadId))
			data, err := io.ReadAll(params.Body)
			require.NoError(t, err)
			mu.Lock()
			uploaded[aws.ToInt32(params.PartNumber)] = string(data)
			mu.Unlock()
			return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("etag-%d", aws.ToInt32(params.PartNumber)))}, nil
		},
		CompleteMultipartUploadFunc: func(_ context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			completed = params
			return &s3.CompleteMultipartUploadOutput{}, nil
		},
		CopyObjectFunc: func(_ context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
			copied = params
			return &s3.CopyObjectOutput{}, nil
		},
	}
	b := NewWithClient(mock, nil)
	ctx := context.Background()

	handle, err := b.BeginMultipartUpload(ctx, "media", "big/file.bin")
	require.NoError(t, err)
	assert.Equal(t, backend.UploadHandle("upload-42"), handle)
	assert.Equal(t, 1, b.Pending())

	for _, n := range []uint32{2, 1, 3} {
		part, err := b.OpenPart(ctx, "media", "big/file.bin", handle, n)
		require.NoError(t, err)
		_, err = part.Write([]byte(fmt.Sprintf("part-%d", n)))
		require.NoError(t, err)
		require.NoError(t, part.Commit())
	}

	err = b.CommitMultipartUpload(ctx, "media", "big/file.bin", handle, map[string]string{
		"content-type": "application/octet-stream",
		"v":            "1",
	})
	require.NoError(t, err)
	assert.Zero(t, b.Pending())

	assert.Equal(t, map[int32]string{1: "part-1", 2: "part-2", 3: "part-3"}, uploaded)

	require.NotNil(t, completed)
	require.Len(t, completed.MultipartUpload.Parts, 3)
	for i, p := range completed.MultipartUpload.Parts {
		assert.Equal(t, int32(i+1), aws.ToInt32(p.PartNumber))
		assert.Equal(t, fmt.Sprintf("etag-%d", i+1), aws.ToString(p.ETag))
	}

	require.NotNil(t, copied)
	assert.Equal(t, "media/big%2Ffile.bin", aws.ToString(copied.CopySource))
	assert.Equal(t, types.MetadataDirectiveReplace, copied.MetadataDirective)
	assert.Equal(t, "application/octet-stream", aws.ToString(copied.ContentType))
	assert.Equal(t, map[string]string{"v": "1"}, copied.Metadata)
}

func TestBackend_Multipart_UnknownHandle(t *testing.T) {
	b := NewWithClient(&testutil.MockS3Client{}, nil)
	ctx := context.Background()

	_, err := b.OpenPart(ctx, "media", "a", "missing", 1)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	err = b.CommitMultipartUpload(ctx, "media", "a", "missing", nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	handle, err := b.BeginMultipartUpload(ctx, "media", "a")
	require.NoError(t, err)
	_, err = b.OpenPart(ctx, "media", "other-key", handle, 1)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	_, err = b.OpenPart(ctx, "media", "a", handle, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestBackend_OpenDownload(t *testing.T) {
	tests := []struct {
		name       string
		rng        *backend.Range
		wantHeader string
		wantCalled bool
		wantHead   bool
	}{
		{name: "whole object", rng: nil, wantHeader: "", wantCalled: true},
		{name: "range", rng: &backend.Range{Offset: 2, Length: 5}, wantHeader: "bytes=2-6", wantCalled: true},
		{name: "empty range", rng: &backend.Range{Offset: 3, Length: 0}, wantHead: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, headed := false, false
			mock := &testutil.MockS3Client{
				HeadObjectFunc: func(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
					headed = true
					assert.Equal(t, "a", aws.ToString(params.Key))
					return &s3.HeadObjectOutput{ContentLength: aws.Int64(5)}, nil
				},
				GetObjectFunc: func(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					called = true
					assert.Equal(t, tt.wantHeader, aws.ToString(params.Range))
					return &s3.GetObjectOutput{
						Body:          io.NopCloser(strings.NewReader("abcde")),
						ContentLength: aws.Int64(5),
					}, nil
				},
			}
			b := NewWithClient(mock, nil)

			session, err := b.OpenDownload(context.Background(), "media", "a", tt.rng)
			require.NoError(t, err)
			defer session.Close()

			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantHead, headed)
			data, err := io.ReadAll(session)
			require.NoError(t, err)
			assert.Equal(t, session.Length(), int64(len(data)))
		})
	}
}

func TestBackend_OpenDownload_EmptyRangeMissingKey(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "NotFound"}
		},
	}
	b := NewWithClient(mock, nil)

	_, err := b.OpenDownload(context.Background(), "media", "missing", &backend.Range{Offset: 0, Length: 0})
	assert.ErrorIs(t, err, errors.ErrObjectNotFound)
}

func TestBackend_Translate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "no such key", err: &types.NoSuchKey{Message: aws.String("missing")}, wantErr: errors.ErrObjectNotFound},
		{name: "head not found", err: &smithy.GenericAPIError{Code: "NotFound"}, wantErr: errors.ErrObjectNotFound},
		{name: "invalid range", err: &smithy.GenericAPIError{Code: "InvalidRange"}, wantErr: errors.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{
				GetObjectFunc: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					return nil, tt.err
				},
				HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
					return nil, tt.err
				},
			}
			b := NewWithClient(mock, nil)
			ctx := context.Background()

			_, err := b.OpenDownload(ctx, "media", "a", nil)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = b.StatObject(ctx, "media", "a")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	other := &smithy.GenericAPIError{Code: "SlowDown"}
	err := translate("stat", "media", "a", other)
	assert.ErrorIs(t, err, other)
	assert.Equal(t, errors.CodeTransfer, errors.CodeOf(err))
	assert.NoError(t, translate("stat", "media", "a", nil))
}

func TestBackend_StatObject(t *testing.T) {
	modified := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{
				ContentLength:      aws.Int64(42),
				LastModified:       aws.Time(modified),
				ContentType:        aws.String("image/png"),
				ContentDisposition: aws.String("inline"),
				Metadata:           map[string]string{"owner": "bob"},
			}, nil
		},
	}
	b := NewWithClient(mock, nil)

	info, err := b.StatObject(context.Background(), "media", "img.png")
	require.NoError(t, err)
	assert.Equal(t, "img.png", info.Key)
	assert.Equal(t, int64(42), info.Size)
	assert.Equal(t, modified, info.Created)
	assert.Equal(t, "image/png", info.ContentType())
	assert.Equal(t, "inline", info.ContentDisposition())
	assert.Equal(t, "bob", info.Custom["owner"])
}

func TestBackend_ListObjects(t *testing.T) {
	pages := map[string]*s3.ListObjectsV2Output{
		"": {
			Contents: []types.Object{
				{Key: aws.String("tmp/1"), Size: aws.Int64(1)},
				{Key: aws.String("tmp/2"), Size: aws.Int64(2)},
			},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page-2"),
		},
		"page-2": {
			Contents:    []types.Object{{Key: aws.String("tmp/3"), Size: aws.Int64(3)}},
			IsTruncated: aws.Bool(false),
		},
	}
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "tmp/", aws.ToString(params.Prefix))
			return pages[aws.ToString(params.ContinuationToken)], nil
		},
	}
	b := NewWithClient(mock, nil)

	var keys []string
	var total int64
	it := b.ListObjects(context.Background(), "media", "tmp/")
	for it.Next() {
		keys = append(keys, it.Item().Key)
		total += it.Item().Size
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"tmp/1", "tmp/2", "tmp/3"}, keys)
	assert.Equal(t, int64(6), total)
}

func TestBackend_ListObjects_Error(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			return nil, boom
		},
	}
	it := NewWithClient(mock, nil).ListObjects(context.Background(), "media", "")
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), boom)
}

func TestBackend_UpdateObjectMetadata(t *testing.T) {
	var got *s3.CopyObjectInput
	mock := &testutil.MockS3Client{
		CopyObjectFunc: func(_ context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
			got = params
			return &s3.CopyObjectOutput{}, nil
		},
	}
	b := NewWithClient(mock, nil)

	err := b.UpdateObjectMetadata(context.Background(), "media", "a b.txt", map[string]string{
		"content-type":        "text/plain",
		"content-disposition": "attachment",
	})
	require.NoError(t, err)
	assert.Equal(t, "media", aws.ToString(got.Bucket))
	assert.Equal(t, "a b.txt", aws.ToString(got.Key))
	assert.Equal(t, "media/a%20b.txt", aws.ToString(got.CopySource))
	assert.Equal(t, "text/plain", aws.ToString(got.ContentType))
	assert.Equal(t, "attachment", aws.ToString(got.ContentDisposition))
	assert.Empty(t, got.Metadata)
}

func TestBackend_SignURL(t *testing.T) {
	tests := []struct {
		name       string
		expiresIn  time.Duration
		wantExpiry time.Duration
	}{
		{name: "private", expiresIn: time.Hour, wantExpiry: time.Hour},
		{name: "no expiry requested", expiresIn: 0, wantExpiry: MaxPresignExpiry},
		{name: "beyond maximum", expiresIn: 30 * 24 * time.Hour, wantExpiry: MaxPresignExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presigner := &testutil.MockPresigner{
				PresignGetObjectFunc: func(_ context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
					var opts s3.PresignOptions
					for _, fn := range optFns {
						fn(&opts)
					}
					assert.Equal(t, tt.wantExpiry, opts.Expires)
					return &v4.PresignedHTTPRequest{
						URL: fmt.Sprintf("https://gateway.example/%s/%s?sig", aws.ToString(params.Bucket), aws.ToString(params.Key)),
					}, nil
				},
			}
			b := NewWithClient(&testutil.MockS3Client{}, presigner)

			u, err := b.SignURL(context.Background(), "media", "a.txt", tt.expiresIn)
			require.NoError(t, err)
			assert.Equal(t, "https://gateway.example/media/a.txt?sig", u)
		})
	}

	_, err := NewWithClient(&testutil.MockS3Client{}, nil).SignURL(context.Background(), "media", "a", time.Minute)
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
}

func TestNew_Credentials(t *testing.T) {
	_, err := New(context.Background(), Config{AccessKeyID: "only-id"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	b, err := New(context.Background(), Config{AccessKeyID: "id", SecretAccessKey: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, b.presign)
}

func TestSplitJoinMetadata(t *testing.T) {
	md := map[string]string{
		"content-type":        "text/plain",
		"content-disposition": "inline",
		"k":                   "v",
	}
	custom, ct, disp := splitMetadata(md)
	assert.Equal(t, map[string]string{"k": "v"}, custom)
	assert.Equal(t, "text/plain", ct)
	assert.Equal(t, "inline", disp)
	assert.Equal(t, md, joinMetadata(custom, ct, disp))

	assert.Equal(t, map[string]string{}, joinMetadata(nil, "", ""))
}

func TestRangeHeader(t *testing.T) {
	assert.Empty(t, rangeHeader(nil))
	assert.Empty(t, rangeHeader(&backend.Range{Offset: 4}))
	assert.Equal(t, "bytes=0-0", rangeHeader(&backend.Range{Length: 1}))
	assert.Equal(t, "bytes=10-19", rangeHeader(&backend.Range{Offset: 10, Length: 10}))
}

func TestDownloadSession_Read(t *testing.T) {
	s := &downloadSession{body: io.NopCloser(bytes.NewReader([]byte("xyz"))), length: 3}
	buf := make([]byte, 2)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, s.Close())
}
