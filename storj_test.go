package storj

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/backend/memory"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

func newTestClient(t *testing.T, opts ...storjtypes.Option) (*Client, *memory.Backend) {
	t.Helper()
	b := memory.New()
	client, err := New(b, "media", append([]storjtypes.Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return client, b
}

func TestClient_PutDownload(t *testing.T) {
	const threshold = MinMultipartUploadThreshold

	tests := []struct {
		name          string
		size          int
		chunk         int64
		wantMultipart bool
		wantParts     int
	}{
		{name: "empty object", size: 0, chunk: 4096, wantParts: 1},
		{name: "one byte", size: 1, chunk: 4096, wantParts: 1},
		{name: "below threshold", size: threshold - 1, chunk: 1 << 20, wantParts: 1},
		{name: "at threshold", size: threshold, chunk: 0, wantParts: 1},
		{name: "just above threshold", size: threshold + 1, chunk: 1 << 20, wantMultipart: true, wantParts: 2},
		{name: "three parts", size: 2*threshold + 7, chunk: 3 << 20, wantMultipart: true, wantParts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, b := newTestClient(t, WithUploadChunkSize(tt.chunk), WithDownloadChunkSize(1<<20))
			ctx := context.Background()
			data := testutil.GenerateRandomData(tt.size)
			key := testutil.GenerateTestKey("roundtrip")

			result, err := client.Put(ctx, key, data, WithChecksum(testutil.CalculateMD5(data)))
			require.NoError(t, err)
			assert.Equal(t, key, result.Key)
			assert.Equal(t, int64(tt.size), result.Size)
			assert.Equal(t, tt.wantMultipart, result.Multipart)
			assert.Equal(t, tt.wantParts, result.Parts)
			assert.Zero(t, b.Pending())

			got, err := client.Download(ctx, key)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, got), "downloaded payload differs")
		})
	}
}

func TestClient_Upload_Reader(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Upload(ctx, "notes/readme.txt", strings.NewReader("hello storj"))
	require.NoError(t, err)

	got, err := client.Download(ctx, "notes/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello storj", string(got))

	_, err = client.Upload(ctx, "notes/nil.txt", nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestClient_Put_Metadata(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Put(ctx, "docs/report.json", []byte(`{"ok":true}`),
		WithFilename("Résumé 2024.json"),
		WithDisposition(storjtypes.DispositionAttachment),
		WithCustomMetadata(map[string]string{"owner": "alice", "content-type": "ignored"}),
		WithCustomMetadata(map[string]string{"team": "storage"}),
	)
	require.NoError(t, err)

	info, err := client.Object(ctx, "docs/report.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType())
	assert.Equal(t,
		`attachment; filename="Resume 2024.json"; filename*=UTF-8''R%C3%A9sum%C3%A9%202024.json`,
		info.ContentDisposition())
	assert.Equal(t, "alice", info.Custom["owner"])
	assert.Equal(t, "storage", info.Custom["team"])
	assert.Equal(t, int64(len(`{"ok":true}`)), info.Size)
}

func TestClient_Put_DispositionNeedsKindAndFilename(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts []storjtypes.UploadOption
	}{
		{name: "filename only", opts: []storjtypes.UploadOption{WithFilename("a.txt")}},
		{name: "kind only", opts: []storjtypes.UploadOption{WithDisposition(storjtypes.DispositionInline)}},
		{name: "neither"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]storjtypes.UploadOption{WithContentType("text/plain")}, tt.opts...)
			_, err := client.Put(ctx, "notes/a.txt", []byte("a"), opts...)
			require.NoError(t, err)

			info, err := client.Object(ctx, "notes/a.txt")
			require.NoError(t, err)
			assert.Empty(t, info.ContentDisposition())
			assert.NotContains(t, info.Custom, storjtypes.MetadataContentDisposition)
		})
	}
}

func TestClient_Put_ContentType(t *testing.T) {
	tests := []struct {
		name string
		key  string
		data []byte
		opts []storjtypes.UploadOption
		want string
	}{
		{
			name: "explicit content type wins",
			key:  "a.bin",
			data: []byte("plain"),
			opts: []storjtypes.UploadOption{WithContentType("application/x-custom")},
			want: "application/x-custom",
		},
		{
			name: "detected from payload",
			key:  "image",
			data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"),
			want: "image/png",
		},
		{
			name: "no filename leaves disposition empty",
			key:  "empty.json",
			data: nil,
			want: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t)
			ctx := context.Background()

			_, err := client.Put(ctx, tt.key, tt.data, tt.opts...)
			require.NoError(t, err)

			info, err := client.Object(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.ContentType())
			assert.Empty(t, info.ContentDisposition())
		})
	}
}

func TestClient_Put_ChecksumMismatch(t *testing.T) {
	mock := &testutil.MockBackend{}
	client, err := New(mock, "media", WithLogger(quietLogger()))
	require.NoError(t, err)

	tracker := &testutil.MockProgressTracker{}
	_, err = client.Put(context.Background(), "a.txt", []byte("payload"),
		WithChecksum(testutil.CalculateMD5([]byte("other"))),
		WithProgress(tracker),
	)
	require.Error(t, err)
	assert.True(t, errors.IsIntegrityError(err))
	assert.Zero(t, mock.Writes())
	assert.True(t, tracker.ErrorCalled)
	assert.False(t, tracker.CompleteCalled)
}

func TestClient_Put_InvalidInput(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Put(ctx, "", []byte("x"))
	assert.ErrorIs(t, err, errors.ErrInvalidObjectKey)

	_, err = client.Put(ctx, "a\x00b", []byte("x"))
	assert.ErrorIs(t, err, errors.ErrInvalidObjectKey)

	_, err = client.Put(ctx, "ok.txt", []byte("x"), WithCustomMetadata(map[string]string{"": "v"}))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestClient_Put_Progress(t *testing.T) {
	client, _ := newTestClient(t, WithUploadChunkSize(1<<20))
	tracker := &testutil.MockProgressTracker{}
	data := testutil.GenerateRandomData(MinMultipartUploadThreshold + 10)

	_, err := client.Put(context.Background(), "big.bin", data, WithProgress(tracker))
	require.NoError(t, err)

	assert.True(t, tracker.CompleteCalled)
	assert.False(t, tracker.ErrorCalled)
	require.NotEmpty(t, tracker.Updates)
	last := tracker.Updates[len(tracker.Updates)-1]
	assert.Equal(t, int64(len(data)), last.Transferred)
	assert.Equal(t, int64(len(data)), last.Total)
	for i := 1; i < len(tracker.Updates); i++ {
		assert.GreaterOrEqual(t, tracker.Updates[i].Transferred, tracker.Updates[i-1].Transferred)
	}
}

func TestClient_UpdateMetadata(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Put(ctx, "docs/a.txt", []byte("hello"), WithCustomMetadata(map[string]string{"v": "1"}))
	require.NoError(t, err)

	err = client.UpdateMetadata(ctx, "docs/a.txt")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	err = client.UpdateMetadata(ctx, "docs/a.txt",
		WithContentType("text/markdown"),
		WithCustomMetadata(map[string]string{"v": "2"}),
	)
	require.NoError(t, err)

	info, err := client.Object(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", info.ContentType())
	assert.Equal(t, "2", info.Custom["v"])

	err = client.UpdateMetadata(ctx, "docs/missing.txt", WithContentType("text/plain"))
	assert.True(t, errors.IsObjectNotFound(err))
}

func TestClient_DownloadRange(t *testing.T) {
	client, _ := newTestClient(t, WithDownloadChunkSize(3))
	ctx := context.Background()

	_, err := client.Put(ctx, "digits.txt", []byte("0123456789"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		rng     storjtypes.ByteRange
		want    string
		wantErr error
	}{
		{name: "middle", rng: storjtypes.ByteRange{Offset: 2, Length: 5}, want: "23456"},
		{name: "tail", rng: storjtypes.ByteRange{Offset: 7, Length: 3}, want: "789"},
		{name: "zero length", rng: storjtypes.ByteRange{Offset: 4, Length: 0}, want: ""},
		{name: "past end", rng: storjtypes.ByteRange{Offset: 8, Length: 5}, wantErr: errors.ErrInvalidRange},
		{name: "negative offset", rng: storjtypes.ByteRange{Offset: -1, Length: 2}, wantErr: errors.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.DownloadChunk(ctx, "digits.txt", tt.rng)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestClient_Download_NotFound(t *testing.T) {
	client, _ := newTestClient(t)
	tracker := &testutil.MockProgressTracker{}

	_, err := client.Download(context.Background(), "missing.txt", WithDownloadProgress(tracker))
	require.Error(t, err)
	assert.True(t, errors.IsObjectNotFound(err))
	assert.True(t, tracker.ErrorCalled)
}

func TestClient_Stream(t *testing.T) {
	client, _ := newTestClient(t, WithDownloadChunkSize(4))
	ctx := context.Background()

	_, err := client.Put(ctx, "stream.txt", []byte("abcdefghij"))
	require.NoError(t, err)
	_, err = client.Put(ctx, "empty.txt", nil)
	require.NoError(t, err)

	t.Run("chunks in order", func(t *testing.T) {
		var chunks []string
		tracker := &testutil.MockProgressTracker{}
		err := client.Stream(ctx, "stream.txt", func(chunk []byte) error {
			chunks = append(chunks, string(chunk))
			return nil
		}, WithDownloadProgress(tracker))
		require.NoError(t, err)
		assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
		assert.True(t, tracker.CompleteCalled)
	})

	t.Run("empty object produces no chunks", func(t *testing.T) {
		calls := 0
		err := client.Stream(ctx, "empty.txt", func([]byte) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Zero(t, calls)
	})

	t.Run("consumer error stops the stream", func(t *testing.T) {
		boom := stderrors.New("boom")
		calls := 0
		err := client.Stream(ctx, "stream.txt", func([]byte) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("ranged", func(t *testing.T) {
		var got []byte
		err := client.Stream(ctx, "stream.txt", func(chunk []byte) error {
			got = append(got, chunk...)
			return nil
		}, WithRange(3, 5))
		require.NoError(t, err)
		assert.Equal(t, "defgh", string(got))
	})

	t.Run("nil consumer", func(t *testing.T) {
		err := client.Stream(ctx, "stream.txt", nil)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("empty range of missing object", func(t *testing.T) {
		calls := 0
		err := client.Stream(ctx, "missing.txt", func([]byte) error {
			calls++
			return nil
		}, WithRange(0, 0))
		assert.True(t, errors.IsObjectNotFound(err))
		assert.Zero(t, calls)
	})
}

func TestClient_DownloadChunk_EmptyRangeMissingObject(t *testing.T) {
	client, _ := newTestClient(t)

	data, err := client.DownloadChunk(context.Background(), "does-not-exist", storjtypes.ByteRange{Offset: 0, Length: 0})
	assert.True(t, errors.IsObjectNotFound(err))
	assert.Nil(t, data)
}

func TestClient_Compose(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Put(ctx, "parts/foo", []byte("foo"))
	require.NoError(t, err)
	_, err = client.Put(ctx, "parts/bar", []byte("bar"))
	require.NoError(t, err)

	result, err := client.Compose(ctx, []string{"parts/foo", "parts/bar", "parts/foo"}, "joined.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.Size)

	got, err := client.Download(ctx, "joined.txt")
	require.NoError(t, err)
	assert.Equal(t, "foobarfoo", string(got))

	info, err := client.Object(ctx, "joined.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", info.ContentType())

	_, err = client.Compose(ctx, []string{"parts/foo", "parts/missing"}, "broken.txt")
	assert.True(t, errors.IsObjectNotFound(err))
	exists, err := client.Exists(ctx, "broken.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = client.Compose(ctx, nil, "none.txt")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Compose(ctx, []string{""}, "none.txt")
	assert.ErrorIs(t, err, errors.ErrInvalidObjectKey)
}

func TestClient_DeleteExists(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Put(ctx, "logs/a", []byte("a"))
	require.NoError(t, err)

	exists, err := client.Exists(ctx, "logs/a")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, client.Delete(ctx, "logs/a"))
	require.NoError(t, client.Delete(ctx, "logs/a"), "deleting a missing object succeeds")

	exists, err = client.Exists(ctx, "logs/a")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = client.Object(ctx, "logs/a")
	assert.True(t, errors.IsObjectNotFound(err))
}

func TestClient_Exists_BackendFailure(t *testing.T) {
	boom := stderrors.New("network down")
	mock := &testutil.MockBackend{
		StatObjectFunc: func(context.Context, string, string) (*backend.ObjectInfo, error) {
			return nil, boom
		},
	}
	client, err := New(mock, "media", WithLogger(quietLogger()))
	require.NoError(t, err)

	exists, err := client.Exists(context.Background(), "a")
	assert.ErrorIs(t, err, boom)
	assert.False(t, exists)
}

func TestClient_DeletePrefixed(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for _, key := range []string{"tmp/1", "tmp/2", "tmp/sub/3", "keep/1"} {
		_, err := client.Put(ctx, key, []byte(key))
		require.NoError(t, err)
	}

	result, err := client.DeletePrefixed(ctx, "tmp/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tmp/1", "tmp/2", "tmp/sub/3"}, result.Deleted)

	exists, err := client.Exists(ctx, "keep/1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClient_URL(t *testing.T) {
	ctx := context.Background()

	t.Run("private URL expires", func(t *testing.T) {
		client, _ := newTestClient(t)
		_, err := client.Put(ctx, "a.txt", []byte("a"))
		require.NoError(t, err)

		u, err := client.URL(ctx, "a.txt", WithExpiresIn(time.Hour))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u, "memory://media/a.txt?expires="))
	})

	t.Run("public URL never expires", func(t *testing.T) {
		client, _ := newTestClient(t, WithPublic(true))
		_, err := client.Put(ctx, "a.txt", []byte("a"))
		require.NoError(t, err)

		u, err := client.URL(ctx, "a.txt", WithExpiresIn(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "memory://media/a.txt", u)
	})

	t.Run("missing object", func(t *testing.T) {
		client, _ := newTestClient(t)
		_, err := client.URL(ctx, "missing.txt")
		assert.True(t, errors.IsObjectNotFound(err))
	})

	t.Run("backend without signing", func(t *testing.T) {
		client, err := New(&testutil.MockBackend{}, "media", WithLogger(quietLogger()))
		require.NoError(t, err)
		_, err = client.URL(ctx, "a.txt")
		assert.ErrorIs(t, err, errors.ErrNotImplemented)
	})
}

func TestClient_HeadersForDirectUpload(t *testing.T) {
	client, _ := newTestClient(t)

	tests := []struct {
		name        string
		contentType string
		checksum    string
		opts        []storjtypes.UploadOption
		want        map[string]string
	}{
		{
			name:        "content type only",
			contentType: "image/png",
			want:        map[string]string{"Content-Type": "image/png"},
		},
		{
			name:        "all headers",
			contentType: "text/plain",
			checksum:    "abc==",
			opts: []storjtypes.UploadOption{
				WithFilename("a.txt"),
				WithDisposition(storjtypes.DispositionInline),
				WithCustomMetadata(map[string]string{"owner": "bob"}),
			},
			want: map[string]string{
				"Content-Type":        "text/plain",
				"Content-MD5":         "abc==",
				"Content-Disposition": `inline; filename="a.txt"; filename*=UTF-8''a.txt`,
				"x-amz-meta-owner":    "bob",
			},
		},
		{
			name:        "filename without disposition",
			contentType: "text/plain",
			opts:        []storjtypes.UploadOption{WithFilename("a.txt")},
			want:        map[string]string{"Content-Type": "text/plain"},
		},
		{
			name: "nothing set",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.HeadersForDirectUpload("a.txt", tt.contentType, tt.checksum, tt.opts...)
			assert.Equal(t, tt.want, got)
		})
	}
}
