package storj

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend/memory"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// TestClient_New tests the New() constructor and option handling.
func TestClient_New(t *testing.T) {
	tests := []struct {
		name          string
		bucket        string
		opts          []storjtypes.Option
		wantErr       error
		wantThreshold int64
		wantUpload    int64
		wantDownload  int64
	}{
		{
			name:          "default configuration",
			bucket:        "media",
			wantThreshold: MinMultipartUploadThreshold,
			wantUpload:    DefaultChunkSize,
			wantDownload:  DefaultChunkSize,
		},
		{
			name:   "custom chunk sizes and threshold",
			bucket: "media",
			opts: []storjtypes.Option{
				WithUploadChunkSize(MiB),
				WithDownloadChunkSize(2 * MiB),
				WithMultipartUploadThreshold(64 * MiB),
			},
			wantThreshold: 64 * MiB,
			wantUpload:    MiB,
			wantDownload:  2 * MiB,
		},
		{
			name:          "threshold below minimum is raised",
			bucket:        "media",
			opts:          []storjtypes.Option{WithMultipartUploadThreshold(1024)},
			wantThreshold: MinMultipartUploadThreshold,
			wantUpload:    DefaultChunkSize,
			wantDownload:  DefaultChunkSize,
		},
		{
			name:          "zero chunk size means unbounded",
			bucket:        "media",
			opts:          []storjtypes.Option{WithUploadChunkSize(0)},
			wantThreshold: MinMultipartUploadThreshold,
			wantUpload:    0,
			wantDownload:  DefaultChunkSize,
		},
		{
			name:    "negative chunk size",
			bucket:  "media",
			opts:    []storjtypes.Option{WithDownloadChunkSize(-1)},
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "invalid bucket name",
			bucket:  "Bad_Bucket",
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "empty bucket name",
			bucket:  "",
			wantErr: errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(memory.New(), tt.bucket, tt.opts...)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, client)
			assert.Equal(t, tt.bucket, client.Bucket())

			cfg := client.Config()
			assert.Equal(t, tt.wantThreshold, cfg.MultipartUploadThreshold)
			assert.Equal(t, tt.wantUpload, cfg.UploadChunkSize)
			assert.Equal(t, tt.wantDownload, cfg.DownloadChunkSize)
			assert.NotNil(t, cfg.Logger)
		})
	}
}

func TestClient_New_NilBackend(t *testing.T) {
	client, err := New(nil, "media")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Nil(t, client)
}

// TestClient_New_ConcurrentSafety tests that concurrent clients share one backend safely.
func TestClient_New_ConcurrentSafety(t *testing.T) {
	const numGoroutines = 10

	b := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := New(b, "media", WithLogger(quietLogger()))
			if err != nil {
				errs <- err
				return
			}
			if _, err := client.Put(ctx, testutil.GenerateTestKey("concurrent"), []byte("payload")); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	var count int
	iter := b.ListObjects(ctx, "media", "concurrent/")
	for iter.Next() {
		count++
	}
	require.NoError(t, iter.Err())
	assert.Equal(t, numGoroutines, count)
}

func TestClient_Close(t *testing.T) {
	client, err := New(memory.New(), "media")
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mock, err := New(&testutil.MockBackend{}, "media")
	require.NoError(t, err)
	assert.NoError(t, mock.Close())
}

func TestClient_Instrumentation(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	client, err := New(memory.New(), "media", WithLogger(logger))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.Put(ctx, "docs/a.txt", []byte("hello"))
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "storj operation completed", entry.Message)
	assert.Equal(t, "upload", entry.Data["op"])
	assert.Equal(t, "media", entry.Data["bucket"])
	assert.Equal(t, "docs/a.txt", entry.Data["key"])
	assert.Equal(t, "storj", entry.Data["component"])
	assert.Equal(t, 5, entry.Data["size"])
	assert.Equal(t, false, entry.Data["multipart"])

	hook.Reset()
	_, err = client.Download(ctx, "docs/missing.txt")
	require.Error(t, err)

	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "storj operation failed", entry.Message)
	assert.Equal(t, "download", entry.Data["op"])
	assert.Equal(t, errors.CodeNotFound, entry.Data["code"])
	assert.Error(t, entry.Data[logrus.ErrorKey].(error))
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}
