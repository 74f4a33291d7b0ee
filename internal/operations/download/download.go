// Package download handles object download operations.
// Objects are read in bounded chunks either into a single buffer or
// streamed to a consumer one chunk at a time.
package download

import (
	"context"
	"fmt"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/transfer/plan"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// maxConsecutiveEmptyReads bounds how often a session may return no data
// and no error before the download is abandoned.
const maxConsecutiveEmptyReads = 100

// Consumer receives each chunk of a streamed download. The slice is only
// valid for the duration of the call.
type Consumer func(chunk []byte) error

// Reader handles downloads with a fixed chunk size.
type Reader struct {
	backend   backend.Backend
	chunkSize int64
}

// New creates a new Reader. A non-positive chunkSize reads the whole
// remaining range per call.
func New(b backend.Backend, chunkSize int64) *Reader {
	return &Reader{
		backend:   b,
		chunkSize: chunkSize,
	}
}

// Read downloads bucket/key, or the part selected by rng, into memory.
func (r *Reader) Read(
	ctx context.Context,
	bucket, key string,
	rng *storjtypes.ByteRange,
	progress storjtypes.ProgressTracker,
) ([]byte, error) {
	session, err := r.open(ctx, bucket, key, rng)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	total := session.Length()
	result := make([]byte, 0, total)
	next := func(n int64) []byte {
		return result[len(result) : int64(len(result))+n]
	}
	accept := func(p []byte) error {
		result = result[:len(result)+len(p)]
		return nil
	}

	if err := r.pump(session, total, next, accept, progress); err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err)
	}
	return result, nil
}

// Stream downloads bucket/key, or the part selected by rng, handing each
// chunk to consume. An empty object produces no calls. An error returned by
// consume stops the download and is returned.
func (r *Reader) Stream(
	ctx context.Context,
	bucket, key string,
	rng *storjtypes.ByteRange,
	consume Consumer,
	progress storjtypes.ProgressTracker,
) error {
	session, err := r.open(ctx, bucket, key, rng)
	if err != nil {
		return err
	}
	defer session.Close()

	total := session.Length()
	if total <= 0 {
		return nil
	}

	buf := pool.Get(int(plan.ChunkLen(r.chunkSize, total)))
	defer pool.Put(buf)

	next := func(n int64) []byte {
		return buf[:n]
	}

	if err := r.pump(session, total, next, func(p []byte) error { return consume(p) }, progress); err != nil {
		return errors.NewObjectError("stream", bucket, key, err)
	}
	return nil
}

func (r *Reader) open(
	ctx context.Context,
	bucket, key string,
	rng *storjtypes.ByteRange,
) (backend.DownloadSession, error) {
	session, err := r.backend.OpenDownload(ctx, bucket, key, rng)
	if err != nil {
		return nil, errors.NewObjectError("openDownload", bucket, key, err)
	}
	return session, nil
}

// pump reads up to total bytes from session. next supplies the destination
// for a read of at most n bytes and accept receives the bytes actually read.
func (r *Reader) pump(
	session backend.DownloadSession,
	total int64,
	next func(n int64) []byte,
	accept func(p []byte) error,
	progress storjtypes.ProgressTracker,
) error {
	var downloaded int64
	empty := 0

	for downloaded < total {
		dst := next(plan.ChunkLen(r.chunkSize, total-downloaded))
		n, err := session.Read(dst)
		if n > 0 {
			empty = 0
			if cerr := accept(dst[:n]); cerr != nil {
				return cerr
			}
			downloaded += int64(n)
			if progress != nil {
				progress.Update(downloaded, total)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if n == 0 {
			empty++
			if empty >= maxConsecutiveEmptyReads {
				return io.ErrNoProgress
			}
		}
	}

	if downloaded < total {
		return errors.NewError("read", errors.ErrTruncated).
			WithMessage(fmt.Sprintf("received %d of %d bytes", downloaded, total))
	}
	return nil
}
