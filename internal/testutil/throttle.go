package testutil

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
)

// Throttled wraps a backend so that its sessions move at most WriteLimit bytes
// per Write and ReadLimit bytes per Read. A zero limit leaves the direction untouched.
type Throttled struct {
	backend.Backend
	WriteLimit int
	ReadLimit  int
}

// OpenUpload wraps the underlying upload session.
func (t *Throttled) OpenUpload(ctx context.Context, bucket, key string) (backend.UploadSession, error) {
	s, err := t.Backend.OpenUpload(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return &throttledUpload{UploadSession: s, limit: t.WriteLimit}, nil
}

// OpenPart wraps the underlying part session.
func (t *Throttled) OpenPart(
	ctx context.Context,
	bucket, key string,
	handle backend.UploadHandle,
	partNumber uint32,
) (backend.PartSession, error) {
	s, err := t.Backend.OpenPart(ctx, bucket, key, handle, partNumber)
	if err != nil {
		return nil, err
	}
	return &throttledPart{PartSession: s, limit: t.WriteLimit}, nil
}

// OpenDownload wraps the underlying download session.
func (t *Throttled) OpenDownload(
	ctx context.Context,
	bucket, key string,
	rng *backend.Range,
) (backend.DownloadSession, error) {
	s, err := t.Backend.OpenDownload(ctx, bucket, key, rng)
	if err != nil {
		return nil, err
	}
	return &throttledDownload{DownloadSession: s, limit: t.ReadLimit}, nil
}

func clamp(p []byte, limit int) []byte {
	if limit > 0 && len(p) > limit {
		return p[:limit]
	}
	return p
}

type throttledUpload struct {
	backend.UploadSession
	limit int
}

func (s *throttledUpload) Write(p []byte) (int, error) {
	return s.UploadSession.Write(clamp(p, s.limit))
}

type throttledPart struct {
	backend.PartSession
	limit int
}

func (s *throttledPart) Write(p []byte) (int, error) {
	return s.PartSession.Write(clamp(p, s.limit))
}

type throttledDownload struct {
	backend.DownloadSession
	limit int
}

func (s *throttledDownload) Read(p []byte) (int, error) {
	return s.DownloadSession.Read(clamp(p, s.limit))
}
