package testutil

import (
	"bytes"
	"context"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
)

// StubUploadSession records what is written to it. It serves as both an
// upload session and a part session.
type StubUploadSession struct {
	// Limit caps the bytes accepted per Write; zero accepts everything
	Limit int

	// WriteErr is returned by Write after the bytes are accepted
	WriteErr error

	// CommitErr is returned by Commit
	CommitErr error

	Data      bytes.Buffer
	Metadata  map[string]string
	Writes    int
	Committed bool
	Aborted   bool
}

// Write accepts at most Limit bytes of p.
func (s *StubUploadSession) Write(p []byte) (int, error) {
	s.Writes++
	n := len(p)
	if s.Limit > 0 && n > s.Limit {
		n = s.Limit
	}
	s.Data.Write(p[:n])
	return n, s.WriteErr
}

// SetCustomMetadata stores metadata for inspection.
func (s *StubUploadSession) SetCustomMetadata(_ context.Context, metadata map[string]string) error {
	s.Metadata = metadata
	return nil
}

// Commit marks the session committed unless CommitErr is set.
func (s *StubUploadSession) Commit() error {
	if s.CommitErr != nil {
		return s.CommitErr
	}
	s.Committed = true
	return nil
}

// Abort marks the session aborted unless it was already committed.
func (s *StubUploadSession) Abort() error {
	if !s.Committed {
		s.Aborted = true
	}
	return nil
}

// StubDownloadSession serves Data.
type StubDownloadSession struct {
	Data []byte

	// announced overrides len(Data) as the reported length
	announced *int64

	// Limit caps the bytes returned per Read; zero returns as much as fits
	Limit int

	// ReadErr is returned once Data is exhausted instead of io.EOF
	ReadErr error

	Reads  int
	Closed bool
	pos    int
}

// NewStubDownloadSession returns a session serving data.
func NewStubDownloadSession(data []byte, limit int) *StubDownloadSession {
	return &StubDownloadSession{Data: data, Limit: limit}
}

// Announce makes the session report length instead of len(Data).
func (s *StubDownloadSession) Announce(length int64) *StubDownloadSession {
	s.announced = &length
	return s
}

// Length returns the announced length.
func (s *StubDownloadSession) Length() int64 {
	if s.announced != nil {
		return *s.announced
	}
	return int64(len(s.Data))
}

// Read copies at most Limit bytes.
func (s *StubDownloadSession) Read(p []byte) (int, error) {
	s.Reads++
	if s.pos >= len(s.Data) {
		if s.ReadErr != nil {
			return 0, s.ReadErr
		}
		return 0, io.EOF
	}
	if s.Limit > 0 && len(p) > s.Limit {
		p = p[:s.Limit]
	}
	n := copy(p, s.Data[s.pos:])
	s.pos += n
	return n, nil
}

// Close marks the session closed.
func (s *StubDownloadSession) Close() error {
	s.Closed = true
	return nil
}

var (
	_ backend.UploadSession   = (*StubUploadSession)(nil)
	_ backend.PartSession     = (*StubUploadSession)(nil)
	_ backend.DownloadSession = (*StubDownloadSession)(nil)
)
