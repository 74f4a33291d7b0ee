// Package plan computes how a payload of known size is split for transfer.
package plan

// Mode is the upload path chosen for a payload.
type Mode int

const (
	// Single uploads the payload through one upload session
	Single Mode = iota
	// Multipart splits the payload into parts
	Multipart
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Multipart {
		return "multipart"
	}
	return "single"
}

// Plan is the transfer plan for one payload.
type Plan struct {
	Mode      Mode
	PartCount int
}

// Compute returns the plan for a payload of size bytes with the given part size.
// Payloads that fit in one part, including empty ones, use a single session.
func Compute(size, partSize int64) Plan {
	if partSize <= 0 || size <= partSize {
		return Plan{Mode: Single, PartCount: 1}
	}
	return Plan{Mode: Multipart, PartCount: int((size + partSize - 1) / partSize)}
}

// ChunkLen returns the length of the next chunk given the bytes remaining.
// A non-positive chunkSize covers the whole remainder.
func ChunkLen(chunkSize, remaining int64) int64 {
	if chunkSize <= 0 || chunkSize > remaining {
		return remaining
	}
	return chunkSize
}

// PartRange returns the [start, end) byte range of part i (1-based).
// The last part holds the remainder.
func PartRange(i int, partSize, size int64) (start, end int64) {
	start = min(int64(i-1)*partSize, size)
	end = min(int64(i)*partSize, size)
	return start, end
}
