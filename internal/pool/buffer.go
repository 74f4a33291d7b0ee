// Package pool provides reusable chunk buffers for streaming downloads.
//
// Buffers are grouped in size classes so that the default chunk sizes are
// served from a pool, while unusually large requests are allocated directly.
package pool

import (
	"sync"
)

const (
	// SmallBufferSize is the size of small buffers (64KB)
	SmallBufferSize = 64 * 1024
	// ChunkBufferSize is the size of default chunk buffers (5MB)
	ChunkBufferSize = 5 * 1024 * 1024
)

// BufferPool manages reusable buffers of two size classes.
type BufferPool struct {
	small *sync.Pool
	chunk *sync.Pool
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, SmallBufferSize)
				return &buf
			},
		},
		chunk: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, ChunkBufferSize)
				return &buf
			},
		},
	}
}

// Get returns a buffer of length size. Sizes above ChunkBufferSize are
// allocated and never pooled.
// The caller must return the buffer with Put once it is no longer referenced.
func (bp *BufferPool) Get(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		bufPtr := bp.small.Get().(*[]byte)
		return (*bufPtr)[:size]
	case size <= ChunkBufferSize:
		bufPtr := bp.chunk.Get().(*[]byte)
		return (*bufPtr)[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer to the pool matching its capacity.
func (bp *BufferPool) Put(buf []byte) {
	buf = buf[:cap(buf)]
	switch cap(buf) {
	case SmallBufferSize:
		bp.small.Put(&buf)
	case ChunkBufferSize:
		bp.chunk.Put(&buf)
	}
}

var globalBufferPool = NewBufferPool()

// Get returns a buffer of length size from the global pool.
func Get(size int) []byte {
	return globalBufferPool.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf []byte) {
	globalBufferPool.Put(buf)
}
