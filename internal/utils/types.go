package util

import "time"

// PageID represents a unique page identifier
type PageID int64

// InvalidPageID marks a frame that currently holds no page
const InvalidPageID PageID = -1

// FrameID indexes one slot of the buffer pool
type FrameID int

// PageSize represents the standard page size (4KB)
const PageSize = 4096

// Options represents storage configuration options
type Options struct {
	Path          string
	WALPath       string
	PoolSize      int
	BucketSize    int
	SyncWrites    bool
	LogLevel      string
	FlushInterval time.Duration
}

// DefaultOptions returns default storage options
func DefaultOptions() Options {
	return Options{
		Path:          "bufferdb.dat",
		WALPath:       "bufferdb.wal",
		PoolSize:      1000, // 4MB default buffer pool
		BucketSize:    64,
		SyncWrites:    false,
		LogLevel:      "info",
		FlushInterval: 30 * time.Second,
	}
}
