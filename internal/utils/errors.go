package util

import "errors"

var (
	ErrInvalidPageId     = errors.New("invalid page id")
	ErrInvalidPoolSize   = errors.New("invalid pool size")
	ErrInvalidBucketSize = errors.New("invalid bucket size")
	ErrPageNotFound      = errors.New("page not found in pool")
	ErrPagePinned        = errors.New("page is pinned")
	ErrNoFreeFrame       = errors.New("no free frames")
	ErrPageOutOfBounds   = errors.New("page out of bounds")
	ErrShortRead         = errors.New("short page read")
	ErrShortWrite        = errors.New("short page write")
	ErrClosed            = errors.New("disk manager is closed")
)
