package util

import "errors"

var (
	// buffer pool
	ErrBufferPoolExhausted = errors.New("buffer pool exhausted: all frames are pinned")
	ErrPageNotResident     = errors.New("page is not resident in buffer pool")
	ErrPageAlreadyUnpinned = errors.New("page is already unpinned")
	ErrPagePinned          = errors.New("page is pinned")
	ErrInvalidPoolSize     = errors.New("invalid pool size")
	ErrOutBoundOfFrame     = errors.New("frame idx out of bound")
	ErrUnknownPolicy       = errors.New("unknown replacement policy")

	// slotted page / heap file
	ErrInvalidRID     = errors.New("invalid record id")
	ErrSizeMismatch   = errors.New("record size mismatch")
	ErrRecordTooLarge = errors.New("record too large")
	ErrHeapFileClosed = errors.New("heap file is closed")

	// disk
	ErrDisk                = errors.New("disk error")
	ErrInvalidPageId       = errors.New("invalid page id")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrInvalidInitialPages = errors.New("initial pages must not be negative")
	ErrInvalidAllocation   = errors.New("allocation count must be positive")
	ErrMaxMapSizeExceeded  = errors.New("size exceeds maximum mapping size")
	ErrPageOutOfBounds     = errors.New("page out of bounds")
	ErrPageNotAllocated    = errors.New("page is not allocated")
	ErrFileManagerNil      = errors.New("file manager is nil")
	ErrFileClosed          = errors.New("file manager is closed")
)
