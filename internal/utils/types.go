package util

import (
	"fmt"
)

// PageID represents a unique page identifier
type PageID int32

// InvalidPageID marks "no page" in frames, chain links and RIDs.
const InvalidPageID PageID = -1

// PageSize represents the standard page size (1KB)
const PageSize = 1024

// MaxMapSize bounds the memory mapping of a data file (1GB).
const MaxMapSize = 1 << 30

// DatabaseError attaches the failing operation and page to an error kind.
// Both the kind and the underlying cause are reachable through errors.Is.
type DatabaseError struct {
	Kind   error
	Op     string
	PageID PageID
	Cause  error
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("HeapStore Error [%v]: %s page %d (caused by: %v)", e.Kind, e.Op, e.PageID, e.Cause)
	}
	return fmt.Sprintf("HeapStore Error [%v]: %s page %d", e.Kind, e.Op, e.PageID)
}

func (e *DatabaseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(kind error, op string, pageID PageID, cause error) *DatabaseError {
	return &DatabaseError{
		Kind:   kind,
		Op:     op,
		PageID: pageID,
		Cause:  cause,
	}
}

// NewDiskError wraps a disk access failure.
func NewDiskError(op string, pageID PageID, cause error) *DatabaseError {
	return NewDatabaseError(ErrDisk, op, pageID, cause)
}

// Options represents database configuration options
type Options struct {
	Path           string
	InitialPages   int
	BufferPoolSize int
	Policy         string
	LogLevel       string
	InfoLogPath    string
	ErrorLogPath   string
}

// DefaultOptions returns default database options
func DefaultOptions() Options {
	return Options{
		Path:           "heapstore.db",
		InitialPages:   8,
		BufferPoolSize: 64, // 64KB default buffer pool
		Policy:         "fifo",
		LogLevel:       "info",
	}
}
