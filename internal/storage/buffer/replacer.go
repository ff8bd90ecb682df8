package buffer

import (
	"strings"

	"github.com/pkg/errors"

	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// Policy names a replacement strategy. New strategies are added as variants
// here and in NewReplacer; the pool's control flow does not change.
type Policy int

const (
	PolicyFIFO Policy = iota
)

func (p Policy) String() string {
	switch p {
	case PolicyFIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configured policy name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fifo", "":
		return PolicyFIFO, nil
	default:
		return 0, errors.Wrapf(util.ErrUnknownPolicy, "%q", name)
	}
}

// Replacer tracks the frames that may be evicted.
// The buffer pool is its only caller and serialises every call.
type Replacer interface {
	// OnUnpin makes a frame whose pin count dropped to zero a candidate.
	OnUnpin(frameIdx int)
	// OnPin withdraws a frame whose pin count rose from zero.
	OnPin(frameIdx int)
	// Remove forgets a frame that is being evicted or freed.
	Remove(frameIdx int)
	// Victim returns the next frame to evict without removing it.
	Victim() (int, error)
	// Len is the number of candidates.
	Len() int
}

func NewReplacer(policy Policy, size int) (Replacer, error) {
	if size <= 0 {
		return nil, util.ErrInvalidPoolSize
	}
	switch policy {
	case PolicyFIFO:
		return NewFIFOReplacer(size), nil
	default:
		return nil, errors.Wrapf(util.ErrUnknownPolicy, "policy %d", int(policy))
	}
}
