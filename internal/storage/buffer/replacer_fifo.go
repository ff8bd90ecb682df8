package buffer

import (
	"github.com/pkg/errors"

	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// FIFOReplacer evicts frames in the order they became unpinned.
// A frame re-pinned and unpinned again rejoins at the tail.
// The queue is an index-linked list over frame numbers, so every operation is O(1).
type FIFOReplacer struct {
	nextIdx  []int
	prevIdx  []int
	inQueue  []bool
	head     int // evict first
	tail     int // most recently unpinned
	count    int
	poolSize int
}

func NewFIFOReplacer(size int) *FIFOReplacer {
	if size <= 0 {
		panic(util.ErrInvalidPoolSize)
	}

	fr := &FIFOReplacer{
		nextIdx:  make([]int, size),
		prevIdx:  make([]int, size),
		inQueue:  make([]bool, size),
		head:     -1,
		tail:     -1,
		poolSize: size,
	}
	for i := 0; i < size; i++ {
		fr.nextIdx[i] = -1
		fr.prevIdx[i] = -1
	}
	return fr
}

func (fr *FIFOReplacer) OnUnpin(frameIdx int) {
	fr.checkIdx(frameIdx)
	if fr.inQueue[frameIdx] {
		return
	}
	fr.addToTail(frameIdx)
}

func (fr *FIFOReplacer) OnPin(frameIdx int) {
	fr.Remove(frameIdx)
}

func (fr *FIFOReplacer) Remove(frameIdx int) {
	fr.checkIdx(frameIdx)
	if !fr.inQueue[frameIdx] {
		return
	}
	fr.removeByIndex(frameIdx)
}

func (fr *FIFOReplacer) Victim() (int, error) {
	if fr.head == -1 {
		return -1, util.ErrBufferPoolExhausted
	}
	return fr.head, nil
}

func (fr *FIFOReplacer) Len() int {
	return fr.count
}

// Order lists queued frames from head to tail.
func (fr *FIFOReplacer) Order() []int {
	order := make([]int, 0, fr.count)
	for idx := fr.head; idx != -1; idx = fr.nextIdx[idx] {
		order = append(order, idx)
	}
	return order
}

// ===================== HELPER FUNCTION =====================
func (fr *FIFOReplacer) checkIdx(frameIdx int) {
	if frameIdx >= fr.poolSize || frameIdx < 0 {
		panic(errors.Wrapf(util.ErrOutBoundOfFrame, "[fifo] frame %d", frameIdx))
	}
}

func (fr *FIFOReplacer) addToTail(frameIdx int) {
	tmp := fr.tail
	fr.tail = frameIdx
	fr.prevIdx[frameIdx] = tmp
	fr.nextIdx[frameIdx] = -1

	if tmp != -1 {
		fr.nextIdx[tmp] = frameIdx
	}

	if fr.head == -1 {
		fr.head = frameIdx
	}
	fr.inQueue[frameIdx] = true
	fr.count++
}

func (fr *FIFOReplacer) removeByIndex(frameIdx int) {
	prev := fr.prevIdx[frameIdx]
	next := fr.nextIdx[frameIdx]
	isHead := (prev == -1)
	isTail := (next == -1)

	switch {
	case isHead && isTail:
		// Case 1: Single node (both head and tail)
		fr.head = -1
		fr.tail = -1
	case isHead && !isTail:
		// Case 2: Head node (has next, no prev)
		fr.head = next
		fr.prevIdx[next] = -1
	case !isHead && isTail:
		// Case 3: Tail node (has prev, no next)
		fr.tail = prev
		fr.nextIdx[prev] = -1
	default:
		// Case 4: Middle node (has both prev and next)
		fr.nextIdx[prev] = next
		fr.prevIdx[next] = prev
	}

	// Clear the removed node's links
	fr.nextIdx[frameIdx] = -1
	fr.prevIdx[frameIdx] = -1
	fr.inQueue[frameIdx] = false
	fr.count--
}
