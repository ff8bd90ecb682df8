package buffer

import (
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// frameDesc is the metadata of one buffer frame.
type frameDesc struct {
	pageID   util.PageID // InvalidPageID while the frame is free
	pinCount int32
	dirty    bool
}

func (fd *frameDesc) isFree() bool {
	return fd.pageID == util.InvalidPageID
}

func (fd *frameDesc) reset() {
	fd.pageID = util.InvalidPageID
	fd.pinCount = 0
	fd.dirty = false
}

// frameTable owns the page images and their descriptors. Frames never die:
// they are free, or hold a page, and are repurposed on eviction.
type frameTable struct {
	pages    []page.Page // Holds page.Page (1KB)
	descs    []frameDesc
	nextFree []int // Free list for allocation
	freeHead int   // Head of free list
}

func newFrameTable(size int) *frameTable {
	ft := &frameTable{
		pages:    make([]page.Page, size),
		descs:    make([]frameDesc, size),
		nextFree: make([]int, size),
		freeHead: 0,
	}
	for i := 0; i < size; i++ {
		ft.descs[i].reset()
		ft.nextFree[i] = i + 1
	}
	ft.nextFree[size-1] = -1
	return ft
}

func (ft *frameTable) size() int {
	return len(ft.descs)
}

// peekFree returns the next free frame without taking it, or -1.
func (ft *frameTable) peekFree() int {
	return ft.freeHead
}

// allocFromFree allocates a free frame index.
func (ft *frameTable) allocFromFree() int {
	if ft.freeHead == -1 {
		return -1
	}
	freeIdx := ft.freeHead
	ft.freeHead = ft.nextFree[freeIdx]
	ft.nextFree[freeIdx] = -1
	return freeIdx
}

// returnFrameToFree returns a frame to the free list.
func (ft *frameTable) returnFrameToFree(frameIdx int) {
	ft.descs[frameIdx].reset()
	ft.nextFree[frameIdx] = ft.freeHead
	ft.freeHead = frameIdx
}
