package buffer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/bietkhonhungvandi212/heapstore/internal/logger"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/file"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// BufferPool caches disk pages in a fixed set of frames.
//
// A caller that pins a page owns a reference to the frame's bytes until it
// unpins it. Pinned frames are never evicted. Every public method holds mu
// for its whole duration, so callers may share one pool between goroutines.
type BufferPool struct {
	mu        sync.Mutex
	frames    *frameTable
	pageToIdx pageTable // Map the pageId to index
	replacer  Replacer
	poolSize  int // Total frames
	fm        file.Filer
	scratch   page.Page // staging buffer for disk reads
	counters  counters
}

func NewBufferPool(size int, policy Policy, filer file.Filer) (*BufferPool, error) {
	if size <= 0 {
		return nil, errors.Wrapf(util.ErrInvalidPoolSize, "size %d", size)
	}
	if filer == nil {
		return nil, util.ErrFileManagerNil
	}
	replacer, err := NewReplacer(policy, size)
	if err != nil {
		return nil, err
	}

	return &BufferPool{
		frames:    newFrameTable(size),
		pageToIdx: newPageTable(size),
		replacer:  replacer,
		poolSize:  size,
		fm:        filer,
	}, nil
}

// Pin makes the page resident and increments its pin count.
// With emptyPage set a miss zeroes the frame instead of reading the disk.
func (bp *BufferPool) Pin(pageID util.PageID, emptyPage bool) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.pin(pageID, emptyPage)
}

// Unpin decrements the page's pin count. A true dirty marks the frame
// modified; false never clears an existing mark.
func (bp *BufferPool) Unpin(pageID util.PageID, dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.unpin(pageID, dirty)
}

// NewPages allocates count consecutive pages on disk and pins the first one
// as an empty page. If the pin fails the whole run is given back.
func (bp *BufferPool) NewPages(count int) (util.PageID, *page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	first, err := bp.fm.AllocatePages(count)
	if err != nil {
		return util.InvalidPageID, nil, util.NewDiskError("allocate", util.InvalidPageID, err)
	}

	p, err := bp.pin(first, true)
	if err != nil {
		for pid := first; pid < first+util.PageID(count); pid++ {
			if derr := bp.fm.DeallocatePage(pid); derr != nil {
				logger.Errorf("[pool] [NewPages] release page %d: %v", pid, derr)
			}
		}
		return util.InvalidPageID, nil, err
	}
	return first, p, nil
}

// FreePage removes a page from the pool and deallocates it on disk.
// The caller may hold at most one pin on the page.
func (bp *BufferPool) FreePage(pageID util.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameIdx, ok := bp.pageToIdx.lookup(pageID); ok {
		fd := &bp.frames.descs[frameIdx]
		if fd.pinCount > 1 {
			return errors.Wrapf(util.ErrPagePinned, "free page %d (pin count %d)", pageID, fd.pinCount)
		}
		// flush before dropping the caller's pin: a failed write keeps it
		if err := bp.flush(frameIdx); err != nil {
			return err
		}
		if fd.pinCount == 1 {
			if err := bp.unpin(pageID, false); err != nil {
				return err
			}
		}
		bp.replacer.Remove(frameIdx)
		bp.pageToIdx.remove(pageID)
		bp.frames.returnFrameToFree(frameIdx)
	}

	if err := bp.fm.DeallocatePage(pageID); err != nil {
		return util.NewDiskError("deallocate", pageID, err)
	}
	return nil
}

// FlushPage writes the page back if it is resident and dirty.
func (bp *BufferPool) FlushPage(pageID util.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, ok := bp.pageToIdx.lookup(pageID)
	if !ok {
		return nil
	}
	return bp.flush(frameIdx)
}

// FlushAll writes back every dirty resident page. Pin counts are untouched.
func (bp *BufferPool) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for frameIdx := 0; frameIdx < bp.frames.size(); frameIdx++ {
		if bp.frames.descs[frameIdx].isFree() {
			continue
		}
		if err := bp.flush(frameIdx); err != nil {
			return err
		}
	}
	return nil
}

func (bp *BufferPool) Size() int {
	return bp.poolSize
}

// UnpinnedCount counts frames nobody holds, free frames included.
func (bp *BufferPool) UnpinnedCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.unpinnedCount()
}

// PinCount reports the pin count of a resident page and whether it is resident.
func (bp *BufferPool) PinCount(pageID util.PageID) (int, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, ok := bp.pageToIdx.lookup(pageID)
	if !ok {
		return 0, false
	}
	return int(bp.frames.descs[frameIdx].pinCount), true
}

// IsDirty reports whether a resident page has unflushed modifications.
func (bp *BufferPool) IsDirty(pageID util.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, ok := bp.pageToIdx.lookup(pageID)
	return ok && bp.frames.descs[frameIdx].dirty
}

func (bp *BufferPool) Stats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	s := Stats{
		Frames:     bp.poolSize,
		Unpinned:   bp.unpinnedCount(),
		Resident:   len(bp.pageToIdx),
		Hits:       bp.counters.hits,
		Misses:     bp.counters.misses,
		Evictions:  bp.counters.evictions,
		WriteBacks: bp.counters.writeBacks,
		DiskReads:  bp.counters.diskReads,
	}
	for i := range bp.frames.descs {
		if bp.frames.descs[i].dirty {
			s.Dirty++
		}
	}
	return s
}

// ===================== HELPER FUNCTION =====================
// Helpers below expect mu to be held.

func (bp *BufferPool) pin(pageID util.PageID, emptyPage bool) (*page.Page, error) {
	if pageID < 0 {
		return nil, errors.Wrapf(util.ErrInvalidPageId, "pin page %d", pageID)
	}

	// Case 1: cache hit
	if frameIdx, ok := bp.pageToIdx.lookup(pageID); ok {
		fd := &bp.frames.descs[frameIdx]
		fd.pinCount++
		if fd.pinCount == 1 {
			bp.replacer.OnPin(frameIdx)
		}
		bp.counters.hits++
		return &bp.frames.pages[frameIdx], nil
	}

	// Case 2: miss. Pick a frame without committing to it yet.
	frameIdx, fromFree, err := bp.chooseFrame()
	if err != nil {
		return nil, errors.Wrapf(err, "pin page %d", pageID)
	}

	if !emptyPage {
		if err := bp.fm.ReadPage(pageID, &bp.scratch); err != nil {
			return nil, util.NewDiskError("read", pageID, err)
		}
	}

	fd := &bp.frames.descs[frameIdx]
	if !fromFree {
		victim := fd.pageID
		if fd.dirty {
			if err := bp.fm.WritePage(victim, &bp.frames.pages[frameIdx]); err != nil {
				return nil, util.NewDiskError("write back", victim, err)
			}
			fd.dirty = false
			bp.counters.writeBacks++
			logger.Debugf("[pool] wrote back dirty page %d from frame %d", victim, frameIdx)
		}
		bp.replacer.Remove(frameIdx)
		bp.pageToIdx.remove(victim)
		bp.counters.evictions++
		logger.Debugf("[pool] evicted page %d from frame %d for page %d", victim, frameIdx, pageID)
	} else {
		bp.frames.allocFromFree()
	}

	// Commit: nothing below can fail.
	if emptyPage {
		bp.frames.pages[frameIdx].Reset()
	} else {
		bp.frames.pages[frameIdx].Data = bp.scratch.Data
		bp.counters.diskReads++
	}
	fd.pageID = pageID
	fd.pinCount = 1
	fd.dirty = false
	bp.pageToIdx.insert(pageID, frameIdx)
	bp.counters.misses++
	logger.Debugf("[pool] page %d loaded into frame %d", pageID, frameIdx)

	return &bp.frames.pages[frameIdx], nil
}

// chooseFrame prefers a free frame and falls back to the replacer's victim.
func (bp *BufferPool) chooseFrame() (int, bool, error) {
	if freeIdx := bp.frames.peekFree(); freeIdx != -1 {
		return freeIdx, true, nil
	}
	victim, err := bp.replacer.Victim()
	if err != nil {
		return -1, false, err
	}
	if bp.frames.descs[victim].pinCount != 0 {
		panic("[pool] replacer offered a pinned frame")
	}
	return victim, false, nil
}

func (bp *BufferPool) unpin(pageID util.PageID, dirty bool) error {
	frameIdx, ok := bp.pageToIdx.lookup(pageID)
	if !ok {
		return errors.Wrapf(util.ErrPageNotResident, "unpin page %d", pageID)
	}
	fd := &bp.frames.descs[frameIdx]
	if fd.pinCount == 0 {
		return errors.Wrapf(util.ErrPageAlreadyUnpinned, "unpin page %d", pageID)
	}

	fd.pinCount--
	if dirty {
		fd.dirty = true
	}
	if fd.pinCount == 0 {
		bp.replacer.OnUnpin(frameIdx)
	}
	return nil
}

func (bp *BufferPool) flush(frameIdx int) error {
	fd := &bp.frames.descs[frameIdx]
	if !fd.dirty {
		return nil
	}
	if err := bp.fm.WritePage(fd.pageID, &bp.frames.pages[frameIdx]); err != nil {
		return util.NewDiskError("flush", fd.pageID, err)
	}
	fd.dirty = false
	bp.counters.writeBacks++
	return nil
}

func (bp *BufferPool) unpinnedCount() int {
	n := 0
	for i := range bp.frames.descs {
		if bp.frames.descs[i].pinCount == 0 {
			n++
		}
	}
	return n
}
