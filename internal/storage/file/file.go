package file

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/bietkhonhungvandi212/heapstore/internal/logger"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

/**
* FileManager reads and writes pages of a single data file.
* The file is mapped to memory; each page occupies a DISK_SLOT: the page image
* followed by its xxhash64 checksum. A slot whose checksum is zero has never
* been allocated or was deallocated, which lets the allocation map be rebuilt
* on open.
**/
type FileManager struct {
	File      *os.File
	Data      []byte
	Size      int64
	allocated []bool
}

var _ Filer = (*FileManager)(nil)

func NewFileManager(path string, initialPages int) (*FileManager, error) {
	if initialPages < 0 {
		return nil, util.ErrInvalidInitialPages
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	existing := info.Size() / page.DISK_SLOT
	size := max(existing, int64(initialPages), 1) * page.DISK_SLOT

	fm := &FileManager{File: f}
	if err := mmap(fm, size); err != nil {
		f.Close()
		return nil, fmt.Errorf("map file fail: %w", err)
	}

	fm.loadAllocationMap(int(existing))
	logger.Debugf("[file] opened %s: %d slots, %d allocated", path, existing, fm.AllocatedCount())
	return fm, nil
}

func (fm *FileManager) loadAllocationMap(slots int) {
	fm.allocated = make([]bool, slots)
	last := 0
	for i := 0; i < slots; i++ {
		off := int64(i)*page.DISK_SLOT + util.PageSize
		fm.allocated[i] = binary.LittleEndian.Uint64(fm.Data[off:off+page.CHECKSUM_SIZE]) != 0
		if fm.allocated[i] {
			last = i + 1
		}
	}
	// trailing unallocated slots are spare capacity
	fm.allocated = fm.allocated[:last]
}

/* ALLOCATION */
func (fm *FileManager) AllocatePages(count int) (util.PageID, error) {
	if fm.Data == nil {
		return util.InvalidPageID, util.ErrFileClosed
	}
	if count <= 0 {
		return util.InvalidPageID, errors.Wrapf(util.ErrInvalidAllocation, "allocate %d pages", count)
	}

	first, allocated := reserveRun(append([]bool(nil), fm.allocated...), count)
	if err := fm.ensureCapacity(len(allocated)); err != nil {
		return util.InvalidPageID, errors.Wrapf(err, "allocate %d pages", count)
	}
	fm.allocated = allocated

	// every allocated slot carries a valid checksum of its (zero) image
	var empty page.Page
	for pid := first; pid < first+util.PageID(count); pid++ {
		empty.Serialize(fm.slot(pid))
	}
	return first, nil
}

func (fm *FileManager) DeallocatePage(pageId util.PageID) error {
	if err := fm.checkAllocated(pageId); err != nil {
		return errors.Wrap(err, "deallocate")
	}
	clear(fm.slot(pageId))
	fm.allocated[pageId] = false
	return nil
}

// When read from disk -> Deserialize the slot into p
/* READ FILE */
func (fm *FileManager) ReadPage(pageId util.PageID, p *page.Page) error {
	if err := fm.checkAllocated(pageId); err != nil {
		return errors.Wrap(err, "read")
	}
	if err := page.Deserialize(fm.slot(pageId), p); err != nil {
		return errors.Wrapf(err, "deserialize page %d", pageId)
	}
	return nil
}

// When write to disk -> Serialize p with its checksum into the page's slot
/* WRITE FILE */
func (fm *FileManager) WritePage(pageId util.PageID, p *page.Page) error {
	if err := fm.checkAllocated(pageId); err != nil {
		return errors.Wrap(err, "write")
	}
	p.Serialize(fm.slot(pageId))
	return nil
}

// NumPages is the high-water mark of page numbers handed out.
func (fm *FileManager) NumPages() int {
	return len(fm.allocated)
}

func (fm *FileManager) AllocatedCount() int {
	n := 0
	for _, used := range fm.allocated {
		if used {
			n++
		}
	}
	return n
}

func (fm *FileManager) IsAllocated(pageId util.PageID) bool {
	return pageId >= 0 && int(pageId) < len(fm.allocated) && fm.allocated[pageId]
}

/**
* CLOSE FUNCTION
**/
func (fm *FileManager) Close() error {
	if fm == nil || fm.File == nil {
		return nil // Idempotent
	}
	var err error
	if e := munmap(fm); e != nil {
		err = stderrors.Join(err, fmt.Errorf("[close] unmap file fail: %w", e))
	}
	if e := fm.File.Sync(); e != nil {
		err = stderrors.Join(err, fmt.Errorf("sync file: %w", e))
	}
	if e := fm.File.Close(); e != nil {
		err = stderrors.Join(err, fmt.Errorf("close file: %w", e))
	}
	fm.File = nil
	return err
}

// ===================== HELPER FUNCTION =====================
func (fm *FileManager) slot(pageId util.PageID) []byte {
	off := int64(pageId) * page.DISK_SLOT
	return fm.Data[off : off+page.DISK_SLOT]
}

func (fm *FileManager) checkAllocated(pageId util.PageID) error {
	if fm.Data == nil {
		return util.ErrFileClosed
	}
	if pageId < 0 || int(pageId) >= len(fm.allocated) {
		return errors.Wrapf(util.ErrPageOutOfBounds, "page %d", pageId)
	}
	if !fm.allocated[pageId] {
		return errors.Wrapf(util.ErrPageNotAllocated, "page %d", pageId)
	}
	return nil
}

func (fm *FileManager) ensureCapacity(slots int) error {
	need := int64(slots) * page.DISK_SLOT
	if need <= fm.Size {
		return nil
	}
	newSize := max(fm.Size*2, need)
	if newSize > util.MaxMapSize {
		if need > util.MaxMapSize {
			return util.ErrMaxMapSizeExceeded
		}
		newSize = need
	}

	if err := munmap(fm); err != nil {
		return fmt.Errorf("[ensureCapacity] unmap file fail: %w", err)
	}
	if err := mmap(fm, newSize); err != nil {
		return fmt.Errorf("[ensureCapacity] map file fail: %w", err)
	}
	logger.Debugf("[file] remapped to %d bytes", newSize)
	return nil
}
