package heap

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/bietkhonhungvandi212/heapstore/internal/logger"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/buffer"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// HeapFile is an unordered collection of records stored on a doubly linked
// chain of slotted pages. Every page access goes through the buffer pool and
// is released before the method returns.
//
// A HeapFile is not safe for concurrent use; its scans share its pool.
type HeapFile struct {
	name        string
	pool        *buffer.BufferPool
	head        util.PageID
	tail        util.PageID
	pages       []util.PageID       // chain order, head first
	freeSpace   map[util.PageID]int // free bytes per page
	recordCount int
	closed      bool
}

// NewHeapFile creates an empty heap file. An empty name makes it temporary:
// Close deletes its pages.
func NewHeapFile(name string, pool *buffer.BufferPool) *HeapFile {
	return &HeapFile{
		name:      name,
		pool:      pool,
		head:      util.InvalidPageID,
		tail:      util.InvalidPageID,
		freeSpace: make(map[util.PageID]int),
	}
}

func (hf *HeapFile) Name() string      { return hf.name }
func (hf *HeapFile) IsTemporary() bool { return hf.name == "" }
func (hf *HeapFile) PageCount() int    { return len(hf.pages) }
func (hf *HeapFile) HeadPage() util.PageID {
	return hf.head
}
func (hf *HeapFile) TailPage() util.PageID {
	return hf.tail
}

// RecordCount is maintained by insert and delete, never recomputed.
func (hf *HeapFile) RecordCount() int {
	return hf.recordCount
}

// FreeSpace reports the tracked free bytes of a page in this file.
func (hf *HeapFile) FreeSpace(pageID util.PageID) (int, bool) {
	free, ok := hf.freeSpace[pageID]
	return free, ok
}

func (hf *HeapFile) String() string {
	name := hf.name
	if hf.IsTemporary() {
		name = "<temporary>"
	}
	return fmt.Sprintf("HeapFile{name: %s, pages: %d, records: %d, head: %d, tail: %d}",
		name, len(hf.pages), hf.recordCount, hf.head, hf.tail)
}

// InsertRecord stores record on the first page with room for it, appending
// a page to the chain when none has.
func (hf *HeapFile) InsertRecord(record []byte) (page.RID, error) {
	if hf.closed {
		return page.InvalidRID, util.ErrHeapFileClosed
	}
	if len(record) > page.MAX_RECORD_SIZE {
		return page.InvalidRID, errors.Wrapf(util.ErrRecordTooLarge, "%d bytes, at most %d fit on a page", len(record), page.MAX_RECORD_SIZE)
	}

	pageID := hf.findPage(len(record) + page.SLOT_SIZE)

	var p *page.Page
	var err error
	if pageID == util.InvalidPageID {
		pageID, p, err = hf.appendPage()
	} else {
		p, err = hf.pool.Pin(pageID, false)
	}
	if err != nil {
		return page.InvalidRID, err
	}

	sp := page.NewSlottedPage(p)
	rid, ok := sp.InsertRecord(record)
	if !ok {
		// the free-space map disagrees with the page header
		if uerr := hf.pool.Unpin(pageID, false); uerr != nil {
			logger.Errorf("[heap] [InsertRecord] unpin page %d: %v", pageID, uerr)
		}
		return page.InvalidRID, errors.Errorf("heap: page %d rejected %d bytes with %d free", pageID, len(record), sp.FreeSpace())
	}
	hf.freeSpace[pageID] = sp.FreeSpace()
	hf.recordCount++

	if err := hf.pool.Unpin(pageID, true); err != nil {
		return page.InvalidRID, err
	}
	return rid, nil
}

// GetRecord returns a copy of the record.
func (hf *HeapFile) GetRecord(rid page.RID) ([]byte, error) {
	sp, err := hf.pinRecordPage(rid)
	if err != nil {
		return nil, err
	}

	record, err := sp.SelectRecord(rid)
	if uerr := hf.pool.Unpin(rid.PageID, false); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateRecord overwrites a record in place. The new bytes must have the
// same length as the old ones.
func (hf *HeapFile) UpdateRecord(rid page.RID, record []byte) error {
	sp, err := hf.pinRecordPage(rid)
	if err != nil {
		return err
	}

	err = sp.UpdateRecord(rid, record)
	if uerr := hf.pool.Unpin(rid.PageID, err == nil); err == nil {
		err = uerr
	}
	return err
}

func (hf *HeapFile) DeleteRecord(rid page.RID) error {
	sp, err := hf.pinRecordPage(rid)
	if err != nil {
		return err
	}

	if err := sp.DeleteRecord(rid); err != nil {
		if uerr := hf.pool.Unpin(rid.PageID, false); uerr != nil {
			logger.Errorf("[heap] [DeleteRecord] unpin page %d: %v", rid.PageID, uerr)
		}
		return err
	}
	hf.freeSpace[rid.PageID] = sp.FreeSpace()
	hf.recordCount--

	return hf.pool.Unpin(rid.PageID, true)
}

// OpenScan starts a scan at the head of the chain. The scan must be closed.
func (hf *HeapFile) OpenScan() (*Scan, error) {
	if hf.closed {
		return nil, util.ErrHeapFileClosed
	}
	return newScan(hf.pool, hf.head)
}

// DeleteFile releases every page of the file and leaves it empty.
// It fails with ErrPagePinned, releasing nothing, while any page of the file
// is pinned, for instance by an open scan.
func (hf *HeapFile) DeleteFile() error {
	for _, pageID := range hf.pages {
		if count, _ := hf.pool.PinCount(pageID); count > 0 {
			return errors.Wrapf(util.ErrPagePinned, "delete heap file %q: page %d has %d pins", hf.name, pageID, count)
		}
	}

	for len(hf.pages) > 0 {
		pageID := hf.pages[0]
		if err := hf.pool.FreePage(pageID); err != nil {
			return errors.Wrapf(err, "delete heap file %q", hf.name)
		}
		hf.pages = hf.pages[1:]
		delete(hf.freeSpace, pageID)
		logger.Debugf("[heap] freed page %d", pageID)
	}

	hf.pages = nil
	hf.head = util.InvalidPageID
	hf.tail = util.InvalidPageID
	hf.recordCount = 0
	return nil
}

// Close deletes a temporary file. A failed delete leaves the file open so
// Close can be retried; after a successful Close it does nothing.
func (hf *HeapFile) Close() error {
	if hf.closed {
		return nil
	}
	if hf.IsTemporary() {
		if err := hf.DeleteFile(); err != nil {
			return err
		}
	}
	hf.closed = true
	return nil
}

// ===================== HELPER FUNCTION =====================

// findPage returns the first page in chain order with at least need bytes free.
func (hf *HeapFile) findPage(need int) util.PageID {
	for _, pageID := range hf.pages {
		if hf.freeSpace[pageID] >= need {
			return pageID
		}
	}
	return util.InvalidPageID
}

// appendPage allocates a page, links it after the current tail and returns
// it pinned. Both link updates happen while both pages are pinned.
func (hf *HeapFile) appendPage() (util.PageID, *page.Page, error) {
	pageID, p, err := hf.pool.NewPages(1)
	if err != nil {
		return util.InvalidPageID, nil, err
	}

	sp := page.NewSlottedPage(p)
	sp.InitDefaults()
	sp.SetType(page.TypeHeapData)
	sp.SetCurPage(pageID)

	if hf.tail != util.InvalidPageID {
		tailPage, err := hf.pool.Pin(hf.tail, false)
		if err != nil {
			if ferr := hf.pool.FreePage(pageID); ferr != nil {
				logger.Errorf("[heap] [appendPage] release page %d: %v", pageID, ferr)
			}
			return util.InvalidPageID, nil, err
		}
		page.NewSlottedPage(tailPage).SetNextPage(pageID)
		sp.SetPrevPage(hf.tail)
		if err := hf.pool.Unpin(hf.tail, true); err != nil {
			return util.InvalidPageID, nil, err
		}
	} else {
		hf.head = pageID
	}

	hf.tail = pageID
	hf.pages = append(hf.pages, pageID)
	hf.freeSpace[pageID] = sp.FreeSpace()
	logger.Debugf("[heap] appended page %d (prev %d)", pageID, sp.PrevPage())

	return pageID, p, nil
}

func (hf *HeapFile) pinRecordPage(rid page.RID) (*page.SlottedPage, error) {
	if hf.closed {
		return nil, util.ErrHeapFileClosed
	}
	if _, ok := hf.freeSpace[rid.PageID]; !ok {
		return nil, errors.Wrapf(util.ErrInvalidRID, "rid %s is not in this file", rid)
	}
	p, err := hf.pool.Pin(rid.PageID, false)
	if err != nil {
		return nil, err
	}
	return page.NewSlottedPage(p), nil
}
