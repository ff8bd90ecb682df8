package file

import (
	"github.com/pkg/errors"

	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// MemoryManager keeps pages in memory and counts every disk operation.
// Fail* fields inject errors so callers' failure paths can be exercised.
type MemoryManager struct {
	pages     map[util.PageID]*page.Page
	allocated []bool

	Reads    int
	Writes   int
	Allocs   int
	Deallocs int

	FailReads  bool
	FailWrites bool
	FailAlloc  bool
}

var _ Filer = (*MemoryManager)(nil)

// ErrInjected is returned by a MemoryManager told to fail.
var ErrInjected = errors.New("injected disk failure")

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{pages: make(map[util.PageID]*page.Page)}
}

func (m *MemoryManager) AllocatePages(count int) (util.PageID, error) {
	if m.FailAlloc {
		return util.InvalidPageID, ErrInjected
	}
	if count <= 0 {
		return util.InvalidPageID, errors.Wrapf(util.ErrInvalidAllocation, "allocate %d pages", count)
	}
	var first util.PageID
	first, m.allocated = reserveRun(m.allocated, count)
	for pid := first; pid < first+util.PageID(count); pid++ {
		m.pages[pid] = &page.Page{}
	}
	m.Allocs++
	return first, nil
}

func (m *MemoryManager) DeallocatePage(pageId util.PageID) error {
	if !m.IsAllocated(pageId) {
		return errors.Wrapf(util.ErrPageNotAllocated, "deallocate page %d", pageId)
	}
	delete(m.pages, pageId)
	m.allocated[pageId] = false
	m.Deallocs++
	return nil
}

func (m *MemoryManager) ReadPage(pageId util.PageID, p *page.Page) error {
	if m.FailReads {
		return ErrInjected
	}
	stored, ok := m.pages[pageId]
	if !ok {
		return errors.Wrapf(util.ErrPageNotAllocated, "read page %d", pageId)
	}
	p.Data = stored.Data
	m.Reads++
	return nil
}

func (m *MemoryManager) WritePage(pageId util.PageID, p *page.Page) error {
	if m.FailWrites {
		return ErrInjected
	}
	stored, ok := m.pages[pageId]
	if !ok {
		return errors.Wrapf(util.ErrPageNotAllocated, "write page %d", pageId)
	}
	stored.Data = p.Data
	m.Writes++
	return nil
}

func (m *MemoryManager) IsAllocated(pageId util.PageID) bool {
	return pageId >= 0 && int(pageId) < len(m.allocated) && m.allocated[pageId]
}

// Stored returns the on-"disk" image of a page, or nil.
func (m *MemoryManager) Stored(pageId util.PageID) *page.Page {
	return m.pages[pageId]
}

// ResetCounters zeroes the I/O counters.
func (m *MemoryManager) ResetCounters() {
	m.Reads, m.Writes, m.Allocs, m.Deallocs = 0, 0, 0, 0
}
