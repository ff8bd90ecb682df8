package file

import (
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// Filer is the disk access contract consumed by the buffer pool.
type Filer interface {
	// AllocatePages reserves count contiguous page numbers and returns the first.
	AllocatePages(count int) (util.PageID, error)
	DeallocatePage(pageId util.PageID) error
	ReadPage(pageId util.PageID, p *page.Page) error
	WritePage(pageId util.PageID, p *page.Page) error
}

// findFreeRun returns the first index of count consecutive unallocated
// entries, or -1 when no such run exists inside allocated.
func findFreeRun(allocated []bool, count int) int {
	run := 0
	for i, used := range allocated {
		if used {
			run = 0
			continue
		}
		run++
		if run == count {
			return i - count + 1
		}
	}
	return -1
}

// reserveRun marks count pages starting at the first free run (or past the
// end) as allocated and returns the first page number with the grown map.
func reserveRun(allocated []bool, count int) (util.PageID, []bool) {
	first := findFreeRun(allocated, count)
	if first == -1 {
		// reuse a free tail before appending
		first = len(allocated)
		for first > 0 && !allocated[first-1] {
			first--
		}
		for len(allocated) < first+count {
			allocated = append(allocated, false)
		}
	}
	for i := first; i < first+count; i++ {
		allocated[i] = true
	}
	return util.PageID(first), allocated
}
