package buffer

import util "github.com/bietkhonhungvandi212/heapstore/internal/utils"

// pageTable maps resident page numbers to frame indexes.
type pageTable map[util.PageID]int

func newPageTable(size int) pageTable {
	return make(pageTable, size)
}

func (pt pageTable) lookup(pageID util.PageID) (int, bool) {
	idx, ok := pt[pageID]
	return idx, ok
}

func (pt pageTable) insert(pageID util.PageID, frameIdx int) {
	pt[pageID] = frameIdx
}

func (pt pageTable) remove(pageID util.PageID) {
	delete(pt, pageID)
}
