package heap

import (
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/buffer"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

type scanState int

const (
	scanPositioned scanState = iota // current page pinned, cur names the next record
	scanExhausted
	scanClosed
)

// Scan walks the records of a heap file in chain order.
// It holds at most one page pinned, and none once exhausted or closed.
type Scan struct {
	pool    *buffer.BufferPool
	curPage util.PageID
	sp      *page.SlottedPage
	cur     page.RID
	state   scanState
}

func newScan(pool *buffer.BufferPool, head util.PageID) (*Scan, error) {
	s := &Scan{
		pool:    pool,
		curPage: util.InvalidPageID,
		cur:     page.InvalidRID,
		state:   scanExhausted,
	}
	if err := s.seek(head); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scan) HasNext() bool {
	return s.state == scanPositioned
}

// GetNext returns the current record, stores its RID in out when out is
// non-nil, and advances. It returns nil, nil once the scan is exhausted or closed.
func (s *Scan) GetNext(out *page.RID) ([]byte, error) {
	if s.state != scanPositioned {
		return nil, nil
	}

	record, err := s.sp.SelectRecord(s.cur)
	if err != nil {
		return nil, err
	}
	if out != nil {
		*out = s.cur
	}

	if rid, ok := s.sp.NextRecord(s.cur); ok {
		s.cur = rid
		return record, nil
	}

	next := s.sp.NextPage()
	if err := s.release(); err != nil {
		return record, err
	}
	return record, s.seek(next)
}

// Close unpins the current page, if any. Calling it again does nothing.
func (s *Scan) Close() error {
	var err error
	if s.state == scanPositioned {
		err = s.release()
	}
	s.state = scanClosed
	return err
}

// seek pins pages from pageID along the chain until one holds a record.
// Empty pages are unpinned on the way; reaching the end exhausts the scan.
func (s *Scan) seek(pageID util.PageID) error {
	for pageID != util.InvalidPageID {
		p, err := s.pool.Pin(pageID, false)
		if err != nil {
			return err
		}
		sp := page.NewSlottedPage(p)
		if rid, ok := sp.FirstRecord(); ok {
			s.curPage, s.sp, s.cur = pageID, sp, rid
			s.state = scanPositioned
			return nil
		}

		next := sp.NextPage()
		if err := s.pool.Unpin(pageID, false); err != nil {
			return err
		}
		pageID = next
	}
	return nil
}

func (s *Scan) release() error {
	pageID := s.curPage
	s.curPage, s.sp, s.cur = util.InvalidPageID, nil, page.InvalidRID
	s.state = scanExhausted
	return s.pool.Unpin(pageID, false)
}
