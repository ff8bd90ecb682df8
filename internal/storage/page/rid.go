package page

import (
	"fmt"

	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// RID addresses one record: the page holding it and its slot in that page's directory.
type RID struct {
	PageID util.PageID
	SlotNo int
}

// InvalidRID never names a record.
var InvalidRID = RID{PageID: util.InvalidPageID, SlotNo: -1}

func NewRID(pageID util.PageID, slotNo int) RID {
	return RID{PageID: pageID, SlotNo: slotNo}
}

func (r RID) IsValid() bool {
	return r.PageID != util.InvalidPageID && r.SlotNo >= 0
}

func (r RID) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageID, r.SlotNo)
}
