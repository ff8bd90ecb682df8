package page

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// Slotted page layout (big-endian):
//
//	| slotCnt(2) | usedPtr(2) | freeSpace(2) | type(2) | prev(4) | next(4) | cur(4) | slot 0 (len 2, off 2) | ... free ... | records |
//
// Records grow down from the end of the page toward the slot directory.
const (
	OFFSET_SLOT_CNT   = 0
	OFFSET_USED_PTR   = 2
	OFFSET_FREE_SPACE = 4
	OFFSET_PAGE_TYPE  = 6
	OFFSET_PREV_PAGE  = 8
	OFFSET_NEXT_PAGE  = 12
	OFFSET_CUR_PAGE   = 16

	HEADER_SIZE = 20
	SLOT_SIZE   = 4

	// MAX_RECORD_SIZE is the largest record an empty page can hold.
	MAX_RECORD_SIZE = util.PageSize - HEADER_SIZE - SLOT_SIZE

	// EMPTY_SLOT is the length of a tombstoned slot.
	EMPTY_SLOT int16 = -1
)

const (
	TypeEmpty    int16 = 0
	TypeHeapData int16 = 1
)

// SlottedPage interprets a page image as a slot directory plus variable-length records.
// It is only valid while the underlying page stays pinned.
type SlottedPage struct {
	Data []byte
}

func NewSlottedPage(p *Page) *SlottedPage {
	return &SlottedPage{Data: p.Data[:]}
}

// InitDefaults resets the header to an empty, unlinked page.
func (sp *SlottedPage) InitDefaults() {
	sp.setShort(OFFSET_SLOT_CNT, 0)
	sp.setShort(OFFSET_USED_PTR, util.PageSize)
	sp.setShort(OFFSET_FREE_SPACE, util.PageSize-HEADER_SIZE)
	sp.setShort(OFFSET_PAGE_TYPE, TypeEmpty)
	sp.setInt(OFFSET_PREV_PAGE, int32(util.InvalidPageID))
	sp.setInt(OFFSET_NEXT_PAGE, int32(util.InvalidPageID))
	sp.setInt(OFFSET_CUR_PAGE, int32(util.InvalidPageID))
}

/* HEADER ACCESSORS */
func (sp *SlottedPage) SlotCount() int {
	return int(sp.getShort(OFFSET_SLOT_CNT))
}

func (sp *SlottedPage) UsedOffset() int {
	return int(uint16(sp.getShort(OFFSET_USED_PTR)))
}

func (sp *SlottedPage) FreeSpace() int {
	return int(sp.getShort(OFFSET_FREE_SPACE))
}

func (sp *SlottedPage) Type() int16 {
	return sp.getShort(OFFSET_PAGE_TYPE)
}

func (sp *SlottedPage) SetType(t int16) {
	sp.setShort(OFFSET_PAGE_TYPE, t)
}

func (sp *SlottedPage) PrevPage() util.PageID {
	return util.PageID(sp.getInt(OFFSET_PREV_PAGE))
}

func (sp *SlottedPage) SetPrevPage(id util.PageID) {
	sp.setInt(OFFSET_PREV_PAGE, int32(id))
}

func (sp *SlottedPage) NextPage() util.PageID {
	return util.PageID(sp.getInt(OFFSET_NEXT_PAGE))
}

func (sp *SlottedPage) SetNextPage(id util.PageID) {
	sp.setInt(OFFSET_NEXT_PAGE, int32(id))
}

func (sp *SlottedPage) CurPage() util.PageID {
	return util.PageID(sp.getInt(OFFSET_CUR_PAGE))
}

func (sp *SlottedPage) SetCurPage(id util.PageID) {
	sp.setInt(OFFSET_CUR_PAGE, int32(id))
}

/* SLOT DIRECTORY */
func (sp *SlottedPage) SlotLength(slotNo int) int16 {
	return sp.getShort(slotPos(slotNo))
}

func (sp *SlottedPage) SlotOffset(slotNo int) int {
	return int(uint16(sp.getShort(slotPos(slotNo) + 2)))
}

func (sp *SlottedPage) setSlot(slotNo int, length int16, offset int) {
	sp.setShort(slotPos(slotNo), length)
	sp.setShort(slotPos(slotNo)+2, int16(offset))
}

// RecordCount counts occupied slots.
func (sp *SlottedPage) RecordCount() int {
	n := 0
	for i := 0; i < sp.SlotCount(); i++ {
		if sp.SlotLength(i) != EMPTY_SLOT {
			n++
		}
	}
	return n
}

/* RECORD OPERATIONS */

// InsertRecord copies record below the used offset. It returns false, leaving
// the page untouched, when the record plus one slot entry does not fit.
func (sp *SlottedPage) InsertRecord(record []byte) (RID, bool) {
	recLen := len(record)
	freeSpace := sp.FreeSpace()
	if recLen+SLOT_SIZE > freeSpace {
		return InvalidRID, false
	}

	slotCnt := sp.SlotCount()
	slotNo := 0
	for slotNo < slotCnt && sp.SlotLength(slotNo) != EMPTY_SLOT {
		slotNo++
	}

	if slotNo == slotCnt {
		freeSpace -= recLen + SLOT_SIZE
		sp.setShort(OFFSET_SLOT_CNT, int16(slotCnt+1))
	} else {
		freeSpace -= recLen
	}
	sp.setShort(OFFSET_FREE_SPACE, int16(freeSpace))

	usedPtr := sp.UsedOffset() - recLen
	sp.setShort(OFFSET_USED_PTR, int16(usedPtr))
	sp.setSlot(slotNo, int16(recLen), usedPtr)
	copy(sp.Data[usedPtr:usedPtr+recLen], record)

	return NewRID(sp.CurPage(), slotNo), true
}

// SelectRecord returns a copy of the record bytes.
func (sp *SlottedPage) SelectRecord(rid RID) ([]byte, error) {
	length, err := sp.checkRID(rid)
	if err != nil {
		return nil, err
	}
	offset := sp.SlotOffset(rid.SlotNo)
	record := make([]byte, length)
	copy(record, sp.Data[offset:offset+length])
	return record, nil
}

// UpdateRecord overwrites a record in place; the length must not change.
func (sp *SlottedPage) UpdateRecord(rid RID, record []byte) error {
	length, err := sp.checkRID(rid)
	if err != nil {
		return err
	}
	if len(record) != length {
		return errors.Wrapf(util.ErrSizeMismatch, "slot %d holds %d bytes, got %d", rid.SlotNo, length, len(record))
	}
	offset := sp.SlotOffset(rid.SlotNo)
	copy(sp.Data[offset:offset+length], record)
	return nil
}

// DeleteRecord compacts the record area and tombstones the slot. The slot
// directory never shrinks so the remaining slot numbers stay valid.
func (sp *SlottedPage) DeleteRecord(rid RID) error {
	length, err := sp.checkRID(rid)
	if err != nil {
		return err
	}
	offset := sp.SlotOffset(rid.SlotNo)
	usedPtr := sp.UsedOffset()

	// shift everything stored below the victim up by its length
	copy(sp.Data[usedPtr+length:offset+length], sp.Data[usedPtr:offset])

	for i := 0; i < sp.SlotCount(); i++ {
		if i == rid.SlotNo || sp.SlotLength(i) == EMPTY_SLOT {
			continue
		}
		if off := sp.SlotOffset(i); off < offset {
			sp.setSlot(i, sp.SlotLength(i), off+length)
		}
	}

	sp.setShort(OFFSET_USED_PTR, int16(usedPtr+length))
	sp.setShort(OFFSET_FREE_SPACE, int16(sp.FreeSpace()+length))
	sp.setSlot(rid.SlotNo, EMPTY_SLOT, 0)
	return nil
}

// FirstRecord returns the first occupied slot.
func (sp *SlottedPage) FirstRecord() (RID, bool) {
	return sp.scanFrom(0)
}

// NextRecord returns the first occupied slot after rid.
func (sp *SlottedPage) NextRecord(rid RID) (RID, bool) {
	if rid.PageID != sp.CurPage() || rid.SlotNo < 0 {
		return InvalidRID, false
	}
	return sp.scanFrom(rid.SlotNo + 1)
}

func (sp *SlottedPage) scanFrom(slotNo int) (RID, bool) {
	for i := slotNo; i < sp.SlotCount(); i++ {
		if sp.SlotLength(i) != EMPTY_SLOT {
			return NewRID(sp.CurPage(), i), true
		}
	}
	return InvalidRID, false
}

// Dump writes the header and slot directory to w.
func (sp *SlottedPage) Dump(w io.Writer) {
	fmt.Fprintf(w, "SlottedPage cur=%d prev=%d next=%d type=%d slots=%d used=%d free=%d\n",
		sp.CurPage(), sp.PrevPage(), sp.NextPage(), sp.Type(), sp.SlotCount(), sp.UsedOffset(), sp.FreeSpace())
	for i := 0; i < sp.SlotCount(); i++ {
		fmt.Fprintf(w, "  slot %d: len=%d off=%d\n", i, sp.SlotLength(i), sp.SlotOffset(i))
	}
}

// ===================== HELPER FUNCTION =====================
func (sp *SlottedPage) checkRID(rid RID) (int, error) {
	if rid.PageID != sp.CurPage() {
		return 0, errors.Wrapf(util.ErrInvalidRID, "rid %s is not on page %d", rid, sp.CurPage())
	}
	if rid.SlotNo < 0 || rid.SlotNo >= sp.SlotCount() {
		return 0, errors.Wrapf(util.ErrInvalidRID, "rid %s: slot out of range [0,%d)", rid, sp.SlotCount())
	}
	length := sp.SlotLength(rid.SlotNo)
	if length == EMPTY_SLOT {
		return 0, errors.Wrapf(util.ErrInvalidRID, "rid %s: slot is empty", rid)
	}
	return int(length), nil
}

func slotPos(slotNo int) int {
	return HEADER_SIZE + slotNo*SLOT_SIZE
}

func (sp *SlottedPage) getShort(offset int) int16 {
	if offset < 0 || offset+2 > len(sp.Data) {
		panic(fmt.Sprintf("[page] [getShort] offset out of bound: %d", offset))
	}
	return int16(binary.BigEndian.Uint16(sp.Data[offset:]))
}

func (sp *SlottedPage) setShort(offset int, v int16) {
	if offset < 0 || offset+2 > len(sp.Data) {
		panic(fmt.Sprintf("[page] [setShort] offset out of bound: %d", offset))
	}
	binary.BigEndian.PutUint16(sp.Data[offset:], uint16(v))
}

func (sp *SlottedPage) getInt(offset int) int32 {
	if offset < 0 || offset+4 > len(sp.Data) {
		panic(fmt.Sprintf("[page] [getInt] offset out of bound: %d", offset))
	}
	return int32(binary.BigEndian.Uint32(sp.Data[offset:]))
}

func (sp *SlottedPage) setInt(offset int, v int32) {
	if offset < 0 || offset+4 > len(sp.Data) {
		panic(fmt.Sprintf("[page] [setInt] offset out of bound: %d", offset))
	}
	binary.BigEndian.PutUint32(sp.Data[offset:], uint32(v))
}
