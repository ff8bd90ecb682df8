package page

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

func newTestSlotted(pageID util.PageID) *SlottedPage {
	sp := NewSlottedPage(&Page{})
	sp.InitDefaults()
	sp.SetCurPage(pageID)
	return sp
}

func TestInitDefaults(t *testing.T) {
	sp := NewSlottedPage(CreateTestPage(bytes.Repeat([]byte{0xAB}, util.PageSize)))
	sp.InitDefaults()

	assert.Equal(t, 0, sp.SlotCount())
	assert.Equal(t, util.PageSize, sp.UsedOffset())
	assert.Equal(t, util.PageSize-HEADER_SIZE, sp.FreeSpace())
	assert.Equal(t, TypeEmpty, sp.Type())
	assert.Equal(t, util.InvalidPageID, sp.PrevPage())
	assert.Equal(t, util.InvalidPageID, sp.NextPage())
	assert.Equal(t, util.InvalidPageID, sp.CurPage())
}

func TestHeaderBinaryLayout(t *testing.T) {
	p := &Page{}
	sp := NewSlottedPage(p)
	sp.InitDefaults()
	sp.SetType(TypeHeapData)
	sp.SetPrevPage(0x01020304)
	sp.SetNextPage(7)
	sp.SetCurPage(9)

	// big-endian fields at fixed offsets
	assert.Equal(t, []byte{0x00, 0x00}, p.Data[0:2], "slot count")
	assert.Equal(t, []byte{0x04, 0x00}, p.Data[2:4], "used offset 1024")
	assert.Equal(t, []byte{0x03, 0xEC}, p.Data[4:6], "free space 1004")
	assert.Equal(t, []byte{0x00, 0x01}, p.Data[6:8], "page type")
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, p.Data[8:12], "prev page")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x07}, p.Data[12:16], "next page")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x09}, p.Data[16:20], "cur page")

	rid, ok := sp.InsertRecord([]byte("abc"))
	require.True(t, ok)
	assert.Equal(t, 0, rid.SlotNo)
	assert.Equal(t, []byte{0x00, 0x03, 0x03, 0xFD}, p.Data[20:24], "slot 0 = (len 3, off 1021)")
	assert.Equal(t, []byte("abc"), p.Data[1021:1024])
}

func TestInsertSelect(t *testing.T) {
	sp := newTestSlotted(3)

	records := [][]byte{[]byte("alpha"), []byte("bravo-bravo"), {}, []byte("c")}
	rids := make([]RID, len(records))
	for i, r := range records {
		rid, ok := sp.InsertRecord(r)
		require.True(t, ok, "insert %d", i)
		assert.Equal(t, NewRID(3, i), rid)
		rids[i] = rid
	}

	used := 0
	for i, r := range records {
		got, err := sp.SelectRecord(rids[i])
		require.NoError(t, err)
		assert.Equal(t, len(r), len(got))
		assert.True(t, bytes.Equal(r, got))
		used += len(r)
	}
	assert.Equal(t, len(records), sp.SlotCount())
	assert.Equal(t, util.PageSize-used, sp.UsedOffset())
	assert.Equal(t, util.PageSize-HEADER_SIZE-used-len(records)*SLOT_SIZE, sp.FreeSpace())
	// free space is exactly the gap between the slot directory and the record area
	assert.Equal(t, sp.UsedOffset()-(HEADER_SIZE+sp.SlotCount()*SLOT_SIZE), sp.FreeSpace())

	t.Run("SelectReturnsCopy", func(t *testing.T) {
		got, err := sp.SelectRecord(rids[0])
		require.NoError(t, err)
		got[0] = 'X'
		again, _ := sp.SelectRecord(rids[0])
		assert.Equal(t, []byte("alpha"), again)
	})
}

func TestInsertUntilFull(t *testing.T) {
	sp := newTestSlotted(1)
	rec := bytes.Repeat([]byte{'r'}, 96)

	n := 0
	for {
		before := sp.FreeSpace()
		if _, ok := sp.InsertRecord(rec); !ok {
			assert.Equal(t, before, sp.FreeSpace(), "failed insert must not change free space")
			break
		}
		n++
	}
	assert.Equal(t, (util.PageSize-HEADER_SIZE)/(len(rec)+SLOT_SIZE), n)

	t.Run("MaxRecordOnEmptyPage", func(t *testing.T) {
		empty := newTestSlotted(2)
		_, ok := empty.InsertRecord(make([]byte, MAX_RECORD_SIZE))
		assert.True(t, ok)
		assert.Equal(t, 0, empty.FreeSpace())

		empty = newTestSlotted(2)
		_, ok = empty.InsertRecord(make([]byte, MAX_RECORD_SIZE+1))
		assert.False(t, ok)
	})
}

func TestUpdateRecord(t *testing.T) {
	sp := newTestSlotted(5)
	rid, ok := sp.InsertRecord([]byte("hello"))
	require.True(t, ok)

	require.NoError(t, sp.UpdateRecord(rid, []byte("world")))
	got, _ := sp.SelectRecord(rid)
	assert.Equal(t, []byte("world"), got)

	for _, r := range [][]byte{[]byte("hi"), []byte("world!")} {
		err := sp.UpdateRecord(rid, r)
		assert.ErrorIs(t, err, util.ErrSizeMismatch)
		got, _ = sp.SelectRecord(rid)
		assert.Equal(t, []byte("world"), got, "failed update leaves bytes unchanged")
	}
}

func TestInvalidRID(t *testing.T) {
	sp := newTestSlotted(5)
	rid, _ := sp.InsertRecord([]byte("x"))

	bad := []RID{
		NewRID(5, 1),
		NewRID(5, -1),
		NewRID(6, 0),
		InvalidRID,
	}
	for _, r := range bad {
		_, err := sp.SelectRecord(r)
		assert.ErrorIs(t, err, util.ErrInvalidRID, "select %s", r)
		assert.ErrorIs(t, sp.UpdateRecord(r, []byte("y")), util.ErrInvalidRID, "update %s", r)
		assert.ErrorIs(t, sp.DeleteRecord(r), util.ErrInvalidRID, "delete %s", r)
	}

	require.NoError(t, sp.DeleteRecord(rid))
	_, err := sp.SelectRecord(rid)
	assert.ErrorIs(t, err, util.ErrInvalidRID)
	assert.ErrorIs(t, sp.UpdateRecord(rid, []byte("y")), util.ErrInvalidRID)
	assert.ErrorIs(t, sp.DeleteRecord(rid), util.ErrInvalidRID)
}

func TestDeleteCompacts(t *testing.T) {
	sp := newTestSlotted(8)
	a, _ := sp.InsertRecord([]byte("AAAAAAAAAA"))           // 10
	b, _ := sp.InsertRecord([]byte("BBBBBBBBBBBBBBBBBBBB")) // 20
	c, _ := sp.InsertRecord([]byte("CCCCCCCCCC"))           // 10

	freeBefore := sp.FreeSpace()
	usedBefore := sp.UsedOffset()
	cOffBefore := sp.SlotOffset(c.SlotNo)
	aOffBefore := sp.SlotOffset(a.SlotNo)

	require.NoError(t, sp.DeleteRecord(b))

	assert.Equal(t, freeBefore+20, sp.FreeSpace())
	assert.Equal(t, usedBefore+20, sp.UsedOffset())
	assert.Equal(t, EMPTY_SLOT, sp.SlotLength(b.SlotNo))
	assert.Equal(t, 3, sp.SlotCount(), "slot directory never shrinks")
	assert.Equal(t, cOffBefore+20, sp.SlotOffset(c.SlotNo), "records below the victim move up")
	assert.Equal(t, aOffBefore, sp.SlotOffset(a.SlotNo), "records above the victim stay")
	assert.Equal(t, 2, sp.RecordCount())

	got, err := sp.SelectRecord(a)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAA", string(got))
	got, err = sp.SelectRecord(c)
	require.NoError(t, err)
	assert.Equal(t, "CCCCCCCCCC", string(got))
	assert.Equal(t, sp.UsedOffset()-(HEADER_SIZE+sp.SlotCount()*SLOT_SIZE), sp.FreeSpace())

	t.Run("ReuseTombstone", func(t *testing.T) {
		free := sp.FreeSpace()
		rid, ok := sp.InsertRecord([]byte("DDDDD"))
		require.True(t, ok)
		assert.Equal(t, b.SlotNo, rid.SlotNo, "first tombstone reused")
		assert.Equal(t, free-5, sp.FreeSpace(), "reused slot costs only the record length")
		assert.Equal(t, 3, sp.SlotCount())
	})
}

func TestDeleteAllThenRefill(t *testing.T) {
	sp := newTestSlotted(2)
	var rids []RID
	for i := 0; i < 20; i++ {
		rid, ok := sp.InsertRecord([]byte(fmt.Sprintf("record-%02d", i)))
		require.True(t, ok)
		rids = append(rids, rid)
	}
	// delete in a scattered order
	for _, i := range []int{5, 0, 19, 7, 12, 1, 2, 3, 4, 6, 8, 9, 10, 11, 13, 14, 15, 16, 17, 18} {
		require.NoError(t, sp.DeleteRecord(rids[i]))
		for j := i + 1; j < 20; j++ {
			if sp.SlotLength(j) == EMPTY_SLOT {
				continue
			}
			got, err := sp.SelectRecord(rids[j])
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("record-%02d", j), string(got))
		}
	}
	assert.Equal(t, util.PageSize, sp.UsedOffset())
	assert.Equal(t, util.PageSize-HEADER_SIZE-20*SLOT_SIZE, sp.FreeSpace())
	_, ok := sp.FirstRecord()
	assert.False(t, ok)
}

func TestIterateRecords(t *testing.T) {
	sp := newTestSlotted(4)
	_, ok := sp.FirstRecord()
	assert.False(t, ok, "empty page")

	var rids []RID
	for i := 0; i < 5; i++ {
		rid, _ := sp.InsertRecord([]byte{byte(i)})
		rids = append(rids, rid)
	}
	require.NoError(t, sp.DeleteRecord(rids[0]))
	require.NoError(t, sp.DeleteRecord(rids[2]))
	require.NoError(t, sp.DeleteRecord(rids[4]))

	var seen []int
	for rid, ok := sp.FirstRecord(); ok; rid, ok = sp.NextRecord(rid) {
		seen = append(seen, rid.SlotNo)
	}
	assert.Equal(t, []int{1, 3}, seen)

	_, ok = sp.NextRecord(NewRID(99, 0))
	assert.False(t, ok, "rid from another page")
}

func TestDump(t *testing.T) {
	sp := newTestSlotted(4)
	sp.InsertRecord([]byte("xy"))
	var buf bytes.Buffer
	sp.Dump(&buf)
	assert.Contains(t, buf.String(), "cur=4")
	assert.Contains(t, buf.String(), "slot 0: len=2 off=1022")
}
