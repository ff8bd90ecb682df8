package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// Helper function to create a temporary test file
func createTempFile(t *testing.T) (string, func()) {
	t.Helper()
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "test_db.dat")

	cleanup := func() {
		os.Remove(tempFile)
	}

	return tempFile, cleanup
}

func TestNewFileManager(t *testing.T) {
	tests := []struct {
		name          string
		initialPages  int
		expectedSize  int64
		expectedError error
		shouldSucceed bool
	}{
		{
			name:          "Valid creation with 1 page",
			initialPages:  1,
			expectedSize:  page.DISK_SLOT,
			shouldSucceed: true,
		},
		{
			name:          "Valid creation with 10 pages",
			initialPages:  10,
			expectedSize:  10 * page.DISK_SLOT,
			shouldSucceed: true,
		},
		{
			name:          "Invalid negative pages",
			initialPages:  -1,
			expectedError: util.ErrInvalidInitialPages,
			shouldSucceed: false,
		},
		{
			name:          "Zero pages maps one slot",
			initialPages:  0,
			expectedSize:  page.DISK_SLOT,
			shouldSucceed: true,
		},
		{
			name:          "Large but valid page count",
			initialPages:  1000,
			expectedSize:  1000 * page.DISK_SLOT,
			shouldSucceed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempFile, cleanup := createTempFile(t)
			defer cleanup()

			fm, err := NewFileManager(tempFile, tt.initialPages)
			if !tt.shouldSucceed {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, fm)
				return
			}
			require.NoError(t, err)
			defer fm.Close()

			assert.Equal(t, tt.expectedSize, fm.Size)
			assert.Equal(t, 0, fm.NumPages(), "fresh file has no allocated pages")
			_, err = os.Stat(tempFile)
			assert.NoError(t, err)
		})
	}
}

func TestAllocateReadWrite(t *testing.T) {
	tempFile, cleanup := createTempFile(t)
	defer cleanup()
	fm, err := NewFileManager(tempFile, 2)
	require.NoError(t, err)
	defer fm.Close()

	first, err := fm.AllocatePages(3)
	require.NoError(t, err)
	assert.Equal(t, util.PageID(0), first)
	assert.Equal(t, 3, fm.NumPages())
	assert.GreaterOrEqual(t, fm.Size, int64(3*page.DISK_SLOT), "mapping grows on allocation")

	t.Run("FreshPageReadsZero", func(t *testing.T) {
		var p page.Page
		require.NoError(t, fm.ReadPage(1, &p))
		assert.Equal(t, [util.PageSize]byte{}, p.Data)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		require.NoError(t, fm.WritePage(2, page.CreateTestPage([]byte("Hello Database World!"))))
		var p page.Page
		require.NoError(t, fm.ReadPage(2, &p))
		assert.Equal(t, "Hello Database World!", string(p.Data[:21]))
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		var p page.Page
		assert.ErrorIs(t, fm.ReadPage(3, &p), util.ErrPageOutOfBounds)
		assert.ErrorIs(t, fm.ReadPage(-1, &p), util.ErrPageOutOfBounds)
		assert.ErrorIs(t, fm.WritePage(99, &p), util.ErrPageOutOfBounds)
	})

	t.Run("InvalidCount", func(t *testing.T) {
		_, err := fm.AllocatePages(0)
		assert.ErrorIs(t, err, util.ErrInvalidAllocation)
	})

	t.Run("Checksum", func(t *testing.T) {
		fm.Data[2*page.DISK_SLOT+5] ^= 0xFF // flip a byte behind the manager's back
		var p page.Page
		assert.ErrorIs(t, fm.ReadPage(2, &p), util.ErrChecksumMismatch)
	})
}

func TestDeallocateAndReuse(t *testing.T) {
	tempFile, cleanup := createTempFile(t)
	defer cleanup()
	fm, err := NewFileManager(tempFile, 1)
	require.NoError(t, err)
	defer fm.Close()

	first, err := fm.AllocatePages(5)
	require.NoError(t, err)
	require.Equal(t, util.PageID(0), first)

	require.NoError(t, fm.DeallocatePage(1))
	require.NoError(t, fm.DeallocatePage(2))
	assert.False(t, fm.IsAllocated(1))
	assert.Equal(t, 3, fm.AllocatedCount())

	var p page.Page
	assert.ErrorIs(t, fm.ReadPage(1, &p), util.ErrPageNotAllocated)
	assert.ErrorIs(t, fm.DeallocatePage(1), util.ErrPageNotAllocated)

	// a run of 3 does not fit in the hole, so it is appended
	pid, err := fm.AllocatePages(3)
	require.NoError(t, err)
	assert.Equal(t, util.PageID(5), pid)

	// a run of 2 fits the hole exactly
	pid, err = fm.AllocatePages(2)
	require.NoError(t, err)
	assert.Equal(t, util.PageID(1), pid)
	assert.Equal(t, 8, fm.AllocatedCount())
}

func TestReopenRestoresAllocation(t *testing.T) {
	tempFile, cleanup := createTempFile(t)
	defer cleanup()

	fm, err := NewFileManager(tempFile, 8)
	require.NoError(t, err)
	_, err = fm.AllocatePages(4)
	require.NoError(t, err)
	require.NoError(t, fm.WritePage(3, page.CreateTestPage([]byte("persisted"))))
	require.NoError(t, fm.DeallocatePage(1))
	require.NoError(t, fm.Close())
	require.NoError(t, fm.Close(), "close is idempotent")

	fm, err = NewFileManager(tempFile, 1)
	require.NoError(t, err)
	defer fm.Close()

	assert.Equal(t, 4, fm.NumPages(), "spare capacity is not counted")
	assert.True(t, fm.IsAllocated(0))
	assert.False(t, fm.IsAllocated(1))
	assert.True(t, fm.IsAllocated(3))

	var p page.Page
	require.NoError(t, fm.ReadPage(3, &p))
	assert.Equal(t, "persisted", string(p.Data[:9]))
}

func TestClosedManager(t *testing.T) {
	tempFile, cleanup := createTempFile(t)
	defer cleanup()
	fm, err := NewFileManager(tempFile, 1)
	require.NoError(t, err)
	require.NoError(t, fm.Close())

	_, err = fm.AllocatePages(1)
	assert.ErrorIs(t, err, util.ErrFileClosed)
	var p page.Page
	assert.ErrorIs(t, fm.ReadPage(0, &p), util.ErrFileClosed)
}

func TestFindFreeRun(t *testing.T) {
	tests := []struct {
		name      string
		allocated []bool
		count     int
		want      int
	}{
		{"Empty", nil, 1, -1},
		{"AllUsed", []bool{true, true}, 1, -1},
		{"Hole", []bool{true, false, true}, 1, 1},
		{"HoleTooSmall", []bool{true, false, true}, 2, -1},
		{"FirstFit", []bool{false, true, false, false}, 1, 0},
		{"Run", []bool{true, false, true, false, false, false}, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findFreeRun(tt.allocated, tt.count))
		})
	}

	t.Run("ReserveReusesFreeTail", func(t *testing.T) {
		first, allocated := reserveRun([]bool{true, false}, 3)
		assert.Equal(t, util.PageID(1), first)
		assert.Equal(t, []bool{true, true, true, true}, allocated)
	})
}
