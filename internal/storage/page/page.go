package page

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"

	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

const (
	CHECKSUM_SIZE = 8                             // xxhash64 trailer stored after every page on disk
	DISK_SLOT     = util.PageSize + CHECKSUM_SIZE // bytes one page occupies in a data file
)

// Page is block that read/write from disk
type Page struct {
	Data [util.PageSize]byte
}

// Reset zeroes the page image.
func (p *Page) Reset() {
	p.Data = [util.PageSize]byte{}
}

// Checksum returns the xxhash64 of the page image.
func (p *Page) Checksum() uint64 {
	return xxhash.Checksum64(p.Data[:])
}

// Serialize packs the page and its checksum into buf, which must hold DISK_SLOT bytes.
func (p *Page) Serialize(buf []byte) {
	copy(buf[:util.PageSize], p.Data[:])
	binary.LittleEndian.PutUint64(buf[util.PageSize:DISK_SLOT], p.Checksum())
}

// Deserialize unpacks a disk slot into p and validates the checksum.
func Deserialize(buf []byte, p *Page) error {
	if len(buf) < DISK_SLOT {
		return util.ErrPageOutOfBounds
	}
	copy(p.Data[:], buf[:util.PageSize])
	if binary.LittleEndian.Uint64(buf[util.PageSize:DISK_SLOT]) != p.Checksum() {
		return util.ErrChecksumMismatch
	}
	return nil
}
