package buffer

// Stats is a snapshot of the pool's occupancy and counters.
type Stats struct {
	Frames   int
	Unpinned int
	Resident int
	Dirty    int

	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	DiskReads  uint64
}

// HitRatio is hits over all pin requests, or 0 before the first pin.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type counters struct {
	hits       uint64
	misses     uint64
	evictions  uint64
	writeBacks uint64
	diskReads  uint64
}
