package dsstore

import "sort"

// The container stores block addresses as offset|log2(size): the low five
// bits carry the size exponent, the rest the byte offset (relative to the
// four-byte alignment word at the start of the file).

func blockSize(addr uint32) uint32 {
	return uint32(1) << (addr & 0x1f)
}

func blockOffset(addr uint32) uint32 {
	return addr &^ uint32(0x1f)
}

func makeAddr(offset, size uint32) uint32 {
	return offset | log2u32(size)
}

func log2u32(v uint32) uint32 {
	var n uint32
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// powCeil rounds v up to the next power of two, with a floor of 32 (the
// smallest block the allocator hands out).
func powCeil(v uint32) uint32 {
	p := uint32(32)
	for p < v {
		p <<= 1
	}
	return p
}

type block struct {
	offset uint32
	size   uint32
}

// buddyAllocator manages the container's power-of-two block space. Free
// blocks are always powers of two placed at offsets that are multiples of
// their size, so the free lists serialize directly into the bookkeeping
// block's 32 size buckets.
type buddyAllocator struct {
	free []block
}

// newBuddyAllocator returns an allocator for an empty container: one free
// block of each power of two from 2^5 through 2^30, each at the offset
// equal to its size. The 32 bytes below 2^5 hold the file header.
func newBuddyAllocator() *buddyAllocator {
	a := &buddyAllocator{}
	for i := uint32(5); i < 31; i++ {
		a.free = append(a.free, block{offset: 1 << i, size: 1 << i})
	}
	return a
}

func (a *buddyAllocator) clone() *buddyAllocator {
	c := &buddyAllocator{free: make([]block, len(a.free))}
	copy(c.free, a.free)
	return c
}

// alloc reserves a block large enough for size bytes and returns its
// encoded address. Splitting keeps the lower half and frees the upper,
// preserving buddy alignment. Returns 0 when no block fits.
func (a *buddyAllocator) alloc(size uint32) uint32 {
	want := powCeil(size)
	sort.Slice(a.free, func(i, j int) bool {
		if a.free[i].size != a.free[j].size {
			return a.free[i].size < a.free[j].size
		}
		return a.free[i].offset < a.free[j].offset
	})
	for i, b := range a.free {
		if b.size < want {
			continue
		}
		a.free = append(a.free[:i], a.free[i+1:]...)
		for b.size > want {
			b.size >>= 1
			a.free = append(a.free, block{offset: b.offset + b.size, size: b.size})
		}
		return makeAddr(b.offset, want)
	}
	return 0
}

// freeLists groups the free blocks into the bookkeeping block's 32 buckets
// (bucket i holds offsets of free blocks of size 2^i, ascending).
func (a *buddyAllocator) freeLists() [32][]uint32 {
	var lists [32][]uint32
	for _, b := range a.free {
		i := log2u32(b.size)
		lists[i] = append(lists[i], b.offset)
	}
	for i := range lists {
		sort.Slice(lists[i], func(x, y int) bool { return lists[i][x] < lists[i][y] })
	}
	return lists
}
