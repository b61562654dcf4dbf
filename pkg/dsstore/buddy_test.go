package dsstore

import "testing"

func TestAddrEncoding(t *testing.T) {
	addr := makeAddr(2048, 512)
	if blockOffset(addr) != 2048 {
		t.Errorf("offset: got %d", blockOffset(addr))
	}
	if blockSize(addr) != 512 {
		t.Errorf("size: got %d", blockSize(addr))
	}
}

func TestPowCeil(t *testing.T) {
	cases := []struct{ in, want uint32 }{
		{0, 32},
		{1, 32},
		{32, 32},
		{33, 64},
		{512, 512},
		{513, 1024},
		{4096, 4096},
	}
	for _, c := range cases {
		if got := powCeil(c.in); got != c.want {
			t.Errorf("powCeil(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAllocAlignment(t *testing.T) {
	a := newBuddyAllocator()
	for _, size := range []uint32{20, 512, 1500, 32, 4096} {
		addr := a.alloc(size)
		if addr == 0 {
			t.Fatalf("alloc(%d) failed", size)
		}
		if blockSize(addr) < size && size > 32 {
			t.Errorf("alloc(%d) returned block of %d bytes", size, blockSize(addr))
		}
		if blockOffset(addr)%blockSize(addr) != 0 {
			t.Errorf("alloc(%d): offset %d not aligned to size %d", size, blockOffset(addr), blockSize(addr))
		}
	}
}

func TestAllocNoOverlap(t *testing.T) {
	a := newBuddyAllocator()
	type span struct{ start, end uint32 }
	var spans []span
	for i := 0; i < 40; i++ {
		addr := a.alloc(uint32(100 * (i + 1)))
		if addr == 0 {
			t.Fatalf("alloc %d failed", i)
		}
		s := span{start: blockOffset(addr), end: blockOffset(addr) + blockSize(addr)}
		for _, prev := range spans {
			if s.start < prev.end && prev.start < s.end {
				t.Fatalf("block [%d,%d) overlaps [%d,%d)", s.start, s.end, prev.start, prev.end)
			}
		}
		spans = append(spans, s)
	}
}

func TestFreeListsStayPowerOfTwoBuckets(t *testing.T) {
	a := newBuddyAllocator()
	a.alloc(300)
	a.alloc(33)
	a.alloc(5000)
	lists := a.freeLists()
	for i, bucket := range lists {
		for _, offset := range bucket {
			if offset%(1<<uint(i)) != 0 {
				t.Errorf("bucket %d holds misaligned offset %d", i, offset)
			}
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := newBuddyAllocator()
	a.alloc(512)
	before := len(a.free)

	c := a.clone()
	if c.alloc(1024) == 0 {
		t.Fatalf("alloc on clone failed")
	}
	if len(a.free) != before {
		t.Errorf("alloc on clone changed the original's free list")
	}
	// The original can still hand out the block the clone consumed.
	if a.alloc(1024) == 0 {
		t.Errorf("original lost space to the clone")
	}
}
