package dsstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Block numbers in a freshly written container. Peers allocate these
// dynamically; for writing we always emit the minimal three-block layout
// (bookkeeping, master, one leaf data node), which peers parse fine.
const (
	bookkeepingBlockNum = 0
	masterBlockNum      = 1
	dataBlockNum        = 2
)

const defaultPageSize = 0x1000

// buildContainer serializes a record set into a complete container image.
// The records are written as a single leaf node; the buddy allocator
// places the three blocks and its leftover space becomes the free lists.
func buildContainer(records []Record, info containerInfo) ([]byte, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	dataBlock := new(bytes.Buffer)
	if err := binary.Write(dataBlock, binary.BigEndian, uint32(0)); err != nil {
		return nil, err
	}
	if err := binary.Write(dataBlock, binary.BigEndian, uint32(len(sorted))); err != nil {
		return nil, err
	}
	for _, rec := range sorted {
		if err := rec.encodeTo(dataBlock); err != nil {
			return nil, fmt.Errorf("encoding record %q/%q: %w", rec.Filename, rec.Code, err)
		}
	}

	master := new(bytes.Buffer)
	for _, field := range []uint32{dataBlockNum, 0, uint32(len(sorted)), 1, defaultPageSize} {
		if err := binary.Write(master, binary.BigEndian, field); err != nil {
			return nil, err
		}
	}

	alloc := newBuddyAllocator()
	dataAddr := alloc.alloc(uint32(dataBlock.Len()))
	masterAddr := alloc.alloc(uint32(master.Len()))
	if dataAddr == 0 || masterAddr == 0 {
		return nil, fmt.Errorf("%w: record set too large for container", ErrWriteFailed)
	}

	// The bookkeeping block lists its own address and the post-allocation
	// free lists, so its size feeds back into its own content. Grow the
	// reserved capacity until the serialized block fits.
	var (
		rootAddr  uint32
		rootBlock []byte
	)
	for capacity := uint32(512); ; capacity <<= 1 {
		trial := alloc.clone()
		addr := trial.alloc(capacity)
		if addr == 0 {
			return nil, fmt.Errorf("%w: no space for bookkeeping block", ErrWriteFailed)
		}
		buf := new(bytes.Buffer)
		if err := writeBookkeeping(buf, []uint32{addr, masterAddr, dataAddr}, trial.freeLists(), info.rootExtra); err != nil {
			return nil, err
		}
		if uint32(buf.Len()) <= capacity {
			rootAddr = addr
			rootBlock = buf.Bytes()
			break
		}
	}

	header := new(bytes.Buffer)
	// The size field mirrors the allocated block size, matching the
	// address-table encoding; the serialized content is zero-padded up to it.
	for _, field := range []uint32{alignMagic, buddyMagic, blockOffset(rootAddr), blockSize(rootAddr), blockOffset(rootAddr)} {
		if err := binary.Write(header, binary.BigEndian, field); err != nil {
			return nil, err
		}
	}
	headerExtra := make([]byte, 16)
	copy(headerExtra, info.headerExtra)
	header.Write(headerExtra)

	size := uint32(headerBytes)
	for _, addr := range []uint32{rootAddr, masterAddr, dataAddr} {
		if end := 4 + blockOffset(addr) + blockSize(addr); end > size {
			size = end
		}
	}
	out := make([]byte, size)
	copy(out, header.Bytes())
	copy(out[4+blockOffset(rootAddr):], rootBlock)
	copy(out[4+blockOffset(masterAddr):], master.Bytes())
	copy(out[4+blockOffset(dataAddr):], dataBlock.Bytes())
	return out, nil
}

// writeBookkeeping emits the address table, the table of contents and the
// 32 free-list buckets, then any preserved trailing bytes.
func writeBookkeeping(b *bytes.Buffer, addrs []uint32, freeLists [32][]uint32, extra []byte) error {
	if err := binary.Write(b, binary.BigEndian, uint32(len(addrs))); err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint32(0)); err != nil {
		return err
	}
	for _, addr := range addrs {
		if err := binary.Write(b, binary.BigEndian, addr); err != nil {
			return err
		}
	}
	pad := (256 - len(addrs)%256) % 256
	for i := 0; i < pad; i++ {
		if err := binary.Write(b, binary.BigEndian, uint32(0)); err != nil {
			return err
		}
	}

	if err := binary.Write(b, binary.BigEndian, uint32(1)); err != nil {
		return err
	}
	if err := b.WriteByte(byte(len(masterBlock))); err != nil {
		return err
	}
	if _, err := b.WriteString(masterBlock); err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint32(masterBlockNum)); err != nil {
		return err
	}

	for i := 0; i < 32; i++ {
		if err := binary.Write(b, binary.BigEndian, uint32(len(freeLists[i]))); err != nil {
			return err
		}
		for _, offset := range freeLists[i] {
			if err := binary.Write(b, binary.BigEndian, offset); err != nil {
				return err
			}
		}
	}
	_, err := b.Write(extra)
	return err
}
