package dsstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"
)

const (
	alignMagic  uint32 = 0x1        // leading alignment word
	buddyMagic  uint32 = 0x42756431 // "Bud1"
	headerBytes        = 36
	masterBlock        = "DSDB"
)

// containerInfo carries the unknown byte regions we preserve across a
// read-modify-write cycle.
type containerInfo struct {
	headerExtra []byte
	rootExtra   []byte
}

// readBlock returns a buffer over one allocated block. Offsets are
// relative to the alignment word, hence the +4.
func readBlock(data []byte, offset, size uint32) *bytes.Buffer {
	end := uint64(offset) + 4 + uint64(size)
	if end > uint64(len(data)) {
		return nil
	}
	return bytes.NewBuffer(data[offset+4 : end])
}

// parseContainer decodes a full container image into its sorted record set.
// Structural failures return ErrCorrupt; a single malformed record is
// logged and skipped without failing the file.
func parseContainer(data []byte) ([]Record, containerInfo, error) {
	var info containerInfo
	if len(data) < headerBytes {
		return nil, info, fmt.Errorf("%w: file shorter than header", ErrCorrupt)
	}
	h := bytes.NewBuffer(data[:headerBytes])
	var magic1, magic2, rootOffset, rootSize, rootOffset2 uint32
	binary.Read(h, binary.BigEndian, &magic1)
	binary.Read(h, binary.BigEndian, &magic2)
	binary.Read(h, binary.BigEndian, &rootOffset)
	binary.Read(h, binary.BigEndian, &rootSize)
	binary.Read(h, binary.BigEndian, &rootOffset2)
	if magic1 != alignMagic || magic2 != buddyMagic {
		return nil, info, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if rootOffset != rootOffset2 {
		return nil, info, fmt.Errorf("%w: bookkeeping offset mismatch", ErrCorrupt)
	}
	info.headerExtra = append([]byte(nil), h.Bytes()...)

	root := readBlock(data, rootOffset, rootSize)
	if root == nil {
		return nil, info, fmt.Errorf("%w: bookkeeping block out of range", ErrCorrupt)
	}
	addrs, err := readAddresses(root)
	if err != nil {
		return nil, info, err
	}
	toc, err := readTOC(root)
	if err != nil {
		return nil, info, err
	}
	if err := skipFreeLists(root); err != nil {
		return nil, info, err
	}
	info.rootExtra = append([]byte(nil), root.Bytes()...)

	master, ok := toc[masterBlock]
	if !ok {
		return nil, info, fmt.Errorf("%w: no %s entry in table of contents", ErrCorrupt, masterBlock)
	}
	tree, err := readMasterBlock(data, addrs, master)
	if err != nil {
		return nil, info, err
	}

	var records []Record
	visited := make(map[uint32]bool)
	if err := walkTree(data, addrs, tree.rootNode, visited, &records); err != nil {
		return nil, info, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Less(records[j]) })
	return records, info, nil
}

// readAddresses reads the block address table: a count, an unknown word,
// then addresses padded out to a multiple of 256 entries. The table is
// positional — block numbers index it, and zero entries are unallocated.
func readAddresses(b *bytes.Buffer) ([]uint32, error) {
	var count, unknown uint32
	if err := binary.Read(b, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: truncated address table", ErrCorrupt)
	}
	if err := binary.Read(b, binary.BigEndian, &unknown); err != nil {
		return nil, fmt.Errorf("%w: truncated address table", ErrCorrupt)
	}
	if count > uint32(b.Len()/4) {
		return nil, fmt.Errorf("%w: address count %d exceeds block", ErrCorrupt, count)
	}
	addrs := make([]uint32, count)
	for i := range addrs {
		if err := binary.Read(b, binary.BigEndian, &addrs[i]); err != nil {
			return nil, fmt.Errorf("%w: truncated address table", ErrCorrupt)
		}
	}
	// Skip the zero padding up to the next multiple of 256 entries.
	pad := (256 - int(count)%256) % 256
	var zero uint32
	for i := 0; i < pad; i++ {
		if err := binary.Read(b, binary.BigEndian, &zero); err != nil {
			return nil, fmt.Errorf("%w: truncated address padding", ErrCorrupt)
		}
	}
	return addrs, nil
}

// readTOC reads the table of contents mapping block names to block numbers.
func readTOC(b *bytes.Buffer) (map[string]uint32, error) {
	var count uint32
	if err := binary.Read(b, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: truncated table of contents", ErrCorrupt)
	}
	toc := make(map[string]uint32, count)
	for i := uint32(0); i < count; i++ {
		nameLen, err := b.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated table of contents", ErrCorrupt)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(b, name); err != nil {
			return nil, fmt.Errorf("%w: truncated table of contents", ErrCorrupt)
		}
		var num uint32
		if err := binary.Read(b, binary.BigEndian, &num); err != nil {
			return nil, fmt.Errorf("%w: truncated table of contents", ErrCorrupt)
		}
		toc[string(name)] = num
	}
	return toc, nil
}

// skipFreeLists validates and discards the 32 free-list buckets.
func skipFreeLists(b *bytes.Buffer) error {
	for i := 0; i < 32; i++ {
		var count uint32
		if err := binary.Read(b, binary.BigEndian, &count); err != nil {
			return fmt.Errorf("%w: truncated free lists", ErrCorrupt)
		}
		if count > uint32(b.Len()/4) {
			return fmt.Errorf("%w: free list %d count %d exceeds block", ErrCorrupt, i, count)
		}
		var offset uint32
		for j := uint32(0); j < count; j++ {
			if err := binary.Read(b, binary.BigEndian, &offset); err != nil {
				return fmt.Errorf("%w: truncated free lists", ErrCorrupt)
			}
		}
	}
	return nil
}

// treeInfo is the DSDB master block: the B-tree root plus bookkeeping
// counters, all regenerated on write.
type treeInfo struct {
	rootNode    uint32
	height      uint32
	recordCount uint32
	nodeCount   uint32
	pageSize    uint32
}

func readMasterBlock(data []byte, addrs []uint32, num uint32) (treeInfo, error) {
	var t treeInfo
	b, err := blockForNumber(data, addrs, num)
	if err != nil {
		return t, err
	}
	for _, field := range []*uint32{&t.rootNode, &t.height, &t.recordCount, &t.nodeCount, &t.pageSize} {
		if err := binary.Read(b, binary.BigEndian, field); err != nil {
			return t, fmt.Errorf("%w: truncated master block", ErrCorrupt)
		}
	}
	if int(t.rootNode) >= len(addrs) {
		return t, fmt.Errorf("%w: root node %d out of range", ErrCorrupt, t.rootNode)
	}
	return t, nil
}

func blockForNumber(data []byte, addrs []uint32, num uint32) (*bytes.Buffer, error) {
	if int(num) >= len(addrs) || addrs[num] == 0 {
		return nil, fmt.Errorf("%w: block %d not allocated", ErrCorrupt, num)
	}
	addr := addrs[num]
	b := readBlock(data, blockOffset(addr), blockSize(addr))
	if b == nil {
		return nil, fmt.Errorf("%w: block %d out of range", ErrCorrupt, num)
	}
	return b, nil
}

// walkTree performs an in-order traversal of the B-tree rooted at node,
// appending records as it goes. Internal nodes interleave child pointers
// with records and end with a right-most child carried in the node header.
func walkTree(data []byte, addrs []uint32, node uint32, visited map[uint32]bool, out *[]Record) error {
	if visited[node] {
		return fmt.Errorf("%w: node cycle at %d", ErrCorrupt, node)
	}
	visited[node] = true
	b, err := blockForNumber(data, addrs, node)
	if err != nil {
		return err
	}
	var rightmost, count uint32
	if err := binary.Read(b, binary.BigEndian, &rightmost); err != nil {
		return fmt.Errorf("%w: truncated node %d", ErrCorrupt, node)
	}
	if err := binary.Read(b, binary.BigEndian, &count); err != nil {
		return fmt.Errorf("%w: truncated node %d", ErrCorrupt, node)
	}
	for i := uint32(0); i < count; i++ {
		if rightmost > 0 {
			var child uint32
			if err := binary.Read(b, binary.BigEndian, &child); err != nil {
				return fmt.Errorf("%w: truncated node %d", ErrCorrupt, node)
			}
			if err := walkTree(data, addrs, child, visited, out); err != nil {
				return err
			}
		}
		rec, err := decodeRecord(b)
		if err != nil {
			if errors.Is(err, ErrMalformedRecord) {
				// The rest of the block cannot be resynchronized; keep
				// what decoded so far and move on.
				log.WithError(err).Warnf("dsstore: skipping malformed record in node %d", node)
				return nil
			}
			return err
		}
		*out = append(*out, rec)
	}
	if rightmost > 0 {
		return walkTree(data, addrs, rightmost, visited, out)
	}
	return nil
}
