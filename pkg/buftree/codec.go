package buftree

import "encoding/binary"

// All records are fixed-width, little-endian. The original source reads
// and writes raw native-order structs; this codec pins little-endian per
// the spec's own portability recommendation instead.

const (
	noOffset = int64(-1)

	// treeHeaderSize: order(4) + keyWidth(4) + last(8) + root(8) + gone(8).
	treeHeaderSize = 32

	// nodeHeaderSize: idx(8) + len(4) + leaf(1), padded to 16 so a free-list
	// cell (idx + next, both int64) overlays it exactly.
	nodeHeaderSize = 16
)

type treeHeader struct {
	order    uint32
	keyWidth uint32
	last     int64
	root     int64
	gone     int64
}

func encodeTreeHeader(h treeHeader) []byte {
	buf := make([]byte, treeHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.order)
	binary.LittleEndian.PutUint32(buf[4:8], h.keyWidth)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.last))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.root))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.gone))
	return buf
}

func decodeTreeHeader(buf []byte) treeHeader {
	return treeHeader{
		order:    binary.LittleEndian.Uint32(buf[0:4]),
		keyWidth: binary.LittleEndian.Uint32(buf[4:8]),
		last:     int64(binary.LittleEndian.Uint64(buf[8:16])),
		root:     int64(binary.LittleEndian.Uint64(buf[16:24])),
		gone:     int64(binary.LittleEndian.Uint64(buf[24:32])),
	}
}

// node is the in-memory decoded form of a node slot.
type node struct {
	idx      int64
	leaf     bool
	keys     []Key
	children []int64 // len(children) == len(keys)+1 when !leaf; empty when leaf
}

func slotWidth(order, keyWidth int) int {
	return nodeHeaderSize + order*keyWidth + (order+1)*8
}

// encodeNode writes n into a buffer of exactly slotWidth(order, keyWidth)
// bytes. Per spec.md 4.4: internal nodes write header, len keys, len+1
// child offsets; leaves write header and len keys only, leaving the
// child-offset region as zero (but the slot still reserves the space).
func encodeNode(n *node, order, keyWidth int) []byte {
	buf := make([]byte, slotWidth(order, keyWidth))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.idx))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(n.keys)))
	if n.leaf {
		buf[12] = 1
	}
	off := nodeHeaderSize
	for _, k := range n.keys {
		k.Encode(buf[off : off+keyWidth])
		off += keyWidth
	}
	if !n.leaf {
		off = nodeHeaderSize + order*keyWidth
		for _, c := range n.children {
			binary.LittleEndian.PutUint64(buf[off:off+8], uint64(c))
			off += 8
		}
	}
	return buf
}

// decodeNode reads a node from buf, which must be slotWidth(order, keyWidth)
// bytes read from offset wantIdx. blank is used as a decode prototype.
func decodeNode(buf []byte, order, keyWidth int, wantIdx int64, blank Key) (*node, error) {
	idx := int64(binary.LittleEndian.Uint64(buf[0:8]))
	if idx != wantIdx {
		return nil, corruptionErr("node read at %d has self-offset %d", wantIdx, idx)
	}
	length := binary.LittleEndian.Uint32(buf[8:12])
	if int(length) > order {
		return nil, corruptionErr("node at %d has len %d > order %d", wantIdx, length, order)
	}
	leaf := buf[12] != 0

	n := &node{idx: idx, leaf: leaf}
	n.keys = make([]Key, length)
	off := nodeHeaderSize
	for i := 0; i < int(length); i++ {
		n.keys[i] = blank.Decode(buf[off : off+keyWidth])
		off += keyWidth
	}
	if !leaf {
		off = nodeHeaderSize + order*keyWidth
		n.children = make([]int64, length+1)
		for i := 0; i < int(length)+1; i++ {
			n.children[i] = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
			off += 8
		}
	}
	return n, nil
}

type freeCell struct {
	idx  int64
	next int64
}

func encodeFreeCell(c freeCell) []byte {
	buf := make([]byte, nodeHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(c.idx))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(c.next))
	return buf
}

func decodeFreeCell(buf []byte) freeCell {
	return freeCell{
		idx:  int64(binary.LittleEndian.Uint64(buf[0:8])),
		next: int64(binary.LittleEndian.Uint64(buf[8:16])),
	}
}

func putUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

func getUint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}
