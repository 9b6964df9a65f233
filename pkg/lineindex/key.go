// Package lineindex hashes the lines of a text file into fixed-width
// records and stores/retrieves them through a buftree.Tree, one tree per
// tracked source file. See SPEC_FULL.md section 4.3/4.6.
package lineindex

import (
	"encoding/binary"

	"github.com/jrasky/half2/pkg/buftree"
)

// Places is P from spec.md 4.3: the number of Place slots a single record
// holds before the upsert-chain-by-order scheme spills into a new record.
const Places = 4

// Place records where in the indexed file a line with the record's hash
// appeared. Offset carries a running alignment delta used by diff.
type Place struct {
	Node   int64
	Offset int64
}

// RecordKey is the line-index key: (hash, order, count, places[4]).
// Total ordering is (Hash, Order); Count and Places are satellite data,
// irrelevant to ordering and identity.
type RecordKey struct {
	Hash   uint64
	Order  uint64
	Count  uint32
	Places [Places]Place
}

const recordKeyLen = 8 + 8 + 4 + 4 + Places*16 // Hash, Order, Count, pad, Places

func (k RecordKey) Less(other buftree.Key) bool {
	o := other.(RecordKey)
	if k.Hash != o.Hash {
		return k.Hash < o.Hash
	}
	return k.Order < o.Order
}

func (k RecordKey) Equal(other buftree.Key) bool {
	o := other.(RecordKey)
	return k.Hash == o.Hash && k.Order == o.Order
}

func (k RecordKey) EncodedLen() int {
	return recordKeyLen
}

func (k RecordKey) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], k.Hash)
	binary.LittleEndian.PutUint64(buf[8:16], k.Order)
	binary.LittleEndian.PutUint32(buf[16:20], k.Count)
	off := 24
	for _, p := range k.Places {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(p.Node))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(p.Offset))
		off += 16
	}
}

func (k RecordKey) Decode(buf []byte) buftree.Key {
	var out RecordKey
	out.Hash = binary.LittleEndian.Uint64(buf[0:8])
	out.Order = binary.LittleEndian.Uint64(buf[8:16])
	out.Count = binary.LittleEndian.Uint32(buf[16:20])
	off := 24
	for i := range out.Places {
		out.Places[i] = Place{
			Node:   int64(binary.LittleEndian.Uint64(buf[off : off+8])),
			Offset: int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
		}
		off += 16
	}
	return out
}
