package lineindex

import (
	"bufio"
	"io"

	"github.com/jrasky/half2/pkg/buftree"
	"k8s.io/klog/v2"
)

// Build implements spec.md 4.3's builder steps 2-4: for each line of r, hash
// it, walk the upsert chain by order until a record with room is found (or
// none exists), append a Place, and upsert. It returns the number of lines
// ingested, the node_count later recorded in the meta blob.
func Build(tree *buftree.Tree, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var lineNo int64
	for scanner.Scan() {
		line := scanner.Bytes()
		h := HashLine(line)

		order, existing, err := chainToOpenSlot(tree, h)
		if err != nil {
			return 0, err
		}

		rec := RecordKey{Hash: h, Order: order}
		if existing != nil {
			rec = existing.(RecordKey)
		}
		rec.Places[rec.Count] = Place{Node: lineNo, Offset: 0}
		rec.Count++

		if _, err := tree.Insert(rec); err != nil {
			return 0, err
		}
		klog.V(2).Infof("lineindex: line %d hash=%x order=%d count=%d", lineNo, h, order, rec.Count)
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return int(lineNo), nil
}

// chainToOpenSlot walks the upsert chain by order for hash h (spec.md 4.3
// step 3): repeatedly get the record at (h, order); if it exists and is
// full (count == Places), advance order and retry. Returns the order to
// write at and the existing record there, if any (nil if a brand new record
// will be created).
func chainToOpenSlot(tree *buftree.Tree, h uint64) (uint64, buftree.Key, error) {
	order := uint64(0)
	for {
		existing, err := tree.Get(RecordKey{Hash: h, Order: order})
		if err != nil {
			return 0, nil, err
		}
		if existing == nil {
			return order, nil, nil
		}
		if existing.(RecordKey).Count < Places {
			return order, existing, nil
		}
		order++
	}
}
