package buftree

import "testing"

// traverse walks the tree in-order and returns its keys, used only by
// tests to check P1/P2/P5 against a reference ordering.
func traverse(t *testing.T, tr *Tree) []Key {
	t.Helper()
	if tr.root == noOffset {
		return nil
	}
	var out []Key
	var walk func(off int64) error
	walk = func(off int64) error {
		n, err := tr.readNode(off)
		if err != nil {
			return err
		}
		if n.leaf {
			out = append(out, n.keys...)
			return nil
		}
		for i, k := range n.keys {
			if err := walk(n.children[i]); err != nil {
				return err
			}
			out = append(out, k)
		}
		return walk(n.children[len(n.keys)])
	}
	if err := walk(tr.root); err != nil {
		t.Fatalf("traverse: %v", err)
	}
	return out
}

func newTestTree(t *testing.T, order int) *Tree {
	t.Helper()
	store := NewMemStore()
	tr, err := Create(store, order, Uint64Key(0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tr
}

// S1: Empty tree lifecycle on a single key.
func TestEmptyTreeLifecycle(t *testing.T) {
	tr := newTestTree(t, 6)

	if ok, _ := tr.Contains(Uint64Key(35)); ok {
		t.Fatalf("expected contains(35)=false on empty tree")
	}
	if d, err := tr.Insert(Uint64Key(35)); err != nil || d != nil {
		t.Fatalf("insert(35) = %v, %v; want nil, nil", d, err)
	}
	if d, err := tr.Insert(Uint64Key(35)); err != nil || d == nil {
		t.Fatalf("second insert(35) = %v, %v; want some(35)", d, err)
	}
	if ok, _ := tr.Contains(Uint64Key(35)); !ok {
		t.Fatalf("expected contains(35)=true")
	}
	if k, err := tr.Get(Uint64Key(35)); err != nil || k == nil {
		t.Fatalf("get(35) = %v, %v; want some(35)", k, err)
	}
	if d, err := tr.Remove(Uint64Key(35)); err != nil || d == nil {
		t.Fatalf("remove(35) = %v, %v; want some(35)", d, err)
	}
	if d, err := tr.Remove(Uint64Key(35)); err != nil || d != nil {
		t.Fatalf("second remove(35) = %v, %v; want none", d, err)
	}
	if ok, _ := tr.Contains(Uint64Key(35)); ok {
		t.Fatalf("expected contains(35)=false after remove")
	}
}

// S2: sequential fill then drain.
func TestSequentialFillDrain(t *testing.T) {
	tr := newTestTree(t, 6)
	const n = 100

	for i := 0; i < n; i++ {
		d, err := tr.Insert(Uint64Key(i))
		if err != nil {
			t.Fatalf("insert(%d): %v", i, err)
		}
		if d != nil {
			t.Fatalf("insert(%d) returned displaced %v, want none", i, d)
		}
	}
	for i := 0; i < n; i++ {
		if ok, _ := tr.Contains(Uint64Key(i)); !ok {
			t.Fatalf("contains(%d)=false after fill", i)
		}
	}
	for i := n - 1; i >= 0; i-- {
		d, err := tr.Remove(Uint64Key(i))
		if err != nil {
			t.Fatalf("remove(%d): %v", i, err)
		}
		if d == nil {
			t.Fatalf("remove(%d) returned none, want some", i)
		}
		d2, err := tr.Remove(Uint64Key(i))
		if err != nil {
			t.Fatalf("second remove(%d): %v", i, err)
		}
		if d2 != nil {
			t.Fatalf("second remove(%d) returned %v, want none", i, d2)
		}
	}
	for i := 0; i < n; i++ {
		if ok, _ := tr.Contains(Uint64Key(i)); ok {
			t.Fatalf("contains(%d)=true after drain", i)
		}
	}
}

// recordKey is a tiny Key used to exercise upsert satellite-data semantics
// (S3), independent of the lineindex package's richer RecordKey.
type recordKey struct {
	hash  uint64
	count uint64
}

func (k recordKey) Less(other Key) bool  { return k.hash < other.(recordKey).hash }
func (k recordKey) Equal(other Key) bool { return k.hash == other.(recordKey).hash }
func (k recordKey) EncodedLen() int      { return 16 }
func (k recordKey) Encode(buf []byte) {
	putUint64(buf[0:8], k.hash)
	putUint64(buf[8:16], k.count)
}
func (k recordKey) Decode(buf []byte) Key {
	return recordKey{hash: getUint64(buf[0:8]), count: getUint64(buf[8:16])}
}

// S3: upsert replaces satellite data and returns the displaced record.
func TestUpsertSatelliteData(t *testing.T) {
	store := NewMemStore()
	tr, err := Create(store, 6, recordKey{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	d, err := tr.Insert(recordKey{hash: 7, count: 1})
	if err != nil || d != nil {
		t.Fatalf("first insert = %v, %v; want none", d, err)
	}
	d, err = tr.Insert(recordKey{hash: 7, count: 2})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	prev, ok := d.(recordKey)
	if !ok || prev.count != 1 {
		t.Fatalf("displaced = %v, want count=1", d)
	}
	got, err := tr.Get(recordKey{hash: 7})
	if err != nil || got == nil {
		t.Fatalf("get after upsert: %v, %v", got, err)
	}
	if got.(recordKey).count != 2 {
		t.Fatalf("get count = %d, want 2", got.(recordKey).count)
	}
}

// S5: proactive split of the root with m=3.
func TestProactiveRootSplit(t *testing.T) {
	tr := newTestTree(t, 3)
	for _, v := range []uint64{10, 20, 30, 40} {
		if _, err := tr.Insert(Uint64Key(v)); err != nil {
			t.Fatalf("insert(%d): %v", v, err)
		}
	}

	root, err := tr.readNode(tr.root)
	if err != nil {
		t.Fatalf("readNode(root): %v", err)
	}
	if len(root.keys) != 1 || root.keys[0].(Uint64Key) != 20 {
		t.Fatalf("root keys = %v, want [20]", root.keys)
	}
	left, err := tr.readNode(root.children[0])
	if err != nil {
		t.Fatalf("readNode(left): %v", err)
	}
	right, err := tr.readNode(root.children[1])
	if err != nil {
		t.Fatalf("readNode(right): %v", err)
	}
	if len(left.keys) != 1 || left.keys[0].(Uint64Key) != 10 {
		t.Fatalf("left keys = %v, want [10]", left.keys)
	}
	if len(right.keys) != 2 || right.keys[0].(Uint64Key) != 30 || right.keys[1].(Uint64Key) != 40 {
		t.Fatalf("right keys = %v, want [30 40]", right.keys)
	}

	got := traverse(t, tr)
	want := []uint64{10, 20, 30, 40}
	if len(got) != len(want) {
		t.Fatalf("traversal = %v, want %v", got, want)
	}
	for i, w := range want {
		if got[i].(Uint64Key) != Uint64Key(w) {
			t.Fatalf("traversal[%d] = %v, want %d", i, got[i], w)
		}
	}
}

// S6: merge on remove collapses the root, and the freed slot is LIFO-reused.
func TestMergeCollapsesRoot(t *testing.T) {
	tr := newTestTree(t, 3)
	for _, v := range []uint64{10, 20, 30, 40} {
		if _, err := tr.Insert(Uint64Key(v)); err != nil {
			t.Fatalf("insert(%d): %v", v, err)
		}
	}
	oldRootOff := tr.root

	d, err := tr.Remove(Uint64Key(10))
	if err != nil || d == nil {
		t.Fatalf("remove(10) = %v, %v; want some(10)", d, err)
	}

	root, err := tr.readNode(tr.root)
	if err != nil {
		t.Fatalf("readNode(root): %v", err)
	}
	if !root.leaf {
		t.Fatalf("expected collapsed root to be a leaf")
	}
	if len(root.keys) != 3 {
		t.Fatalf("collapsed root keys = %v, want 3 keys", root.keys)
	}
	for i, w := range []uint64{20, 30, 40} {
		if root.keys[i].(Uint64Key) != Uint64Key(w) {
			t.Fatalf("collapsed root[%d] = %v, want %d", i, root.keys[i], w)
		}
	}
	if tr.gone != oldRootOff {
		t.Fatalf("expected old root slot %d at head of free list, got %d", oldRootOff, tr.gone)
	}

	if _, err := tr.Insert(Uint64Key(50)); err != nil {
		t.Fatalf("insert(50): %v", err)
	}
	if tr.gone != noOffset {
		t.Fatalf("expected free list drained after reuse, got gone=%d", tr.gone)
	}
}

// P5: after random-ish insert/remove churn, every node satisfies occupancy
// and leaves share a uniform depth.
func TestOccupancyInvariant(t *testing.T) {
	tr := newTestTree(t, 6)
	vals := make([]uint64, 0, 60)
	for i := uint64(0); i < 60; i++ {
		vals = append(vals, i)
		if _, err := tr.Insert(Uint64Key(i)); err != nil {
			t.Fatalf("insert(%d): %v", i, err)
		}
	}
	for i := 0; i < 30; i++ {
		if _, err := tr.Remove(Uint64Key(vals[i])); err != nil {
			t.Fatalf("remove(%d): %v", vals[i], err)
		}
	}

	depth := -1
	var check func(off int64, level int) error
	check = func(off int64, level int) error {
		n, err := tr.readNode(off)
		if err != nil {
			return err
		}
		if off == tr.root {
			if len(n.keys) < 1 || len(n.keys) > tr.order {
				t.Fatalf("root len=%d out of [1,%d]", len(n.keys), tr.order)
			}
		} else {
			min := minKeys(tr.order)
			if len(n.keys) < min || len(n.keys) > tr.order {
				t.Fatalf("node len=%d out of [%d,%d]", len(n.keys), min, tr.order)
			}
		}
		if n.leaf {
			if depth == -1 {
				depth = level
			} else if depth != level {
				t.Fatalf("leaf depth %d, want %d", level, depth)
			}
			return nil
		}
		for _, c := range n.children {
			if err := check(c, level+1); err != nil {
				return err
			}
		}
		return nil
	}
	if tr.root != noOffset {
		if err := check(tr.root, 0); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
}

// P6: reopening a tree from its store yields identical query results.
func TestReopenYieldsSameResults(t *testing.T) {
	store := NewMemStore()
	tr, err := Create(store, 6, Uint64Key(0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := uint64(0); i < 40; i++ {
		if _, err := tr.Insert(Uint64Key(i)); err != nil {
			t.Fatalf("insert(%d): %v", i, err)
		}
	}

	reopened, err := Open(store, 6, Uint64Key(0))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := uint64(0); i < 40; i++ {
		ok, err := reopened.Contains(Uint64Key(i))
		if err != nil || !ok {
			t.Fatalf("reopened contains(%d) = %v, %v; want true", i, ok, err)
		}
	}
	if ok, _ := reopened.Contains(Uint64Key(999)); ok {
		t.Fatalf("reopened contains(999) = true, want false")
	}
}

// Open rejects a store whose recorded order/key width disagree.
func TestOpenPreconditionViolation(t *testing.T) {
	store := NewMemStore()
	if _, err := Create(store, 6, Uint64Key(0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := Open(store, 5, Uint64Key(0)); err == nil {
		t.Fatalf("expected precondition error opening with mismatched order")
	}
}
