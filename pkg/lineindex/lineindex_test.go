package lineindex

import (
	"strings"
	"testing"

	"github.com/jrasky/half2/pkg/buftree"
	"github.com/stretchr/testify/assert"
)

func newTree(t *testing.T) *buftree.Tree {
	t.Helper()
	tree, err := buftree.Create(buftree.NewMemStore(), 6, RecordKey{})
	assert.NoError(t, err)
	return tree
}

func TestBuildAndDiffUnchanged(t *testing.T) {
	content := "alpha\nbeta\ngamma\ndelta\n"
	tree := newTree(t)

	n, err := Build(tree, strings.NewReader(content))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)

	events, err := Diff(tree, strings.NewReader(content))
	assert.NoError(t, err)
	assert.Len(t, events, 4)
	for i, ev := range events {
		assert.Equal(t, Unchanged, ev.Kind)
		assert.EqualValues(t, i, ev.Line)
		assert.EqualValues(t, i, ev.From)
	}
}

func TestDiffDetectsNewLine(t *testing.T) {
	original := "alpha\nbeta\ngamma\n"
	modified := "alpha\nbeta\nbrand-new\ngamma\n"

	tree := newTree(t)
	_, err := Build(tree, strings.NewReader(original))
	assert.NoError(t, err)

	events, err := Diff(tree, strings.NewReader(modified))
	assert.NoError(t, err)
	assert.Len(t, events, 4)
	assert.Equal(t, Unchanged, events[0].Kind)
	assert.Equal(t, Unchanged, events[1].Kind)
	assert.Equal(t, New, events[2].Kind)
}

// S4: order-chain overflow. Five distinct lines that collide to the same
// hash must spill the fifth record to order=1.
func TestOrderChainOverflow(t *testing.T) {
	tree := newTree(t)
	const h = uint64(42)

	for i := uint32(0); i < 4; i++ {
		order, existing, err := chainToOpenSlot(tree, h)
		assert.NoError(t, err)
		rec := RecordKey{Hash: h, Order: order}
		if existing != nil {
			rec = existing.(RecordKey)
		}
		rec.Places[rec.Count] = Place{Node: int64(i)}
		rec.Count++
		_, err = tree.Insert(rec)
		assert.NoError(t, err)
	}

	order, existing, err := chainToOpenSlot(tree, h)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, order)
	assert.Nil(t, existing)

	rec := RecordKey{Hash: h, Order: order}
	rec.Places[0] = Place{Node: 4}
	rec.Count = 1
	_, err = tree.Insert(rec)
	assert.NoError(t, err)

	at0, err := tree.Get(RecordKey{Hash: h, Order: 0})
	assert.NoError(t, err)
	assert.EqualValues(t, 4, at0.(RecordKey).Count)

	at1, err := tree.Get(RecordKey{Hash: h, Order: 1})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, at1.(RecordKey).Count)

	at2, err := tree.Get(RecordKey{Hash: h, Order: 2})
	assert.NoError(t, err)
	assert.Nil(t, at2)
}

func TestMetaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/meta"

	want := Meta{NodeCount: 17, Order: 6}
	assert.NoError(t, WriteMeta(path, want))

	got, err := ReadMeta(path)
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestManagerBuildOpenDiff(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir, 6)
	defer mgr.Close()

	content := "one\ntwo\nthree\n"
	n, err := mgr.Build("sample.txt", strings.NewReader(content))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	fresh := NewManager(dir, 6)
	defer fresh.Close()

	events, err := fresh.Diff("sample.txt", strings.NewReader(content))
	assert.NoError(t, err)
	assert.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, Unchanged, ev.Kind)
	}
}

func TestManagerOpenRejectsOrderMismatch(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir, 6)
	defer mgr.Close()
	_, err := mgr.Build("sample.txt", strings.NewReader("a\nb\n"))
	assert.NoError(t, err)

	mismatched := NewManager(dir, 5)
	defer mismatched.Close()
	_, err = mismatched.Open("sample.txt")
	assert.Error(t, err)
	assert.ErrorIs(t, err, buftree.ErrPrecondition)
}
