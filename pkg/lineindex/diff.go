package lineindex

import (
	"bufio"
	"io"

	"github.com/jrasky/half2/pkg/buftree"
)

// EventKind classifies a line of the re-walked source file against its
// stored index.
type EventKind int

const (
	// Unchanged: the line's hash exists in the index at the position the
	// running offset predicts.
	Unchanged EventKind = iota
	// Moved: the line's hash exists in the index but at a different
	// position; From names where it used to be.
	Moved
	// New: no stored record exists for this line's hash at any order.
	New
)

// LineEvent is the diff engine's per-line classification. Line is the
// current (possibly-modified) file's line number; From is populated for
// Moved and Unchanged, naming the stored position the line resolved to.
type LineEvent struct {
	Kind EventKind
	Line int64
	From int64
}

// Diff implements spec.md 4.3's read-side steps 1-3: for each line of r,
// hash it and probe the stored chain. An exact positional match (accounting
// for the cumulative offset already discovered) is Unchanged; the
// minimum-delta candidate across the chain is a Moved guess; no candidate at
// all is New. Diff never writes back to the tree (spec.md 9, Open Question
// 2): this is a read-only probe.
func Diff(tree *buftree.Tree, r io.Reader) ([]LineEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var events []LineEvent
	var lineNo, cumulative int64

	for scanner.Scan() {
		line := scanner.Bytes()
		h := HashLine(line)

		best, exact, err := bestPlace(tree, h, lineNo+cumulative)
		if err != nil {
			return nil, err
		}

		switch {
		case best == nil:
			events = append(events, LineEvent{Kind: New, Line: lineNo})
		case exact:
			events = append(events, LineEvent{Kind: Unchanged, Line: lineNo, From: best.Node})
		default:
			cumulative += best.Node - (lineNo + cumulative)
			events = append(events, LineEvent{Kind: Moved, Line: lineNo, From: best.Node})
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// bestPlace walks the upsert chain for h, looking for a Place whose Node
// equals target exactly (adopting that offset immediately). Failing an
// exact match anywhere in the chain, it returns the Place with the smallest
// absolute delta from target across the whole chain.
func bestPlace(tree *buftree.Tree, h uint64, target int64) (best *Place, exact bool, err error) {
	order := uint64(0)
	var bestDelta int64 = -1

	for {
		existing, err := tree.Get(RecordKey{Hash: h, Order: order})
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			break
		}
		rec := existing.(RecordKey)
		for i := uint32(0); i < rec.Count; i++ {
			p := rec.Places[i]
			if target == p.Node+p.Offset {
				pp := p
				return &pp, true, nil
			}
			delta := p.Node - target
			if delta < 0 {
				delta = -delta
			}
			if bestDelta == -1 || delta < bestDelta {
				bestDelta = delta
				pp := p
				best = &pp
			}
		}
		order++
	}
	return best, false, nil
}
