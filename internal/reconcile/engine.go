package reconcile

import (
	"strings"

	"github.com/zombor/cargo-match/internal/extraction"
	"github.com/zombor/cargo-match/internal/scan"
)

// Criterion names the field equality that produced a bundle
type Criterion string

const (
	ByOrderID    Criterion = "PED"
	ByShipmentID Criterion = "REM"
	BySubRoute   Criterion = "SUBROTA"
	ByPostalCode Criterion = "CEP"
)

// Pass weights, highest priority first
const (
	OrderIDScore    = 50
	ShipmentIDScore = 50
	SubRouteScore   = 40
	PostalCodeScore = 30
)

// Bundle is one reconciled shipment: one or more boxes and exactly one note
type Bundle struct {
	Boxes               []scan.Item `json:"boxes"`
	Note                scan.Item   `json:"note"`
	MatchedBy           []Criterion `json:"matched_by"`
	Score               int         `json:"score"`
	Tag                 string      `json:"tag"`
	ExpectedVolumeCount int         `json:"expected_volume_count"`
	MissingBoxCount     int         `json:"missing_box_count"`
}

// Result accounts for every item of a snapshot exactly once
type Result struct {
	Bundles        []Bundle    `json:"bundles"`
	UnmatchedBoxes []scan.Item `json:"unmatched_boxes"`
	UnmatchedNotes []scan.Item `json:"unmatched_notes"`
}

// Snapshot is a frozen copy of the Ready boxes and notes, in insertion order
type Snapshot struct {
	boxes []boxEntry
	notes []noteEntry
}

type boxEntry struct {
	item   scan.Item
	fields extraction.BoxFields
}

type noteEntry struct {
	item   scan.Item
	fields extraction.NoteFields
}

// NewSnapshot copies the Ready items out of items. Items that are not Ready
// are left out; the caller's slice is not retained.
func NewSnapshot(items []scan.Item) Snapshot {
	var s Snapshot
	for _, it := range items {
		switch it.Kind() {
		case scan.KindBox:
			if f, ok := it.Box(); ok {
				s.boxes = append(s.boxes, boxEntry{item: it, fields: f})
			}
		case scan.KindNote:
			if f, ok := it.Note(); ok {
				s.notes = append(s.notes, noteEntry{item: it, fields: f})
			}
		}
	}
	return s
}

// Len returns the number of boxes and notes in the snapshot
func (s Snapshot) Len() (boxes, notes int) {
	return len(s.boxes), len(s.notes)
}

type run struct {
	snap     Snapshot
	boxUsed  []bool
	noteUsed []bool
	bundles  []Bundle
}

// Reconcile pairs boxes with notes in four ordered passes: order id,
// shipment id (grouping boxes), sub-route, postal code. Within a pass the
// first eligible counterpart in snapshot order wins, and an item consumed by
// one pass is never seen by a later one. It never fails.
func Reconcile(s Snapshot) Result {
	r := &run{
		snap:     s,
		boxUsed:  make([]bool, len(s.boxes)),
		noteUsed: make([]bool, len(s.notes)),
	}

	r.pairOneToOne(ByOrderID, OrderIDScore,
		func(b extraction.BoxFields) string { return strings.TrimSpace(b.OrderID) },
		func(n extraction.NoteFields) string { return strings.TrimSpace(n.OrderID) })
	r.groupByShipment()
	r.pairOneToOne(BySubRoute, SubRouteScore,
		func(b extraction.BoxFields) string { return strings.ToUpper(strings.TrimSpace(b.SubRoute)) },
		func(n extraction.NoteFields) string { return strings.ToUpper(strings.TrimSpace(n.SubRoute)) })
	r.pairOneToOne(ByPostalCode, PostalCodeScore,
		func(b extraction.BoxFields) string { return digits(b.PostalCode) },
		func(n extraction.NoteFields) string { return digits(n.PostalCode) })

	res := Result{
		Bundles:        r.bundles,
		UnmatchedBoxes: []scan.Item{},
		UnmatchedNotes: []scan.Item{},
	}
	if res.Bundles == nil {
		res.Bundles = []Bundle{}
	}
	for i, b := range s.boxes {
		if !r.boxUsed[i] {
			res.UnmatchedBoxes = append(res.UnmatchedBoxes, b.item)
		}
	}
	for i, n := range s.notes {
		if !r.noteUsed[i] {
			res.UnmatchedNotes = append(res.UnmatchedNotes, n.item)
		}
	}
	return res
}

func (r *run) pairOneToOne(by Criterion, score int, boxKey func(extraction.BoxFields) string, noteKey func(extraction.NoteFields) string) {
	for bi, b := range r.snap.boxes {
		if r.boxUsed[bi] {
			continue
		}
		key := boxKey(b.fields)
		if key == "" {
			continue
		}
		for ni, n := range r.snap.notes {
			if r.noteUsed[ni] || noteKey(n.fields) != key {
				continue
			}
			r.boxUsed[bi] = true
			r.noteUsed[ni] = true
			r.emit([]int{bi}, ni, by, score)
			break
		}
	}
}

// groupByShipment is the only pass that can put several boxes in one bundle
func (r *run) groupByShipment() {
	var order []string
	groups := make(map[string][]int)
	for bi, b := range r.snap.boxes {
		if r.boxUsed[bi] {
			continue
		}
		key := strings.TrimSpace(b.fields.ShipmentID)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], bi)
	}

	for _, key := range order {
		for ni, n := range r.snap.notes {
			if r.noteUsed[ni] || strings.TrimSpace(n.fields.ShipmentID) != key {
				continue
			}
			for _, bi := range groups[key] {
				r.boxUsed[bi] = true
			}
			r.noteUsed[ni] = true
			r.emit(groups[key], ni, ByShipmentID, ShipmentIDScore)
			break
		}
	}
}

func (r *run) emit(boxIdx []int, noteIdx int, by Criterion, score int) {
	note := r.snap.notes[noteIdx]
	boxes := make([]scan.Item, 0, len(boxIdx))
	expected := 0
	recipient, postal := note.fields.RecipientName, note.fields.PostalCode
	for _, bi := range boxIdx {
		b := r.snap.boxes[bi]
		boxes = append(boxes, b.item)
		if t := b.fields.BoxTotal; t != nil && *t > expected {
			expected = *t
		}
		if recipient == "" {
			recipient = b.fields.RecipientName
		}
		if postal == "" {
			postal = b.fields.PostalCode
		}
	}
	if expected == 0 {
		expected = len(boxes)
	}
	missing := expected - len(boxes)
	if missing < 0 {
		missing = 0
	}

	r.bundles = append(r.bundles, Bundle{
		Boxes:               boxes,
		Note:                note.item,
		MatchedBy:           []Criterion{by},
		Score:               score,
		Tag:                 TagFor(recipient, postal, len(boxes)),
		ExpectedVolumeCount: expected,
		MissingBoxCount:     missing,
	})
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
