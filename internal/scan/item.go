package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zombor/cargo-match/internal/extraction"
)

// Kind distinguishes box labels from invoices and delivery notes
type Kind string

const (
	KindBox  Kind = "box"
	KindNote Kind = "note"
)

// ParseKind accepts "box" or "note"
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBox, KindNote:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown scan kind %q", s)
}

// Status is the lifecycle stage of an Item. Ready and Error are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// ErrInvalidTransition is returned when a transition is not allowed from the current status
var ErrInvalidTransition = errors.New("invalid status transition")

// ExtractionFailure means the OCR collaborator failed for one item
type ExtractionFailure struct {
	ItemID string
	Err    error
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("extraction failed for item %s: %v", e.ItemID, e.Err)
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// Item is one photographed document. Items are values: every transition
// returns a new Item and leaves the receiver untouched. Extracted fields are
// only reachable once the item is Ready.
type Item struct {
	id          string
	kind        Kind
	status      Status
	imageRef    string
	contentType string
	rawText     string
	box         *extraction.BoxFields
	note        *extraction.NoteFields
	failure     string
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a Pending item
func New(id string, kind Kind, imageRef, contentType string, now time.Time) Item {
	return Item{
		id:          id,
		kind:        kind,
		status:      StatusPending,
		imageRef:    imageRef,
		contentType: contentType,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (i Item) ID() string           { return i.id }
func (i Item) Kind() Kind           { return i.kind }
func (i Item) Status() Status       { return i.status }
func (i Item) ImageRef() string     { return i.imageRef }
func (i Item) ContentType() string  { return i.contentType }
func (i Item) CreatedAt() time.Time { return i.createdAt }
func (i Item) UpdatedAt() time.Time { return i.updatedAt }

// RawText is the normalized OCR text of a Ready item
func (i Item) RawText() string {
	if i.status != StatusReady {
		return ""
	}
	return i.rawText
}

// Failure is the error message of an item in the Error state
func (i Item) Failure() string {
	return i.failure
}

// Box returns the extracted fields of a Ready box
func (i Item) Box() (extraction.BoxFields, bool) {
	if i.status != StatusReady || i.box == nil {
		return extraction.BoxFields{}, false
	}
	return *i.box, true
}

// Note returns the extracted fields of a Ready note
func (i Item) Note() (extraction.NoteFields, bool) {
	if i.status != StatusReady || i.note == nil {
		return extraction.NoteFields{}, false
	}
	return *i.note, true
}

// Start moves a Pending item to Processing
func (i Item) Start(now time.Time) (Item, error) {
	if i.status != StatusPending {
		return i, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.status, StatusProcessing)
	}
	i.status = StatusProcessing
	i.updatedAt = now
	return i, nil
}

// CompleteBox moves a Processing box to Ready with its fields
func (i Item) CompleteBox(rawText string, fields extraction.BoxFields, now time.Time) (Item, error) {
	if err := i.checkCompletion(KindBox); err != nil {
		return i, err
	}
	i.status = StatusReady
	i.rawText = rawText
	i.box = &fields
	i.updatedAt = now
	return i, nil
}

// CompleteNote moves a Processing note to Ready with its fields
func (i Item) CompleteNote(rawText string, fields extraction.NoteFields, now time.Time) (Item, error) {
	if err := i.checkCompletion(KindNote); err != nil {
		return i, err
	}
	i.status = StatusReady
	i.rawText = rawText
	i.note = &fields
	i.updatedAt = now
	return i, nil
}

func (i Item) checkCompletion(kind Kind) error {
	if i.status != StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.status, StatusReady)
	}
	if i.kind != kind {
		return fmt.Errorf("%w: %s fields on a %s item", ErrInvalidTransition, kind, i.kind)
	}
	return nil
}

// Fail moves a non-terminal item to Error. No fields are kept.
func (i Item) Fail(message string, now time.Time) (Item, error) {
	if i.status.Terminal() {
		return i, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.status, StatusError)
	}
	i.status = StatusError
	i.failure = message
	i.updatedAt = now
	return i, nil
}

type itemJSON struct {
	ID          string                 `json:"id"`
	Kind        Kind                   `json:"kind"`
	Status      Status                 `json:"status"`
	ImageRef    string                 `json:"image_ref,omitempty"`
	ContentType string                 `json:"content_type,omitempty"`
	RawText     string                 `json:"raw_text,omitempty"`
	Box         *extraction.BoxFields  `json:"box,omitempty"`
	Note        *extraction.NoteFields `json:"note,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:          i.id,
		Kind:        i.kind,
		Status:      i.status,
		ImageRef:    i.imageRef,
		ContentType: i.contentType,
		RawText:     i.rawText,
		Box:         i.box,
		Note:        i.note,
		Error:       i.failure,
		CreatedAt:   i.createdAt,
		UpdatedAt:   i.updatedAt,
	})
}

// UnmarshalJSON rejects records whose fields disagree with their status
func (i *Item) UnmarshalJSON(data []byte) error {
	var w itemJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if _, err := ParseKind(string(w.Kind)); err != nil {
		return err
	}
	switch w.Status {
	case StatusPending, StatusProcessing, StatusError:
		if w.Box != nil || w.Note != nil {
			return fmt.Errorf("item %s: fields present while %s", w.ID, w.Status)
		}
	case StatusReady:
		if (w.Kind == KindBox && w.Box == nil) || (w.Kind == KindNote && w.Note == nil) {
			return fmt.Errorf("item %s: ready without %s fields", w.ID, w.Kind)
		}
		if w.Box != nil && w.Note != nil {
			return fmt.Errorf("item %s: both box and note fields", w.ID)
		}
	default:
		return fmt.Errorf("item %s: unknown status %q", w.ID, w.Status)
	}

	*i = Item{
		id:          w.ID,
		kind:        w.Kind,
		status:      w.Status,
		imageRef:    w.ImageRef,
		contentType: w.ContentType,
		rawText:     w.RawText,
		box:         w.Box,
		note:        w.Note,
		failure:     w.Error,
		createdAt:   w.CreatedAt,
		updatedAt:   w.UpdatedAt,
	}
	return nil
}
