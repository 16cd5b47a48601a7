package separation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/cargo-match/internal/export"
	"github.com/zombor/cargo-match/internal/extraction"
	"github.com/zombor/cargo-match/internal/reconcile"
	"github.com/zombor/cargo-match/internal/scan"
	"github.com/zombor/cargo-match/internal/scanning"
)

// IDGenerator generates unique IDs for items and runs. IDs must sort in
// creation order: snapshot order, and so tie-breaking, follows them.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates UUIDv7 ids, which sort by creation time
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service owns scan items from capture to reconciliation. Each submitted
// image is extracted on its own goroutine; removing an item cancels its
// extraction and any late result is dropped on write-back.
type Service struct {
	db          DB
	scanner     scanning.Scanner
	images      ImageStore
	extractor   *extraction.Extractor
	idGenerator IDGenerator
	timeSource  TimeSource

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, images ImageStore, extractor *extraction.Extractor) *Service {
	return NewServiceWithDeps(db, scanner, images, extractor, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, images ImageStore, extractor *extraction.Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	if extractor == nil {
		extractor = extraction.NewExtractor(nil)
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		images:      images,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
		inflight:    make(map[string]context.CancelFunc),
	}
}

// SubmitImage stores the image, records a Pending item and starts its
// extraction. It returns as soon as the item is recorded.
func (s *Service) SubmitImage(ctx context.Context, kind scan.Kind, data []byte, contentType string) (scan.Item, error) {
	if len(data) == 0 {
		return scan.Item{}, errors.New("empty image")
	}
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	ref, err := s.images.SaveImage(id, contentType, data)
	if err != nil {
		return scan.Item{}, fmt.Errorf("saving image: %w", err)
	}

	item := scan.New(id, kind, ref, contentType, now)
	if err := s.db.SaveItem(item); err != nil {
		s.images.RemoveImage(ref)
		return scan.Item{}, fmt.Errorf("saving item: %w", err)
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.inflight[id] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.process(taskCtx, item, data, contentType)

	slog.Info("Scan submitted", "item_id", id, "kind", kind, "content_type", contentType, "size", len(data))
	return item, nil
}

// SubmitBase64 accepts a raw base64 payload or a data URL
func (s *Service) SubmitBase64(ctx context.Context, kind scan.Kind, payload, contentType string) (scan.Item, error) {
	data, mime, err := decodeBase64Image(payload)
	if err != nil {
		return scan.Item{}, err
	}
	if contentType == "" {
		contentType = mime
	}
	return s.SubmitImage(ctx, kind, data, contentType)
}

// SubmitText runs extraction on text recognized elsewhere and records the
// item directly as Ready.
func (s *Service) SubmitText(kind scan.Kind, doc scanning.Document) (scan.Item, error) {
	now := s.timeSource.Now()
	item, err := scan.New(s.idGenerator.Generate(), kind, "", "", now).Start(now)
	if err != nil {
		return scan.Item{}, err
	}
	item, err = s.complete(item, doc)
	if err != nil {
		return scan.Item{}, err
	}
	if err := s.db.SaveItem(item); err != nil {
		return scan.Item{}, fmt.Errorf("saving item: %w", err)
	}
	return item, nil
}

func (s *Service) process(ctx context.Context, item scan.Item, data []byte, contentType string) {
	defer s.wg.Done()
	defer s.forget(item.ID())

	item, err := item.Start(s.timeSource.Now())
	if err != nil {
		slog.Error("Failed to start extraction", "item_id", item.ID(), "error", err)
		return
	}
	if !s.writeBack(item) {
		return
	}

	doc, err := s.scanner.Scan(ctx, data, contentType)
	if ctx.Err() != nil {
		slog.Info("Discarding extraction of removed item", "item_id", item.ID())
		return
	}
	if err != nil {
		failure := &scan.ExtractionFailure{ItemID: item.ID(), Err: err}
		slog.Error("Extraction failed", "item_id", item.ID(), "content_type", contentType, "error", err)
		failed, ferr := item.Fail(failure.Error(), s.timeSource.Now())
		if ferr != nil {
			slog.Error("Failed to record extraction failure", "item_id", item.ID(), "error", ferr)
			return
		}
		s.writeBack(failed)
		return
	}

	ready, err := s.complete(item, *doc)
	if err != nil {
		slog.Error("Failed to complete item", "item_id", item.ID(), "error", err)
		return
	}
	if s.writeBack(ready) {
		slog.Info("Scan ready", "item_id", item.ID(), "kind", item.Kind())
	}
}

// writeBack reports whether the item was still there to be updated
func (s *Service) writeBack(item scan.Item) bool {
	err := s.db.ReplaceItem(item)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrItemNotFound):
		slog.Info("Discarding result for removed item", "item_id", item.ID(), "status", item.Status())
	default:
		slog.Error("Failed to update item", "item_id", item.ID(), "error", err)
	}
	return false
}

func (s *Service) complete(item scan.Item, doc scanning.Document) (scan.Item, error) {
	text := extraction.Normalize(doc.RawText)
	now := s.timeSource.Now()
	switch item.Kind() {
	case scan.KindBox:
		return item.CompleteBox(text, s.extractor.ExtractBox(doc), now)
	case scan.KindNote:
		return item.CompleteNote(text, s.extractor.ExtractNote(doc), now)
	}
	return item, fmt.Errorf("unknown scan kind %q", item.Kind())
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func (s *Service) cancel(id string) {
	s.mu.Lock()
	if cancel, ok := s.inflight[id]; ok {
		cancel()
		delete(s.inflight, id)
	}
	s.mu.Unlock()
}

// Wait blocks until every in-flight extraction has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// GetItem retrieves an item by ID
func (s *Service) GetItem(id string) (scan.Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return scan.Item{}, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items in capture order
func (s *Service) ListItems() ([]scan.Item, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// GetItemImage returns the stored image of an item
func (s *Service) GetItemImage(id string) ([]byte, string, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting item: %w", err)
	}
	if item.ImageRef() == "" {
		return nil, "", fmt.Errorf("item %s has no image", id)
	}
	data, err := s.images.LoadImage(item.ImageRef())
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return data, item.ContentType(), nil
}

// DeleteItem cancels any in-flight extraction and removes the item and its image
func (s *Service) DeleteItem(id string) error {
	s.cancel(id)

	item, err := s.db.GetItem(id)
	if err != nil {
		return fmt.Errorf("getting item for deletion: %w", err)
	}
	if err := s.db.DeleteItem(id); err != nil {
		return fmt.Errorf("deleting item from database: %w", err)
	}
	if ref := item.ImageRef(); ref != "" {
		if err := s.images.RemoveImage(ref); err != nil {
			slog.Warn("Failed to delete image", "item_id", id, "image_ref", ref, "error", err)
		}
	}
	return nil
}

// ClearItems removes every item, cancelling all in-flight extractions
func (s *Service) ClearItems() error {
	s.mu.Lock()
	for id, cancel := range s.inflight {
		cancel()
		delete(s.inflight, id)
	}
	s.mu.Unlock()

	items, err := s.db.ListItems()
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	if err := s.db.ClearItems(); err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}
	for _, item := range items {
		if ref := item.ImageRef(); ref != "" {
			if err := s.images.RemoveImage(ref); err != nil {
				slog.Warn("Failed to delete image", "item_id", item.ID(), "image_ref", ref, "error", err)
			}
		}
	}
	return nil
}

// Snapshot freezes the current Ready items
func (s *Service) Snapshot() (reconcile.Snapshot, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return reconcile.Snapshot{}, fmt.Errorf("listing items: %w", err)
	}
	return reconcile.NewSnapshot(items), nil
}

// Preview reconciles the current snapshot without storing a run
func (s *Service) Preview() (reconcile.Result, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return reconcile.Result{}, err
	}
	return reconcile.Reconcile(snap), nil
}

// Reconcile runs the engine over the current snapshot and stores the run
func (s *Service) Reconcile(dest reconcile.Destination) (*Run, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	res := reconcile.Reconcile(snap)

	run := &Run{
		ID:          s.idGenerator.Generate(),
		Destination: dest,
		Result:      res,
		CreatedAt:   s.timeSource.Now(),
	}
	if err := s.db.SaveRun(run); err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}

	boxes, notes := snap.Len()
	slog.Info("Reconciliation finished",
		"run_id", run.ID,
		"boxes", boxes,
		"notes", notes,
		"bundles", len(res.Bundles),
		"unmatched_boxes", len(res.UnmatchedBoxes),
		"unmatched_notes", len(res.UnmatchedNotes),
	)
	return run, nil
}

// GetRun retrieves a run by ID
func (s *Service) GetRun(id string) (*Run, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, oldest first
func (s *Service) ListRuns() ([]*Run, error) {
	runs, err := s.db.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Manifest renders a stored run as the text report
func (s *Service) Manifest(id string) (string, error) {
	run, err := s.GetRun(id)
	if err != nil {
		return "", err
	}
	return reconcile.FormatManifest(run.Result, run.Destination, run.CreatedAt), nil
}

// ManifestXLSX renders a stored run as a workbook
func (s *Service) ManifestXLSX(id string) ([]byte, error) {
	run, err := s.GetRun(id)
	if err != nil {
		return nil, err
	}
	data, err := export.ManifestXLSX(run.Result, run.Destination, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("rendering workbook: %w", err)
	}
	return data, nil
}

// decodeBase64Image accepts "data:<mime>;base64,<payload>" or bare base64
func decodeBase64Image(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	mime := ""
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", errors.New("malformed data URL")
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = body
	}
	if payload == "" {
		return nil, "", errors.New("empty image")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(payload); rawErr != nil {
			return nil, "", fmt.Errorf("decoding base64 image: %w", err)
		}
	}
	return data, mime, nil
}
