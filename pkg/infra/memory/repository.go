package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"
)

type repository struct {
	mu      sync.RWMutex
	records []*model.ContentRecord // insertion order
	byID    map[types.RecordID]*model.ContentRecord
	byTitle map[string]*model.ContentRecord
}

// New creates an in-memory RecordRepository
func New() interfaces.RecordRepository {
	return &repository{
		byID:    make(map[types.RecordID]*model.ContentRecord),
		byTitle: make(map[string]*model.ContentRecord),
	}
}

func (r *repository) FindRecordByTitle(ctx context.Context, title string) (*model.ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.byTitle[title]; ok {
		return cloneRecord(rec), nil
	}
	return nil, nil
}

func (r *repository) FindRecordByReleaseID(ctx context.Context, releaseID int64) (*model.ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.ReleaseID == releaseID {
			return cloneRecord(rec), nil
		}
	}
	return nil, nil
}

// CreateRecord inserts the record with its metadata and tags under one lock.
func (r *repository) CreateRecord(ctx context.Context, record *model.ContentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byTitle[record.Title]; ok {
		return goerr.Wrap(interfaces.ErrRecordExists, "title is taken", goerr.V("title", record.Title))
	}
	if _, ok := r.byID[record.ID]; ok {
		return goerr.Wrap(interfaces.ErrRecordExists, "ID is taken", goerr.V("id", record.ID))
	}

	rec := cloneRecord(record)
	r.records = append(r.records, rec)
	r.byID[rec.ID] = rec
	r.byTitle[rec.Title] = rec
	return nil
}

func (r *repository) PutRecordMeta(ctx context.Context, id types.RecordID, meta model.RecordMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return goerr.New("record not found", goerr.V("id", id))
	}
	rec.Meta = meta
	return nil
}

func (r *repository) AddRecordTag(ctx context.Context, id types.RecordID, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return goerr.New("record not found", goerr.V("id", id))
	}
	if !rec.HasTag(tag) {
		rec.Tags = append(rec.Tags, tag)
	}
	return nil
}

func (r *repository) ListRecords(ctx context.Context, query *model.RecordQuery) ([]*model.ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.ContentRecord
	// Newest insertion first, so records sharing a timestamp keep a stable order
	for i := len(r.records) - 1; i >= 0; i-- {
		if query.Classification.Matches(r.records[i]) {
			result = append(result, cloneRecord(r.records[i]))
		}
	}

	slices.SortStableFunc(result, func(a, b *model.ContentRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

func cloneRecord(rec *model.ContentRecord) *model.ContentRecord {
	c := *rec
	c.Tags = slices.Clone(rec.Tags)
	return &c
}
