package interfaces

//go:generate moq -out mocks/repository_mock.go -pkg mocks . RecordRepository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"
)

// ErrRecordExists is returned by CreateRecord when a record with the same title is already stored
var ErrRecordExists = goerr.New("record already exists")

// RecordRepository persists content records. Implementations must enforce title uniqueness in CreateRecord.
type RecordRepository interface {
	// FindRecordByTitle returns the record with exactly the title among all records, or nil if none
	FindRecordByTitle(ctx context.Context, title string) (*model.ContentRecord, error)

	// FindRecordByReleaseID returns the record created for the release, or nil if none
	FindRecordByReleaseID(ctx context.Context, releaseID int64) (*model.ContentRecord, error)

	// CreateRecord stores the record together with its metadata and tags in one write
	CreateRecord(ctx context.Context, record *model.ContentRecord) error

	// PutRecordMeta replaces the metadata of a stored record
	PutRecordMeta(ctx context.Context, id types.RecordID, meta model.RecordMeta) error

	// AddRecordTag adds a tag to a stored record
	AddRecordTag(ctx context.Context, id types.RecordID, tag string) error

	// ListRecords returns records matching the query, most recent first
	ListRecords(ctx context.Context, query *model.RecordQuery) ([]*model.ContentRecord, error)
}
