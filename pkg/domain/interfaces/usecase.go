package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . IngestUseCase QueryUseCase

import (
	"context"

	"github.com/m-mizutani/releasepost/pkg/domain/model"
)

// IngestUseCase turns an inbound webhook request into at most one content record
type IngestUseCase interface {
	// HandleWebhook never returns an error; every outcome is reported in the result
	HandleWebhook(ctx context.Context, req *model.WebhookRequest) *model.IngestResult
}

// QueryUseCase renders stored records for display
type QueryUseCase interface {
	// RenderRecords returns one display fragment per record, most recent first
	RenderRecords(ctx context.Context, opts *model.DisplayOptions) ([]string, error)

	// ListRecords returns records under the currently configured classification
	ListRecords(ctx context.Context, limit int) ([]*model.ContentRecord, error)
}
