package interfaces

import (
	"context"

	"github.com/m-mizutani/releasepost/pkg/domain/model"
)

// Notifier announces a newly published record
type Notifier interface {
	NotifyPublished(ctx context.Context, record *model.ContentRecord) error
}

// PayloadArchiver keeps the raw webhook payload of a published record
type PayloadArchiver interface {
	ArchivePayload(ctx context.Context, record *model.ContentRecord, payload []byte) error
}
