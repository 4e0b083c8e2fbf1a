package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/utils/async"
	"github.com/m-mizutani/releasepost/pkg/utils/errutil"
)

const (
	msgUnauthorized     = "Failed to validate the secret"
	msgMalformedPayload = "malformed payload"
	msgInternal         = "failed to store release"
	msgPartialFailure   = "release stored without complete metadata"
)

type ingestUseCase struct {
	repo     interfaces.RecordRepository
	settings interfaces.SettingsProvider
	notifier interfaces.Notifier
	archiver interfaces.PayloadArchiver
	now      func() time.Time
}

// IngestOption is a functional option for the ingest use case
type IngestOption func(*ingestUseCase)

// WithNotifier announces every published record
func WithNotifier(notifier interfaces.Notifier) IngestOption {
	return func(uc *ingestUseCase) {
		uc.notifier = notifier
	}
}

// WithArchiver keeps the raw payload of every published record
func WithArchiver(archiver interfaces.PayloadArchiver) IngestOption {
	return func(uc *ingestUseCase) {
		uc.archiver = archiver
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) IngestOption {
	return func(uc *ingestUseCase) {
		uc.now = now
	}
}

// NewIngest creates a new instance of IngestUseCase
func NewIngest(repo interfaces.RecordRepository, settings interfaces.SettingsProvider, opts ...IngestOption) interfaces.IngestUseCase {
	uc := &ingestUseCase{
		repo:     repo,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// HandleWebhook runs signature check, payload parsing, duplicate check and record creation in order.
// The first stage that does not pass decides the result.
func (uc *ingestUseCase) HandleWebhook(ctx context.Context, req *model.WebhookRequest) *model.IngestResult {
	logger := ctxlog.From(ctx).With(
		"delivery_id", req.DeliveryID,
		"event_type", req.EventType,
	)
	ctx = ctxlog.With(ctx, logger)

	settings, err := uc.settings.Settings(ctx)
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to load settings"))
		return failedResult(msgInternal)
	}

	if !VerifySignature(settings.WebhookSecret, req.Body, req.Signature) {
		logger.Warn("Invalid webhook signature")
		return &model.IngestResult{
			Status: model.IngestUnauthorized,
			Error:  msgUnauthorized,
		}
	}

	event, err := ParsePayload(req.Body)
	switch {
	case errors.Is(err, ErrMalformedPayload):
		logger.Warn("Malformed webhook payload", "error", err)
		return &model.IngestResult{
			Status: model.IngestRejected,
			Error:  msgMalformedPayload,
		}
	case errors.Is(err, ErrNotARelease):
		logger.Info("Ignoring non-release webhook", "reason", err.Error())
		return &model.IngestResult{
			Success: true,
			Status:  model.IngestIgnored,
		}
	case err != nil:
		errutil.Handle(ctx, goerr.Wrap(err, "failed to parse payload"))
		return failedResult(msgInternal)
	}

	event.DeliveryID = req.DeliveryID
	event.EventType = req.EventType
	event.ReceivedAt = uc.now()

	title := BuildTitle(event, settings)
	logger = logger.With("title", title, "release_id", event.ReleaseID)
	ctx = ctxlog.With(ctx, logger)

	dup, err := uc.findDuplicate(ctx, title, event.ReleaseID)
	if err != nil {
		errutil.Handle(ctx, err)
		return failedResult(msgInternal)
	}

	record := BuildRecord(event, settings, event.ReceivedAt)

	if dup != nil {
		return uc.handleDuplicate(ctx, dup, record)
	}

	switch err := PersistRecord(ctx, uc.repo, record); {
	case err == nil:
	case errors.Is(err, interfaces.ErrRecordExists):
		// Lost a race with a concurrent delivery of the same release
		logger.Info("Release stored by concurrent request")
		return skippedResult(nil)
	default:
		errutil.Handle(ctx, err)
		return failedResult(msgInternal)
	}

	logger.Info("Published release record",
		"record_id", record.ID,
		"post_type", record.PostType,
		"tags", record.Tags,
	)

	uc.dispatchSideEffects(ctx, record, event.RawPayload)

	return &model.IngestResult{
		Success:          true,
		ReleasePublished: true,
		Status:           model.IngestPublished,
		RecordID:         record.ID,
	}
}

// handleDuplicate skips a complete duplicate and repairs one that was stored without its
// metadata or tag, which would otherwise stay out of every listing.
func (uc *ingestUseCase) handleDuplicate(ctx context.Context, dup, built *model.ContentRecord) *model.IngestResult {
	logger := ctxlog.From(ctx).With("record_id", dup.ID)

	repaired, err := RepairRecord(ctx, uc.repo, dup, built)
	if err != nil {
		errutil.Handle(ctx, err)
		return &model.IngestResult{
			ReleasePublished: true,
			Status:           model.IngestPartialFailure,
			Error:            msgPartialFailure,
			RecordID:         dup.ID,
		}
	}
	if !repaired {
		logger.Info("Release already ingested")
		return skippedResult(dup)
	}

	logger.Info("Repaired incomplete release record")
	return &model.IngestResult{
		Success:          true,
		ReleasePublished: true,
		Status:           model.IngestPublished,
		RecordID:         dup.ID,
	}
}

// findDuplicate looks up an equivalent record by title across the whole corpus, then by release ID.
func (uc *ingestUseCase) findDuplicate(ctx context.Context, title string, releaseID int64) (*model.ContentRecord, error) {
	record, err := uc.repo.FindRecordByTitle(ctx, title)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find record by title", goerr.V("title", title))
	}
	if record != nil || releaseID == 0 {
		return record, nil
	}

	record, err = uc.repo.FindRecordByReleaseID(ctx, releaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find record by release ID", goerr.V("release_id", releaseID))
	}
	return record, nil
}

func (uc *ingestUseCase) dispatchSideEffects(ctx context.Context, record *model.ContentRecord, payload []byte) {
	if uc.notifier != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.NotifyPublished(ctx, record)
		})
	}
	if uc.archiver != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.archiver.ArchivePayload(ctx, record, payload)
		})
	}
}

func skippedResult(dup *model.ContentRecord) *model.IngestResult {
	result := &model.IngestResult{
		Success: true,
		Status:  model.IngestSkipped,
	}
	if dup != nil {
		result.RecordID = dup.ID
	}
	return result
}

func failedResult(msg string) *model.IngestResult {
	return &model.IngestResult{
		Status: model.IngestFailed,
		Error:  msg,
	}
}
