package http

import (
	"io"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
)

// WebhookHandler receives GitHub release webhooks
type WebhookHandler struct {
	ingestUC     interfaces.IngestUseCase
	strictStatus bool
	maxBodySize  int64
}

// HandlerOption is a functional option for WebhookHandler
type HandlerOption func(*WebhookHandler)

// WithHandlerStrictStatus maps outcomes to non-200 status codes
func WithHandlerStrictStatus(strict bool) HandlerOption {
	return func(h *WebhookHandler) {
		h.strictStatus = strict
	}
}

// WithHandlerMaxBodySize limits the request body size
func WithHandlerMaxBodySize(size int64) HandlerOption {
	return func(h *WebhookHandler) {
		h.maxBodySize = size
	}
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingestUC interfaces.IngestUseCase, opts ...HandlerOption) *WebhookHandler {
	h := &WebhookHandler{
		ingestUC:    ingestUC,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes webhook requests. The body is passed on as the exact bytes received,
// since the signature covers the raw payload.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		logger.Warn("Failed to read request body", "error", err)
		result := &model.IngestResult{
			Status: model.IngestRejected,
			Error:  "malformed payload",
		}
		writeJSON(ctx, w, h.statusCode(result), result)
		return
	}

	result := h.ingestUC.HandleWebhook(ctx, &model.WebhookRequest{
		Body:       body,
		Signature:  r.Header.Get("X-Hub-Signature"),
		DeliveryID: r.Header.Get("X-GitHub-Delivery"),
		EventType:  r.Header.Get("X-GitHub-Event"),
	})

	writeJSON(ctx, w, h.statusCode(result), result)
}

// statusCode is always 200 unless strict status mapping is enabled
func (h *WebhookHandler) statusCode(result *model.IngestResult) int {
	if !h.strictStatus {
		return http.StatusOK
	}

	switch result.Status {
	case model.IngestUnauthorized:
		return http.StatusUnauthorized
	case model.IngestRejected:
		return http.StatusBadRequest
	case model.IngestSkipped:
		return http.StatusConflict
	case model.IngestPartialFailure, model.IngestFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
