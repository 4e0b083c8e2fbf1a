package model

import "github.com/m-mizutani/releasepost/pkg/domain/types"

// IngestStatus is the terminal state of one webhook request
type IngestStatus string

const (
	IngestPublished      IngestStatus = "published"
	IngestSkipped        IngestStatus = "skipped"
	IngestIgnored        IngestStatus = "ignored"
	IngestRejected       IngestStatus = "rejected"
	IngestUnauthorized   IngestStatus = "unauthorized"
	IngestPartialFailure IngestStatus = "partial_failure"
	IngestFailed         IngestStatus = "failed"
)

// WebhookRequest carries the raw, unparsed parts of an inbound webhook call
type WebhookRequest struct {
	Body       []byte
	Signature  string // X-Hub-Signature header value
	DeliveryID string
	EventType  string
}

// IngestResult is the response body returned for every webhook request
type IngestResult struct {
	Success          bool           `json:"success"`
	ReleasePublished bool           `json:"release_published"`
	Status           IngestStatus   `json:"status"`
	Error            string         `json:"error,omitempty"`
	RecordID         types.RecordID `json:"-"`
}
