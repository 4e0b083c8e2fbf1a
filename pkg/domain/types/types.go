package types

import "github.com/google/uuid"

// Version is the application version, overwritten at build time via -ldflags.
var Version = "v0.1.0"

// ServiceName is reported by the health endpoint.
const ServiceName = "releasepost"

// DefaultTagLabel is applied to records stored as generic posts when no label is configured.
const DefaultTagLabel = "Opensource"

// RecordID identifies a stored content record.
type RecordID string

// NewRecordID generates a random record ID.
func NewRecordID() RecordID {
	return RecordID(uuid.NewString())
}

func (x RecordID) String() string { return string(x) }

// PostType is the storage kind of a content record.
type PostType string

const (
	// PostTypeRelease is the dedicated record kind used in custom-kind mode.
	PostTypeRelease PostType = "release"
	// PostTypePost is the generic kind used in tag mode.
	PostTypePost PostType = "post"
)

// PostStatus is the publication state of a record.
type PostStatus string

const (
	PostStatusPublished PostStatus = "publish"
)
