package model

import "github.com/m-mizutani/releasepost/pkg/domain/types"

// ClassificationMode selects how records are grouped
type ClassificationMode string

const (
	// ClassificationCustomKind stores records under the dedicated "release" kind without tags
	ClassificationCustomKind ClassificationMode = "custom_kind"
	// ClassificationTag stores records as generic posts carrying a tag label
	ClassificationTag ClassificationMode = "tag"
)

// Classification is resolved once per write and once per read. A query never mixes modes.
type Classification struct {
	Mode ClassificationMode
	Tag  string // only meaningful for ClassificationTag
}

// PostType returns the storage kind for the classification.
func (c Classification) PostType() types.PostType {
	if c.Mode == ClassificationCustomKind {
		return types.PostTypeRelease
	}
	return types.PostTypePost
}

// Matches reports whether a stored record is discoverable under this classification.
func (c Classification) Matches(r *ContentRecord) bool {
	if r.PostType != c.PostType() {
		return false
	}
	if c.Mode == ClassificationTag {
		return r.HasTag(c.Tag)
	}
	return true
}
