package model

import "github.com/m-mizutani/releasepost/pkg/domain/types"

// Settings is the operator supplied configuration read by the core per request
type Settings struct {
	WebhookSecret  string `masq:"secret"`
	AuthorID       string
	CustomPostType bool
	TitlePrefix    string
	TagLabel       string
}

// EffectiveTagLabel returns the configured tag label or the default one.
func (s *Settings) EffectiveTagLabel() string {
	if s.TagLabel == "" {
		return types.DefaultTagLabel
	}
	return s.TagLabel
}

// Classification resolves the classification mode of the settings.
func (s *Settings) Classification() Classification {
	if s.CustomPostType {
		return Classification{Mode: ClassificationCustomKind}
	}
	return Classification{Mode: ClassificationTag, Tag: s.EffectiveTagLabel()}
}
