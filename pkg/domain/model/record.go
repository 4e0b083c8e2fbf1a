package model

import (
	"slices"
	"time"

	"github.com/m-mizutani/releasepost/pkg/domain/types"
)

// Metadata keys attached to every content record
const (
	MetaReleaseTag  = "release_tag"
	MetaDownloadTar = "download_tar"
	MetaDownloadZip = "download_zip"
)

// RecordMeta holds the release tag and download links of a record
type RecordMeta struct {
	ReleaseTag  string `firestore:"release_tag" json:"release_tag"`
	DownloadTar string `firestore:"download_tar" json:"download_tar"`
	DownloadZip string `firestore:"download_zip" json:"download_zip"`
}

// Map returns the metadata as key/value pairs.
func (m RecordMeta) Map() map[string]string {
	return map[string]string{
		MetaReleaseTag:  m.ReleaseTag,
		MetaDownloadTar: m.DownloadTar,
		MetaDownloadZip: m.DownloadZip,
	}
}

// RecordMetaFromMap builds RecordMeta from key/value pairs. Unknown keys are ignored.
func RecordMetaFromMap(kv map[string]string) RecordMeta {
	return RecordMeta{
		ReleaseTag:  kv[MetaReleaseTag],
		DownloadTar: kv[MetaDownloadTar],
		DownloadZip: kv[MetaDownloadZip],
	}
}

// ContentRecord is a persisted article representing one ingested release
type ContentRecord struct {
	ID            types.RecordID   `firestore:"id"`
	Title         string           `firestore:"title"`      // plain text, identity key
	TitleHTML     string           `firestore:"title_html"` // title with the repository link
	Body          string           `firestore:"body"`       // sanitized HTML
	AuthorID      string           `firestore:"author_id"`
	Status        types.PostStatus `firestore:"status"`
	PostType      types.PostType   `firestore:"post_type"`
	Tags          []string         `firestore:"tags"`
	Meta          RecordMeta       `firestore:"meta"`
	ReleaseID     int64            `firestore:"release_id"`
	Repository    string           `firestore:"repository"`     // owner/name
	RepositoryURL string           `firestore:"repository_url"` // web URL, GitHub Enterprise hosts included
	DeliveryID    string           `firestore:"delivery_id"`
	CreatedAt     time.Time        `firestore:"created_at"`
}

// HasTag reports whether the record carries the tag.
func (r *ContentRecord) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}
