package usecase

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"
	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	bodyPolicy  = bluemonday.UGCPolicy()
)

// StripTags removes all markup from s and returns plain text.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// SanitizeHTML restricts s to the safe HTML subset allowed in record bodies.
func SanitizeHTML(s string) string {
	return bodyPolicy.Sanitize(s)
}

// BuildTitleHTML returns "[prefix ]<a href=repo#readme>repo</a> - label".
func BuildTitleHTML(event *model.ReleaseEvent, settings *model.Settings) string {
	var sb strings.Builder

	if settings.TitlePrefix != "" {
		sb.WriteString(settings.TitlePrefix)
		sb.WriteString(" ")
	}

	if short := event.RepositoryShortName(); short != "" {
		sb.WriteString(`<a href="`)
		sb.WriteString(html.EscapeString(event.RepositoryHTMLURL() + "#readme"))
		sb.WriteString(`">`)
		sb.WriteString(html.EscapeString(short))
		sb.WriteString(`</a> - `)
	}

	sb.WriteString(event.Label())
	return sb.String()
}

// BuildTitle returns the markup-free title used as the idempotency key.
func BuildTitle(event *model.ReleaseEvent, settings *model.Settings) string {
	return StripTags(BuildTitleHTML(event, settings))
}

// BuildBody returns the sanitized release description followed by a link to the latest release.
func BuildBody(event *model.ReleaseEvent) string {
	body := SanitizeHTML(event.Body)

	repoURL := event.RepositoryHTMLURL()
	if repoURL == "" {
		return body
	}

	cta := `<p><a href="` + html.EscapeString(repoURL+"/releases/latest") +
		`">Download the latest release</a></p>`
	if body == "" {
		return cta
	}
	return body + "\n" + cta
}

// BuildRecord converts a validated release event into a content record. It does not touch storage.
func BuildRecord(event *model.ReleaseEvent, settings *model.Settings, now time.Time) *model.ContentRecord {
	classification := settings.Classification()

	record := &model.ContentRecord{
		ID:        types.NewRecordID(),
		Title:     BuildTitle(event, settings),
		TitleHTML: SanitizeHTML(BuildTitleHTML(event, settings)),
		Body:      BuildBody(event),
		AuthorID:  settings.AuthorID,
		Status:    types.PostStatusPublished,
		PostType:  classification.PostType(),
		Meta: model.RecordMeta{
			ReleaseTag:  event.TagName,
			DownloadTar: event.TarballURL,
			DownloadZip: event.ZipballURL,
		},
		ReleaseID:     event.ReleaseID,
		Repository:    event.RepositoryFullName,
		RepositoryURL: event.RepositoryHTMLURL(),
		DeliveryID:    event.DeliveryID,
		CreatedAt:     now,
	}

	if classification.Mode == model.ClassificationTag {
		record.Tags = []string{classification.Tag}
	}

	return record
}

// PersistRecord stores the record with its metadata and tags in a single write.
func PersistRecord(ctx context.Context, repo interfaces.RecordRepository, record *model.ContentRecord) error {
	if err := repo.CreateRecord(ctx, record); err != nil {
		return goerr.Wrap(err, "failed to create record", goerr.V("title", record.Title))
	}
	return nil
}

// RepairRecord completes a stored record that lacks the metadata or the tag the built record carries.
// Only a record of the same kind is touched, and a record that already has tags keeps them as they are.
// It reports whether anything was written.
func RepairRecord(ctx context.Context, repo interfaces.RecordRepository, stored, built *model.ContentRecord) (bool, error) {
	if stored.PostType != built.PostType {
		return false, nil
	}

	repaired := false
	if stored.Meta == (model.RecordMeta{}) && built.Meta != (model.RecordMeta{}) {
		if err := repo.PutRecordMeta(ctx, stored.ID, built.Meta); err != nil {
			return repaired, goerr.Wrap(err, "failed to repair record metadata", goerr.V("id", stored.ID))
		}
		repaired = true
	}

	if len(stored.Tags) == 0 {
		for _, tag := range built.Tags {
			if err := repo.AddRecordTag(ctx, stored.ID, tag); err != nil {
				return repaired, goerr.Wrap(err, "failed to repair record tag", goerr.V("id", stored.ID), goerr.V("tag", tag))
			}
			repaired = true
		}
	}

	return repaired, nil
}
