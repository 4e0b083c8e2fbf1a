package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
)

//go:embed templates/record.html
var recordTemplate string

const displayDateFormat = "January 2, 2006"

type queryUseCase struct {
	repo     interfaces.RecordRepository
	settings interfaces.SettingsProvider
	tmpl     *template.Template
}

type recordView struct {
	ShowTitle     bool
	ShowDate      bool
	ShowDownloads bool
	Title         template.HTML
	Date          string
	DateTime      string
	Body          template.HTML
	DownloadZip   string
	DownloadTar   string
}

// NewQuery creates a new instance of QueryUseCase
func NewQuery(repo interfaces.RecordRepository, settings interfaces.SettingsProvider) (interfaces.QueryUseCase, error) {
	tmpl, err := template.New("record").Parse(recordTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse record template")
	}

	return &queryUseCase{
		repo:     repo,
		settings: settings,
		tmpl:     tmpl,
	}, nil
}

// ListRecords returns records under the classification configured right now.
func (uc *queryUseCase) ListRecords(ctx context.Context, limit int) ([]*model.ContentRecord, error) {
	settings, err := uc.settings.Settings(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load settings")
	}

	query := &model.RecordQuery{
		Classification: settings.Classification(),
		Limit:          limit,
	}
	records, err := uc.repo.ListRecords(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list records", goerr.V("limit", limit))
	}
	return records, nil
}

func (uc *queryUseCase) RenderRecords(ctx context.Context, opts *model.DisplayOptions) ([]string, error) {
	records, err := uc.ListRecords(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Debug("Rendering records", "count", len(records), "limit", opts.Limit)

	fragments := make([]string, 0, len(records))
	for _, record := range records {
		fragment, err := uc.render(record, opts)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

func (uc *queryUseCase) render(record *model.ContentRecord, opts *model.DisplayOptions) (string, error) {
	title := record.TitleHTML
	if title == "" {
		title = template.HTMLEscapeString(record.Title)
	}

	view := recordView{
		ShowTitle:     opts.ShowTitle,
		ShowDate:      opts.ShowDate,
		ShowDownloads: opts.ShowDownloads,
		// #nosec G203 -- both are passed through the body sanitizer
		Title:       template.HTML(SanitizeHTML(title)),
		Body:        template.HTML(SanitizeHTML(record.Body)),
		Date:        record.CreatedAt.Format(displayDateFormat),
		DateTime:    record.CreatedAt.Format(time.RFC3339),
		DownloadZip: record.Meta.DownloadZip,
		DownloadTar: record.Meta.DownloadTar,
	}

	var buf bytes.Buffer
	if err := uc.tmpl.Execute(&buf, view); err != nil {
		return "", goerr.Wrap(err, "failed to render record", goerr.V("id", record.ID))
	}
	return buf.String(), nil
}
