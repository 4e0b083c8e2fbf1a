package http_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/releasepost/pkg/controller/http"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/infra/memory"
	"github.com/m-mizutani/releasepost/pkg/infra/settings"
	"github.com/m-mizutani/releasepost/pkg/usecase"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, opts ...controller.Option) (*controller.Server, interfaces.RecordRepository) {
	t.Helper()
	ctx := context.Background()

	repo := memory.New()
	provider := settings.NewStatic(model.Settings{
		WebhookSecret: testSecret,
		AuthorID:      "1",
		TitlePrefix:   "New release:",
	})

	queryUC, err := usecase.NewQuery(repo, provider)
	gt.NoError(t, err)

	opts = append([]controller.Option{controller.WithAddr("localhost:0")}, opts...)
	server, err := controller.NewServer(ctx, usecase.NewIngest(repo, provider), queryUC, opts...)
	gt.NoError(t, err)

	return server, repo
}

func releasePayload(t *testing.T, releaseID int64, name string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"action": "published",
		"release": map[string]any{
			"id":          releaseID,
			"name":        name,
			"tag_name":    name,
			"body":        "<p>notes</p>",
			"tarball_url": "https://api.github.com/repos/org/repo/tarball/" + name,
			"zipball_url": "https://api.github.com/repos/org/repo/zipball/" + name,
		},
		"repository": map[string]any{
			"full_name": "org/repo",
			"html_url":  "https://github.com/org/repo",
		},
	})
	gt.NoError(t, err)
	return body
}
