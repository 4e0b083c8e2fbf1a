package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	notifier "github.com/m-mizutani/releasepost/pkg/infra/slack"
	"github.com/slack-go/slack"
)

func TestNotifier_NotifyPublished(t *testing.T) {
	var received slack.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	record := &model.ContentRecord{
		ID:         "rec-1",
		Title:      "repo - v2.0",
		Repository: "org/repo",
		Meta: model.RecordMeta{
			ReleaseTag:  "v2.0",
			DownloadZip: "https://example.com/v2.0.zip",
		},
	}

	n := notifier.NewNotifier(server.URL, "#releases")
	gt.NoError(t, n.NotifyPublished(context.Background(), record))

	gt.Value(t, received.Channel).Equal("#releases")
	gt.String(t, received.Text).Contains("repo - v2.0")
	gt.Number(t, len(received.Attachments)).Equal(1)
	gt.Value(t, received.Attachments[0].TitleLink).Equal("https://github.com/org/repo/releases")
	// tar is empty and omitted
	gt.Number(t, len(received.Attachments[0].Fields)).Equal(2)
}

func TestNotifier_EnterpriseRepositoryURL(t *testing.T) {
	var received slack.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	record := &model.ContentRecord{
		ID:            "rec-2",
		Title:         "repo - v3.0",
		Repository:    "org/repo",
		RepositoryURL: "https://github.example.com/org/repo/",
	}

	n := notifier.NewNotifier(server.URL, "")
	gt.NoError(t, n.NotifyPublished(context.Background(), record))
	gt.Value(t, received.Attachments[0].TitleLink).Equal("https://github.example.com/org/repo/releases")
}

func TestNotifier_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := notifier.NewNotifier(server.URL, "")
	err := n.NotifyPublished(context.Background(), &model.ContentRecord{Title: "repo - v2.0"})
	gt.Error(t, err)
}
