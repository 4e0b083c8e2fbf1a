package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/usecase"
)

func TestReleases(t *testing.T) {
	server, _ := newTestServer(t)

	for i, name := range []string{"v1.0.0", "v1.1.0"} {
		body := releasePayload(t, int64(i+1), name)
		_, result := postWebhook(t, server, body, usecase.Sign(testSecret, body))
		gt.Value(t, result.Status).Equal(model.IngestPublished)
	}

	get := func(t *testing.T, query string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/releases"+query, nil)
		w := httptest.NewRecorder()
		server.Handler.ServeHTTP(w, req)
		return w
	}

	t.Run("renders all records", func(t *testing.T) {
		w := get(t, "")
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.String(t, w.Header().Get("Content-Type")).Contains("text/html")

		out := w.Body.String()
		gt.Number(t, strings.Count(out, `class="release"`)).Equal(2)
		gt.String(t, out).Contains("release-downloads")
	})

	t.Run("limit and toggles", func(t *testing.T) {
		w := get(t, "?limit=1&downloads=false&date=0")
		gt.Value(t, w.Code).Equal(http.StatusOK)

		out := w.Body.String()
		gt.Number(t, strings.Count(out, `class="release"`)).Equal(1)
		gt.String(t, out).Contains("v1.1.0")
		gt.String(t, out).NotContains("release-downloads")
		gt.String(t, out).NotContains("release-date")
	})

	t.Run("invalid parameters", func(t *testing.T) {
		for _, q := range []string{"?limit=abc", "?limit=0", "?title=maybe"} {
			w := get(t, q)
			gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		}
	})
}
