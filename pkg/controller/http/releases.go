package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/utils/errutil"
)

// ReleasesHandler renders stored release records as HTML fragments
type ReleasesHandler struct {
	queryUC interfaces.QueryUseCase
}

// NewReleasesHandler creates a new ReleasesHandler
func NewReleasesHandler(queryUC interfaces.QueryUseCase) *ReleasesHandler {
	return &ReleasesHandler{queryUC: queryUC}
}

// Handle serves GET /releases?limit=N&title=bool&date=bool&downloads=bool
func (h *ReleasesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts, err := parseDisplayOptions(r)
	if err != nil {
		writeError(ctx, w, err, http.StatusBadRequest)
		return
	}

	fragments, err := h.queryUC.RenderRecords(ctx, opts)
	if err != nil {
		errutil.Handle(ctx, err)
		writeError(ctx, w, goerr.New("failed to render releases"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(fragments, "\n")))
}

func parseDisplayOptions(r *http.Request) (*model.DisplayOptions, error) {
	q := r.URL.Query()
	opts := &model.DisplayOptions{
		ShowTitle:     true,
		ShowDate:      true,
		ShowDownloads: true,
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return nil, goerr.New("limit must be a positive integer", goerr.V("limit", v))
		}
		opts.Limit = limit
	}

	for key, dst := range map[string]*bool{
		"title":     &opts.ShowTitle,
		"date":      &opts.ShowDate,
		"downloads": &opts.ShowDownloads,
	} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, goerr.New("invalid boolean parameter", goerr.V("key", key), goerr.V("value", v))
		}
		*dst = b
	}

	return opts, nil
}
