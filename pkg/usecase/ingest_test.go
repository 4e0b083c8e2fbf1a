package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"
	"github.com/m-mizutani/releasepost/pkg/infra/memory"
	"github.com/m-mizutani/releasepost/pkg/infra/settings"
	"github.com/m-mizutani/releasepost/pkg/usecase"
)

const testSecret = "test-secret"

// MockRepository delegates to an in-memory repository unless a ...Func is set
type MockRepository struct {
	interfaces.RecordRepository
	findRecordByTitleFunc func(ctx context.Context, title string) (*model.ContentRecord, error)
	createRecordFunc      func(ctx context.Context, record *model.ContentRecord) error
	putRecordMetaFunc     func(ctx context.Context, id types.RecordID, meta model.RecordMeta) error
	addRecordTagFunc      func(ctx context.Context, id types.RecordID, tag string) error
}

func newMockRepository() *MockRepository {
	return &MockRepository{RecordRepository: memory.New()}
}

func (m *MockRepository) FindRecordByTitle(ctx context.Context, title string) (*model.ContentRecord, error) {
	if m.findRecordByTitleFunc != nil {
		return m.findRecordByTitleFunc(ctx, title)
	}
	return m.RecordRepository.FindRecordByTitle(ctx, title)
}

func (m *MockRepository) CreateRecord(ctx context.Context, record *model.ContentRecord) error {
	if m.createRecordFunc != nil {
		return m.createRecordFunc(ctx, record)
	}
	return m.RecordRepository.CreateRecord(ctx, record)
}

func (m *MockRepository) PutRecordMeta(ctx context.Context, id types.RecordID, meta model.RecordMeta) error {
	if m.putRecordMetaFunc != nil {
		return m.putRecordMetaFunc(ctx, id, meta)
	}
	return m.RecordRepository.PutRecordMeta(ctx, id, meta)
}

func (m *MockRepository) AddRecordTag(ctx context.Context, id types.RecordID, tag string) error {
	if m.addRecordTagFunc != nil {
		return m.addRecordTagFunc(ctx, id, tag)
	}
	return m.RecordRepository.AddRecordTag(ctx, id, tag)
}

func releasePayload(t *testing.T, releaseID int64, name string) []byte {
	t.Helper()
	payload := map[string]any{
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
		},
	}
	body, err := json.Marshal(payload)
	gt.NoError(t, err)
	return body
}

func signedRequest(body []byte) *model.WebhookRequest {
	return &model.WebhookRequest{
		Body:       body,
		Signature:  usecase.Sign(testSecret, body),
		DeliveryID: "delivery-1",
		EventType:  "release",
	}
}

func listAll(t *testing.T, repo interfaces.RecordRepository, c model.Classification) []*model.ContentRecord {
	t.Helper()
	records, err := repo.ListRecords(context.Background(), &model.RecordQuery{Classification: c})
	gt.NoError(t, err)
	return records
}

var (
	tagOpensource = model.Classification{Mode: model.ClassificationTag, Tag: "Opensource"}
	customKind    = model.Classification{Mode: model.ClassificationCustomKind}
)

func TestIngest_HandleWebhook_Published(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	uc := usecase.NewIngest(repo,
		settings.NewStatic(model.Settings{WebhookSecret: testSecret, AuthorID: "1"}),
		usecase.WithClock(func() time.Time { return now }),
	)

	result := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
	gt.Value(t, result.Status).Equal(model.IngestPublished)
	gt.Value(t, result.Success).Equal(true)
	gt.Value(t, result.ReleasePublished).Equal(true)
	gt.Value(t, result.Error).Equal("")

	records := listAll(t, repo, tagOpensource)
	gt.Number(t, len(records)).Equal(1)
	gt.Value(t, records[0].ID).Equal(result.RecordID)
	gt.Value(t, records[0].Title).Equal("repo - v2.0")
	gt.Value(t, records[0].AuthorID).Equal("1")
	gt.Value(t, records[0].DeliveryID).Equal("delivery-1")
	gt.Value(t, records[0].Meta.ReleaseTag).Equal("v2.0")
	gt.Value(t, records[0].Meta.DownloadZip).Equal("https://api.github.com/repos/org/repo/zipball/v2.0")
	gt.Value(t, records[0].Meta.DownloadTar).Equal("https://api.github.com/repos/org/repo/tarball/v2.0")
	gt.True(t, records[0].CreatedAt.Equal(now))
}

func TestIngest_HandleWebhook_Classification(t *testing.T) {
	ctx := context.Background()

	t.Run("custom kind", func(t *testing.T) {
		repo := newMockRepository()
		uc := usecase.NewIngest(repo, settings.NewStatic(model.Settings{WebhookSecret: testSecret, CustomPostType: true}))

		result := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestPublished)

		records := listAll(t, repo, customKind)
		gt.Number(t, len(records)).Equal(1)
		gt.Number(t, len(records[0].Tags)).Equal(0)
		gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(0)
	})

	t.Run("generic tag", func(t *testing.T) {
		repo := newMockRepository()
		uc := usecase.NewIngest(repo, settings.NewStatic(model.Settings{WebhookSecret: testSecret, TagLabel: "News"}))

		result := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestPublished)

		records := listAll(t, repo, model.Classification{Mode: model.ClassificationTag, Tag: "News"})
		gt.Number(t, len(records)).Equal(1)
		gt.Value(t, records[0].Tags).Equal([]string{"News"})
		gt.Number(t, len(listAll(t, repo, customKind))).Equal(0)
	})
}

func TestIngest_HandleWebhook_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	uc := usecase.NewIngest(repo, settings.NewStatic(model.Settings{WebhookSecret: testSecret}))

	first := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
	gt.Value(t, first.Status).Equal(model.IngestPublished)

	t.Run("redelivery is skipped", func(t *testing.T) {
		second := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, second.Status).Equal(model.IngestSkipped)
		gt.Value(t, second.Success).Equal(true)
		gt.Value(t, second.ReleasePublished).Equal(false)
		gt.Value(t, second.RecordID).Equal(first.RecordID)
		gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(1)
	})

	t.Run("same title from another release is skipped", func(t *testing.T) {
		result := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 2, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestSkipped)
		gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(1)
	})

	t.Run("renamed release with same release ID is skipped", func(t *testing.T) {
		result := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0-renamed")))
		gt.Value(t, result.Status).Equal(model.IngestSkipped)
		gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(1)
	})

	t.Run("title match spans classifications", func(t *testing.T) {
		customUC := usecase.NewIngest(repo, settings.NewStatic(model.Settings{WebhookSecret: testSecret, CustomPostType: true}))
		result := customUC.HandleWebhook(ctx, signedRequest(releasePayload(t, 3, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestSkipped)
		gt.Number(t, len(listAll(t, repo, customKind))).Equal(0)
	})

	t.Run("another release is published", func(t *testing.T) {
		result := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 4, "v2.1")))
		gt.Value(t, result.Status).Equal(model.IngestPublished)
		gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(2)
	})
}

func TestIngest_HandleWebhook_ConcurrentDeliveries(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	uc := usecase.NewIngest(repo, settings.NewStatic(model.Settings{WebhookSecret: testSecret}))
	body := releasePayload(t, 1, "v2.0")

	var wg sync.WaitGroup
	results := make([]*model.IngestResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = uc.HandleWebhook(ctx, signedRequest(body))
		}(i)
	}
	wg.Wait()

	published := 0
	for _, r := range results {
		switch r.Status {
		case model.IngestPublished:
			published++
		case model.IngestSkipped:
		default:
			t.Errorf("unexpected status %s", r.Status)
		}
	}
	gt.Number(t, published).Equal(1)
	gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(1)
}

func TestIngest_HandleWebhook_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		req        func(t *testing.T) *model.WebhookRequest
		wantStatus model.IngestStatus
		wantOK     bool
		wantError  string
	}{
		{
			name: "missing signature",
			req: func(t *testing.T) *model.WebhookRequest {
				return &model.WebhookRequest{Body: releasePayload(t, 1, "v2.0")}
			},
			wantStatus: model.IngestUnauthorized,
			wantError:  "Failed to validate the secret",
		},
		{
			name: "signature over another body",
			req: func(t *testing.T) *model.WebhookRequest {
				req := signedRequest(releasePayload(t, 1, "v2.0"))
				req.Body = releasePayload(t, 1, "v2.1")
				return req
			},
			wantStatus: model.IngestUnauthorized,
			wantError:  "Failed to validate the secret",
		},
		{
			name: "malformed JSON",
			req: func(t *testing.T) *model.WebhookRequest {
				return signedRequest([]byte(`{"action": "published", "release": `))
			},
			wantStatus: model.IngestRejected,
			wantError:  "malformed payload",
		},
		{
			name: "missing release",
			req: func(t *testing.T) *model.WebhookRequest {
				return signedRequest([]byte(`{"action":"published","repository":{"full_name":"org/repo"}}`))
			},
			wantStatus: model.IngestIgnored,
			wantOK:     true,
		},
		{
			name: "missing action",
			req: func(t *testing.T) *model.WebhookRequest {
				return signedRequest([]byte(`{"release":{"tag_name":"v1"}}`))
			},
			wantStatus: model.IngestIgnored,
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			uc := usecase.NewIngest(repo, settings.NewStatic(model.Settings{WebhookSecret: testSecret}))

			result := uc.HandleWebhook(ctx, tt.req(t))
			gt.Value(t, result.Status).Equal(tt.wantStatus)
			gt.Value(t, result.Success).Equal(tt.wantOK)
			gt.Value(t, result.ReleasePublished).Equal(false)
			gt.Value(t, result.Error).Equal(tt.wantError)
			gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(0)
		})
	}
}

func TestIngest_HandleWebhook_StorageFailures(t *testing.T) {
	ctx := context.Background()
	provider := settings.NewStatic(model.Settings{WebhookSecret: testSecret})

	t.Run("lookup failure", func(t *testing.T) {
		repo := newMockRepository()
		repo.findRecordByTitleFunc = func(ctx context.Context, title string) (*model.ContentRecord, error) {
			return nil, errors.New("connection refused")
		}

		result := usecase.NewIngest(repo, provider).HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestFailed)
		gt.Value(t, result.Success).Equal(false)
		gt.Value(t, result.ReleasePublished).Equal(false)
	})

	t.Run("primary write failure", func(t *testing.T) {
		repo := newMockRepository()
		repo.createRecordFunc = func(ctx context.Context, record *model.ContentRecord) error {
			return errors.New("disk full")
		}

		result := usecase.NewIngest(repo, provider).HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestFailed)
		gt.Value(t, result.ReleasePublished).Equal(false)
	})

	t.Run("lost race surfaces as duplicate", func(t *testing.T) {
		repo := newMockRepository()
		repo.createRecordFunc = func(ctx context.Context, record *model.ContentRecord) error {
			return interfaces.ErrRecordExists
		}

		result := usecase.NewIngest(repo, provider).HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestSkipped)
		gt.Value(t, result.Success).Equal(true)
	})

	t.Run("record is written in one call", func(t *testing.T) {
		repo := newMockRepository()
		repo.putRecordMetaFunc = func(ctx context.Context, id types.RecordID, meta model.RecordMeta) error {
			t.Error("metadata must be stored with the record")
			return nil
		}
		repo.addRecordTagFunc = func(ctx context.Context, id types.RecordID, tag string) error {
			t.Error("tags must be stored with the record")
			return nil
		}

		result := usecase.NewIngest(repo, provider).HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestPublished)

		records := listAll(t, repo, tagOpensource)
		gt.Number(t, len(records)).Equal(1)
		gt.Value(t, records[0].Meta.ReleaseTag).Equal("v2.0")
	})

	t.Run("settings failure", func(t *testing.T) {
		repo := newMockRepository()
		broken := settings.NewFile(t.TempDir()+"/missing.toml", model.Settings{})

		result := usecase.NewIngest(repo, broken).HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
		gt.Value(t, result.Status).Equal(model.IngestFailed)
	})
}

func TestIngest_HandleWebhook_RepairsIncompleteRecord(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	uc := usecase.NewIngest(repo, settings.NewStatic(model.Settings{WebhookSecret: testSecret}))

	// left behind by an earlier write that stored the record but neither metadata nor tag
	stored := &model.ContentRecord{
		ID:        types.NewRecordID(),
		Title:     "repo - v2.0",
		Status:    types.PostStatusPublished,
		PostType:  types.PostTypePost,
		ReleaseID: 1,
		CreatedAt: time.Now(),
	}
	gt.NoError(t, repo.RecordRepository.CreateRecord(ctx, stored))
	gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(0)

	tagFailures := 1
	repo.addRecordTagFunc = func(ctx context.Context, id types.RecordID, tag string) error {
		if tagFailures > 0 {
			tagFailures--
			return errors.New("timeout")
		}
		return repo.RecordRepository.AddRecordTag(ctx, id, tag)
	}

	first := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
	gt.Value(t, first.Status).Equal(model.IngestPartialFailure)
	gt.Value(t, first.Success).Equal(false)
	gt.Value(t, first.ReleasePublished).Equal(true)
	gt.Value(t, first.RecordID).Equal(stored.ID)
	gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(0)

	second := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
	gt.Value(t, second.Status).Equal(model.IngestPublished)
	gt.Value(t, second.RecordID).Equal(stored.ID)

	records := listAll(t, repo, tagOpensource)
	gt.Number(t, len(records)).Equal(1)
	gt.Value(t, records[0].ID).Equal(stored.ID)
	gt.Value(t, records[0].Meta.ReleaseTag).Equal("v2.0")

	third := uc.HandleWebhook(ctx, signedRequest(releasePayload(t, 1, "v2.0")))
	gt.Value(t, third.Status).Equal(model.IngestSkipped)
	gt.Number(t, len(listAll(t, repo, tagOpensource))).Equal(1)
}

type recordingNotifier struct {
	called chan *model.ContentRecord
}

func (n *recordingNotifier) NotifyPublished(ctx context.Context, record *model.ContentRecord) error {
	n.called <- record
	return nil
}

type recordingArchiver struct {
	called chan []byte
}

func (a *recordingArchiver) ArchivePayload(ctx context.Context, record *model.ContentRecord, payload []byte) error {
	a.called <- payload
	return nil
}

func TestIngest_HandleWebhook_SideEffects(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{called: make(chan *model.ContentRecord, 1)}
	archiver := &recordingArchiver{called: make(chan []byte, 1)}
	body := releasePayload(t, 1, "v2.0")

	uc := usecase.NewIngest(newMockRepository(),
		settings.NewStatic(model.Settings{WebhookSecret: testSecret}),
		usecase.WithNotifier(notifier),
		usecase.WithArchiver(archiver),
	)

	result := uc.HandleWebhook(ctx, signedRequest(body))
	gt.Value(t, result.Status).Equal(model.IngestPublished)

	select {
	case record := <-notifier.called:
		gt.Value(t, record.Title).Equal("repo - v2.0")
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}

	select {
	case payload := <-archiver.called:
		gt.Value(t, string(payload)).Equal(string(body))
	case <-time.After(time.Second):
		t.Fatal("archiver was not called")
	}

	// No side effects for a skipped delivery
	result = uc.HandleWebhook(ctx, signedRequest(body))
	gt.Value(t, result.Status).Equal(model.IngestSkipped)
	select {
	case <-notifier.called:
		t.Fatal("notifier was called for a duplicate")
	case <-time.After(100 * time.Millisecond):
	}
}
