// Package repotest is a behavior suite shared by every RecordRepository implementation.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"
)

// Run executes the suite. newRepo must return an empty repository on every call.
func Run(t *testing.T, newRepo func() interfaces.RecordRepository) {
	t.Run("create and find by title", func(t *testing.T) {
		testCreateAndFind(t, newRepo())
	})
	t.Run("title is unique", func(t *testing.T) {
		testTitleUnique(t, newRepo())
	})
	t.Run("find by release ID", func(t *testing.T) {
		testFindByReleaseID(t, newRepo())
	})
	t.Run("create stores metadata and tags", func(t *testing.T) {
		testCreateWithMetaAndTags(t, newRepo())
	})
	t.Run("metadata and tags", func(t *testing.T) {
		testMetaAndTags(t, newRepo())
	})
	t.Run("list by classification", func(t *testing.T) {
		testListByClassification(t, newRepo())
	})
	t.Run("list order and limit", func(t *testing.T) {
		testListOrderAndLimit(t, newRepo())
	})
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// NewRecord returns a primary record with no metadata or tags.
func NewRecord(title string, postType types.PostType, createdAt time.Time) *model.ContentRecord {
	return &model.ContentRecord{
		ID:            types.NewRecordID(),
		Title:         title,
		TitleHTML:     title,
		Body:          "<p>" + title + "</p>",
		AuthorID:      "1",
		Status:        types.PostStatusPublished,
		PostType:      postType,
		Repository:    "org/repo",
		RepositoryURL: "https://github.example.com/org/repo",
		CreatedAt:     createdAt,
	}
}

func testCreateAndFind(t *testing.T, repo interfaces.RecordRepository) {
	ctx := context.Background()

	found, err := repo.FindRecordByTitle(ctx, "repo - v1.0")
	gt.NoError(t, err)
	gt.Value(t, found == nil).Equal(true)

	rec := NewRecord("repo - v1.0", types.PostTypeRelease, baseTime)
	rec.ReleaseID = 100
	rec.DeliveryID = "delivery-1"
	gt.NoError(t, repo.CreateRecord(ctx, rec))

	found, err = repo.FindRecordByTitle(ctx, "repo - v1.0")
	gt.NoError(t, err)
	gt.Value(t, found == nil).Equal(false)
	gt.Value(t, found.ID).Equal(rec.ID)
	gt.Value(t, found.Title).Equal(rec.Title)
	gt.Value(t, found.TitleHTML).Equal(rec.TitleHTML)
	gt.Value(t, found.Body).Equal(rec.Body)
	gt.Value(t, found.AuthorID).Equal(rec.AuthorID)
	gt.Value(t, found.Status).Equal(rec.Status)
	gt.Value(t, found.PostType).Equal(rec.PostType)
	gt.Value(t, found.ReleaseID).Equal(rec.ReleaseID)
	gt.Value(t, found.Repository).Equal(rec.Repository)
	gt.Value(t, found.RepositoryURL).Equal(rec.RepositoryURL)
	gt.Value(t, found.DeliveryID).Equal(rec.DeliveryID)
	gt.True(t, found.CreatedAt.Equal(rec.CreatedAt))

	// exact match only
	found, err = repo.FindRecordByTitle(ctx, "repo - v1.0 ")
	gt.NoError(t, err)
	gt.Value(t, found == nil).Equal(true)
}

func testTitleUnique(t *testing.T, repo interfaces.RecordRepository) {
	ctx := context.Background()

	gt.NoError(t, repo.CreateRecord(ctx, NewRecord("repo - v1.0", types.PostTypePost, baseTime)))

	err := repo.CreateRecord(ctx, NewRecord("repo - v1.0", types.PostTypeRelease, baseTime.Add(time.Minute)))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, interfaces.ErrRecordExists))

	all, err := repo.ListRecords(ctx, &model.RecordQuery{
		Classification: model.Classification{Mode: model.ClassificationCustomKind},
	})
	gt.NoError(t, err)
	gt.Number(t, len(all)).Equal(0)
}

func testFindByReleaseID(t *testing.T, repo interfaces.RecordRepository) {
	ctx := context.Background()

	rec := NewRecord("repo - v2.0", types.PostTypeRelease, baseTime)
	rec.ReleaseID = 200
	gt.NoError(t, repo.CreateRecord(ctx, rec))

	found, err := repo.FindRecordByReleaseID(ctx, 200)
	gt.NoError(t, err)
	gt.Value(t, found == nil).Equal(false)
	gt.Value(t, found.ID).Equal(rec.ID)

	found, err = repo.FindRecordByReleaseID(ctx, 201)
	gt.NoError(t, err)
	gt.Value(t, found == nil).Equal(true)
}

func testCreateWithMetaAndTags(t *testing.T, repo interfaces.RecordRepository) {
	ctx := context.Background()

	rec := NewRecord("repo - v2.5", types.PostTypePost, baseTime)
	rec.Meta = model.RecordMeta{
		ReleaseTag:  "v2.5",
		DownloadTar: "https://example.com/v2.5.tar.gz",
		DownloadZip: "https://example.com/v2.5.zip",
	}
	rec.Tags = []string{"Opensource"}
	gt.NoError(t, repo.CreateRecord(ctx, rec))

	found, err := repo.FindRecordByTitle(ctx, "repo - v2.5")
	gt.NoError(t, err)
	gt.Value(t, found.Meta).Equal(rec.Meta)
	gt.Value(t, found.Tags).Equal([]string{"Opensource"})

	got, err := repo.ListRecords(ctx, &model.RecordQuery{
		Classification: model.Classification{Mode: model.ClassificationTag, Tag: "Opensource"},
	})
	gt.NoError(t, err)
	gt.Number(t, len(got)).Equal(1)

	// a rejected duplicate leaves nothing behind
	dup := NewRecord("repo - v2.5", types.PostTypePost, baseTime)
	dup.Tags = []string{"News"}
	gt.True(t, errors.Is(repo.CreateRecord(ctx, dup), interfaces.ErrRecordExists))

	got, err = repo.ListRecords(ctx, &model.RecordQuery{
		Classification: model.Classification{Mode: model.ClassificationTag, Tag: "News"},
	})
	gt.NoError(t, err)
	gt.Number(t, len(got)).Equal(0)
}

func testMetaAndTags(t *testing.T, repo interfaces.RecordRepository) {
	ctx := context.Background()

	rec := NewRecord("repo - v3.0", types.PostTypePost, baseTime)
	gt.NoError(t, repo.CreateRecord(ctx, rec))

	meta := model.RecordMeta{
		ReleaseTag:  "v3.0",
		DownloadTar: "https://example.com/v3.0.tar.gz",
		DownloadZip: "https://example.com/v3.0.zip",
	}
	gt.NoError(t, repo.PutRecordMeta(ctx, rec.ID, meta))
	gt.NoError(t, repo.AddRecordTag(ctx, rec.ID, "Opensource"))
	gt.NoError(t, repo.AddRecordTag(ctx, rec.ID, "Opensource"))

	found, err := repo.FindRecordByTitle(ctx, "repo - v3.0")
	gt.NoError(t, err)
	gt.Value(t, found.Meta).Equal(meta)
	gt.Value(t, found.Tags).Equal([]string{"Opensource"})

	gt.Error(t, repo.PutRecordMeta(ctx, types.NewRecordID(), meta))
	gt.Error(t, repo.AddRecordTag(ctx, types.NewRecordID(), "Opensource"))
}

func testListByClassification(t *testing.T, repo interfaces.RecordRepository) {
	ctx := context.Background()

	kind := NewRecord("kind record", types.PostTypeRelease, baseTime)
	tagged := NewRecord("tagged post", types.PostTypePost, baseTime.Add(time.Minute))
	otherTag := NewRecord("other tag post", types.PostTypePost, baseTime.Add(2*time.Minute))
	untagged := NewRecord("untagged post", types.PostTypePost, baseTime.Add(3*time.Minute))

	for _, rec := range []*model.ContentRecord{kind, tagged, otherTag, untagged} {
		gt.NoError(t, repo.CreateRecord(ctx, rec))
	}
	gt.NoError(t, repo.AddRecordTag(ctx, tagged.ID, "Opensource"))
	gt.NoError(t, repo.AddRecordTag(ctx, otherTag.ID, "News"))

	got, err := repo.ListRecords(ctx, &model.RecordQuery{
		Classification: model.Classification{Mode: model.ClassificationCustomKind},
	})
	gt.NoError(t, err)
	gt.Number(t, len(got)).Equal(1)
	gt.Value(t, got[0].ID).Equal(kind.ID)

	got, err = repo.ListRecords(ctx, &model.RecordQuery{
		Classification: model.Classification{Mode: model.ClassificationTag, Tag: "Opensource"},
	})
	gt.NoError(t, err)
	gt.Number(t, len(got)).Equal(1)
	gt.Value(t, got[0].ID).Equal(tagged.ID)
	gt.Value(t, got[0].Tags).Equal([]string{"Opensource"})
}

func testListOrderAndLimit(t *testing.T, repo interfaces.RecordRepository) {
	ctx := context.Background()
	custom := model.Classification{Mode: model.ClassificationCustomKind}

	var ids []types.RecordID
	for i, title := range []string{"oldest", "middle", "newest"} {
		rec := NewRecord(title, types.PostTypeRelease, baseTime.Add(time.Duration(i)*time.Hour))
		gt.NoError(t, repo.CreateRecord(ctx, rec))
		gt.NoError(t, repo.PutRecordMeta(ctx, rec.ID, model.RecordMeta{ReleaseTag: title}))
		ids = append(ids, rec.ID)
	}

	got, err := repo.ListRecords(ctx, &model.RecordQuery{Classification: custom})
	gt.NoError(t, err)
	gt.Number(t, len(got)).Equal(3)
	gt.Value(t, got[0].ID).Equal(ids[2])
	gt.Value(t, got[1].ID).Equal(ids[1])
	gt.Value(t, got[2].ID).Equal(ids[0])
	gt.Value(t, got[0].Meta.ReleaseTag).Equal("newest")

	got, err = repo.ListRecords(ctx, &model.RecordQuery{Classification: custom, Limit: 2})
	gt.NoError(t, err)
	gt.Number(t, len(got)).Equal(2)
	gt.Value(t, got[0].ID).Equal(ids[2])
	gt.Value(t, got[1].ID).Equal(ids[1])
}
