package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection holds one document per content record, keyed by record ID.
// The composite indexes ListRecords needs are created by Migrate.
const DefaultCollection = "records"

type config struct {
	collection    string
	clientOptions []option.ClientOption
}

// Option is a functional option for Repository
type Option func(*config)

// WithCollection sets the collection name
func WithCollection(name string) Option {
	return func(c *config) {
		c.collection = name
	}
}

// WithClientOptions passes options to the Firestore client, e.g. credentials
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *config) {
		c.clientOptions = append(c.clientOptions, opts...)
	}
}

// Repository is a RecordRepository backed by Cloud Firestore
type Repository struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.RecordRepository = (*Repository)(nil)

// New creates a Firestore-backed repository
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Repository, error) {
	cfg := &config{collection: DefaultCollection}
	for _, opt := range opts {
		opt(cfg)
	}

	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, cfg.clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}

	return &Repository{
		client:     client,
		collection: cfg.collection,
	}, nil
}

// Close closes the Firestore client.
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) records() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *Repository) FindRecordByTitle(ctx context.Context, title string) (*model.ContentRecord, error) {
	rec, err := r.findOne(ctx, r.records().Where("title", "==", title).Limit(1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find record by title", goerr.V("title", title))
	}
	return rec, nil
}

func (r *Repository) FindRecordByReleaseID(ctx context.Context, releaseID int64) (*model.ContentRecord, error) {
	rec, err := r.findOne(ctx, r.records().Where("release_id", "==", releaseID).Limit(1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find record by release ID", goerr.V("release_id", releaseID))
	}
	return rec, nil
}

// CreateRecord checks the title and creates the document, metadata and tags included, in one
// transaction, so concurrent deliveries of the same release cannot both succeed.
func (r *Repository) CreateRecord(ctx context.Context, record *model.ContentRecord) error {
	doc := *record
	if doc.Tags == nil {
		doc.Tags = []string{}
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(r.records().Where("title", "==", doc.Title).Limit(1)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query title in transaction")
		}
		if len(existing) > 0 {
			return goerr.Wrap(interfaces.ErrRecordExists, "title is taken", goerr.V("title", doc.Title))
		}
		return tx.Create(r.records().Doc(doc.ID.String()), &doc)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrRecordExists):
		return err
	case status.Code(err) == codes.AlreadyExists:
		return goerr.Wrap(interfaces.ErrRecordExists, "ID is taken", goerr.V("id", doc.ID))
	default:
		return goerr.Wrap(err, "failed to create record", goerr.V("id", doc.ID))
	}
}

func (r *Repository) PutRecordMeta(ctx context.Context, id types.RecordID, meta model.RecordMeta) error {
	if _, err := r.records().Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "meta", Value: meta},
	}); err != nil {
		return goerr.Wrap(err, "failed to put record meta", goerr.V("id", id))
	}
	return nil
}

func (r *Repository) AddRecordTag(ctx context.Context, id types.RecordID, tag string) error {
	if _, err := r.records().Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "tags", Value: firestore.ArrayUnion(tag)},
	}); err != nil {
		return goerr.Wrap(err, "failed to add record tag", goerr.V("id", id), goerr.V("tag", tag))
	}
	return nil
}

func (r *Repository) ListRecords(ctx context.Context, query *model.RecordQuery) ([]*model.ContentRecord, error) {
	c := query.Classification
	q := r.records().Where("post_type", "==", string(c.PostType()))
	if c.Mode == model.ClassificationTag {
		q = q.Where("tags", "array-contains", c.Tag)
	}
	q = q.OrderBy("created_at", firestore.Desc)
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var records []*model.ContentRecord
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list records", goerr.V("classification", c))
		}

		rec, err := decode(snap)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func (r *Repository) findOne(ctx context.Context, q firestore.Query) (*model.ContentRecord, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query record")
	}
	return decode(snap)
}

func decode(snap *firestore.DocumentSnapshot) (*model.ContentRecord, error) {
	var rec model.ContentRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, goerr.Wrap(err, "failed to decode record", goerr.V("doc_id", snap.Ref.ID))
	}
	if len(rec.Tags) == 0 {
		rec.Tags = nil
	}
	return &rec, nil
}
