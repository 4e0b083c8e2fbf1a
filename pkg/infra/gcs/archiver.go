package gcs

import (
	"context"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"google.golang.org/api/option"
)

// Archiver stores raw webhook payloads of published records in a Cloud Storage bucket
type Archiver struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.PayloadArchiver = (*Archiver)(nil)

// NewArchiver creates an Archiver writing to gs://bucket/prefix/...
func NewArchiver(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Archiver, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Close closes the storage client.
func (x *Archiver) Close() error {
	return x.client.Close()
}

// ObjectName returns "<prefix>/YYYY/MM/DD/<record ID>.json".
func ObjectName(prefix string, record *model.ContentRecord) string {
	return path.Join(prefix, record.CreatedAt.UTC().Format("2006/01/02"), record.ID.String()+".json")
}

func (x *Archiver) ArchivePayload(ctx context.Context, record *model.ContentRecord, payload []byte) error {
	name := ObjectName(x.prefix, record)

	w := x.client.Bucket(x.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = map[string]string{
		"record_id":   record.ID.String(),
		"delivery_id": record.DeliveryID,
		"repository":  record.Repository,
	}

	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write payload", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close payload writer", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}
	return nil
}
