package firestore

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
)

// IndexConfig describes the composite indexes ListRecords relies on, one per classification mode.
func IndexConfig(collection string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: collection,
				Indexes: []fireconf.Index{
					{
						// custom kind
						Fields: []fireconf.IndexField{
							{Path: "post_type", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderDescending},
						},
					},
					{
						// generic post with tag
						Fields: []fireconf.IndexField{
							{Path: "post_type", Order: fireconf.OrderAscending},
							{Path: "tags", Array: fireconf.ArrayConfigContains},
							{Path: "created_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}

// Migrate creates the composite indexes of the collection that are missing in the database.
func Migrate(ctx context.Context, projectID, databaseID, collection string) error {
	if databaseID == "" {
		databaseID = "(default)"
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := fireconf.New(ctx, projectID, databaseID, IndexConfig(collection))
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}
	defer func() { _ = client.Close() }()

	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to migrate firestore indexes",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
			goerr.V("collection", collection),
		)
	}
	return nil
}
