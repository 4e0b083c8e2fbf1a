package cli

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/releasepost/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var storageCfg config.Storage

	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the Firestore indexes needed to list records (application default credentials)",
		Flags: storageCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := storageCfg.MigrateFirestore(ctx); err != nil {
				return err
			}
			ctxlog.From(ctx).Info("Firestore indexes are up to date")
			return nil
		},
	}
}
