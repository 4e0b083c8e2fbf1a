package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/cli/config"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdList() *cli.Command {
	var (
		githubCfg    config.GitHub
		publisherCfg config.Publisher
		storageCfg   config.Storage
		limit        int
		asHTML       bool
	)

	var flags []cli.Flag
	flags = append(flags, publisherCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of records (0 means all)",
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "html",
			Usage:       "Print the rendered display fragments instead of a summary",
			Destination: &asHTML,
		},
	)

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List stored release records of the configured classification",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, closeRepo, err := storageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure storage")
			}
			defer closeRepo()

			queryUC, err := usecase.NewQuery(repo, publisherCfg.Provider(&githubCfg))
			if err != nil {
				return goerr.Wrap(err, "failed to create query use case")
			}

			w := c.Root().Writer

			if asHTML {
				fragments, err := queryUC.RenderRecords(ctx, &model.DisplayOptions{
					Limit:         limit,
					ShowTitle:     true,
					ShowDate:      true,
					ShowDownloads: true,
				})
				if err != nil {
					return err
				}
				for _, f := range fragments {
					fmt.Fprintln(w, f)
				}
				return nil
			}

			records, err := queryUC.ListRecords(ctx, limit)
			if err != nil {
				return err
			}
			printRecords(w, records)
			return nil
		},
	}
}

func printRecords(w io.Writer, records []*model.ContentRecord) {
	dateColor := color.New(color.FgCyan).SprintFunc()
	titleColor := color.New(color.Bold).SprintFunc()
	tagColor := color.New(color.FgGreen).SprintFunc()
	dimColor := color.New(color.Faint).SprintFunc()

	if len(records) == 0 {
		fmt.Fprintln(w, dimColor("no records"))
		return
	}

	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  %s %s\n",
			dateColor(r.CreatedAt.Format("2006-01-02")),
			titleColor(r.Title),
			tagColor(r.Meta.ReleaseTag),
			dimColor(r.ID),
		)
	}
}
