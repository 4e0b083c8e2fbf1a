package config

import (
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"
	"github.com/m-mizutani/releasepost/pkg/infra/settings"
	"github.com/urfave/cli/v3"
)

// Publisher holds the publishing settings of release records
type Publisher struct {
	AuthorID       string
	CustomPostType bool
	TitlePrefix    string
	TagLabel       string
	SettingsFile   string
}

// Flags returns CLI flags for publisher configuration
func (c *Publisher) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "post-author",
			Usage:       "Author identifier stamped on every record",
			Destination: &c.AuthorID,
			Sources:     cli.EnvVars("RELEASEPOST_POST_AUTHOR"),
		},
		&cli.BoolFlag{
			Name:        "custom-post-type",
			Usage:       "Store records as the dedicated release kind instead of tagged posts",
			Destination: &c.CustomPostType,
			Sources:     cli.EnvVars("RELEASEPOST_CUSTOM_POST_TYPE"),
		},
		&cli.StringFlag{
			Name:        "title-prefix",
			Usage:       "Text prepended to every record title",
			Destination: &c.TitlePrefix,
			Sources:     cli.EnvVars("RELEASEPOST_TITLE_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "tag-label",
			Usage:       "Tag attached to records in tag mode",
			Value:       types.DefaultTagLabel,
			Destination: &c.TagLabel,
			Sources:     cli.EnvVars("RELEASEPOST_TAG_LABEL"),
		},
		&cli.StringFlag{
			Name:        "settings-file",
			Usage:       "TOML file overriding settings at runtime; re-read when modified",
			Destination: &c.SettingsFile,
			Sources:     cli.EnvVars("RELEASEPOST_SETTINGS_FILE"),
		},
	}
}

// Settings returns the settings described by the flags
func (c *Publisher) Settings(gh *GitHub) model.Settings {
	return model.Settings{
		WebhookSecret:  gh.WebhookSecret,
		AuthorID:       c.AuthorID,
		CustomPostType: c.CustomPostType,
		TitlePrefix:    c.TitlePrefix,
		TagLabel:       c.TagLabel,
	}
}

// Provider builds the settings collaborator. Flag values act as the fallback of the settings file.
func (c *Publisher) Provider(gh *GitHub) interfaces.SettingsProvider {
	if c.SettingsFile != "" {
		return settings.NewFile(c.SettingsFile, c.Settings(gh))
	}
	return settings.NewStatic(c.Settings(gh))
}
