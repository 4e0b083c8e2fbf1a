package config

import "github.com/urfave/cli/v3"

// GitHub holds GitHub configuration
type GitHub struct {
	WebhookSecret string `masq:"secret"`
}

// Flags returns CLI flags for GitHub configuration. The secret may also come from the settings file.
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "Shared secret of the GitHub release webhook",
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("RELEASEPOST_GITHUB_WEBHOOK_SECRET"),
		},
	}
}
