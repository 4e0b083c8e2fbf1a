package config

import "github.com/urfave/cli/v3"

// Server holds server configuration
type Server struct {
	Addr         string
	StrictStatus bool
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("RELEASEPOST_ADDR"),
		},
		&cli.BoolFlag{
			Name:        "strict-status",
			Usage:       "Respond to webhooks with 4xx/5xx status codes instead of always 200",
			Destination: &c.StrictStatus,
			Sources:     cli.EnvVars("RELEASEPOST_STRICT_STATUS"),
		},
	}
}
