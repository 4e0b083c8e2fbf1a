package model

import (
	"strings"
	"time"
)

// ReleaseEvent is the ingestible part of a GitHub release webhook payload
type ReleaseEvent struct {
	DeliveryID         string // Retrieved from X-GitHub-Delivery header
	EventType          string // Retrieved from X-GitHub-Event header
	Action             string
	ReleaseID          int64
	RepositoryFullName string // e.g. "org/repo", empty if the payload has no repository
	RepositoryURL      string // html_url of the repository, may be empty
	ReleaseName        string
	TagName            string
	Body               string // release description, untrusted HTML/markdown
	TarballURL         string
	ZipballURL         string
	ReceivedAt         time.Time
	RawPayload         []byte
}

// RepositoryShortName returns the repository name with the owner segment stripped.
func (e *ReleaseEvent) RepositoryShortName() string {
	name := e.RepositoryFullName
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// RepositoryHTMLURL returns the web URL of the repository.
func (e *ReleaseEvent) RepositoryHTMLURL() string {
	if e.RepositoryURL != "" {
		return strings.TrimSuffix(e.RepositoryURL, "/")
	}
	if e.RepositoryFullName == "" {
		return ""
	}
	return "https://github.com/" + e.RepositoryFullName
}

// Label returns the release name, falling back to the tag name.
func (e *ReleaseEvent) Label() string {
	if e.ReleaseName != "" {
		return e.ReleaseName
	}
	return e.TagName
}
