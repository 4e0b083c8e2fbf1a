package usecase

import (
	"encoding/json"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
)

var (
	// ErrMalformedPayload means the body is not valid JSON
	ErrMalformedPayload = goerr.New("malformed payload")
	// ErrNotARelease means the body is valid JSON but lacks action or release. Other webhook event types end here.
	ErrNotARelease = goerr.New("not a release event")
)

// ParsePayload decodes a verified webhook body into a ReleaseEvent.
// Missing optional fields such as repository degrade to empty strings.
func ParsePayload(body []byte) (*model.ReleaseEvent, error) {
	if !json.Valid(body) {
		return nil, goerr.Wrap(ErrMalformedPayload, "invalid JSON", goerr.V("size", len(body)))
	}

	var event github.ReleaseEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Valid JSON of another shape (array, scalar, mistyped fields)
		return nil, goerr.Wrap(ErrNotARelease, "unexpected payload shape", goerr.V("cause", err.Error()))
	}

	if event.Action == nil || event.Release == nil {
		return nil, goerr.Wrap(ErrNotARelease, "action or release is missing",
			goerr.V("has_action", event.Action != nil),
			goerr.V("has_release", event.Release != nil),
		)
	}

	release := event.GetRelease()
	repo := event.GetRepo()

	return &model.ReleaseEvent{
		Action:             event.GetAction(),
		ReleaseID:          release.GetID(),
		RepositoryFullName: repo.GetFullName(),
		RepositoryURL:      repo.GetHTMLURL(),
		ReleaseName:        release.GetName(),
		TagName:            release.GetTagName(),
		Body:               release.GetBody(),
		TarballURL:         release.GetTarballURL(),
		ZipballURL:         release.GetZipballURL(),
		RawPayload:         body,
	}, nil
}
