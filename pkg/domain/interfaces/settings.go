package interfaces

import (
	"context"

	"github.com/m-mizutani/releasepost/pkg/domain/model"
)

// SettingsProvider supplies the operator settings. It is consulted once per request.
type SettingsProvider interface {
	Settings(ctx context.Context) (*model.Settings, error)
}
