package settings

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
)

type static struct {
	settings model.Settings
}

// NewStatic returns a provider that always yields a copy of s
func NewStatic(s model.Settings) interfaces.SettingsProvider {
	return &static{settings: s}
}

func (x *static) Settings(ctx context.Context) (*model.Settings, error) {
	s := x.settings
	return &s, nil
}

// fileSettings mirrors the settings file. Absent keys keep the fallback value.
type fileSettings struct {
	WebhookSecret  *string `toml:"webhook_secret"`
	PostAuthor     *string `toml:"post_author"`
	CustomPostType *bool   `toml:"custom_post_type"`
	TitlePrefix    *string `toml:"title_prefix"`
	TagLabel       *string `toml:"tag_label"`
}

// File is a provider backed by a TOML file that an operator may rewrite at any time.
// The file is parsed again only when its modification time or size changes.
type File struct {
	path     string
	fallback model.Settings

	mu      sync.Mutex
	modTime time.Time
	size    int64
	cached  *model.Settings
}

var _ interfaces.SettingsProvider = (*File)(nil)

// NewFile creates a file-backed provider. fallback supplies values for keys the file omits.
func NewFile(path string, fallback model.Settings) *File {
	return &File{
		path:     path,
		fallback: fallback,
	}
}

func (x *File) Settings(ctx context.Context) (*model.Settings, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	info, err := os.Stat(x.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat settings file", goerr.V("path", x.path))
	}

	if x.cached == nil || !info.ModTime().Equal(x.modTime) || info.Size() != x.size {
		loaded, err := x.load()
		if err != nil {
			return nil, err
		}
		x.cached = loaded
		x.modTime = info.ModTime()
		x.size = info.Size()
	}

	s := *x.cached
	return &s, nil
}

// Invalidate drops the cached settings so the next call reads the file.
func (x *File) Invalidate() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.cached = nil
}

func (x *File) load() (*model.Settings, error) {
	raw, err := os.ReadFile(x.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read settings file", goerr.V("path", x.path))
	}

	var fs fileSettings
	if err := toml.Unmarshal(raw, &fs); err != nil {
		return nil, goerr.Wrap(err, "failed to parse settings file", goerr.V("path", x.path))
	}

	s := x.fallback
	if fs.WebhookSecret != nil {
		s.WebhookSecret = *fs.WebhookSecret
	}
	if fs.PostAuthor != nil {
		s.AuthorID = *fs.PostAuthor
	}
	if fs.CustomPostType != nil {
		s.CustomPostType = *fs.CustomPostType
	}
	if fs.TitlePrefix != nil {
		s.TitlePrefix = *fs.TitlePrefix
	}
	if fs.TagLabel != nil {
		s.TagLabel = *fs.TagLabel
	}
	return &s, nil
}
