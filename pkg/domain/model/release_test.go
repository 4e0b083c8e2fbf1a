package model_test

import (
	"testing"

	"github.com/m-mizutani/releasepost/pkg/domain/model"
)

func TestReleaseEvent_RepositoryShortName(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		expected string
	}{
		{name: "Owner is stripped", fullName: "org/repo", expected: "repo"},
		{name: "No owner segment", fullName: "repo", expected: "repo"},
		{name: "Empty", fullName: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &model.ReleaseEvent{RepositoryFullName: tt.fullName}
			if got := event.RepositoryShortName(); got != tt.expected {
				t.Errorf("RepositoryShortName() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReleaseEvent_RepositoryHTMLURL(t *testing.T) {
	tests := []struct {
		name     string
		event    *model.ReleaseEvent
		expected string
	}{
		{
			name:     "Built from full name",
			event:    &model.ReleaseEvent{RepositoryFullName: "org/repo"},
			expected: "https://github.com/org/repo",
		},
		{
			name: "Payload URL wins",
			event: &model.ReleaseEvent{
				RepositoryFullName: "org/repo",
				RepositoryURL:      "https://ghe.example.com/org/repo/",
			},
			expected: "https://ghe.example.com/org/repo",
		},
		{
			name:     "No repository",
			event:    &model.ReleaseEvent{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.RepositoryHTMLURL(); got != tt.expected {
				t.Errorf("RepositoryHTMLURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReleaseEvent_Label(t *testing.T) {
	event := &model.ReleaseEvent{ReleaseName: "v2.0", TagName: "2.0.0"}
	if got := event.Label(); got != "v2.0" {
		t.Errorf("Label() = %v, want v2.0", got)
	}

	event.ReleaseName = ""
	if got := event.Label(); got != "2.0.0" {
		t.Errorf("Label() = %v, want 2.0.0", got)
	}
}
