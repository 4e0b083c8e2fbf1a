package slack

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/slack-go/slack"
)

type notifier struct {
	webhookURL string
	channel    string
}

// NewNotifier posts published records to a Slack incoming webhook
func NewNotifier(webhookURL, channel string) interfaces.Notifier {
	return &notifier{
		webhookURL: webhookURL,
		channel:    channel,
	}
}

func (n *notifier) NotifyPublished(ctx context.Context, record *model.ContentRecord) error {
	msg := buildMessage(record)
	msg.Channel = n.channel

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack message", goerr.V("record_id", record.ID))
	}
	return nil
}

func buildMessage(record *model.ContentRecord) *slack.WebhookMessage {
	attachment := slack.Attachment{
		Color: "#2eb886",
		Title: record.Title,
	}
	switch {
	case record.RepositoryURL != "":
		attachment.TitleLink = strings.TrimSuffix(record.RepositoryURL, "/") + "/releases"
	case record.Repository != "":
		attachment.TitleLink = "https://github.com/" + record.Repository + "/releases"
	}

	if record.Meta.ReleaseTag != "" {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "Tag",
			Value: record.Meta.ReleaseTag,
			Short: true,
		})
	}
	if record.Meta.DownloadZip != "" {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "zip",
			Value: record.Meta.DownloadZip,
		})
	}
	if record.Meta.DownloadTar != "" {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "tar",
			Value: record.Meta.DownloadTar,
		})
	}

	return &slack.WebhookMessage{
		Text:        "New release published: " + record.Title,
		Attachments: []slack.Attachment{attachment},
	}
}
