package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"tiktok-monitor-go/internal/model"
)

const maxTranscriptLen = 500

// SlackNotifier posts Block Kit formatted alerts to an incoming webhook.
type SlackNotifier struct {
	client     *resty.Client
	webhookURL string
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
	Text   string       `json:"text"` // fallback for clients without block support
}

// NewSlackNotifier creates a notifier for the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		client:     resty.New().SetTimeout(30 * time.Second),
		webhookURL: webhookURL,
	}
}

// Send delivers the alert. Any transport or non-2xx response maps to ErrNotify.
func (n *SlackNotifier) Send(ctx context.Context, summary model.Summary) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(buildMessage(summary)).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotify, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: webhook returned %s", ErrNotify, resp.Status())
	}
	return nil
}

func buildMessage(summary model.Summary) slackMessage {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("🎬 New TikTok video: @%s", summary.AccountHandle)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Published:*\n%s", summary.PublishedAt.Format(time.RFC3339))},
			},
		},
	}

	if summary.Caption != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Caption:*\n%s", summary.Caption)},
		})
	}

	blocks = append(blocks, slackBlock{
		Type: "section",
		Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Transcript:*\n%s", truncate(summary.Transcript))},
	})

	urlText := fmt.Sprintf("*TikTok:* <%s|View on TikTok>\n", summary.PostURL)
	if summary.ArchiveRef != "" {
		urlText += fmt.Sprintf("*Internal video:* <%s|View on Google Drive>", summary.ArchiveRef)
	} else {
		urlText += "*Internal video:* Video download not permitted; sharing TikTok link instead."
	}
	blocks = append(blocks, slackBlock{
		Type: "section",
		Text: &slackText{Type: "mrkdwn", Text: urlText},
	})

	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackMessage{
		Blocks: blocks,
		Text:   fmt.Sprintf("New TikTok video from @%s", summary.AccountHandle),
	}
}

func truncate(transcript string) string {
	if transcript == "" {
		return "Not available"
	}
	if len(transcript) > maxTranscriptLen {
		return transcript[:maxTranscriptLen] + "..."
	}
	return transcript
}
