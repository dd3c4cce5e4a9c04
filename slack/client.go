// Package slack delivers one-shot alert messages to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"
)

// maxAlertTextLen caps the escaped post text included in an alert.
const maxAlertTextLen = 800

const notifyTimeout = 10 * time.Second

type Client struct {
	cli        *http.Client
	webhookURL string
}

func NewClient(webhookURL string) *Client {
	return &Client{
		cli: &http.Client{
			Timeout: notifyTimeout,
		},
		webhookURL: webhookURL,
	}
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type     string      `json:"type"`
	Text     *blockText  `json:"text,omitempty"`
	Elements []blockText `json:"elements,omitempty"`
}

type payload struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

// Notify posts an alert for a strongly negative post. Delivery is best
// effort and not deduplicated: a post fetched again in a later overlapping
// window alerts again if it still meets the threshold. The caller decides
// whether a returned error matters.
func (c *Client) Notify(ctx context.Context, text string, score float64, postID string) error {
	safeText := html.EscapeString(text)
	if runes := []rune(safeText); len(runes) > maxAlertTextLen {
		safeText = string(runes[:maxAlertTextLen])
	}

	p := payload{
		Text: fmt.Sprintf("🚨 Negative post detected (score %.2f)", score),
		Blocks: []block{
			{
				Type: "section",
				Text: &blockText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Negative post detected*\n*Score:* %.2f\n*Text:* %s", score, safeText),
				},
			},
		},
	}

	if postID != "" {
		p.Blocks = append(p.Blocks, block{
			Type: "context",
			Elements: []blockText{
				{Type: "mrkdwn", Text: "https://twitter.com/i/web/status/" + postID},
			},
		})
	}

	b, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("received non-200 response code: %d", resp.StatusCode)
	}

	return nil
}
