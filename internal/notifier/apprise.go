package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/types"
)

// AppriseSender posts notifications to an Apprise API server
type AppriseSender struct {
	apiURL     string
	serviceURL string
	logger     zerolog.Logger
	client     *http.Client
}

// NewAppriseSender creates a sender for one Apprise service URL such as
// slack://tokenA/tokenB. Without an API URL messages are only logged.
func NewAppriseSender(apiURL, serviceURL string, logger zerolog.Logger) *AppriseSender {
	return &AppriseSender{
		apiURL:     strings.TrimRight(apiURL, "/"),
		serviceURL: serviceURL,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type apprisePayload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Type   string `json:"type"`
	Format string `json:"format"`
}

// Send implements Sender
func (a *AppriseSender) Send(ctx context.Context, msg Message) error {
	if a.apiURL == "" {
		a.logger.Info().
			Str("url", a.serviceURL).
			Str("title", msg.Title).
			Msg("Would send notification (Apprise not configured)")
		return nil
	}

	jsonData, err := json.Marshal(apprisePayload{
		Title:  msg.Title,
		Body:   msg.Body,
		Type:   appriseType(msg),
		Format: "text",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/notify/%s", a.apiURL, a.serviceURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("apprise API error: %d - %s", resp.StatusCode, string(body))
	}
	return nil
}

// appriseType maps severities onto Apprise notification types
func appriseType(msg Message) string {
	switch msg.Severity {
	case types.SeverityHigh:
		return "failure"
	case types.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}
