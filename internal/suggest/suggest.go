// Package suggest asks an external model gateway for menu ideas and
// filters the answer down to items that actually exist on the menu.
// The feature is decorative; every failure degrades to no suggestions.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"menuquick/internal/domain"
)

// Request is the gateway input. Previous orders and the menu travel as
// comma-separated name lists, "None" when the customer ordered nothing.
type Request struct {
	TimeOfDay          string `json:"timeOfDay"`
	PreviousOrders     string `json:"previousOrders"`
	AvailableMenuItems string `json:"availableMenuItems"`
}

// Response carries the model's comma-separated suggestion list. The
// gateway promises items from the menu only; we do not trust it.
type Response struct {
	Suggestions string `json:"suggestions"`
}

// Gateway is an HTTP client for the suggestion endpoint.
type Gateway struct {
	url    string
	apiKey string
	client *http.Client
	lg     *zap.Logger
}

func NewGateway(url, apiKey string, lg *zap.Logger) *Gateway {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Gateway{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
		lg:     lg,
	}
}

// Suggest returns menu item names the customer might enjoy, or an
// empty list when the gateway is unconfigured, unreachable, or talks
// nonsense. It never returns an error to the caller.
func (g *Gateway) Suggest(ctx context.Context, timeOfDay string, previous []string, menu *domain.Menu) []string {
	if g.url == "" || menu == nil {
		return nil
	}

	prev := strings.Join(previous, ", ")
	if prev == "" {
		prev = "None"
	}
	req := Request{
		TimeOfDay:          timeOfDay,
		PreviousOrders:     prev,
		AvailableMenuItems: strings.Join(menu.ItemNames(), ", "),
	}

	raw, err := g.call(ctx, req)
	if err != nil {
		g.lg.Warn("suggestion_fetch_failed", zap.Error(err))
		return nil
	}
	return Filter(raw, menu)
}

func (g *Gateway) call(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding suggestion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building suggestion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling suggestion gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("suggestion gateway returned %d", resp.StatusCode)
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding suggestion response: %w", err)
	}
	return out.Suggestions, nil
}

// Filter splits a comma-separated suggestion string, drops anything
// not on the menu, dedupes, and canonicalizes casing to the menu's
// spelling.
func Filter(raw string, menu *domain.Menu) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		item, ok := menu.ItemByName(name)
		if !ok {
			continue
		}
		key := strings.ToLower(item.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item.Name)
	}
	return out
}

// TimeOfDay buckets an hour into the labels the gateway prompt
// understands.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 23:
		return "evening"
	default:
		return "night"
	}
}
