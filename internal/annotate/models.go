package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"go.uber.org/zap"
)

// DefaultModels is returned when the models endpoint cannot be used.
var DefaultModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"claude-3-5-sonnet",
	"claude-3-5-haiku",
	"gemini-2.0-flash-exp",
}

const modelsTimeout = 10 * time.Second

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels returns the model IDs served at {apiURL}/models. Any failure or an
// empty list yields DefaultModels, and the second return value reports whether
// the list came from the server.
func ListModels(ctx context.Context, client *http.Client, apiURL, apiKey string) ([]string, bool) {
	ids, err := fetchModels(ctx, client, apiURL, apiKey)
	if err != nil {
		contract.Logger().Warn("Falling back to default model list", zap.Error(err))
		return append([]string(nil), DefaultModels...), false
	}
	if len(ids) == 0 {
		contract.Logger().Warn("Server returned no models, falling back to default model list")
		return append([]string(nil), DefaultModels...), false
	}
	return ids, true
}

func fetchModels(ctx context.Context, client *http.Client, apiURL, apiKey string) ([]string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()

	url := strings.TrimRight(apiURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error listing models: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("models endpoint returned status %d", resp.StatusCode)
	}

	var parsed modelsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error decoding models response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if id := strings.TrimSpace(m.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
