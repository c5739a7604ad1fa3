package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"TradePilot/internal/model"
	"TradePilot/internal/strategy"
)

// Scorer turns a headline collection into a symbol sentiment signal in
// {-1, 0, +1}. It is a pure text-to-signal mapping, replaceable
// independently of the engine.
type Scorer interface {
	Score(ctx context.Context, headlines []model.Headline) (int, error)
}

// RemoteScorer delegates per-headline classification to an external
// text-classification service and aggregates the classes with the
// two-thirds supermajority rule.
type RemoteScorer struct {
	BaseURL string
	Client  *http.Client
}

// NewRemoteScorer creates a scorer against the classifier service.
func NewRemoteScorer(baseURL string) *RemoteScorer {
	return &RemoteScorer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type classifyRequest struct {
	Titles []string `json:"titles"`
}

type classifyResponse struct {
	Classes []int `json:"classes"`
}

// Score posts the headline titles for classification. Each returned
// class must be in {-1, 0, +1}.
func (s *RemoteScorer) Score(ctx context.Context, headlines []model.Headline) (int, error) {
	if len(headlines) == 0 {
		return 0, nil
	}
	titles := make([]string, len(headlines))
	for i, h := range headlines {
		titles[i] = h.Title
	}
	body, err := json.Marshal(classifyRequest{Titles: titles})
	if err != nil {
		return 0, fmt.Errorf("marshal classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("classify: status %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode classes: %w", err)
	}
	return strategy.AggregateSentiment(out.Classes), nil
}

// StaticScorer returns a fixed signal, used in simulation and tests.
type StaticScorer struct {
	Signal int
}

func (s *StaticScorer) Score(_ context.Context, _ []model.Headline) (int, error) {
	return s.Signal, nil
}
