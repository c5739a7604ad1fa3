package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TradePilot/internal/model"
)

const yahooSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"

// YahooFetcher pulls recent headlines from the Yahoo Finance search API.
type YahooFetcher struct {
	Client    *http.Client
	NewsCount int
}

// NewYahooFetcher creates a fetcher with optional proxy support.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		NewsCount: 30,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

type yahooSearch struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// FetchHeadlines queries the search API for the symbol's latest news.
func (f *YahooFetcher) FetchHeadlines(ctx context.Context, symbol string) ([]model.Headline, error) {
	endpoint := fmt.Sprintf("%s?q=%s&newsCount=%d&enableFuzzyQuery=false&quotesCount=0",
		yahooSearchURL, url.QueryEscape(symbol), f.NewsCount)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch headlines: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result yahooSearch
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode headlines: %w", err)
	}

	headlines := make([]model.Headline, 0, len(result.News))
	for _, n := range result.News {
		title := strings.TrimSpace(n.Title)
		if title == "" {
			continue
		}
		source := n.Publisher
		if source == "" {
			source = "Yahoo Finance"
		}
		headlines = append(headlines, model.Headline{
			Source: source,
			Title:  title,
			Time:   time.Unix(n.ProviderPublishTime, 0),
		})
	}
	if len(headlines) > f.NewsCount {
		headlines = headlines[:f.NewsCount]
	}
	return headlines, nil
}
