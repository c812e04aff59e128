package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/botlens/botlens/internal/config"
	"github.com/botlens/botlens/internal/logger"
)

// Client issues multi-query requests against the external search index.
// Every request carries a bounded timeout, bounded retries with backoff,
// and passes through a shared rate limiter.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cfg     config.SearchConfig
}

// New creates a search client from configuration.
func New(cfg config.SearchConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.Host).
		SetHeader("X-TYPESENSE-API-KEY", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryDelay()).
		SetRetryMaxWaitTime(cfg.RetryDelay() * 8).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		cfg:     cfg,
	}
}

// BaseQuery builds a query for the configured collection with the given
// filter expression. Page defaults to 1.
func (c *Client) BaseQuery(filterBy string) SearchQuery {
	return SearchQuery{
		Collection: c.cfg.Collection,
		Query:      "*",
		QueryBy:    c.cfg.QueryBy,
		SortBy:     c.cfg.SortBy,
		FilterBy:   filterBy,
		Page:       1,
		PerPage:    c.cfg.PageSize,
	}
}

// MultiSearch batches several filter variants into one logical call and
// returns one PageResult per variant, in request order.
func (c *Client) MultiSearch(ctx context.Context, queries []SearchQuery) ([]PageResult, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries given")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Page: queries[0].Page, Err: err}
	}

	var parsed multiSearchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(multiSearchRequest{Searches: queries}).
		SetResult(&parsed).
		Post("/multi_search")
	if err != nil {
		return nil, &TransientError{Page: queries[0].Page, Err: err}
	}
	if resp.IsError() {
		return nil, &TransientError{
			Page: queries[0].Page,
			Err:  fmt.Errorf("index returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200)),
		}
	}

	if len(parsed.Results) != len(queries) {
		return nil, fmt.Errorf("index returned %d results for %d queries", len(parsed.Results), len(queries))
	}

	results := make([]PageResult, len(parsed.Results))
	for i, res := range parsed.Results {
		out := PageResult{Page: queries[i].Page, Found: res.Found}
		for _, hit := range res.Hits {
			bot, err := parseDocument(hit.Document)
			if err != nil {
				out.Malformed++
				logger.Debug("Skipping malformed hit on page %d: %v", queries[i].Page, err)
				continue
			}
			out.Bots = append(out.Bots, bot)
		}
		if out.Malformed > 0 {
			logger.Warning("Page %d: skipped %d malformed records", queries[i].Page, out.Malformed)
		}
		results[i] = out
	}

	return results, nil
}

// FetchPage fetches a single page for one query. Transient failures are
// retried by the HTTP client; once retries are exhausted, or the payload
// comes back empty or unusable, the error wraps ErrPageUnavailable.
func (c *Client) FetchPage(ctx context.Context, query SearchQuery, page int) (PageResult, error) {
	query.Page = page

	results, err := c.MultiSearch(ctx, []SearchQuery{query})
	if err != nil {
		return PageResult{Page: page}, pageUnavailable(page, err)
	}

	res := results[0]
	if len(res.Bots) == 0 {
		return res, pageUnavailable(page, fmt.Errorf("empty payload"))
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
