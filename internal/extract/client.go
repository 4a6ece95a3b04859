package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Certificate types served by the API.
const (
	CertDomestic    = "domestic"
	CertNonDomestic = "non-domestic"
)

// searchAfterHeader carries the pagination cursor for the next page.
const searchAfterHeader = "X-Next-Search-After"

// rateLimitBackoff is how long to wait before the single retry after a 429.
const rateLimitBackoff = 60 * time.Second

// ErrUnauthorized is returned when the API rejects the configured
// credentials.
var ErrUnauthorized = errors.New("invalid EPC API credentials (401 Unauthorized)")

// ClientConfig configures an API client.
type ClientConfig struct {
	// BaseURL is the API host, e.g. https://epc.opendatacommunities.org.
	BaseURL string

	Credentials Credentials

	// PageSize is records per request; the API caps it at 5000.
	PageSize int

	// MaxRecords stops pagination once this many records have been fetched.
	MaxRecords int

	// LocalAuthority restricts results to one district code when set.
	LocalAuthority string

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client

	Logger *slog.Logger

	// Sleep overrides time.Sleep for the rate-limit backoff. Used by tests.
	Sleep func(time.Duration)
}

// Client fetches certificate pages using search-after cursor pagination.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(time.Duration)
}

// NewClient creates a client, applying defaults for unset fields.
func NewClient(cfg ClientConfig) *Client {
	if cfg.PageSize <= 0 || cfg.PageSize > 5000 {
		cfg.PageSize = 5000
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 100000
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &Client{cfg: cfg, httpClient: httpClient, logger: logger, sleep: sleep}
}

func endpointPath(certType string) (string, error) {
	switch certType {
	case CertDomestic:
		return "/api/v1/domestic/search", nil
	case CertNonDomestic:
		return "/api/v1/non-domestic/search", nil
	}
	return "", fmt.Errorf("invalid certificate type: %q", certType)
}

// FetchPages retrieves every page of certificates lodged between from and to
// (inclusive, month granularity — the API filters by lodgement month). Each
// returned element is one raw CSV page including its header row.
func (c *Client) FetchPages(ctx context.Context, certType string, from, to time.Time) ([][]byte, error) {
	path, err := endpointPath(certType)
	if err != nil {
		return nil, err
	}

	c.logger.Info("fetching certificates",
		"type", certType,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"))

	var (
		pages       [][]byte
		searchAfter string
		totalRows   int
		pageNum     int
	)

	for {
		pageNum++

		params := url.Values{}
		params.Set("from-month", strconv.Itoa(int(from.Month())))
		params.Set("from-year", strconv.Itoa(from.Year()))
		params.Set("to-month", strconv.Itoa(int(to.Month())))
		params.Set("to-year", strconv.Itoa(to.Year()))
		params.Set("size", strconv.Itoa(c.cfg.PageSize))
		if c.cfg.LocalAuthority != "" {
			params.Set("local-authority", c.cfg.LocalAuthority)
		}
		if searchAfter != "" {
			params.Set("search-after", searchAfter)
		}

		body, next, err := c.fetchPage(ctx, c.cfg.BaseURL+path+"?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}

		pages = append(pages, body)
		pageRows := bytes.Count(body, []byte{'\n'}) - 1
		if pageRows < 0 {
			pageRows = 0
		}
		totalRows += pageRows
		c.logger.Info("fetched page", "page", pageNum, "records", pageRows, "total", totalRows)

		if next == "" {
			c.logger.Info("no more pages", "total", totalRows)
			break
		}
		if totalRows >= c.cfg.MaxRecords {
			c.logger.Warn("reached max records limit", "limit", c.cfg.MaxRecords)
			break
		}
		searchAfter = next
	}

	return pages, nil
}

// fetchPage performs one request, retrying once after a rate-limit response.
func (c *Client) fetchPage(ctx context.Context, requestURL string) (body []byte, next string, err error) {
	resp, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		c.logger.Warn("rate limit hit, backing off", "wait", rateLimitBackoff)
		c.sleep(rateLimitBackoff)
		resp, err = c.doRequest(ctx, requestURL)
		if err != nil {
			return nil, "", err
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, "", ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.Header.Get(searchAfterHeader), nil
}

func (c *Client) doRequest(ctx context.Context, requestURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Credentials.Username, c.cfg.Credentials.Password)
	req.Header.Set("Accept", "text/csv")

	return c.httpClient.Do(req)
}
