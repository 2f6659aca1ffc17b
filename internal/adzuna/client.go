// Package adzuna searches the Adzuna job API, either directly with server-held
// credentials or through this service's own search proxy.
package adzuna

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL                = "https://api.adzuna.com/v1/api/jobs"
	DefaultCountry        = "za"
	DefaultResultsPerPage = 20
	contentEncoding       = "gzip"
	userAgent             = "kaziconnect (+https://kaziconnect.co.ke)"
	maxBodyBytes          = 8 << 20
)

// Credential parameters are always set by the client.
var reservedParams = map[string]struct{}{"app_id": {}, "app_key": {}}

// SearchRequest is what callers may control: the country index and extra
// query parameters such as what, where or results_per_page.
type SearchRequest struct {
	Country string         `json:"country"`
	Params  map[string]any `json:"params"`
}

// RawResponse is the upstream status and body, untouched.
type RawResponse struct {
	Status int
	Body   []byte
}

// Searcher is implemented by Client and ProxyClient.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*RawResponse, error)
}

type Config struct {
	AppID          string
	AppKey         string
	Country        string
	ResultsPerPage int
	APIURL         string
}

type Client struct {
	appID          string
	appKey         string
	country        string
	resultsPerPage int
	logger         *zap.Logger
	HTTPClient     *http.Client
	UserAgent      string
	APIURL         string
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" || strings.TrimSpace(cfg.AppKey) == "" {
		return nil, fmt.Errorf("adzuna app id and app key are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = DefaultResultsPerPage
	}
	if cfg.APIURL == "" {
		cfg.APIURL = apiURL
	}

	return &Client{
		appID:          strings.TrimSpace(cfg.AppID),
		appKey:         strings.TrimSpace(cfg.AppKey),
		country:        strings.ToLower(cfg.Country),
		resultsPerPage: cfg.ResultsPerPage,
		logger:         logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
		APIURL:    strings.TrimRight(cfg.APIURL, "/"),
	}, nil
}

// Search calls the first result page. Any upstream status is returned as is;
// only transport failures produce an error.
func (c *Client) Search(ctx context.Context, sr SearchRequest) (*RawResponse, error) {
	country := strings.ToLower(strings.TrimSpace(sr.Country))
	if country == "" {
		country = c.country
	}
	if !validCountry(country) {
		return nil, fmt.Errorf("invalid country code %q", sr.Country)
	}

	endpoint := fmt.Sprintf("%s/%s/search/1", c.APIURL, url.PathEscape(country))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = c.buildParams(sr.Params).Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("User-Agent", c.UserAgent)

	c.logger.Debug("make request", zap.String("url", endpoint), zap.String("country", country))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read adzuna response: %w", err)
	}

	c.logger.Debug("got response from adzuna", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))
	return &RawResponse{Status: resp.StatusCode, Body: body}, nil
}

func (c *Client) buildParams(params map[string]any) url.Values {
	q := url.Values{}
	q.Set("results_per_page", strconv.Itoa(c.resultsPerPage))
	for key, value := range params {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, reserved := reservedParams[strings.ToLower(key)]; reserved {
			continue
		}
		if s := paramString(value); s != "" {
			q.Set(key, s)
		}
	}
	q.Set("app_id", c.appID)
	q.Set("app_key", c.appKey)
	return q
}

func paramString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

func validCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(io.LimitReader(reader, maxBodyBytes))
}

// ProxyClient calls the /functions/v1/fetch-adzuna endpoint of a running
// server with a session token. The CLI uses it when no Adzuna credentials
// are configured locally.
type ProxyClient struct {
	URL        string
	Token      string
	HTTPClient *http.Client
	logger     *zap.Logger
}

func NewProxyClient(proxyURL, token string, logger *zap.Logger) *ProxyClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyClient{
		URL:   strings.TrimSpace(proxyURL),
		Token: strings.TrimSpace(token),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (p *ProxyClient) Search(ctx context.Context, sr SearchRequest) (*RawResponse, error) {
	if p.URL == "" {
		return nil, fmt.Errorf("adzuna proxy url is not configured")
	}
	if p.Token == "" {
		return nil, fmt.Errorf("adzuna proxy requires a session token")
	}

	payload, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("marshal proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	p.logger.Debug("make proxy request", zap.String("url", p.URL))
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna proxy request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read proxy response: %w", err)
	}
	return &RawResponse{Status: resp.StatusCode, Body: body}, nil
}
