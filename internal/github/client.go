// internal/github/client.go
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"

	custom_errors "github-analytics-retriever/internal/errors"
)

const (
	// apiVersion pins the REST API version so response shapes stay stable.
	apiVersion = "2022-11-28"
	mediaType  = "application/vnd.github+json"
)

// Method is an HTTP verb the client is allowed to send.
type Method int

const (
	MethodGet Method = iota
	MethodPost
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return http.MethodGet
	case MethodPost:
		return http.MethodPost
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

func (m Method) verb() (string, error) {
	switch m {
	case MethodGet, MethodPost:
		return m.String(), nil
	default:
		return "", fmt.Errorf("unsupported method %v", m)
	}
}

// ExpectedCondition is returned by Request when the API answered with an
// accepted error (see AcceptedErrors). Callers treat it as "no data".
type ExpectedCondition struct {
	StatusCode int
	Message    string
}

func (e *ExpectedCondition) Error() string {
	return fmt.Sprintf("expected API condition %d: %s", e.StatusCode, e.Message)
}

// IsExpectedCondition reports whether err is an accepted API condition.
func IsExpectedCondition(err error) bool {
	var cond *ExpectedCondition
	return errors.As(err, &cond)
}

// Options configure a Client beyond its credentials.
type Options struct {
	// BaseURL overrides https://api.github.com/. Must end with a slash.
	BaseURL string
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration
	// Accepted is the accepted-error table; nil means DefaultAcceptedErrors.
	Accepted AcceptedErrors
}

// Client is a wrapper around the go-github client that returns raw JSON.
type Client struct {
	gh         *github.Client
	classifier *Classifier
	logger     *slog.Logger
}

// NewClient creates and configures a new Client instance.
// The provided token is sent as a bearer token on every request.
func NewClient(token string, logger *slog.Logger, opts Options) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = opts.Timeout

	gh := github.NewClient(tc)
	if opts.BaseURL != "" {
		baseURL, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.BaseURL, err)
		}
		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}
		gh.BaseURL = baseURL
	}

	accepted := opts.Accepted
	if accepted == nil {
		accepted = DefaultAcceptedErrors()
	}

	return &Client{
		gh:         gh,
		classifier: NewClassifier(accepted),
		logger:     logger,
	}, nil
}

// Request performs one request against ep and returns the JSON body, which
// is either an object or an array. Failed responses are classified: accepted
// conditions come back as *ExpectedCondition, everything else as
// *errors.TransportError.
//
// go-github treats every 2xx status as success, so a 201 or 204 is not
// classified. The listing endpoints only answer 200 on success.
func (c *Client) Request(ctx context.Context, method Method, ep Endpoint) (json.RawMessage, error) {
	verb, err := method.verb()
	if err != nil {
		return nil, err
	}

	values, err := query.Values(ep.Params)
	if err != nil {
		return nil, fmt.Errorf("encode parameters for %s: %w", ep.Path, err)
	}
	target := ep.Path
	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := c.gh.NewRequest(verb, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", mediaType)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	var body json.RawMessage
	if _, err := c.gh.Do(ctx, req, &body); err != nil {
		return nil, c.classify(err, req, ep)
	}
	return body, nil
}

// ListPage fetches one page of a listing endpoint. An accepted API condition
// yields an empty page, which ends pagination.
func (c *Client) ListPage(ctx context.Context, ep Endpoint, page, perPage int) ([]json.RawMessage, error) {
	logger := c.logger.With("resource", ep.Resource, "repo", ep.Repository, "page", page)
	logger.Debug("Fetching page", "per_page", perPage)

	body, err := c.Request(ctx, MethodGet, ep.WithPage(page, perPage))
	var cond *ExpectedCondition
	if errors.As(err, &cond) {
		logger.Info("API reports no data available", "status", cond.StatusCode, "message", cond.Message)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode page %d of %s: expected a JSON array: %w", page, ep.Path, err)
	}
	return items, nil
}

func (c *Client) classify(err error, req *http.Request, ep Endpoint) error {
	resp, message, ok := failedResponse(err)
	if !ok {
		return &custom_errors.TransportError{
			URL:        req.URL.String(),
			Resource:   ep.Resource,
			Repository: ep.Repository,
			Err:        err,
		}
	}

	if swallowed, msg := c.classifier.Classify(resp.StatusCode, message); swallowed {
		return &ExpectedCondition{StatusCode: resp.StatusCode, Message: msg}
	}

	body := readBody(resp)
	if body == "" {
		body = message
	}
	return &custom_errors.TransportError{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Body:       body,
		URL:        req.URL.String(),
		Resource:   ep.Resource,
		Repository: ep.Repository,
		Err:        err,
	}
}

// failedResponse extracts the HTTP response and API message from the error
// types go-github returns for non-2xx responses.
func failedResponse(err error) (*http.Response, string, bool) {
	var errResp *github.ErrorResponse
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &errResp) && errResp.Response != nil:
		return errResp.Response, errResp.Message, true
	case errors.As(err, &rateErr) && rateErr.Response != nil:
		return rateErr.Response, rateErr.Message, true
	case errors.As(err, &abuseErr) && abuseErr.Response != nil:
		return abuseErr.Response, abuseErr.Message, true
	}
	return nil, "", false
}

func readBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(data)
}

func reasonPhrase(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if reason := strings.TrimPrefix(resp.Status, prefix); reason != "" && reason != resp.Status {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
