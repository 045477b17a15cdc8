// Package exploreclient implémente explore.BatchFetcher au-dessus de l'API
// HTTP du feed-service.
package exploreclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Client struct {
	baseURL string
	http    *http.Client
}

var _ explore.BatchFetcher = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

// New ne fixe pas de timeout client: la durée d'un Fetch est bornée par le
// contexte de l'appelant.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch appelle GET /v1/explore. Toute erreur de transport ou réponse non-2xx
// est rapportée comme explore.ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context, req explore.Request) (explore.PageResult, error) {
	u := c.baseURL + "/v1/explore?" + explore.EncodeRequest(req).Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return explore.PageResult{}, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return explore.PageResult{}, fmt.Errorf("%w: %w", explore.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return explore.PageResult{}, fmt.Errorf("%w: status %d: %s", explore.ErrFetchFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page explore.PageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return explore.PageResult{}, fmt.Errorf("%w: decode: %w", explore.ErrFetchFailed, err)
	}
	result, err := page.Result()
	if err != nil {
		return explore.PageResult{}, fmt.Errorf("%w: %w", explore.ErrFetchFailed, err)
	}
	return result, nil
}
