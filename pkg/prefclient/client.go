// Package prefclient implémente preference.Gateway au-dessus de l'API HTTP
// de l'interaction-service.
package prefclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrUnauthorized = errors.New("unauthorized")

// StatusError porte une réponse non-2xx du service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("interaction-service: status %d: %s", e.Code, e.Message)
}

// TokenSource fournit le jeton Bearer courant de la session.
type TokenSource func() string

type Client struct {
	baseURL string
	token   TokenSource
	http    *http.Client
}

var _ preference.Gateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

func New(baseURL string, token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create ignore rec.UserID: le service prend l'utilisateur du jeton.
func (c *Client) Create(ctx context.Context, rec preference.Record) (preference.CreateResult, error) {
	body := preference.CreateRequest{
		TargetID:   rec.TargetID,
		TargetType: rec.TargetType,
		Kind:       rec.Kind,
		Reason:     rec.Reason,
		Actor:      rec.Actor,
	}
	var out preference.CreateResponse
	if err := c.do(ctx, http.MethodPost, "/v1/preferences", nil, body, &out); err != nil {
		return preference.Created, err
	}
	if out.Result == preference.AlreadyExists.String() {
		return preference.AlreadyExists, nil
	}
	return preference.Created, nil
}

func (c *Client) Delete(ctx context.Context, _, targetID string, targetType preference.TargetType, kind preference.Kind) error {
	q := url.Values{
		"target_id":   {targetID},
		"target_type": {string(targetType)},
		"kind":        {string(kind)},
	}
	return c.do(ctx, http.MethodDelete, "/v1/preferences", q, nil, nil)
}

func (c *Client) ListMembers(ctx context.Context, _ string, targetType preference.TargetType, kind preference.Kind) ([]string, error) {
	q := url.Values{
		"target_type": {string(targetType)},
		"kind":        {string(kind)},
	}
	var out preference.ListResponse
	if err := c.do(ctx, http.MethodGet, "/v1/preferences", q, nil, &out); err != nil {
		return nil, err
	}
	return out.TargetIDs, nil
}

// Check interroge l'appartenance de plusieurs cibles en un appel.
func (c *Client) Check(ctx context.Context, targetType preference.TargetType, kind preference.Kind, targetIDs []string) (map[string]bool, error) {
	body := preference.CheckRequest{TargetType: targetType, Kind: kind, TargetIDs: targetIDs}
	var out preference.CheckResponse
	if err := c.do(ctx, http.MethodPost, "/v1/preferences/check", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusUnprocessableEntity:
		return preference.ErrSelfTarget
	}
	if resp.StatusCode/100 != 2 {
		var e preference.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
