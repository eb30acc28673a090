// Package client is the Go consumer of the sheet API: it resolves the
// endpoint shape for the active deployment target and wraps the four
// operations behind typed calls. It also satisfies the mapping resolver's
// Reader, so reference data can be loaded through a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"habitquest/api/internal/config"
	"habitquest/api/internal/sheets"
	"habitquest/api/internal/tabular"
)

// netlifyBase is the function prefix Netlify serves under.
const netlifyBase = "/.netlify/functions"

type Options struct {
	// DevServerURL routes every call to the local server's
	// /api/sheets/{op} shape when set, taking precedence over BaseURL.
	DevServerURL string
	// BaseURL is the hosted prefix: "/api" for Vercel-style routes,
	// "/.netlify/functions" for Netlify.
	BaseURL     string
	Credentials sheets.Credentials
	HTTPClient  *http.Client
}

type Client struct {
	opts Options
	http *http.Client
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{opts: opts, http: httpClient}
}

// FromConfig builds a client for the configured deployment target.
func FromConfig(cfg config.Config, creds sheets.Credentials) *Client {
	opts := Options{
		DevServerURL: cfg.DevServerURL,
		BaseURL:      cfg.APIBaseURL,
		Credentials:  creds,
	}
	if strings.EqualFold(cfg.DeployTarget, "netlify") {
		opts.BaseURL = netlifyBase
	}
	return New(opts)
}

// Endpoint resolves the URL for one operation ("data", "add", "update",
// "delete") under the active deployment target.
func (c *Client) Endpoint(op string) string {
	if c.opts.DevServerURL != "" {
		return strings.TrimSuffix(c.opts.DevServerURL, "/") + "/api/sheets/" + op
	}
	base := c.opts.BaseURL
	if base == "" {
		base = "/api"
	}
	return strings.TrimSuffix(base, "/") + "/sheets-" + op
}

type requestBody struct {
	sheets.Credentials
	SheetName string             `json:"sheetName,omitempty"`
	Filters   tabular.FilterSpec `json:"filters,omitempty"`
	Item      map[string]string  `json:"item,omitempty"`
	UUID      string             `json:"uuid,omitempty"`
}

// Read fetches filtered rows from one worksheet.
func (c *Client) Read(ctx context.Context, sheetName string, filters tabular.FilterSpec) ([]tabular.Row, error) {
	var response struct {
		Data []tabular.Row `json:"data"`
	}
	err := c.call(ctx, "data", requestBody{
		Credentials: c.opts.Credentials,
		SheetName:   sheetName,
		Filters:     filters,
	}, &response)
	if err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ReadSheet satisfies mapping.Reader.
func (c *Client) ReadSheet(ctx context.Context, sheetName string, filters tabular.FilterSpec) ([]tabular.Row, error) {
	return c.Read(ctx, sheetName, filters)
}

// Create appends a row and returns the server-generated id.
func (c *Client) Create(ctx context.Context, sheetName string, item map[string]string) (string, error) {
	var response struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	err := c.call(ctx, "add", requestBody{
		Credentials: c.opts.Credentials,
		SheetName:   sheetName,
		Item:        item,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.ID, nil
}

// Update merges item into the row matching id.
func (c *Client) Update(ctx context.Context, sheetName, id string, item map[string]string) error {
	return c.call(ctx, "update", requestBody{
		Credentials: c.opts.Credentials,
		SheetName:   sheetName,
		UUID:        id,
		Item:        item,
	}, nil)
}

// Delete removes the row matching id.
func (c *Client) Delete(ctx context.Context, sheetName, id string) error {
	return c.call(ctx, "delete", requestBody{
		Credentials: c.opts.Credentials,
		SheetName:   sheetName,
		UUID:        id,
	}, nil)
}

func (c *Client) call(ctx context.Context, op string, body requestBody, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(op), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", op, apiErr.Error)
		}
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
