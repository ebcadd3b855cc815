package ngsi

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

	"github.com/terrasense/agriops/internal/types"
	"github.com/terrasense/agriops/internal/util"
)

// listPageSize is the broker page size used when listing entities.
const listPageSize = 1000

// Client talks to an NGSI-LD context broker. It implements the catalog
// repository contract: list, get, patch attributes, delete.
type Client struct {
	baseURL    string
	tenant     string
	maxTries   int
	httpClient *http.Client
}

// NewClient creates a broker client. tenant may be empty for single-tenant
// brokers; when set it is passed through as the NGSILD-Tenant header.
func NewClient(baseURL, tenant string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenant:   tenant,
		maxTries: 3,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BrokerError is a non-2xx response from the broker.
type BrokerError struct {
	StatusCode int
	Title      string `json:"title"`
	Detail     string `json:"detail"`
}

func (e *BrokerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("broker returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("broker returned %d: %s", e.StatusCode, e.Title)
}

// retryable reports whether an attempt should be repeated. Client errors
// are definitive; server errors and transport failures are not.
func retryable(err error) bool {
	var be *BrokerError
	if errors.As(err, &be) {
		return be.StatusCode >= 500
	}
	return true
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, target any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	attempt := func(ctx context.Context) error {
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/ld+json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/ld+json")
		}
		if c.tenant != "" {
			req.Header.Set("NGSILD-Tenant", c.tenant)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("calling broker: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading broker response: %w", err)
		}
		if resp.StatusCode >= 400 {
			be := &BrokerError{StatusCode: resp.StatusCode}
			_ = json.Unmarshal(raw, be)
			return be
		}
		if target != nil {
			if err := json.Unmarshal(raw, target); err != nil {
				return fmt.Errorf("decoding broker response: %w", err)
			}
		}
		return nil
	}

	var permanent error
	err := util.RetryErrWithContext(ctx, c.maxTries, func(ctx context.Context) error {
		err := attempt(ctx)
		if err != nil && !retryable(err) {
			// Definitive broker answer. Stop the retry loop and
			// report it below.
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		return permanent
	}
	return err
}

// ListEntities returns the flat catalog snapshot, optionally narrowed by
// type. The broker caps each response at its page size, so listing pages
// with limit/offset until a short page comes back. The broker does not
// index our derived parent field, so ParentID filtering happens
// client-side over the relationship attributes.
func (c *Client) ListEntities(ctx context.Context, f types.ListFilter) ([]types.Entity, error) {
	var out []types.Entity
	for offset := 0; ; offset += listPageSize {
		query := url.Values{}
		query.Set("limit", fmt.Sprint(listPageSize))
		query.Set("offset", fmt.Sprint(offset))
		if len(f.Types) > 0 {
			query.Set("type", strings.Join(f.Types, ","))
		}

		var page []Entity
		if err := c.do(ctx, http.MethodGet, "/ngsi-ld/v1/entities", query, nil, &page); err != nil {
			return nil, fmt.Errorf("listing entities at offset %d: %w", offset, err)
		}
		for _, we := range page {
			e := we.ToEntity()
			if f.ParentID != "" && e.ParentID != f.ParentID {
				continue
			}
			out = append(out, e)
		}
		if len(page) < listPageSize {
			return out, nil
		}
	}
}

// GetEntity fetches a single entity by id.
func (c *Client) GetEntity(ctx context.Context, id string) (types.Entity, error) {
	var we Entity
	path := "/ngsi-ld/v1/entities/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &we); err != nil {
		return types.Entity{}, fmt.Errorf("getting entity %s: %w", id, err)
	}
	return we.ToEntity(), nil
}

// PatchAttributes applies an attribute fragment to one entity. The broker
// treats the whole fragment as a single atomic PATCH.
func (c *Client) PatchAttributes(ctx context.Context, entityType, id string, frag AttributeFragment) error {
	path := "/ngsi-ld/v1/entities/" + url.PathEscape(id) + "/attrs"
	if err := c.do(ctx, http.MethodPatch, path, nil, frag, nil); err != nil {
		return fmt.Errorf("patching %s %s: %w", entityType, id, err)
	}
	return nil
}

// DeleteEntity removes one entity from the broker.
func (c *Client) DeleteEntity(ctx context.Context, entityType, id string) error {
	path := "/ngsi-ld/v1/entities/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("deleting %s %s: %w", entityType, id, err)
	}
	return nil
}
