package listingflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the marketplace REST API with the session's bearer token.
// It implements ClaimsSource and ListingsSource.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds an API client. A nil httpClient gets a sane default
// timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

type claimsEnvelope struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Claims  []Claim `json:"claims"`
}

type listingsEnvelope struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Listings []Listing `json:"listings"`
}

type createListingRequest struct {
	ClaimID       string  `json:"claimId"`
	CreditsToSell float64 `json:"creditsToSell"`
}

type createListingEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Listing *Listing `json:"listing"`
}

// MyClaims fetches the authenticated user's credit claims.
func (c *Client) MyClaims(ctx context.Context) ([]Claim, error) {
	var env claimsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/claims/my-claims", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &BackendRejectedError{Message: env.Message}
	}
	return env.Claims, nil
}

// MyListings fetches the authenticated user's marketplace listings.
func (c *Client) MyListings(ctx context.Context) ([]Listing, error) {
	var env listingsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/marketplace/my-listings", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &BackendRejectedError{Message: env.Message}
	}
	return env.Listings, nil
}

// CreateListing posts a new listing. A non-success response surfaces the
// backend's message verbatim as a BackendRejectedError.
func (c *Client) CreateListing(ctx context.Context, claimID string, quantity float64) (*Listing, error) {
	body := createListingRequest{ClaimID: claimID, CreditsToSell: quantity}
	var env createListingEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/marketplace/list", body, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &BackendRejectedError{Message: env.Message}
	}
	return env.Listing, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Error statuses still carry the JSON envelope; decode it so the
	// backend's message reaches the caller unchanged.
	if err := json.Unmarshal(payload, out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
