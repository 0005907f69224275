package cdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/facilities"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
)

// RegisterClient calls the CDX register service for facility permissions and
// policy determination. It implements facilities.Provider.
type RegisterClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewRegisterClient returns a client for the CDX register service at baseURL.
func NewRegisterClient(baseURL string, timeout time.Duration) *RegisterClient {
	return &RegisterClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// FacilitiesForUser returns the facility/role tuples the user is authorized
// for, as reported by the register service.
func (c *RegisterClient) FacilitiesForUser(ctx context.Context, userID string) ([]facilities.Facility, error) {
	var out []facilities.Facility
	err := c.getJSON(ctx, "/api/v1/registration/facilities?userId="+url.QueryEscape(userID), "", &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PolicyResponse is the policy determination returned by the CDX service.
type PolicyResponse struct {
	Policy      string `json:"policy"`
	UserID      string `json:"userId"`
	Description string `json:"description,omitempty"`
}

// DeterminePolicy asks the CDX service which sign-in policy applies to the
// user. serviceToken is a NAAS service-to-service token authorizing the call.
func (c *RegisterClient) DeterminePolicy(ctx context.Context, userID, serviceToken string) (*PolicyResponse, error) {
	var out PolicyResponse
	err := c.getJSON(ctx, "/api/v1/registration/determine-policy?userId="+url.QueryEscape(userID), serviceToken, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RegisterClient) getJSON(ctx context.Context, path, bearer string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrUpstreamAuthority, err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("%w: %v", token.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", token.ErrUpstreamAuthority, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d from %s", token.ErrUpstreamAuthority, resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", token.ErrUpstreamAuthority, err)
	}
	return nil
}
