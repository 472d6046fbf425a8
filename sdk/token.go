package stagelink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/stagelink-ai/stagelink-go/pkg/core"
	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
)

const defaultTokenTimeout = 10 * time.Second

// fetchToken performs one GET against the configured token endpoint and
// decodes the credential payload. The call always carries a deadline so a
// hung endpoint cannot wedge session establishment; expiry surfaces as a
// network error. Retries are opt-in via WithTokenRetries and follow a
// fibonacci backoff.
func (c *Client) fetchToken(ctx context.Context) (*types.SessionToken, error) {
	if c.tokenURL == "" {
		return nil, core.NewValidationError("token URL is not configured")
	}

	timeout := c.tokenTimeout
	if timeout <= 0 {
		timeout = defaultTokenTimeout
	}

	var token *types.SessionToken
	backoff := retry.WithMaxRetries(c.tokenRetries, retry.NewFibonacci(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, err := c.fetchTokenOnce(ctx, timeout)
		if err != nil {
			if core.IsType(err, core.ErrAuthentication) || core.IsType(err, core.ErrValidation) {
				return err
			}
			return retry.RetryableError(err)
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (c *Client) fetchTokenOnce(ctx context.Context, timeout time.Duration) (*types.SessionToken, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.tokenURL, nil)
	if err != nil {
		return nil, core.NewValidationError(fmt.Sprintf("build token request: %v", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.NewNetworkError("token fetch failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, core.NewAuthenticationError(fmt.Sprintf("token endpoint rejected the request (status %d)", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, core.NewNetworkError(fmt.Sprintf("token endpoint returned status %d", resp.StatusCode), nil)
	}

	var token types.SessionToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, core.NewNetworkError("decode token payload", err)
	}
	return &token, nil
}
