package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
)

// Verifier resolves a bearer credential to an authenticated identity. The
// identity service itself is an external collaborator; this package only
// carries the call.
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// HTTPVerifier is the default HTTP implementation against the identity
// service's verification endpoint.
type HTTPVerifier struct {
	baseURL    string
	httpClient *http.Client
}

var _ Verifier = (*HTTPVerifier)(nil)

// NewHTTPVerifier constructs the default Verifier.
func NewHTTPVerifier(baseURL string, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPVerifier{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// Verify calls the identity service and returns the resolved identity.
func (v *HTTPVerifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	if strings.TrimSpace(v.baseURL) == "" {
		return domain.Identity{}, fmt.Errorf("identity url missing")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/v1/verify", nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("read verify response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return domain.Identity{}, fmt.Errorf("verify failed: status=%d", resp.StatusCode)
	}

	var payload struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"user_id"`
		Role          string `json:"role"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Identity{}, fmt.Errorf("decode verify response: %w", err)
	}
	if !payload.Authenticated || payload.UserID == "" {
		return domain.Identity{}, fmt.Errorf("credential rejected")
	}

	return domain.Identity{UserID: payload.UserID, Role: payload.Role}, nil
}
