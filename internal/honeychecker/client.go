package honeychecker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 2 * time.Second

type setRequest struct {
	UserID    string `json:"user_id"`
	RealIndex int    `json:"real_index"`
}

type verifyRequest struct {
	UserID         string `json:"user_id"`
	CandidateIndex int    `json:"candidate_index"`
}

type verifyResponse struct {
	IsReal bool `json:"is_real"`
}

// Client talks to a remote honeychecker. Transport failures, timeouts and
// unexpected responses all come back wrapped in
// common.ErrHoneycheckerUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Set(ctx context.Context, userID string, realIndex int) error {
	status, _, err := c.post(ctx, "/set", setRequest{UserID: userID, RealIndex: realIndex})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: set returned %d", common.ErrHoneycheckerUnavailable, status)
	}
	return nil
}

func (c *Client) Verify(ctx context.Context, userID string, candidate int) (bool, error) {
	status, body, err := c.post(ctx, "/verify", verifyRequest{UserID: userID, CandidateIndex: candidate})
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, common.ErrorNotFound
	default:
		return false, fmt.Errorf("%w: verify returned %d", common.ErrHoneycheckerUnavailable, status)
	}

	var resp verifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("%w: decode verify response: %v", common.ErrHoneycheckerUnavailable, err)
	}
	return resp.IsReal, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", common.ErrHoneycheckerUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", common.ErrHoneycheckerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", common.ErrHoneycheckerUnavailable, err)
	}
	return resp.StatusCode, body, nil
}
