package monade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"voice-campaigns-go/internal/logger"
	"voice-campaigns-go/internal/types"
)

// Client talks to the Monade calling backend: call placement, the per-user
// transcript listing, transcript content and per-call analytics.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 12 * time.Second},
		log:        log.WithComponent("monade"),
	}
}

type placeCallResponse struct {
	CallID string `json:"call_id"`
	Error  string `json:"error,omitempty"`
}

// PlaceCall dials one contact and returns the provisional call id.
func (c *Client) PlaceCall(ctx context.Context, req types.PlaceCallRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode call request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/calling", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp placeCallResponse
	if err := c.doJSON(httpReq, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return resp.CallID, nil
}

// ListTranscripts fetches the per-user transcript listing. The backend has
// returned both a bare array and a wrapped object over time; accept either.
func (c *Client) ListTranscripts(ctx context.Context, userID string) ([]types.TranscriptEntry, error) {
	url := fmt.Sprintf("%s/api/users/%s/transcripts", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.doJSON(req, &raw); err != nil {
		return nil, err
	}

	var entries []types.TranscriptEntry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}
	var wrapped struct {
		Transcripts []types.TranscriptEntry `json:"transcripts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode transcript listing: %w", err)
	}
	return wrapped.Transcripts, nil
}

// FetchContent downloads the conversation text behind a transcript URL.
func (c *Client) FetchContent(ctx context.Context, transcriptURL string) (string, error) {
	body, _ := json.Marshal(map[string]string{"url": transcriptURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcript-content", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Transcript string `json:"transcript"`
	}
	if err := c.doJSON(req, &resp); err != nil {
		return "", err
	}
	return resp.Transcript, nil
}

// FetchAnalytics looks up the derived insight for one call id. The response
// is either {"analytics": {...}} or the analytics object itself.
func (c *Client) FetchAnalytics(ctx context.Context, callID string) (*types.Analytics, error) {
	url := fmt.Sprintf("%s/api/analytics/%s", c.baseURL, callID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.doJSON(req, &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		Analytics *types.Analytics `json:"analytics"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Analytics != nil {
		return wrapped.Analytics, nil
	}
	var bare types.Analytics
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	return &bare, nil
}

func (c *Client) doJSON(req *http.Request, target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 12 * time.Second
	var lastErr error
	op := func() error {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Body = body
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %s", string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = decodeAPIError(resp.StatusCode, body)
			return backoff.Permanent(lastErr)
		}
		if len(body) == 0 {
			lastErr = fmt.Errorf("empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return lastErr
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, req.Context())); err != nil {
		return lastErr
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return errors.New(payload.Error)
	}
	return fmt.Errorf("request failed with status %d", status)
}
