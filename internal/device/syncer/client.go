package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ioehub/campus-attendance/internal/auth"
	"github.com/ioehub/campus-attendance/internal/syncapi"
)

const (
	// tokenValidity covers a full sync cycle with margin; a fresh token is
	// minted per request anyway.
	tokenValidity = 5 * time.Minute

	// retryBaseDelay and retryMax bound the in-call retry budget. With a
	// fibonacci backoff this keeps a failing call well under the sync
	// interval; anything still failing is simply retried next cycle.
	retryBaseDelay = 500 * time.Millisecond
	retryMax       = 2
)

// Client talks to the central authority's sync endpoints on behalf of one
// device. Every call carries a bounded timeout and a freshly minted device
// token.
type Client struct {
	baseURL  string
	deviceID string
	secret   []byte
	http     *http.Client
}

func NewClient(baseURL, deviceID string, secret []byte, timeout time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		deviceID: deviceID,
		secret:   secret,
		http:     &http.Client{Timeout: timeout},
	}
}

// PushAttendance submits a batch of attendance records. A nil error means
// the authority durably accepted the whole batch; any error means none of
// it should be considered delivered.
func (c *Client) PushAttendance(ctx context.Context, records []syncapi.AttendanceRecord) error {
	body, err := json.Marshal(syncapi.AttendancePush{Records: records})
	if err != nil {
		return fmt.Errorf("failed to encode attendance batch: %w", err)
	}

	return c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/sync/attendance", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if err := c.authorize(req); err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("push request failed: %w", err))
		}
		defer resp.Body.Close()

		return checkStatus(resp)
	})
}

// PullUpdates fetches roster and timetable changes strictly newer than
// since. A zero since asks for everything the authority has.
func (c *Client) PullUpdates(ctx context.Context, since time.Time) (*syncapi.Updates, error) {
	endpoint := c.baseURL + "/sync/updates"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}

	var updates syncapi.Updates
	err := c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		if err := c.authorize(req); err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("pull request failed: %w", err))
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		updates = syncapi.Updates{}
		if err := json.NewDecoder(resp.Body).Decode(&updates); err != nil {
			return fmt.Errorf("failed to decode updates: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updates, nil
}

func (c *Client) authorize(req *http.Request) error {
	token, err := auth.GenerateDeviceToken(c.deviceID, c.secret, tokenValidity)
	if err != nil {
		return fmt.Errorf("failed to mint device token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Device-ID", c.deviceID)
	return nil
}

// withRetry runs fn with a small fibonacci backoff. Only errors marked
// retryable (transport failures, server-side statuses) are attempted again;
// client-side statuses fail immediately.
func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retryMax, retry.NewFibonacci(retryBaseDelay))
	return retry.Do(ctx, backoff, fn)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("server returned status %d", resp.StatusCode))
	default:
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
}
