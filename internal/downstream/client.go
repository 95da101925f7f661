package downstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/openHPI/velo/pkg/logging"
	"github.com/openHPI/velo/pkg/util"
)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 1250 * time.Millisecond
	// DefaultAttempts is the number of attempts made before a call is given up.
	DefaultAttempts = 3
	// maxResponseSize limits how much of a downstream response body is read.
	maxResponseSize = 1 << 20
)

var (
	log = logging.GetLogger("downstream")
	// ErrExhausted is returned when no attempt of a call reached the downstream service.
	ErrExhausted = errors.New("downstream service unreachable")
)

// StatusError is returned when the downstream service responded with a status code other than 2xx.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s responded with status %d", e.URL, e.StatusCode)
}

// RetryPolicy configures how often and how long a call is attempted.
type RetryPolicy struct {
	Attempts int
	Timeout  time.Duration
}

// DefaultRetryPolicy returns the policy with DefaultAttempts and DefaultTimeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultAttempts, Timeout: DefaultTimeout}
}

// Retryable reports whether a failed attempt should be repeated.
// Only timeouts and connection failures are retryable, responses never are.
func (p RetryPolicy) Retryable(err error) bool {
	var statusError *StatusError
	if errors.As(err, &statusError) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}

// WorstCaseLatency is the longest time a call following this policy may take.
func (p RetryPolicy) WorstCaseLatency() time.Duration {
	return time.Duration(p.Attempts) * p.Timeout
}

// Response is a successful answer of a downstream service.
type Response struct {
	StatusCode int
	Body       []byte
}

// DecodeJSON decodes the body of the response into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("error decoding downstream response: %w", err)
	}
	return nil
}

// Client calls downstream services following a RetryPolicy.
type Client struct {
	httpClient *http.Client
	policy     RetryPolicy
}

// NewClient creates a Client. If httpClient is nil, a client without a global timeout is used
// as every attempt is bounded by the policy's timeout.
func NewClient(policy RetryPolicy, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if policy.Attempts < 1 {
		policy.Attempts = DefaultAttempts
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultTimeout
	}
	return &Client{httpClient: httpClient, policy: policy}
}

// Policy returns the RetryPolicy of the client.
func (c *Client) Policy() RetryPolicy {
	return c.policy
}

// Call sends a GET request to the url. Attempts that time out or fail to connect are repeated with
// the identical request until the attempts of the policy are used up, which results in ErrExhausted.
// A response with a status code other than 2xx is returned immediately as *StatusError.
// The cancellation of ctx is not propagated; only the values of ctx are used.
func (c *Client) Call(ctx context.Context, url string) (*Response, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	var response *Response
	attempts := 0
	err := util.RetryAttemptsContext(ctx, c.policy.Attempts, c.policy.Retryable, func() (err error) {
		attempts++
		response, err = c.attempt(ctx, url)
		return err
	})

	logEntry := log.WithContext(ctx).
		WithField("url", url).
		WithField("attempts", attempts).
		WithField("duration", time.Since(start))
	switch {
	case err == nil:
		logEntry.WithField("code", response.StatusCode).Debug("Downstream call succeeded")
		return response, nil
	case errors.Is(err, util.ErrAttemptsExhausted):
		logEntry.WithError(err).Warn("Downstream service unreachable")
		return nil, fmt.Errorf("%w: GET %s: %w", ErrExhausted, url, err)
	default:
		logEntry.WithError(err).Debug("Downstream call failed")
		return nil, err
	}
}

func (c *Client) attempt(ctx context.Context, url string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating downstream request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if requestID, ok := logging.RequestID(ctx); ok {
		request.Header.Set(logging.RequestIDHeader, requestID)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error sending downstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("error reading downstream response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
