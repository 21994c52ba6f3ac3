/* Copyright 2025 Parceltrack Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package client implements the contract of the remote authority that devices
// register with and synchronize against
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var (
	// ErrAuthExpired is an error for a bearer token or device credential the
	// server no longer accepts
	ErrAuthExpired = errors.New("authentication expired")
	// ErrUnreachable is an error for a server that could not be reached or
	// failed to process the request
	ErrUnreachable = errors.New("server unreachable")
)

// HTTPError represents an HTTP error response from the server
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`response %d "%s"`, e.StatusCode, e.Message)
}

// Is classifies the response so that callers can match it against
// ErrAuthExpired and ErrUnreachable
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrAuthExpired:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusBadRequest
	case ErrUnreachable:
		return e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// TransportError is an error for a request that never got a response
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports every transport failure as ErrUnreachable
func (e *TransportError) Is(target error) bool {
	return target == ErrUnreachable
}

const (
	// clientRateLimitPerSecond is the max requests per second the client will make
	clientRateLimitPerSecond = 10
	// clientRateLimitBurst is the burst capacity for rate limiting
	clientRateLimitBurst = 20

	// DefaultTimeout bounds every call so that a hung server cannot stall a sync cycle
	DefaultTimeout = 30 * time.Second
)

// rateLimitedTransport wraps an http.RoundTripper with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting
func NewRateLimitedHTTPClient() *http.Client {
	interval := time.Second / time.Duration(clientRateLimitPerSecond)

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Every(interval), clientRateLimitBurst),
	}
	return &http.Client{
		Transport: transport,
	}
}

// Client calls the remote authority
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
	Version    string
}

// New returns a client for the given endpoint with a rate limited transport
func New(endpoint, version string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		HTTPClient: NewRateLimitedHTTPClient(),
		Timeout:    timeout,
		Version:    version,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}

	return http.DefaultClient
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}

	return DefaultTimeout
}

// header is a request header whose name is sent exactly as given
type header struct {
	name  string
	value string
}

func bearer(token string) header {
	return header{name: "Authorization", value: fmt.Sprintf("Bearer %s", token)}
}

func int64Header(name string, v int64) header {
	return header{name: name, value: strconv.FormatInt(v, 10)}
}

func (c *Client) getReq(ctx context.Context, path string, headers []header, body []byte) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s%s", c.Endpoint, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "constructing http request")
	}

	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Version != "" {
		req.Header.Set("User-Agent", fmt.Sprintf("parceltrack/%s", c.Version))
	}

	for _, h := range headers {
		req.Header[h.name] = []string{h.value}
	}

	return req, nil
}

// checkRespErr checks if the given http response indicates an error
func checkRespErr(res *http.Response, body []byte) error {
	if res.StatusCode < 300 {
		return nil
	}

	return &HTTPError{
		StatusCode: res.StatusCode,
		Message:    strings.TrimRight(string(body), "\n"),
	}
}

// doReq posts to the given path and returns the response body. Every call is
// bounded by the client timeout.
func (c *Client) doReq(ctx context.Context, path string, headers []header, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := c.getReq(ctx, path, headers, body)
	if err != nil {
		return nil, errors.Wrap(err, "getting request")
	}

	log.WithFields(log.Fields{
		"path": path,
	}).Debug("HTTP request.")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrap(&TransportError{Err: err}, "making http request")
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(&TransportError{Err: err}, "reading the response body")
	}

	log.WithFields(log.Fields{
		"path":   path,
		"status": res.StatusCode,
	}).Debug("HTTP response.")

	if err := checkRespErr(res, respBody); err != nil {
		return nil, errors.Wrap(err, "server responded with an error")
	}

	return respBody, nil
}

func (c *Client) doJSON(ctx context.Context, path string, headers []header, payload, dest interface{}) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshaling payload")
		}
		body = b
	}

	respBody, err := c.doReq(ctx, path, headers, body)
	if err != nil {
		return err
	}

	if dest == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return errors.Wrap(err, "unmarshalling the payload")
	}

	return nil
}
