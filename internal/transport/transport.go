// Package transport issues the HTTP exchanges behind WebHDFS operations.
//
// The executor speaks plain HTTP with a fixed request shape: an optional
// streamed upload body, an optional download sink, an expected status code,
// and per-call control over redirect following. Responses that miss the
// expected status are classified into typed errors, preferring the server's
// own error envelope when the body carries one.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Error codes classifying exchange failures.
const (
	CodeTransport        = "E_TRANSPORT"
	CodeClientIO         = "E_CLIENT_IO"
	CodeRemote           = "E_REMOTE"
	CodeUnexpectedStatus = "E_UNEXPECTED_STATUS"
)

const defaultUserAgent = "webhdfs-core/1.0"

// Config controls the executor's HTTP handle.
type Config struct {
	// ConnectTimeout bounds connection establishment. Zero keeps the
	// transport default.
	ConnectTimeout time.Duration

	// TransferTimeout bounds a whole exchange, headers and body included.
	// Zero means no limit.
	TransferTimeout time.Duration

	// RequestsPerSecond throttles outgoing requests. Zero means unlimited.
	RequestsPerSecond float64

	// RateBurst is the throttle burst size. Zero means 1.
	RateBurst int

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Request describes one HTTP exchange.
type Request struct {
	Method string
	URL    string

	// FollowRedirect controls whether 3xx responses are chased. When off,
	// the redirect response itself is returned and its target recorded in
	// Reply.RedirectURL.
	FollowRedirect bool

	// Source supplies the request body. Nil sends no body. A read that
	// returns zero bytes ends the upload.
	Source io.Reader

	// Sink receives the response body when the expected status arrived.
	Sink io.Writer

	// ExpectStatus is the only status code treated as success.
	ExpectStatus int
}

// Reply captures the outcome of one successful exchange.
type Reply struct {
	StatusCode int

	// RedirectURL is the redirect target, populated only when a 3xx
	// response arrived and FollowRedirect was off.
	RedirectURL string
}

// Error classifies an exchange failure.
type Error struct {
	Code       string
	StatusCode int    // observed status, for CodeRemote and CodeUnexpectedStatus
	Exception  string // server exception class, for CodeRemote
	Body       string // raw diagnostic body, for CodeUnexpectedStatus
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Executor issues HTTP exchanges through one exclusively owned client
// handle. It is not safe for concurrent use: the handle's redirect policy is
// reconfigured in place for every call.
type Executor struct {
	client  *http.Client
	limiter *rate.Limiter
	agent   string
}

// New builds an Executor around a fresh client handle configured from cfg.
func New(cfg Config) *Executor {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	agent := cfg.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Executor{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:       http.ProxyFromEnvironment,
				DialContext: dialer.DialContext,
			},
			Timeout: cfg.TransferTimeout,
		},
		limiter: limiter,
		agent:   agent,
	}
}

// Do performs one exchange and returns its reply when the response carried
// the expected status. Any other outcome is reported as an *Error.
func (x *Executor) Do(ctx context.Context, req *Request) (*Reply, error) {
	switch req.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
	case http.MethodPost:
		return nil, &Error{Code: CodeClientIO, Err: errors.New("POST requests not implemented")}
	default:
		return nil, &Error{Code: CodeClientIO, Err: fmt.Errorf("unsupported method %q", req.Method)}
	}

	if x.limiter != nil {
		if err := x.limiter.Wait(ctx); err != nil {
			return nil, &Error{Code: CodeTransport, Err: err}
		}
	}

	var src *sourceReader
	var body io.Reader
	if req.Source != nil {
		src = &sourceReader{r: req.Source}
		body = src
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &Error{Code: CodeClientIO, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("User-Agent", x.agent)
	if src != nil {
		// Stream with chunked transfer encoding; the source length is
		// unknown up front.
		httpReq.ContentLength = -1
	}

	x.client.CheckRedirect = redirectPolicy(req.FollowRedirect)

	resp, err := x.client.Do(httpReq)
	if err != nil {
		if src != nil && src.err != nil {
			return nil, &Error{Code: CodeClientIO, Err: fmt.Errorf("read from data source: %w", src.err)}
		}
		return nil, &Error{Code: CodeTransport, Err: err}
	}
	defer resp.Body.Close()

	reply := &Reply{StatusCode: resp.StatusCode}
	if !req.FollowRedirect && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc, err := resp.Location(); err == nil {
			reply.RedirectURL = loc.String()
		}
	}

	if resp.StatusCode != req.ExpectStatus {
		diag, _ := io.ReadAll(resp.Body)
		return nil, classifyUnexpected(resp.StatusCode, diag)
	}

	if req.Sink != nil {
		if err := copyToSink(req.Sink, resp.Body); err != nil {
			return nil, err
		}
	}
	return reply, nil
}

func redirectPolicy(follow bool) func(*http.Request, []*http.Request) error {
	if follow {
		return nil // default policy, follows up to ten redirects
	}
	return func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
}

// classifyUnexpected turns a status mismatch into a typed failure. A body
// carrying the server's error envelope becomes CodeRemote; anything else
// becomes CodeUnexpectedStatus with the raw body kept for diagnosis.
func classifyUnexpected(status int, body []byte) *Error {
	if exc, msg, ok := parseRemoteException(body); ok {
		return &Error{
			Code:       CodeRemote,
			StatusCode: status,
			Exception:  exc,
			Err:        fmt.Errorf("remote error: %s", msg),
		}
	}
	if len(body) > 0 {
		return &Error{
			Code:       CodeUnexpectedStatus,
			StatusCode: status,
			Body:       string(body),
			Err:        fmt.Errorf("unexpected server response code: %d (%s)", status, body),
		}
	}
	return &Error{
		Code:       CodeUnexpectedStatus,
		StatusCode: status,
		Err:        fmt.Errorf("unexpected server response code: %d", status),
	}
}

// parseRemoteException extracts the RemoteException envelope that Hadoop
// servers wrap application errors in.
func parseRemoteException(body []byte) (exception, message string, ok bool) {
	var envelope struct {
		RemoteException *struct {
			Exception     string `json:"exception"`
			JavaClassName string `json:"javaClassName"`
			Message       string `json:"message"`
		} `json:"RemoteException"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.RemoteException == nil {
		return "", "", false
	}
	exception = envelope.RemoteException.Exception
	if exception == "" {
		exception = "Unknown"
	}
	return exception, envelope.RemoteException.Message, true
}

func copyToSink(dst io.Writer, src io.Reader) error {
	sw := &sinkWriter{w: dst}
	if _, err := io.Copy(sw, src); err != nil {
		if sw.err != nil {
			return &Error{Code: CodeClientIO, Err: fmt.Errorf("write to data sink: %w", sw.err)}
		}
		return &Error{Code: CodeTransport, Err: fmt.Errorf("read response body: %w", err)}
	}
	return nil
}

// sourceReader adapts a caller-supplied byte source to the upload body
// contract: a read yielding zero bytes ends the body, and source failures
// are recorded so they can be told apart from transport faults afterwards.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, io.EOF
	}
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// sinkWriter records the first write failure so response-body copy errors
// can be attributed to the caller's sink rather than the connection.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil && s.err == nil {
		s.err = err
	}
	return n, err
}
