package webhdfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nucleus/webhdfs-core/internal/transport"
)

// DefaultPort is the namenode HTTP port used when Config.Port is zero.
const DefaultPort = 50070

const booleanTrueReply = `{"boolean":true}`

// Config carries the construction-time settings for a Client.
type Config struct {
	// Host is the namenode host. Required.
	Host string

	// Port is the namenode HTTP port. Zero means DefaultPort.
	Port int

	// User is sent as the user.name query parameter. Empty omits it and
	// leaves authentication to the cluster's defaults.
	User string

	// ConnectTimeout bounds connection establishment. Zero keeps the
	// transport default.
	ConnectTimeout time.Duration

	// TransferTimeout bounds a whole operation, body transfer included.
	// Zero means no limit.
	TransferTimeout time.Duration

	// RequestsPerSecond throttles namenode requests. Zero means unlimited.
	RequestsPerSecond float64

	// RateBurst is the throttle burst size. Zero means 1.
	RateBurst int
}

// Client performs filesystem operations against one WebHDFS endpoint.
//
// A Client owns a single transport handle whose per-call settings are
// mutated in place, so a Client must not be shared between goroutines.
// Independent Client values are fully isolated and may run concurrently.
type Client struct {
	urls *urlBuilder
	exec *transport.Executor
}

// New creates a Client for the endpoint described by cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("webhdfs: host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		urls: newURLBuilder(cfg.Host, port, cfg.User),
		exec: transport.New(transport.Config{
			ConnectTimeout:    cfg.ConnectTimeout,
			TransferTimeout:   cfg.TransferTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			RateBurst:         cfg.RateBurst,
		}),
	}, nil
}

// WriteFile creates the remote file at path with the bytes read from src.
// The namenode is asked for the responsible datanode first; the data itself
// is streamed to the datanode named in the redirect.
func (c *Client) WriteFile(ctx context.Context, src io.Reader, path string, opts *WriteOptions) error {
	reply, err := c.exec.Do(ctx, &transport.Request{
		Method:       http.MethodPut,
		URL:          c.urls.opURL(path, OpCreate, opts),
		ExpectStatus: http.StatusTemporaryRedirect,
	})
	if err != nil {
		return c.wrapErr(OpCreate, path, err)
	}
	if reply.RedirectURL == "" {
		return &Error{
			Code: CodeProtocol,
			Op:   OpCreate,
			Path: path,
			Err:  errors.New("no datanode redirect in create response"),
		}
	}
	_, err = c.exec.Do(ctx, &transport.Request{
		Method:       http.MethodPut,
		URL:          reply.RedirectURL,
		Source:       src,
		ExpectStatus: http.StatusCreated,
	})
	if err != nil {
		return c.wrapErr(OpCreate, path, err)
	}
	return nil
}

// ReadFile streams the contents of the remote file at path into sink,
// following the namenode's redirect to the datanode holding the data.
func (c *Client) ReadFile(ctx context.Context, path string, sink io.Writer, opts *ReadOptions) error {
	_, err := c.exec.Do(ctx, &transport.Request{
		Method:         http.MethodGet,
		URL:            c.urls.opURL(path, OpOpen, opts),
		FollowRedirect: true,
		Sink:           sink,
		ExpectStatus:   http.StatusOK,
	})
	if err != nil {
		return c.wrapErr(OpOpen, path, err)
	}
	return nil
}

// MakeDir creates the remote directory at path, including missing parents.
func (c *Client) MakeDir(ctx context.Context, path string, opts *MakeDirOptions) error {
	return c.booleanOp(ctx, http.MethodPut, OpMkdirs, path, c.urls.opURL(path, OpMkdirs, opts))
}

// ListDir returns the statuses of the entries directly under path.
func (c *Client) ListDir(ctx context.Context, path string) ([]FileStatus, error) {
	body, err := c.getJSON(ctx, OpListStatus, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeListing(path, body)
}

// Remove deletes the remote file or directory at path.
func (c *Client) Remove(ctx context.Context, path string, opts *RemoveOptions) error {
	return c.booleanOp(ctx, http.MethodDelete, OpDelete, path, c.urls.opURL(path, OpDelete, opts))
}

// Rename moves the remote file or directory at path to newPath. newPath is
// appended to the query string without percent-encoding; callers must supply
// a value safe for direct concatenation.
func (c *Client) Rename(ctx context.Context, path, newPath string) error {
	url := c.urls.opURL(path, OpRename, nil) + "&destination=" + newPath
	return c.booleanOp(ctx, http.MethodPut, OpRename, path, url)
}

// Stat returns the status of the remote file or directory at path.
func (c *Client) Stat(ctx context.Context, path string) (*FileStatus, error) {
	body, err := c.getJSON(ctx, OpGetFileStatus, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeFileStatus(path, body)
}

// ContentSummary returns the recursive space accounting for path.
func (c *Client) ContentSummary(ctx context.Context, path string) (*ContentSummary, error) {
	body, err := c.getJSON(ctx, OpGetContentSummary, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeContentSummary(path, body)
}

// Exists reports whether path exists on the remote filesystem. A remote
// file-not-found answer counts as plain absence, not a failure.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// getJSON fetches one metadata operation's response body.
func (c *Client) getJSON(ctx context.Context, op, path string, opts queryEncoder) ([]byte, error) {
	var body bytes.Buffer
	_, err := c.exec.Do(ctx, &transport.Request{
		Method:         http.MethodGet,
		URL:            c.urls.opURL(path, op, opts),
		FollowRedirect: true,
		Sink:           &body,
		ExpectStatus:   http.StatusOK,
	})
	if err != nil {
		return nil, c.wrapErr(op, path, err)
	}
	return body.Bytes(), nil
}

// booleanOp runs a mutating operation and verifies its boolean reply. The
// server answers mutations with status 200 regardless of effect; the real
// outcome is the reply body, which must be exactly {"boolean":true}.
func (c *Client) booleanOp(ctx context.Context, method, op, path, url string) error {
	var body bytes.Buffer
	_, err := c.exec.Do(ctx, &transport.Request{
		Method:       method,
		URL:          url,
		Sink:         &body,
		ExpectStatus: http.StatusOK,
	})
	if err != nil {
		return c.wrapErr(op, path, err)
	}
	if body.String() != booleanTrueReply {
		return &Error{
			Code: CodeVerification,
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("unexpected reply body %q", body.String()),
		}
	}
	return nil
}

// decodeListing maps a LISTSTATUS body to file statuses. A body that is not
// JSON at all is a hard failure; valid JSON without the expected members
// yields an empty listing, since namenode variants disagree on envelope
// details.
func decodeListing(path string, body []byte) ([]FileStatus, error) {
	if !json.Valid(body) {
		return nil, &Error{
			Code: CodeVerification,
			Op:   OpListStatus,
			Path: path,
			Err:  errors.New("cannot parse directory listing"),
		}
	}
	var listing listStatusResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, nil
	}
	statuses := listing.FileStatuses.FileStatus
	for i := range statuses {
		normalizeType(&statuses[i])
	}
	return statuses, nil
}

func decodeFileStatus(path string, body []byte) (*FileStatus, error) {
	if !json.Valid(body) {
		return nil, &Error{
			Code: CodeVerification,
			Op:   OpGetFileStatus,
			Path: path,
			Err:  errors.New("cannot parse file status"),
		}
	}
	// Best effort past the validity check: valid JSON without the
	// expected member yields a zero status.
	var status fileStatusResponse
	_ = json.Unmarshal(body, &status)
	normalizeType(&status.FileStatus)
	return &status.FileStatus, nil
}

func decodeContentSummary(path string, body []byte) (*ContentSummary, error) {
	if !json.Valid(body) {
		return nil, &Error{
			Code: CodeVerification,
			Op:   OpGetContentSummary,
			Path: path,
			Err:  errors.New("cannot parse content summary"),
		}
	}
	// Best effort, matching decodeFileStatus.
	var summary contentSummaryResponse
	_ = json.Unmarshal(body, &summary)
	return &summary.ContentSummary, nil
}

// normalizeType coerces the path type to one of the two known values.
// Anything the server reports that is not FILE counts as a directory.
func normalizeType(status *FileStatus) {
	if status.Type != PathTypeFile {
		status.Type = PathTypeDirectory
	}
}

// wrapErr lifts a transport failure into the public error type, attaching
// the operation and path it belongs to.
func (c *Client) wrapErr(op, path string, err error) error {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return &Error{
			Code:       terr.Code,
			Op:         op,
			Path:       path,
			StatusCode: terr.StatusCode,
			Exception:  terr.Exception,
			Err:        terr.Err,
		}
	}
	return &Error{Code: CodeTransport, Op: op, Path: path, Err: err}
}
