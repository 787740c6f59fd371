package exfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alnah/go-exfetch/internal/fileutil"
)

// Platform endpoints.
const (
	DefaultBaseURL = "http://datascience.maths.unitn.it"
	SolutionsPath  = "/ocpu/library/doexercises/R/getSolutions"
	RenderPath     = "/ocpu/library/doexercises/R/renderRmd"
)

// Client defaults.
const (
	defaultTimeout = 2 * time.Minute

	// maxResponseSize bounds text responses; artifacts are streamed.
	maxResponseSize = 16 << 20
)

// TraceFunc receives raw response bodies for verbose diagnostics.
type TraceFunc func(label string, body []byte)

// Client talks to the DoExercises platform.
// It is safe for concurrent use once constructed.
type Client struct {
	baseURL string
	http    *http.Client
	parser  ResponseParser
	trace   TraceFunc
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the platform root address.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client. The client is not
// modified; a timeout set with WithTimeout applies to a copy.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout, whatever HTTP client is used.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithParser replaces the response parser.
func WithParser(p ResponseParser) ClientOption {
	return func(c *Client) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithTrace registers a callback for raw response bodies.
func WithTrace(fn TraceFunc) ClientOption {
	return func(c *Client) {
		c.trace = fn
	}
}

// NewClient creates a Client for the default platform address.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		parser:  TextParser{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// BaseURL returns the platform root address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// loginBody is the JSON payload of the login request.
type loginBody struct {
	User string `json:"user"`
	ID   string `json:"id"`
}

// renderBody is the JSON payload of the render request.
type renderBody struct {
	File           string `json:"file"`
	OutputFileName string `json:"output_file_name"`
}

// Login opens a session and returns its handle.
func (c *Client) Login(ctx context.Context, creds Credentials) (SessionHandle, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}

	body, err := c.postJSON(ctx, SolutionsPath, loginBody{User: creds.User, ID: creds.ID})
	if err != nil {
		return "", err
	}
	c.emit("login", body)

	return c.parser.SessionHandle(body)
}

// FetchFilenames lists the source filenames available to a session.
func (c *Client) FetchFilenames(ctx context.Context, handle SessionHandle) ([]string, error) {
	if handle == "" {
		return nil, fmt.Errorf("%w: empty session handle", ErrProtocol)
	}

	body, err := c.get(ctx, string(handle))
	if err != nil {
		return nil, err
	}
	c.emit("listing", body)

	return c.parser.Filenames(body)
}

// Render asks the platform to render name into outputName and returns the
// server path of the rendered artifact.
func (c *Client) Render(ctx context.Context, name, outputName string) (string, error) {
	body, err := c.postJSON(ctx, RenderPath, renderBody{File: name, OutputFileName: outputName})
	if err != nil {
		return "", err
	}
	c.emit("render "+name, body)

	return c.parser.RenderedPath(body)
}

// Download streams the artifact at the server path into localPath.
// localPath only appears once the whole body has been written.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, remotePath, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := fileutil.WriteAtomic(localPath, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: downloading %s: %v", ErrTransport, remotePath, err)
	}
	return n, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readBody(resp)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readBody(resp)
}

// do sends a request and checks the status. The caller closes the body.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("dataType", "text")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s: %s: %s", ErrProtocol, method, path, resp.Status, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}

// resolve joins a server-relative path onto the base address.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) emit(label string, body []byte) {
	if c.trace != nil {
		c.trace(label, body)
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrProtocol, maxResponseSize)
	}
	return body, nil
}
