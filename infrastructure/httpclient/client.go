package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/go-querystring/query"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Class selects the timeout applied to an outbound call.
type Class int

const (
	ClassMetadata Class = iota
	ClassPublish
	ClassMedia
)

func (c Class) String() string {
	switch c {
	case ClassPublish:
		return "publish"
	case ClassMedia:
		return "media"
	default:
		return "metadata"
	}
}

type Timeouts struct {
	Metadata time.Duration
	Publish  time.Duration
	Media    time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Metadata: 10 * time.Second, Publish: 30 * time.Second, Media: 60 * time.Second}
}

func (t Timeouts) For(c Class) time.Duration {
	switch c {
	case ClassPublish:
		return t.Publish
	case ClassMedia:
		return t.Media
	default:
		return t.Metadata
	}
}

// Request describes one provider call. At most one of JSON, Form and Body is used.
// Form accepts url.Values or a struct with `url` tags.
type Request struct {
	Method      string
	URL         string
	Query       url.Values
	Header      map[string]string
	Bearer      string
	BasicUser   string
	BasicPass   string
	JSON        interface{}
	Form        interface{}
	Body        []byte
	ContentType string
	Class       Class
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Decode unmarshals the body into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Get reads one value from the JSON body by gjson path.
func (r *Response) Get(path string) gjson.Result { return gjson.GetBytes(r.Body, path) }

// Map returns the JSON object at path, or the whole body when path is empty.
func (r *Response) Map(path string) map[string]interface{} {
	v := gjson.ParseBytes(r.Body)
	if path != "" {
		v = v.Get(path)
	}
	if m, ok := v.Value().(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// ProviderError logs the failed call and returns it as a provider_api_error.
func (r *Response) ProviderError(platform model.Platform, operation string) error {
	msg := ErrorMessage(r.Body)
	if msg == "" {
		msg = fmt.Sprintf("unexpected status %d", r.StatusCode)
	}
	logger.GetLogger().
		WithField("platform", platform).
		WithField("operation", operation).
		WithField("status", r.StatusCode).
		WithField("error", msg).
		Error("Provider call failed")
	return model.NewProviderError(platform, operation, r.StatusCode, msg)
}

// Client wraps an injected *http.Client with per-class timeouts and an optional rate limit.
type Client struct {
	http     *http.Client
	timeouts Timeouts
	limiter  *rate.Limiter
}

// NewClient builds a Client. requestsPerSecond <= 0 disables limiting.
func NewClient(httpClient *http.Client, timeouts Timeouts, requestsPerSecond float64) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	def := DefaultTimeouts()
	if timeouts.Metadata <= 0 {
		timeouts.Metadata = def.Metadata
	}
	if timeouts.Publish <= 0 {
		timeouts.Publish = def.Publish
	}
	if timeouts.Media <= 0 {
		timeouts.Media = def.Media
	}
	c := &Client{http: httpClient, timeouts: timeouts}
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return c
}

// HTTPClient exposes the underlying client for SDKs that take one.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Detach returns a context that ignores caller cancellation and expires after the class timeout.
func (c *Client) Detach(ctx context.Context, class Class) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.timeouts.For(class))
}

// OAuth2Context is Detach plus the underlying client registered for golang.org/x/oauth2.
func (c *Client) OAuth2Context(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := c.Detach(ctx, ClassMetadata)
	return context.WithValue(callCtx, oauth2.HTTPClient, c.http), cancel
}

// Do executes req. Caller cancellation does not abort an in-flight call; the call runs until
// it completes or its class timeout expires. Non-2xx responses are returned, not errors.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	callCtx, cancel := c.Detach(ctx, req.Class)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	httpReq, err := c.build(callCtx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, redact(req.URL), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	contentType := req.ContentType
	switch {
	case req.JSON != nil:
		raw, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode json body: %w", err)
		}
		body = bytes.NewReader(raw)
		if contentType == "" {
			contentType = "application/json"
		}
	case req.Form != nil:
		values, err := formValues(req.Form)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(values.Encode())
		if contentType == "" {
			contentType = "application/x-www-form-urlencoded"
		}
	case req.Body != nil:
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}
	if req.BasicUser != "" {
		httpReq.SetBasicAuth(req.BasicUser, req.BasicPass)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Values encodes a struct with `url` tags, or passes url.Values through.
func Values(v interface{}) url.Values {
	values, err := formValues(v)
	if err != nil {
		return url.Values{}
	}
	return values
}

func formValues(form interface{}) (url.Values, error) {
	if v, ok := form.(url.Values); ok {
		return v, nil
	}
	v, err := query.Values(form)
	if err != nil {
		return nil, fmt.Errorf("encode form body: %w", err)
	}
	return v, nil
}

// Media is a downloaded media file.
type Media struct {
	Data        []byte
	ContentType string
}

// Download fetches mediaURL under the media timeout. The content type falls back to
// sniffing when the server sends none or a generic one.
func (c *Client) Download(ctx context.Context, mediaURL string) (*Media, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, URL: mediaURL, Class: ClassMedia})
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("download media: status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") || strings.HasPrefix(ct, "binary/") {
		ct = mimetype.Detect(resp.Body).String()
	}
	ct, _, _ = strings.Cut(ct, ";")
	return &Media{Data: resp.Body, ContentType: strings.TrimSpace(ct)}, nil
}

var errorPaths = []string{
	"error.message",
	"error_description",
	"error.error_description",
	"message",
	"detail",
	"errors.0.message",
	"errors.0.detail",
	"error.errors.0.message",
	"title",
}

// ErrorMessage extracts a human readable message from a provider error body.
func ErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		s := strings.TrimSpace(string(body))
		if len(s) > 300 {
			s = s[:300]
		}
		return s
	}
	for _, p := range errorPaths {
		if v := gjson.GetBytes(body, p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	if v := gjson.GetBytes(body, "error"); v.Exists() && v.Type == gjson.String {
		return v.String()
	}
	return ""
}

// redact drops the query string, which may carry tokens or client secrets.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
