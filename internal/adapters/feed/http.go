package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/PuerkitoBio/rehttp"

	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/logger"
	"github.com/okian/zonewatch/pkg/metrics"
)

// Defaults for HTTPSource.
const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3
	APIKeyHeader   = "x-api-key"
)

// HTTPSource polls a remote feed over HTTP.
type HTTPSource struct {
	url       string
	apiKey    string
	timeout   time.Duration
	retries   int
	transport http.RoundTripper
	decode    Decoder
	logger    logger.Logger

	client *http.Client
}

// Option configures an HTTPSource.
type Option func(*HTTPSource)

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(s *HTTPSource) { s.apiKey = key }
}

// WithTimeout bounds a whole fetch, retries included.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets how many times temporary failures and 502/503/504 are
// retried. Zero disables retries.
func WithRetries(n int) Option {
	return func(s *HTTPSource) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithTransport replaces the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *HTTPSource) { s.transport = rt }
}

// WithDecoder sets the payload decoder. The default is DecodeJSON.
func WithDecoder(d Decoder) Option {
	return func(s *HTTPSource) {
		if d != nil {
			s.decode = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *HTTPSource) { s.logger = l }
}

// NewHTTPSource returns a Source fetching url.
func NewHTTPSource(url string, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		url:       url,
		timeout:   DefaultTimeout,
		retries:   DefaultRetries,
		transport: http.DefaultTransport,
		decode:    DecodeJSON,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("feed")
	}
	s.client = &http.Client{
		Timeout:   s.timeout,
		Transport: newRetryTransport(s.transport, s.retries),
	}
	return s
}

func newRetryTransport(base http.RoundTripper, retries int) http.RoundTripper {
	if retries == 0 {
		return base
	}
	return rehttp.NewTransport(
		base,
		rehttp.RetryAll(
			rehttp.RetryMaxRetries(retries),
			rehttp.RetryAny(
				rehttp.RetryTemporaryErr(),
				rehttp.RetryStatuses(http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout),
			),
		),
		rehttp.ExpJitterDelay(200*time.Millisecond, 2*time.Second),
	)
}

// Fetch performs one GET and decodes the response.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Raw, error) {
	start := time.Now()
	raws, err := s.fetch(ctx)
	metrics.RecordFeedFetch(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordFeedError()
		s.logger.Warn(ctx, "feed fetch failed", logger.String("url", s.url), logger.Error(err))
		return nil, err
	}
	s.logger.Debug(ctx, "feed fetched",
		logger.String("url", s.url),
		logger.Int("records", len(raws)),
		logger.Duration("took", time.Since(start)))
	return raws, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json, application/x-protobuf")
	if s.apiKey != "" {
		req.Header.Set(APIKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return s.decode(resp.Body)
}

// FileSource reads raw records from a local file on every fetch.
type FileSource struct {
	path   string
	decode Decoder
}

// NewFileSource returns a Source reading path with decode. A nil decode
// means DecodeJSON.
func NewFileSource(path string, decode Decoder) *FileSource {
	if decode == nil {
		decode = DecodeJSON
	}
	return &FileSource{path: path, decode: decode}
}

// Fetch reads and decodes the file.
func (s *FileSource) Fetch(_ context.Context) ([]model.Raw, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = f.Close() }()
	return s.decode(f)
}

// StaticSource returns the same records on every fetch.
type StaticSource []model.Raw

// Fetch returns the records.
func (s StaticSource) Fetch(context.Context) ([]model.Raw, error) { return s, nil }
