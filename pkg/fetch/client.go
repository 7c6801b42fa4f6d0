// Package fetch provides the HTTP client used to download sources.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"pkgmk/pkg/log"

	"github.com/henvic/httpretty"
	"github.com/klauspost/compress/zstd"
)

const (
	HeaderUserAgent       = "User-Agent"
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderContentLength   = "Content-Length"

	defaultUserAgent = "pkgmk"
)

var zstdDecoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd reader: %v", err))
		}
		return d
	},
}

// ClientOptions holds available options to configure the download client.
type ClientOptions struct {
	// Headers are sent with every request. A User-Agent is added when
	// missing.
	Headers map[string]string

	// Log specifies a writer to dump HTTP requests and responses to when
	// debug logging is enabled. Bodies are never dumped.
	Log io.Writer

	// LogColorize enables colorized dumps.
	LogColorize bool

	// Timeout specifies a time limit for each request, including reading
	// the body. Default is no timeout.
	Timeout time.Duration

	// Transport overrides the base round tripper.
	Transport http.RoundTripper
}

// Client downloads files over HTTP(S).
type Client struct {
	http *http.Client
}

// NewClient builds a Client with header, decompression and debug dump
// round trippers layered over the base transport.
func NewClient(opts ClientOptions) *Client {
	var rt http.RoundTripper = opts.Transport
	if rt == nil {
		rt = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
			DisableCompression:  true,
		}
	}

	if opts.Log != nil && log.GetLevel() >= log.DebugLevel {
		logger := &httpretty.Logger{
			Time:           true,
			TLS:            false,
			Colors:         opts.LogColorize,
			RequestHeader:  true,
			RequestBody:    false,
			ResponseHeader: true,
			ResponseBody:   false,
		}
		logger.SetOutput(opts.Log)
		rt = logger.RoundTripper(rt)
	}

	headers := make(map[string]string, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if _, ok := headers[HeaderUserAgent]; !ok {
		headers[HeaderUserAgent] = defaultUserAgent
	}

	rt = headerRoundTripper{headers: headers, rt: rt}
	rt = decompressingRoundTripper{rt: rt}

	return &Client{http: &http.Client{Transport: rt, Timeout: opts.Timeout}}
}

// Download issues a GET request for url and returns the body stream and
// the announced length (-1 when unknown). The caller closes the body.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, 0, HandleHTTPError(resp)
	}

	return resp.Body, resp.ContentLength, nil
}

type headerRoundTripper struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (hrt headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	if reqCopy.Header.Get(HeaderAcceptEncoding) == "" {
		reqCopy.Header.Set(HeaderAcceptEncoding, "zstd")
	}

	for k, v := range hrt.headers {
		if reqCopy.Header.Get(k) == "" {
			reqCopy.Header.Set(k, v)
		}
	}

	return hrt.rt.RoundTrip(reqCopy)
}

type decompressingRoundTripper struct {
	rt http.RoundTripper
}

func (d decompressingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := d.rt.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get(HeaderContentEncoding) == "zstd" {
		decoder := zstdDecoderPool.Get().(*zstd.Decoder)
		if err := decoder.Reset(resp.Body); err != nil {
			resp.Body.Close()
			zstdDecoderPool.Put(decoder)
			return nil, fmt.Errorf("failed to reset zstd reader: %w", err)
		}

		resp.Body = &zstdReadCloser{
			Decoder:      decoder,
			OriginalBody: resp.Body,
		}
		resp.Header.Del(HeaderContentEncoding)
		resp.Header.Del(HeaderContentLength)
		resp.ContentLength = -1
	}

	return resp, nil
}

type zstdReadCloser struct {
	Decoder      *zstd.Decoder
	OriginalBody io.ReadCloser
}

func (z *zstdReadCloser) Read(p []byte) (n int, err error) {
	return z.Decoder.Read(p)
}

func (z *zstdReadCloser) Close() error {
	err := z.OriginalBody.Close()
	// detach the body before pooling so the decoder doesn't keep it alive
	_ = z.Decoder.Reset(nil)
	zstdDecoderPool.Put(z.Decoder)
	return err
}
