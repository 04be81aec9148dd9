// internal/network/compression.go
package network

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
)

// acceptEncoding is advertised on requests that do not set their own.
const acceptEncoding = "br, gzip, deflate"

// closeWrapper is a custom ReadCloser that ensures both the decompression reader
// and the underlying original body are closed correctly.
type closeWrapper struct {
	io.Reader
	closer       io.Closer // May be nil for readers without Close.
	originalBody io.ReadCloser
}

// Close closes both the decompression reader and the original body.
func (w *closeWrapper) Close() error {
	var err1 error
	if w.closer != nil {
		err1 = w.closer.Close()
	}
	err2 := w.originalBody.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// CompressionMiddleware is a RoundTripper that negotiates compressed
// responses and decodes br, gzip and deflate bodies transparently.
type CompressionMiddleware struct {
	next   http.RoundTripper
	logger *zap.Logger
}

// NewCompressionMiddleware wraps next. A nil next uses http.DefaultTransport.
func NewCompressionMiddleware(next http.RoundTripper, logger *zap.Logger) *CompressionMiddleware {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompressionMiddleware{next: next, logger: logger}
}

func (m *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	resp, err := m.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := m.decompressBody(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// decompressBody replaces resp.Body with a decoding reader based on the
// Content-Encoding header and strips the encoding headers.
func (m *CompressionMiddleware) decompressBody(resp *http.Response) error {
	// Robustness: Handle nil response or nil body gracefully.
	if resp == nil || resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	var wrapped io.ReadCloser
	switch encoding {
	case "":
		return nil
	case "identity":
		// The body is already plain, so Content-Length still holds.
		resp.Header.Del("Content-Encoding")
		return nil
	case "br":
		wrapped = &closeWrapper{Reader: brotli.NewReader(resp.Body), originalBody: resp.Body}
	case "gzip", "x-gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			m.logger.Error("Failed to create gzip reader", zap.Error(err))
			return fmt.Errorf("gzip body: %w", err)
		}
		wrapped = &closeWrapper{Reader: reader, closer: reader, originalBody: resp.Body}
	case "deflate":
		reader, err := zlib.NewReader(resp.Body)
		if err != nil {
			m.logger.Error("Failed to create zlib reader", zap.Error(err))
			return fmt.Errorf("deflate body: %w", err)
		}
		wrapped = &closeWrapper{Reader: reader, closer: reader, originalBody: resp.Body}
	default:
		m.logger.Debug("Leaving unknown content encoding untouched", zap.String("encoding", encoding))
		return nil
	}

	resp.Body = wrapped
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}
