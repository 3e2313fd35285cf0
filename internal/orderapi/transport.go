package orderapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// HeaderCompressionMarker flags a request whose body the transport compresses.
const HeaderCompressionMarker = "X-Content-Encoding"

// transport adds the auth header and compresses marked request bodies.
type transport struct {
	token string
	next  http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if t.token != "" {
		out.Header.Set("Authorization", t.token)
	}
	if req.Body != nil && req.Header.Get(HeaderCompressionMarker) == "gzip" {
		compressed, err := compressBody(req.Body)
		if err != nil {
			return nil, err
		}
		out.Body = io.NopCloser(bytes.NewReader(compressed))
		out.ContentLength = int64(len(compressed))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(compressed)), nil
		}
		out.Header.Set("Content-Encoding", "gzip")
		out.Header.Set("Content-Length", strconv.Itoa(len(compressed)))
	}
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(out)
}

func compressBody(body io.ReadCloser) ([]byte, error) {
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip request body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip request body: %w", err)
	}
	return buf.Bytes(), nil
}
