package orderapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"restronaut/internal/orderapi"
	"restronaut/internal/services"
)

type recorded struct {
	path            string
	auth            string
	contentEncoding string
	marker          string
	body            string
}

func newRecorder(t *testing.T, status int, out *recorded) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out.path = r.URL.Path
		out.auth = r.Header.Get("Authorization")
		out.contentEncoding = r.Header.Get("Content-Encoding")
		out.marker = r.Header.Get(orderapi.HeaderCompressionMarker)
		var reader io.Reader = r.Body
		if out.contentEncoding == "gzip" {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				t.Errorf("gzip reader: %v", err)
				return
			}
			defer zr.Close()
			reader = zr
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		out.body = string(data)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("server says no"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCreateOrderSendsUncompressedJSON(t *testing.T) {
	var got recorded
	server := newRecorder(t, http.StatusOK, &got)
	client, err := orderapi.New(orderapi.Options{BaseURL: server.URL + "/", AuthToken: "tok"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.CreateOrder(context.Background(), map[string]string{"xml": "<Order/>"}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if got.path != "/Order" {
		t.Fatalf("unexpected path %q", got.path)
	}
	if got.auth != "tok" {
		t.Fatalf("expected raw token in Authorization, got %q", got.auth)
	}
	if got.contentEncoding != "" || got.marker != "" {
		t.Fatalf("create order must not be compressed: encoding=%q marker=%q", got.contentEncoding, got.marker)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(got.body), &body); err != nil {
		t.Fatalf("decode body %q: %v", got.body, err)
	}
	if body["xml"] != "<Order/>" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestReportsAreCompressed(t *testing.T) {
	var got recorded
	server := newRecorder(t, http.StatusNoContent, &got)
	client, err := orderapi.New(orderapi.Options{BaseURL: server.URL, AuthToken: "tok"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	prep := `{"StoreNumber":"1","CheckNumber":"2","LoyaltyMemo":"ABC123"}`
	if err := client.ReportPrepOrder(context.Background(), prep); err != nil {
		t.Fatalf("ReportPrepOrder: %v", err)
	}
	if got.path != "/prep-sales-report" || got.contentEncoding != "gzip" || got.marker != "gzip" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.body != prep {
		t.Fatalf("unexpected decompressed body %q", got.body)
	}

	if err := client.ReportInStoreSales(context.Background(), map[string]string{"xml": `{"CheckFinalization":null}`}); err != nil {
		t.Fatalf("ReportInStoreSales: %v", err)
	}
	if got.path != "/instore-sales-report" || got.contentEncoding != "gzip" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.body != `{"xml":"{\"CheckFinalization\":null}"}` {
		t.Fatalf("unexpected decompressed body %q", got.body)
	}
}

func TestNon2xxIsRemoteCallError(t *testing.T) {
	var got recorded
	server := newRecorder(t, http.StatusBadGateway, &got)
	client, err := orderapi.New(orderapi.Options{BaseURL: server.URL, AuthToken: "tok"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.CreateOrder(context.Background(), map[string]string{"xml": "x"})
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall, got %v", err)
	}
	var statusErr *orderapi.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || statusErr.Body != "server says no" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if services.IsTransient(err) {
		t.Fatal("remote errors must not be retried by the file retry controller")
	}
}

func TestTimeoutIsEnforced(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := orderapi.New(orderapi.Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Now()
	err = client.CreateOrder(context.Background(), map[string]string{"xml": "x"})
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall on timeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout was not enforced")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := orderapi.New(orderapi.Options{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
