package httpds

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestSourceOpen(t *testing.T) {
	t.Parallel()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte(`{"n":1}`))
	_ = zw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain.jsonl":
			_, _ = w.Write([]byte(`{"n":1}`))
		case "/packed.jsonl.gz":
			_, _ = w.Write(gz.Bytes())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{})
	for _, p := range []string{"/plain.jsonl", "/packed.jsonl.gz"} {
		rc, err := NewSource(c, srv.URL+p, nil).Open(context.Background())
		if err != nil {
			t.Fatalf("Open(%s) error = %v", p, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if string(b) != `{"n":1}` {
			t.Fatalf("Open(%s) body = %q", p, b)
		}
	}

	if _, err := NewSource(c, srv.URL+"/missing", nil).Open(context.Background()); err == nil {
		t.Fatalf("Open(missing) error = nil, want status error")
	}
}
