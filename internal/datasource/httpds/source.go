package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/wes-public-apps/protobuf-db/internal/datasource"
)

// Source is a datasource.Source over a single URL.
type Source struct {
	client  *Client
	url     string
	headers http.Header
}

var _ datasource.Source = (*Source)(nil)

// NewSource binds url to client. headers are sent with every Open.
func NewSource(client *Client, url string, headers http.Header) *Source {
	return &Source{client: client, url: url, headers: headers}
}

// Open fetches the URL. Any non-2xx final status is an error. URLs whose
// path ends in .gz or .zst are decompressed.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %s", s.url, resp.Status)
	}
	return datasource.Decompress(datasource.CompressionOf(s.url), resp.Body)
}
