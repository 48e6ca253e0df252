package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/toko-checkout/internal/resilience"
)

// HTTPSource fetches the product list from a remote JSON endpoint through a
// retrying, circuit-guarded client.
type HTTPSource struct {
	Client resilience.HTTPClient
	URL    string
}

// Load implements Source.
func (s HTTPSource) Load(ctx context.Context) ([]Product, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("catalog: remote source url not configured")
	}
	resp, err := s.Client.Get(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %s", resp.Status)
	}
	return DecodeProducts(resp.Body)
}
