package collector

import "context"

// Fetcher retrieves and decodes one reporting API resource. Paths are
// relative to the configured base URL.
type Fetcher interface {
	Fetch(ctx context.Context, path string, dest any) error
}
