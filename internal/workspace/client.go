// AngelaMos | 2026
// client.go

package workspace

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"
)

const defaultRateLimit = 3

// Client is the slice of the Notion API the workspace integration needs.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
}

// NewClient throttles calls to rps requests per second, or Notion's
// documented 3 req/s when rps is not positive.
func NewClient(token string, rps float64) Client {
	if rps <= 0 {
		rps = defaultRateLimit
	}

	return &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(rate.Limit(rps), max(int(rps), 1)),
	}
}

func (c *notionClient) CreatePage(
	ctx context.Context,
	req *notionapi.PageCreateRequest,
) (*notionapi.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("notion rate limit: %w", err)
	}

	page, err := c.inner.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("notion create page: %w", err)
	}

	return page, nil
}
