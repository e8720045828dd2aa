package whale

import (
	"context"
	"fmt"
	"time"

	"SentiTrade/internal/domain/service"
	xhttp "SentiTrade/pkg/http"
)

// Client queries the whale-flow service for large-holder conviction. A
// conviction of 0.5 is neutral; above it large holders are accumulating.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type convictionResponse struct {
	Asset      string  `json:"asset"`
	Conviction float64 `json:"conviction"`
}

func (c *Client) Conviction(ctx context.Context, asset string) (float64, error) {
	if c.client == nil || c.baseURL == "" {
		return 0, fmt.Errorf("whale client not configured")
	}
	var resp convictionResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/v1/conviction",
		QueryParams: map[string][]string{"asset": {asset}},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("whale conviction %s: %w", asset, err)
	}
	if resp.Conviction < 0 || resp.Conviction > 1 {
		return 0, fmt.Errorf("whale conviction out of range: %f", resp.Conviction)
	}
	return resp.Conviction, nil
}

var _ service.WhaleSource = (*Client)(nil)
