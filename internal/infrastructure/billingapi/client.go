// Package billingapi posts finalized orders to the external billing REST service.
package billingapi

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/httpclient"
)

type billResponse struct {
	Bill billing.Bill `json:"bill"`
}

type Client struct {
	http *httpclient.Client
	url  string
}

func New(http *httpclient.Client, url string) *Client {
	return &Client{http: http, url: url}
}

// CreateBill posts {user, items} and returns the "bill" object, or {} when absent.
func (c *Client) CreateBill(ctx context.Context, order billing.Order) (billing.Bill, error) {
	var resp billResponse
	if err := c.http.PostJSON(ctx, "bill", c.url, order, &resp); err != nil {
		return nil, fmt.Errorf("billingapi: create bill: %w", err)
	}
	if resp.Bill == nil {
		return billing.Bill{}, nil
	}
	return resp.Bill, nil
}
