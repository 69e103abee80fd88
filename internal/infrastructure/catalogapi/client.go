// Package catalogapi reads categories and items from the external catalog REST service.
package catalogapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	domain "github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/httpclient"
)

type categoryDTO struct {
	CategoryName string `json:"categoryName"`
	IsEnable     bool   `json:"isEnable"`
}

type itemDTO struct {
	ItemName string   `json:"itemName"`
	Price    *float64 `json:"price"`
	Sales    *float64 `json:"sales"`
}

type Client struct {
	http          *httpclient.Client
	categoriesURL string
	itemsBase     string
}

// New builds a client for GET categoriesURL and GET itemsBase/{category}.
func New(http *httpclient.Client, categoriesURL, itemsBase string) *Client {
	return &Client{
		http:          http,
		categoriesURL: categoriesURL,
		itemsBase:     strings.TrimRight(itemsBase, "/"),
	}
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var dtos []categoryDTO
	if err := c.http.GetJSON(ctx, "categories", c.categoriesURL, &dtos); err != nil {
		return nil, fmt.Errorf("catalogapi: categories: %w", err)
	}
	out := make([]domain.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.Category{Name: d.CategoryName, Enabled: d.IsEnable})
	}
	return out, nil
}

func (c *Client) Items(ctx context.Context, category string) ([]domain.Item, error) {
	u := c.itemsBase + "/" + url.PathEscape(strings.TrimSpace(category))
	var dtos []itemDTO
	if err := c.http.GetJSON(ctx, "items", u, &dtos); err != nil {
		return nil, fmt.Errorf("catalogapi: items: %w", err)
	}
	out := make([]domain.Item, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.ResolveItem(d.ItemName, d.Price, d.Sales))
	}
	return out, nil
}
