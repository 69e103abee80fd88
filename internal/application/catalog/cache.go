package catalog

import (
	"context"
	"errors"

	domain "github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
)

var ErrCacheMiss = errors.New("catalog cache: miss")

// Cache holds recent catalog responses.
type Cache interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	SetCategories(ctx context.Context, categories []domain.Category) error
	Items(ctx context.Context, category string) ([]domain.Item, error)
	SetItems(ctx context.Context, category string, items []domain.Item) error
}

type nopCache struct{}

func (nopCache) Categories(context.Context) ([]domain.Category, error)  { return nil, ErrCacheMiss }
func (nopCache) SetCategories(context.Context, []domain.Category) error { return nil }
func (nopCache) Items(context.Context, string) ([]domain.Item, error)   { return nil, ErrCacheMiss }
func (nopCache) SetItems(context.Context, string, []domain.Item) error  { return nil }

// NopCache never hits.
func NopCache() Cache { return nopCache{} }
