package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability/logctx"

	"golang.org/x/sync/singleflight"
)

const (
	componentCatalog   = "catalog"
	cacheWriteTimeout  = time.Second
	sharedFetchTimeout = 15 * time.Second
)

// Service reads the external catalog through a cache, collapsing concurrent
// fetches of the same key into one upstream call.
type Service struct {
	source domain.Service
	cache  Cache
	sfg    singleflight.Group
	log    observability.Logger
}

func NewService(source domain.Service, cache Cache, logger observability.Logger) *Service {
	if cache == nil {
		cache = NopCache()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		source: source,
		cache:  cache,
		log:    logger.With(observability.F("component", componentCatalog)),
	}
}

// ListCategories returns the trimmed names of enabled categories in catalog order.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	v, err := s.shared(ctx, "categories", func(ctx context.Context) (any, error) {
		logger := logctx.FromOr(ctx, s.log)

		cached, err := s.cache.Categories(ctx)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("catalog_cache_get_failed", observability.F("error", err))
		}

		fetched, err := s.source.Categories(ctx)
		if err != nil {
			return nil, upstream("categories service unavailable", err)
		}

		go s.storeCategories(fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}

	categories := v.([]domain.Category)
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if !c.Enabled || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ListItems returns the items of one category.
func (s *Service) ListItems(ctx context.Context, category string) ([]domain.Item, error) {
	category = strings.TrimSpace(category)
	v, err := s.shared(ctx, "items:"+strings.ToLower(category), func(ctx context.Context) (any, error) {
		logger := logctx.FromOr(ctx, s.log)

		cached, err := s.cache.Items(ctx, category)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("catalog_cache_get_failed", observability.F("error", err), observability.F("category", category))
		}

		fetched, err := s.source.Items(ctx, category)
		if err != nil {
			return nil, upstream("items service unavailable", err)
		}

		go s.storeItems(category, fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Item(nil), v.([]domain.Item)...), nil
}

// shared runs fetch once per key for all concurrent callers. The fetch is
// detached from any single caller's cancellation; each caller still stops
// waiting when its own context ends.
func (s *Service) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	ch := s.sfg.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, shoperr.Upstream("catalog request cancelled", ctx.Err())
	}
}

func (s *Service) storeCategories(categories []domain.Category) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if err := s.cache.SetCategories(ctx, categories); err != nil {
		s.log.Warn("catalog_cache_set_failed", observability.F("error", err))
	}
}

func (s *Service) storeItems(category string, items []domain.Item) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if err := s.cache.SetItems(ctx, category, items); err != nil {
		s.log.Warn("catalog_cache_set_failed", observability.F("error", err), observability.F("category", category))
	}
}

func upstream(msg string, err error) error {
	if shoperr.KindOf(err) == shoperr.KindUpstream {
		return fmt.Errorf("catalog: %w", err)
	}
	return shoperr.Upstream(msg, err)
}
