package boards

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
	"github.com/fenghou-lab/hotpick/pkg/redis"
)

// Catalog holds the full exchange board list with two cache layers: a Redis
// entry shared across processes and an in-process copy guarded by a TTL, so a
// Redis outage never forces a refetch per lookup.
type Catalog struct {
	market contracts.MarketData
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger

	mu        sync.Mutex
	boards    []contracts.Board
	fetchedAt time.Time
}

// NewCatalog creates a board catalog backed by the given market data gateway.
// cache may be built over a disabled Redis client; every lookup then falls
// through to the in-process copy.
func NewCatalog(market contracts.MarketData, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *Catalog {
	return &Catalog{
		market: market,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// Boards returns the board list, refreshing it when the cached copy expired.
func (c *Catalog) Boards(ctx context.Context) ([]contracts.Board, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.boards) > 0 && time.Since(c.fetchedAt) < c.ttl {
		return c.boards, nil
	}

	var cached []contracts.Board
	hit, err := c.cache.Get(ctx, redis.BoardCatalogKey, &cached)
	if err != nil {
		c.logger.WithError(err).Warn("Board catalog cache read failed")
	}
	if hit && len(cached) > 0 {
		c.boards = cached
		c.fetchedAt = time.Now()
		return c.boards, nil
	}

	boards, err := c.market.ListBoards(ctx)
	if err != nil {
		// Serve a stale in-process copy over failing the caller.
		if len(c.boards) > 0 {
			c.logger.WithError(err).Warn("Board catalog refresh failed, serving stale copy")
			return c.boards, nil
		}
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	if len(boards) == 0 {
		return nil, fmt.Errorf("board catalog is empty")
	}

	c.boards = boards
	c.fetchedAt = time.Now()

	if err := c.cache.Set(ctx, redis.BoardCatalogKey, boards, c.ttl); err != nil {
		c.logger.WithError(err).Warn("Board catalog cache write failed")
	}

	c.logger.WithField("boards", len(boards)).Info("Board catalog refreshed")
	return c.boards, nil
}

// Refresh drops both cache layers and refetches the board list.
func (c *Catalog) Refresh(ctx context.Context) error {
	if err := c.cache.Delete(ctx, redis.BoardCatalogKey); err != nil {
		c.logger.WithError(err).Warn("Board catalog cache delete failed")
	}

	c.mu.Lock()
	c.boards = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()

	_, err := c.Boards(ctx)
	return err
}
