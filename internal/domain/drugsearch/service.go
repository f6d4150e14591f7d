package drugsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/funkyjh/pilllog/internal/platform/cache"
)

const cacheKeyPrefix = "drugsearch:"

// Service answers registry searches, caching successful results for ttl.
// A nil cache disables caching.
type Service struct {
	searcher Searcher
	cache    cache.Store
	ttl      time.Duration
	logger   zerolog.Logger
}

func NewService(searcher Searcher, store cache.Store, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{searcher: searcher, cache: store, ttl: ttl, logger: logger}
}

func cacheKey(typ SearchType, query string, page, limit int) string {
	return fmt.Sprintf("%s%s:%d:%d:%s", cacheKeyPrefix, typ, page, limit, strings.ToLower(query))
}

func (s *Service) Search(ctx context.Context, typ SearchType, query string, page, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	key := cacheKey(typ, query, page, limit)
	if s.cache != nil && s.ttl > 0 {
		var cached SearchResult
		ok, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("search cache read failed")
		}
		if ok {
			return &cached, nil
		}
	}

	result, err := s.searcher.Search(ctx, typ, query, page, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := cache.SetJSON(ctx, s.cache, key, result, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("search cache write failed")
		}
	}
	return result, nil
}
