package trending

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/botlens/botlens/internal/config"
	"github.com/botlens/botlens/internal/logger"
	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/search"
)

// Aggregator merges paginated search results into one deduplicated,
// rank-ordered trending set per base filter. Fresh aggregates replace the
// cached set wholesale; readers never observe a half-merged set.
type Aggregator struct {
	client    *search.Client
	cfg       config.SearchConfig
	avatarCDN string

	mu    sync.RWMutex
	cache map[string]*models.TrendingSet // base filter -> last complete set
}

// NewAggregator creates an aggregator over the given search client.
func NewAggregator(client *search.Client, cfg config.SearchConfig, avatarCDN string) *Aggregator {
	return &Aggregator{
		client:    client,
		cfg:       cfg,
		avatarCDN: strings.TrimRight(avatarCDN, "/"),
		cache:     make(map[string]*models.TrendingSet),
	}
}

// Cached returns the last complete set for a base filter, or nil.
func (a *Aggregator) Cached(baseFilter string) *models.TrendingSet {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cache[baseFilter]
}

// Aggregate fetches pages 1..K for the base filter and merges them into a
// TrendingSet bounded at the configured capacity. Page fetches run on a
// bounded worker pool, but the merge is a single-threaded reduction in
// page order so rank assignment stays deterministic. A page that stays
// unavailable after retries truncates the merge at the last good page;
// partial trending data is preferable to none.
func (a *Aggregator) Aggregate(ctx context.Context, baseFilter string) (*models.TrendingSet, error) {
	maxPages := (a.cfg.Capacity + a.cfg.PageSize - 1) / a.cfg.PageSize

	pages := make([]search.PageResult, maxPages)
	pageErrs := make([]error, maxPages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxWorkers)

	query := a.client.BaseQuery(baseFilter)
	for i := 0; i < maxPages; i++ {
		i := i
		g.Go(func() error {
			res, err := a.client.FetchPage(gctx, query, i+1)
			pages[i] = res
			pageErrs[i] = err
			// Unavailable pages truncate the merge; they never fail the cycle.
			if err != nil && !errors.Is(err, search.ErrPageUnavailable) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled cycle must not disturb the previous cache value.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := a.merge(baseFilter, pages, pageErrs)

	a.mu.Lock()
	a.cache[baseFilter] = set
	a.mu.Unlock()

	logger.Info("Aggregated trending set: filter=%q entries=%d", baseFilter, set.Size())
	return set, nil
}

// merge reduces fetched pages into the final ranked set. Merge order is
// page order then within-page source order; rank mirrors the external
// index's ordering and is never derived from any local sort.
func (a *Aggregator) merge(baseFilter string, pages []search.PageResult, pageErrs []error) *models.TrendingSet {
	set := &models.TrendingSet{
		BaseFilter: baseFilter,
		Capacity:   a.cfg.Capacity,
		FetchedAt:  time.Now(),
		Entries:    make([]models.TrendingEntry, 0, a.cfg.Capacity),
	}

	seen := make(map[string]bool, a.cfg.Capacity)
	for i, page := range pages {
		if pageErrs[i] != nil {
			logger.Warning("Trending merge stopped at page %d: %v", i+1, pageErrs[i])
			break
		}
		for _, bot := range page.Bots {
			if len(set.Entries) >= a.cfg.Capacity {
				return set
			}
			if seen[bot.ID] {
				// Earliest page wins; later duplicates carry a worse rank.
				continue
			}
			seen[bot.ID] = true

			bot.AvatarURL, bot.AvatarNormalized = a.normalizeAvatarURL(bot.AvatarURL)

			set.Entries = append(set.Entries, models.TrendingEntry{
				Bot:  bot,
				Rank: len(set.Entries) + 1,
				Page: i + 1,
			})
		}
	}

	return set
}

// normalizeAvatarURL rewrites a raw avatar reference onto the canonical CDN
// base. Unrewritable values are kept as-is and flagged rather than dropped.
func (a *Aggregator) normalizeAvatarURL(raw string) (string, bool) {
	if a.avatarCDN == "" {
		return raw, false
	}
	if raw == "" {
		return a.avatarCDN + "/default-avatar.png", true
	}

	idx := strings.LastIndex(raw, "/")
	filename := raw[idx+1:]
	if filename == "" {
		return raw, false
	}
	return a.avatarCDN + "/" + filename, true
}
