package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"propintel/internal/config"
	"propintel/internal/models"
)

const (
	articleCacheKey = "articles"
	articleCacheTTL = 15 * time.Minute
	summaryMaxLen   = 300
	fetchTimeout    = 20 * time.Second
)

// brisbaneKeywords route location-specific questions to regional articles
var brisbaneKeywords = []string{"brisbane", "queensland", "qld", "gold coast", "sunshine coast"}

// rssDocument is the subset of RSS 2.0 we consume
type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// RSSService fetches and caches Australian property news feeds
type RSSService struct {
	sources []config.RSSSource
	cache   *cache.Cache
	client  *http.Client

	// One limiter per feed host so a slow refresh never hammers a publisher
	limiters sync.Map // map[string]*rate.Limiter

	mu     sync.RWMutex
	status map[string]*models.FeedStatus
}

// NewRSSService creates the feed service for the configured sources
func NewRSSService(cfg *config.Config) *RSSService {
	s := &RSSService{
		sources: cfg.RSSSources,
		cache:   cache.New(articleCacheTTL, 5*time.Minute),
		client:  &http.Client{Timeout: fetchTimeout},
		status:  make(map[string]*models.FeedStatus),
	}

	for _, src := range cfg.RSSSources {
		s.status[src.Name] = &models.FeedStatus{Name: src.Name, URL: src.URL}
	}

	return s
}

// RecentNews returns up to max recent property articles across all feeds,
// newest first. Results are served from cache when fresh.
func (s *RSSService) RecentNews(ctx context.Context, max int) ([]models.Article, error) {
	articles, err := s.allArticles(ctx)
	if err != nil {
		return nil, err
	}
	if max > 0 && len(articles) > max {
		articles = articles[:max]
	}
	return articles, nil
}

// BrisbaneNews returns up to max articles mentioning Brisbane or surrounding
// regions, newest first.
func (s *RSSService) BrisbaneNews(ctx context.Context, max int) ([]models.Article, error) {
	articles, err := s.allArticles(ctx)
	if err != nil {
		return nil, err
	}

	var regional []models.Article
	for _, a := range articles {
		if a.BrisbaneRelevant {
			regional = append(regional, a)
		}
	}
	if max > 0 && len(regional) > max {
		regional = regional[:max]
	}
	return regional, nil
}

// FeedStatus reports the last fetch outcome for every configured feed
func (s *RSSService) FeedStatus() []models.FeedStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.FeedStatus, 0, len(s.sources))
	for _, src := range s.sources {
		if st, ok := s.status[src.Name]; ok {
			result = append(result, *st)
		}
	}
	return result
}

// ActiveFeedCount returns how many feeds succeeded on their last fetch
func (s *RSSService) ActiveFeedCount() (active, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.status {
		if st.Active {
			active++
		}
	}
	return active, len(s.sources)
}

// ClearCache drops cached articles so the next read refetches every feed
func (s *RSSService) ClearCache() {
	s.cache.Delete(articleCacheKey)
}

// Refresh refetches all feeds, replacing the cache. Used by the background
// scheduler so request paths mostly hit warm cache.
func (s *RSSService) Refresh(ctx context.Context) error {
	s.ClearCache()
	_, err := s.allArticles(ctx)
	return err
}

// TestConnection fetches each feed once and reports per-feed reachability
func (s *RSSService) TestConnection(ctx context.Context) map[string]string {
	results := make(map[string]string)
	for _, src := range s.sources {
		if _, err := s.fetchFeed(ctx, src); err != nil {
			results[src.Name] = fmt.Sprintf("error: %v", err)
		} else {
			results[src.Name] = "ok"
		}
	}
	return results
}

func (s *RSSService) allArticles(ctx context.Context) ([]models.Article, error) {
	if cached, found := s.cache.Get(articleCacheKey); found {
		return cached.([]models.Article), nil
	}

	var articles []models.Article
	var lastErr error

	for _, src := range s.sources {
		fetched, err := s.fetchFeed(ctx, src)
		metrics := GetMetrics()

		s.mu.Lock()
		st := s.status[src.Name]
		st.LastFetched = time.Now()
		if err != nil {
			st.Active = false
			st.LastError = err.Error()
			lastErr = err
		} else {
			st.Active = true
			st.LastError = ""
			st.ArticleCount = len(fetched)
		}
		s.mu.Unlock()

		if metrics != nil {
			metrics.RecordRSSFetch(src.Name, err == nil)
		}
		articles = append(articles, fetched...)
	}

	if len(articles) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all feeds failed, last error: %w", lastErr)
	}

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})

	s.cache.Set(articleCacheKey, articles, cache.DefaultExpiration)
	return articles, nil
}

func (s *RSSService) fetchFeed(ctx context.Context, src config.RSSSource) ([]models.Article, error) {
	if err := s.waitForHost(ctx, src.URL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("User-Agent", "propintel/1.0 (+property news aggregation)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned HTTP %d", src.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", src.Name, err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", src.Name, err)
	}

	var articles []models.Article
	for _, item := range doc.Channel.Items {
		if !matchesKeywords(item, src.Keywords) {
			continue
		}
		articles = append(articles, models.Article{
			Source:           src.Name,
			Title:            strings.TrimSpace(item.Title),
			Summary:          truncateSummary(stripTags(item.Description)),
			Link:             strings.TrimSpace(item.Link),
			Published:        parsePubDate(item.PubDate),
			BrisbaneRelevant: isBrisbaneRelevant(item),
		})
	}

	return articles, nil
}

// waitForHost applies the per-host politeness limiter (2 req/s, burst 2)
func (s *RSSService) waitForHost(ctx context.Context, feedURL string) error {
	parsed, err := url.Parse(feedURL)
	if err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}

	limiter, _ := s.limiters.LoadOrStore(parsed.Host, rate.NewLimiter(rate.Limit(2), 2))
	return limiter.(*rate.Limiter).Wait(ctx)
}

// matchesKeywords keeps an article when any source keyword appears in its
// title or description. Sources without keywords keep everything.
func matchesKeywords(item rssItem, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isBrisbaneRelevant(item rssItem) bool {
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, kw := range brisbaneKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// pubDateLayouts cover the date formats Australian property feeds actually use
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func truncateSummary(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= summaryMaxLen {
		return s
	}
	// Back off to a rune boundary so multibyte characters are never split
	cut := summaryMaxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// stripTags removes HTML markup that many feeds embed in descriptions
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
