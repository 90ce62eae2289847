package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"

	"market-edge-engine/internal/engine/config"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/pkg/logger"
)

// researchRepository gathers question-relevant news articles from an RSS
// search feed and extracts readable text for the estimator prompt.
type researchRepository struct {
	cfg           config.Research
	client        *http.Client
	logger        *logger.Logger
	inmemoryCache *cache.Cache
}

// NewResearchRepository creates a ResearchRepository backed by Google News
// RSS search.
func NewResearchRepository(cfg config.Research, log *logger.Logger) ResearchRepository {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &researchRepository{
		cfg:           cfg,
		client:        &http.Client{Timeout: timeout},
		logger:        log,
		inmemoryCache: cache.New(30*time.Minute, time.Hour),
	}
}

// Gather fetches up to maxArticles recent articles about the question. A
// failed article extraction is skipped, never fatal; the estimator can work
// from headlines alone.
func (r *researchRepository) Gather(ctx context.Context, question string, maxArticles int) ([]dto.ResearchArticle, error) {
	if maxArticles <= 0 {
		return nil, nil
	}

	cacheKey := question
	if cached, found := r.inmemoryCache.Get(cacheKey); found {
		articles := cached.([]dto.ResearchArticle)
		if len(articles) > maxArticles {
			articles = articles[:maxArticles]
		}
		return articles, nil
	}

	feedURL := fmt.Sprintf("%s/search?q=%s&hl=en-US&gl=US&ceid=US:en", r.cfg.RSSBaseURL, url.QueryEscape(searchTerms(question)))
	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse research feed: %w", err)
	}

	sort.Slice(feed.Items, func(i, j int) bool {
		if feed.Items[i].PublishedParsed == nil || feed.Items[j].PublishedParsed == nil {
			return false
		}
		return feed.Items[i].PublishedParsed.After(*feed.Items[j].PublishedParsed)
	})

	articles := make([]dto.ResearchArticle, 0, maxArticles)
	for _, item := range feed.Items {
		if len(articles) >= maxArticles {
			break
		}
		article := dto.ResearchArticle{
			Title:  item.Title,
			Source: feedSource(item),
		}
		if item.PublishedParsed != nil {
			article.PublishedAt = item.PublishedParsed.Format("2006-01-02")
		}
		if content, err := r.extractContent(ctx, item.Link); err != nil {
			r.logger.Debug("Failed to extract article content",
				logger.ErrorField(err),
				logger.StringField("link", item.Link),
			)
		} else {
			article.Content = content
		}
		articles = append(articles, article)
	}

	r.inmemoryCache.Set(cacheKey, articles, cache.DefaultExpiration)
	return articles, nil
}

// extractContent downloads a page and reduces it to readable text.
func (r *researchRepository) extractContent(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; market-edge-engine)")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d fetching %s", resp.StatusCode, link)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}

	doc, err := readability.NewDocument(string(raw))
	if err != nil {
		return "", err
	}
	contentHTML := doc.Content()

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(parsed.Text())
	if len(text) > 4000 {
		text = text[:4000]
	}
	return text, nil
}

// searchTerms strips punctuation that confuses the RSS search endpoint.
func searchTerms(question string) string {
	replacer := strings.NewReplacer("?", "", "\"", "", "'", "", ":", " ")
	return strings.TrimSpace(replacer.Replace(question))
}

func feedSource(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if u, err := url.Parse(item.Link); err == nil {
		return u.Hostname()
	}
	return ""
}
