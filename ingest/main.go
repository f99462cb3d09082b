package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/dedupe"
	"github.com/DeafMist/vizdesk/internal/logger"
	"github.com/DeafMist/vizdesk/internal/metrics"
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/processing"
)

const (
	previewWords = 40
	idLength     = 16
	seenCapacity = 10000
	seenTTL      = 72 * time.Hour
)

type feedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type poller struct {
	log     *slog.Logger
	parser  feedParser
	out     publisher
	seen    *dedupe.Cache
	metrics *metrics.Metrics
	cfg     *config.Ingest
	now     func() time.Time
}

func main() {
	log := logger.New("ingest")
	cfg, err := config.LoadIngest()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		Balancer:    &kafka.Hash{},
		MaxAttempts: 3,
	})
	defer writer.Close()

	m := metrics.New(nil)
	go func() {
		if err := m.Serve(ctx, cfg.MetricsAddr, log); err != nil {
			log.Error("metrics server", slog.Any("err", err))
		}
	}()

	p := &poller{
		log:     log,
		parser:  gofeed.NewParser(),
		out:     writer,
		seen:    dedupe.NewCache(seenCapacity, seenTTL),
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}

	log.Info("ingest started",
		slog.Int("feeds", len(cfg.Feeds)),
		slog.String("topic", cfg.KafkaTopic),
		slog.Duration("interval", cfg.Interval),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	p.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

// pollAll fetches every feed once. One broken feed never stops the rest.
func (p *poller) pollAll(ctx context.Context) int {
	total := 0
	for _, url := range p.cfg.Feeds {
		if ctx.Err() != nil {
			break
		}
		n, err := p.poll(ctx, url)
		if err != nil {
			p.metrics.FeedFailed()
			p.log.Warn("poll feed", slog.String("feed", url), slog.Any("err", err))
			continue
		}
		total += n
	}
	return total
}

// poll publishes the unseen entries of one feed and returns how many.
func (p *poller) poll(ctx context.Context, url string) (int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	feed, err := p.parser.ParseURLWithContext(url, fetchCtx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", url, err)
	}

	items := feed.Items
	if p.cfg.MaxItems > 0 && len(items) > p.cfg.MaxItems {
		items = items[:p.cfg.MaxItems]
	}

	received := p.now().UTC()
	msgs := make([]kafka.Message, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		article := toArticle(feed, item)
		if article.ID == "" || !p.seen.MarkIfNew(string(article.ID)) {
			continue
		}
		msg, err := recordMessage(article, received)
		if err != nil {
			p.seen.Forget(string(article.ID))
			p.log.Warn("encode entry", slog.String("feed", url), slog.Any("err", err))
			continue
		}
		msgs = append(msgs, msg)
		keys = append(keys, string(article.ID))
	}
	if len(msgs) == 0 {
		p.log.Debug("feed has nothing new", slog.String("feed", url))
		return 0, nil
	}

	if err := p.out.WriteMessages(ctx, msgs...); err != nil {
		for _, k := range keys {
			p.seen.Forget(k)
		}
		return 0, fmt.Errorf("publish %s: %w", url, err)
	}

	p.metrics.Published(len(msgs))
	p.log.Info("published feed entries", slog.String("feed", url), slog.Int("count", len(msgs)))
	return len(msgs), nil
}

func recordMessage(a models.NewsArticle, received time.Time) (kafka.Message, error) {
	item, err := json.Marshal(a)
	if err != nil {
		return kafka.Message{}, err
	}
	value, err := json.Marshal(models.Record{
		ID:         a.ID,
		Kind:       models.KindNews,
		ReceivedAt: received,
		Item:       item,
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(a.ID), Value: value}, nil
}

// toArticle maps a feed entry onto a news article. The id hashes the GUID
// (or the link) so it is stable across polls and safe in a URL path.
func toArticle(feed *gofeed.Feed, item *gofeed.Item) models.NewsArticle {
	a := models.NewsArticle{
		Base: models.Base{
			Title:        strings.TrimSpace(item.Title),
			ExternalLink: strings.TrimSpace(item.Link),
		},
	}

	key := strings.TrimSpace(item.GUID)
	if key == "" {
		key = a.ExternalLink
	}
	if key != "" {
		a.ID = models.ID(processing.BuildItemID(string(models.KindNews), key, "")[:idLength])
	}

	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			a.Tags = append(a.Tags, c)
		}
	}
	if len(a.Tags) > 0 {
		a.Category = a.Tags[0]
	}

	description := processing.StripMarkup(item.Description)
	a.Preview = processing.TruncateWords(description, previewWords)
	a.FullContent = processing.StripMarkup(item.Content)
	if a.FullContent == "" {
		a.FullContent = description
	}
	a.ReadTime = processing.ReadTime(a.FullContent)

	if feed != nil {
		a.Source = strings.TrimSpace(feed.Title)
	}
	if item.Author != nil {
		a.Author = strings.TrimSpace(item.Author.Name)
	}
	switch {
	case item.PublishedParsed != nil:
		a.Date = item.PublishedParsed.UTC().Format("2006-01-02")
	case item.UpdatedParsed != nil:
		a.Date = item.UpdatedParsed.UTC().Format("2006-01-02")
	default:
		a.Date = strings.TrimSpace(item.Published)
	}
	return a
}
