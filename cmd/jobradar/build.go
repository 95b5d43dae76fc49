package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/amishk599/jobradar/internal/adapter"
	"github.com/amishk599/jobradar/internal/aggregator"
	"github.com/amishk599/jobradar/internal/config"
	"github.com/amishk599/jobradar/internal/filter"
	"github.com/amishk599/jobradar/internal/model"
	"github.com/amishk599/jobradar/internal/notifier"
	"github.com/amishk599/jobradar/internal/poller"
	"github.com/amishk599/jobradar/internal/ratelimit"
	"github.com/amishk599/jobradar/internal/retry"
	"github.com/amishk599/jobradar/internal/secrets"
	"github.com/amishk599/jobradar/internal/store"
)

// logRecipient stands in for an address when batches only go to the log.
const logRecipient = "log"

// pipeline holds everything a cycle needs.
type pipeline struct {
	poller     *poller.Poller
	dispatcher *notifier.Dispatcher
	aggregator *aggregator.Aggregator
	store      model.PostingStore
	recipient  string
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// buildPipeline wires config into extractors, filter, store and dispatcher.
// dryRun swaps in a store that persists nothing and a log-only channel.
func buildPipeline(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (*pipeline, error) {
	httpClient := &http.Client{Timeout: cfg.Search.RequestTimeout}

	agg, err := buildAggregator(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	d, recipient, err := buildDispatcher(cfg, dryRun, logger)
	if err != nil {
		return nil, err
	}

	var st model.PostingStore
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be recorded or emailed")
		st = store.NewNopStore()
	} else {
		st, err = openStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	p := poller.New(
		agg,
		filter.NewTitleExcludeFilter(cfg.Filters.ExcludeKeywords),
		st,
		d,
		poller.Config{
			Keywords:        cfg.Search.Keywords,
			Recipient:       recipient,
			MinNewForNotify: cfg.Filters.MinNewForNotify,
		},
		logger,
	)
	return &pipeline{poller: p, dispatcher: d, aggregator: agg, store: st, recipient: recipient}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.PostingStore, error) {
	dsn := cfg.Store.Path
	if cfg.Store.Driver == store.DriverPostgres {
		dsn = cfg.Store.DSN
	}
	st, err := store.Open(ctx, cfg.Store.Driver, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func buildAggregator(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*aggregator.Aggregator, error) {
	// Shared per-source limiter; keyword queries to one site are spaced out.
	limiter := ratelimit.NewSourceLimiter(cfg.Search.Politeness)
	logger.Debug("rate limiter configured", "min_delay", cfg.Search.Politeness.String())

	var extractors []model.Extractor
	for _, src := range cfg.Search.EnabledSources() {
		ex, err := adapter.New(src.Name, adapter.Options{
			BaseURL:    src.BaseURL,
			Location:   cfg.Search.Location,
			MaxResults: src.MaxResults,
			Client:     httpClient,
			Limiter:    limiter,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		extractors = append(extractors, ex)
		logger.Debug("registered source", "source", src.Name)
	}
	return aggregator.New(extractors, cfg.Search.Concurrency, logger), nil
}

// buildDispatcher returns the dispatcher and the recipient batches go to.
func buildDispatcher(cfg *config.Config, dryRun bool, logger *slog.Logger) (*notifier.Dispatcher, string, error) {
	n := cfg.Notification
	if dryRun || n.Type == "log" {
		recipient := n.Recipient
		if recipient == "" {
			recipient = logRecipient
		}
		return notifier.NewDispatcher(notifier.NewLogChannel(logger), nil, n.Sender, logger), recipient, nil
	}

	password, err := secrets.SMTPPassword(n.SMTP)
	if err != nil {
		return nil, "", err
	}
	variants, err := toVariants(n.SMTP.Variants)
	if err != nil {
		return nil, "", err
	}
	primary := notifier.NewSMTPChannel(notifier.SMTPConfig{
		Host:     n.SMTP.Host,
		Variants: variants,
		Credentials: notifier.Credentials{
			Username: n.SMTP.Username,
			Password: password,
		},
		Attempts:   n.SMTP.Attempts,
		Backoff:    n.SMTP.Backoff,
		MaxBackoff: n.SMTP.MaxBackoff,
	}, &notifier.GoSMTPTransport{Timeout: n.SMTP.Timeout}, retry.Sleep, logger)

	var secondary notifier.Channel
	if n.API.Key != "" {
		endpoint := n.API.Endpoint
		if endpoint == "" {
			endpoint = notifier.DefaultAPIEndpoint
		}
		secondary = notifier.NewAPIChannel(endpoint, n.API.Key, &http.Client{Timeout: n.SMTP.Timeout}, logger)
		logger.Info("using API channel with SMTP fallback", "endpoint", endpoint)
	}
	return notifier.NewDispatcher(primary, secondary, n.Sender, logger), n.Recipient, nil
}

func toVariants(cfgs []config.VariantConfig) ([]notifier.Variant, error) {
	variants := make([]notifier.Variant, 0, len(cfgs))
	for _, c := range cfgs {
		mode, err := notifier.ParseMode(c.Mode)
		if err != nil {
			return nil, err
		}
		variants = append(variants, notifier.Variant{Port: c.Port, Mode: mode})
	}
	return variants, nil
}
