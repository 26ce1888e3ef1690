package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parkrun-transit/internal/datacache"
	"github.com/sells-group/parkrun-transit/internal/explorer"
	"github.com/sells-group/parkrun-transit/internal/fetcher"
	"github.com/sells-group/parkrun-transit/internal/geo"
	"github.com/sells-group/parkrun-transit/internal/store"
)

// sourceEnv holds the store and the cache-backed data source shared by the
// events, cache and serve commands. Breaker is set only when serving.
type sourceEnv struct {
	Store   store.Store
	Source  *datacache.Source
	Breaker *fetcher.BreakerFetcher
	URLs    datacache.URLs
}

// Close releases the store.
func (e *sourceEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initSource validates the config for mode, opens the store and builds the
// data source. Callers should defer env.Close().
func initSource(ctx context.Context, mode string) (*sourceEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Cache.Driver, cfg.Cache.DSN())
	if err != nil {
		return nil, eris.Wrap(err, "open cache store")
	}

	var f fetcher.Fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RatePerSec: cfg.Fetch.RatePerSec,
	})
	var breaker *fetcher.BreakerFetcher
	if mode == "serve" {
		breaker = fetcher.NewBreakerFetcher(f, fetcher.BreakerOptions{
			FailureThreshold: cfg.Fetch.BreakerThreshold,
			ResetTimeout:     time.Duration(cfg.Fetch.BreakerResetSecs) * time.Second,
		})
		f = breaker
	}

	urls := datacache.URLs{
		Events: cfg.Source.EventsURL,
		Stops:  cfg.Source.StopsEndpoint(),
	}
	src := datacache.New(f, st, urls,
		datacache.WithTTL(cfg.Cache.TTL()),
		datacache.WithMaxEntryBytes(cfg.Cache.MaxEntryBytes),
	)

	return &sourceEnv{Store: st, Source: src, Breaker: breaker, URLs: urls}, nil
}

// defaultQuery converts the view settings into the initial query.
func defaultQuery() (explorer.Query, error) {
	by, err := geo.ParseSortBy(cfg.View.SortBy)
	if err != nil {
		return explorer.Query{}, err
	}
	order, err := geo.ParseSortOrder(cfg.View.SortOrder)
	if err != nil {
		return explorer.Query{}, err
	}
	return explorer.Query{
		RadiusKM: cfg.View.RadiusKM,
		Modes:    append([]string(nil), cfg.View.Modes...),
		SortBy:   by,
		Order:    order,
	}, nil
}

func explorerOptions() []explorer.Option {
	return []explorer.Option{
		explorer.WithLocateTimeout(time.Duration(cfg.Locate.TimeoutSecs) * time.Second),
		explorer.WithLocateMaxAge(time.Duration(cfg.Locate.MaxAgeSecs) * time.Second),
	}
}
