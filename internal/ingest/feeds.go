package ingest

import (
	"context"
	"errors"
	"time"

	"calstats/internal/config"
	"calstats/internal/ics"
	appLog "calstats/internal/log"
)

// FeedSources maps configured feeds to fetch sources. The source id is the
// configured ID, else the name, else the URL; feeds without a URL are skipped.
func FeedSources(feeds []config.FeedConfig) []ics.Source {
	sources := make([]ics.Source, 0, len(feeds))
	for _, f := range feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			if f.Name != "" {
				id = f.Name
			} else {
				id = f.URL
			}
		}
		name := f.Name
		if name == "" {
			name = id
		}
		sources = append(sources, ics.Source{ID: id, Name: name, URL: f.URL})
	}
	return sources
}

// RefreshFeeds downloads every configured feed and commits the bodies that
// parse. A feed keeps its source id across refreshes, so the stored text of
// that source is replaced rather than duplicated.
//
// Fetch failures are joined into the returned error; successfully fetched
// feeds are still committed through c, which serializes the write against
// other commits and invalidates the cached events.
func RefreshFeeds(ctx context.Context, f *ics.Fetcher, feeds []config.FeedConfig, c *Cache, opts ics.Options) (ImportResult, error) {
	sources := FeedSources(feeds)
	if len(sources) == 0 {
		return ImportResult{}, nil
	}

	results, fetchErrs := f.FetchAll(ctx, sources)
	raws := make([]RawSource, 0, len(results))
	for _, res := range results {
		raws = append(raws, RawSource{ID: res.Source.ID, Name: res.Source.Name, Text: string(res.Body)})
	}

	imported := ImportSourcesWithOptions(raws, opts, time.Now())
	if len(imported.Sources) > 0 {
		if _, err := c.Commit(ctx, imported.Sources, nil, nil); err != nil {
			return imported, err
		}
	}

	appLog.Info("feeds refreshed", "feeds", len(sources), "fetched", len(results), "committed", len(imported.Sources), "failed", len(fetchErrs))
	return imported, errors.Join(fetchErrs...)
}
