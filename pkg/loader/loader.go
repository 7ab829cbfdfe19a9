// Package loader downloads a player's match history into a data directory,
// skipping matches that are already on disk.
//
// A load resolves the player, records the alias, then walks the match id
// listing page by page. Each page's new records are fetched and written
// before the next page is requested, so a failed run keeps everything from
// earlier pages and the next run only fetches what is still missing.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/lolstats/pkg/client"
	"github.com/Sternrassler/lolstats/pkg/journal"
	"github.com/Sternrassler/lolstats/pkg/pagination"
	"github.com/Sternrassler/lolstats/pkg/riot"
	"github.com/Sternrassler/lolstats/pkg/store"
)

// Prometheus metrics for load runs.
var (
	lolLoaderRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_loader_runs_total",
		Help: "Total load runs by status",
	}, []string{"status"})

	lolLoaderRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lol_loader_run_duration_seconds",
		Help:    "Load run duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	lolLoaderMatchesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lol_loader_matches_seen_total",
		Help: "Total match ids returned by the match id listing",
	})

	lolLoaderMatchesNew = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lol_loader_matches_new_total",
		Help: "Total match records downloaded because they were not on disk",
	})
)

// ErrInvalidRequest is returned for requests missing a required field.
var ErrInvalidRequest = errors.New("invalid load request")

// Config holds the loader configuration.
type Config struct {
	// PageSize is the number of match ids requested per page (1 to 100).
	PageSize int

	// Concurrency is the number of match records fetched in parallel
	// within a page. 1 fetches one at a time.
	Concurrency int

	// Journal, if set, records every run.
	Journal Journal

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    pagination.DefaultPageSize,
		Concurrency: 1,
	}
}

// Request describes one load.
type Request struct {
	// Directory is the data directory (see package store).
	Directory string

	// TotalWanted is how many of the most recent match ids to look at.
	TotalWanted int

	// Route selects the regional API host.
	Route riot.Route

	// Name and Tag form the Riot ID Name#Tag.
	Name string
	Tag  string

	// Queue optionally restricts matches to one queue id.
	Queue *int

	// EndTime optionally restricts matches to those ending before this UNIX time.
	EndTime *int64
}

// Result holds the totals of a load.
type Result struct {
	// TotalSeen counts every match id returned, saved or not.
	TotalSeen int

	// TotalNew counts the ids whose records were downloaded in this run.
	TotalNew int
}

// Loader runs loads against one API.
type Loader struct {
	api    API
	config Config
	logger zerolog.Logger
}

// New creates a loader.
func New(api API, cfg Config) (*Loader, error) {
	if api == nil {
		return nil, fmt.Errorf("api is required")
	}

	if err := pagination.ValidatePageSize(cfg.PageSize); err != nil {
		return nil, err
	}

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	return &Loader{
		api:    api,
		config: cfg,
		logger: base.With().Str("component", "loader").Logger(),
	}, nil
}

// Load downloads the match history described by req. Any failure aborts the
// run; records written for earlier pages stay on disk.
func (l *Loader) Load(ctx context.Context, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	logger := l.logger.With().
		Str("run_id", runID).
		Str("riot_id", req.Name+"#"+req.Tag).
		Str("route", req.Route.String()).
		Logger()

	logger.Info().
		Str("directory", req.Directory).
		Int("total_wanted", req.TotalWanted).
		Msg("Starting load")

	started := time.Now()
	res, puuid, err := l.load(logger.WithContext(ctx), logger, req)
	l.finish(ctx, logger, runID, req, puuid, res, started, err)

	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (l *Loader) load(ctx context.Context, logger zerolog.Logger, req Request) (Result, string, error) {
	var res Result
	st := store.New(req.Directory, logger)

	puuid, err := l.api.ResolvePUUID(ctx, req.Route, req.Name, req.Tag)
	if err != nil {
		return res, "", err
	}

	if _, err := st.RecordAlias(puuid, store.Alias{Name: req.Name, Tag: req.Tag}); err != nil {
		return res, puuid, fmt.Errorf("record alias: %w", err)
	}

	windows := pagination.Plan(req.TotalWanted, l.config.PageSize)
	for i, w := range windows {
		ids, err := l.api.MatchIDs(ctx, req.Route, puuid, riot.MatchIDsQuery{
			Start:   w.Start,
			Count:   w.Count,
			EndTime: req.EndTime,
			Queue:   req.Queue,
		})
		if err != nil {
			return res, puuid, err
		}
		res.TotalSeen += len(ids)
		lolLoaderMatchesSeen.Add(float64(len(ids)))

		unsaved, err := st.Unsaved(ids)
		if err != nil {
			return res, puuid, fmt.Errorf("filter saved matches: %w", err)
		}
		res.TotalNew += len(unsaved)

		records, err := pagination.FetchAll(ctx, unsaved, l.config.Concurrency,
			func(ctx context.Context, id string) (json.RawMessage, error) {
				return l.api.Match(ctx, req.Route, id)
			})
		if err != nil {
			return res, puuid, err
		}

		if err := st.SaveMatches(records); err != nil {
			return res, puuid, fmt.Errorf("save matches: %w", err)
		}
		lolLoaderMatchesNew.Add(float64(len(records)))

		logger.Info().
			Int("page", i+1).
			Int("pages", len(windows)).
			Int("seen", len(ids)).
			Int("new", len(unsaved)).
			Msg("Page loaded")
	}

	return res, puuid, nil
}

// finish logs the outcome, updates metrics and writes the journal entry.
func (l *Loader) finish(ctx context.Context, logger zerolog.Logger, runID string, req Request, puuid string, res Result, started time.Time, err error) {
	finished := time.Now()

	run := journal.Run{
		ID:          runID,
		RiotID:      req.Name + "#" + req.Tag,
		PUUID:       puuid,
		Route:       req.Route.String(),
		Directory:   req.Directory,
		TotalWanted: req.TotalWanted,
		TotalSeen:   res.TotalSeen,
		TotalNew:    res.TotalNew,
		Status:      journal.StatusSuccess,
		StartedAt:   started,
		FinishedAt:  finished,
	}
	lolLoaderRunDuration.Observe(run.Duration().Seconds())

	if err != nil {
		run.Status = journal.StatusFailed
		run.Error = err.Error()
		logger.Error().
			Err(err).
			Str("class", string(client.ClassOf(err))).
			Int("total_seen", res.TotalSeen).
			Int("total_new", res.TotalNew).
			Dur("duration", run.Duration()).
			Msg("Load failed")
	} else {
		logger.Info().
			Int("total_seen", res.TotalSeen).
			Int("total_new", res.TotalNew).
			Dur("duration", run.Duration()).
			Msg("Load complete")
	}
	lolLoaderRunsTotal.WithLabelValues(run.Status).Inc()

	if l.config.Journal == nil {
		return
	}
	if jerr := l.config.Journal.Record(context.WithoutCancel(ctx), run); jerr != nil {
		logger.Warn().Err(jerr).Msg("Failed to record run in journal")
	}
}

func validate(req Request) error {
	switch {
	case req.Directory == "":
		return fmt.Errorf("%w: directory is required", ErrInvalidRequest)
	case req.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case req.Tag == "":
		return fmt.Errorf("%w: tag is required", ErrInvalidRequest)
	case req.Route == "":
		return fmt.Errorf("%w: route is required", ErrInvalidRequest)
	}
	return nil
}
