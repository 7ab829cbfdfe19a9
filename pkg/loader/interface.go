package loader

import (
	"context"
	"encoding/json"

	"github.com/Sternrassler/lolstats/pkg/journal"
	"github.com/Sternrassler/lolstats/pkg/riot"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_loader

// API is the part of the Riot API a load needs. *riot.Client implements it.
type API interface {
	ResolvePUUID(ctx context.Context, route riot.Route, name, tag string) (string, error)
	MatchIDs(ctx context.Context, route riot.Route, puuid string, q riot.MatchIDsQuery) ([]string, error)
	Match(ctx context.Context, route riot.Route, id string) (json.RawMessage, error)
}

// Journal records finished runs. *journal.Journal implements it.
type Journal interface {
	Record(ctx context.Context, run journal.Run) error
}
