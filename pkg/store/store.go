// Package store persists match records and the player alias index on disk.
//
// Layout under the root directory:
//
//	matches/<matchId>.json   one file per match, the API record verbatim
//	player_names.json        {"<puuid>": [{"name": "...", "tag": "..."}]}
//
// A match is "saved" when its file exists. Files are written to a temporary
// name and renamed into place, so an interrupted write never leaves a
// truncated record that later runs would skip.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	// MatchesDir is the subdirectory holding match records.
	MatchesDir = "matches"

	// AliasFile is the name of the alias index.
	AliasFile = "player_names.json"
)

var (
	// ErrMissingMatchID is returned for records without metadata.matchId.
	ErrMissingMatchID = errors.New("match record has no metadata.matchId")

	// ErrInvalidMatchID is returned for ids that cannot be used as a file name.
	ErrInvalidMatchID = errors.New("invalid match id")
)

var lolMatchesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lol_matches_saved_total",
	Help: "Total number of match records written to disk",
})

// Alias is one Riot ID a player has been seen under.
type Alias struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// AliasIndex maps a PUUID to every alias recorded for it, oldest first.
type AliasIndex map[string][]Alias

// Store reads and writes one data directory. It assumes a single writer.
type Store struct {
	root   string
	logger zerolog.Logger
}

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string, logger zerolog.Logger) *Store {
	return &Store{
		root:   dir,
		logger: logger,
	}
}

func (s *Store) matchesDir() string {
	return filepath.Join(s.root, MatchesDir)
}

func (s *Store) aliasPath() string {
	return filepath.Join(s.root, AliasFile)
}

// Unsaved returns the ids that have no record yet, in input order.
// Any directory entry named <id>.json counts as saved, whatever its type.
// A missing matches directory means nothing is saved.
func (s *Store) Unsaved(ids []string) ([]string, error) {
	entries, err := os.ReadDir(s.matchesDir())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	saved := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		saved[e.Name()] = struct{}{}
	}

	unsaved := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := saved[id+".json"]; !ok {
			unsaved = append(unsaved, id)
		}
	}
	return unsaved, nil
}

// SaveMatches writes every record to matches/<metadata.matchId>.json,
// replacing existing content. Ids are validated before anything is written.
func (s *Store) SaveMatches(records []json.RawMessage) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	for i, record := range records {
		id, err := matchID(record)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	dir := s.matchesDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create matches directory: %w", err)
	}

	for i, record := range records {
		if err := writeFileAtomic(filepath.Join(dir, ids[i]+".json"), record); err != nil {
			return fmt.Errorf("save match %s: %w", ids[i], err)
		}
		lolMatchesSavedTotal.Inc()
	}

	s.logger.Debug().Int("count", len(records)).Msg("Saved matches")
	return nil
}

// RecordAlias adds alias under puuid unless it is already listed and writes
// the index back. It reports whether the alias was new. A missing or corrupt
// index is treated as empty.
func (s *Store) RecordAlias(puuid string, alias Alias) (bool, error) {
	index, err := s.LoadAliases()
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
			return false, err
		}
		s.logger.Warn().Err(err).Str("path", s.aliasPath()).Msg("Alias index is corrupt, starting from empty")
		index = AliasIndex{}
	}

	for _, existing := range index[puuid] {
		if existing == alias {
			return false, s.writeAliases(index)
		}
	}
	index[puuid] = append(index[puuid], alias)

	if err := s.writeAliases(index); err != nil {
		return false, err
	}

	s.logger.Info().
		Str("puuid", puuid).
		Str("riot_id", alias.Name+"#"+alias.Tag).
		Msg("Recorded new alias")
	return true, nil
}

// LoadAliases reads the alias index. A missing index is empty.
func (s *Store) LoadAliases() (AliasIndex, error) {
	data, err := os.ReadFile(s.aliasPath())
	if errors.Is(err, fs.ErrNotExist) {
		return AliasIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read alias index: %w", err)
	}

	index := AliasIndex{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse alias index: %w", err)
	}
	if index == nil {
		index = AliasIndex{}
	}
	return index, nil
}

func (s *Store) writeAliases(index AliasIndex) error {
	data, err := json.MarshalIndent(index, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal alias index: %w", err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	if err := writeFileAtomic(s.aliasPath(), data); err != nil {
		return fmt.Errorf("write alias index: %w", err)
	}
	return nil
}

func matchID(record json.RawMessage) (string, error) {
	var m struct {
		Metadata struct {
			MatchID string `json:"matchId"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(record, &m); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingMatchID, err)
	}

	id := m.Metadata.MatchID
	switch {
	case id == "":
		return "", ErrMissingMatchID
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0):
		return "", fmt.Errorf("%w: %q", ErrInvalidMatchID, id)
	}
	return id, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path.
func writeFileAtomic(path string, data []byte) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
