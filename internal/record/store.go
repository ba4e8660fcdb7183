// Package record persists one game record per session as a PGN file named
// <REMOTECALL>-<GAMEID>.pgn. The file is the resync source of truth: it is
// rewritten and flushed on every applied ply, and fully replayed on reload.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"js8chess/internal/rules"
	"js8chess/internal/wire"
)

// Store manages game-record files under one data directory.
type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("record store: data dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("record store: create %s: %w", dir, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}, nil
}

// Path returns the record file path for a session.
func (s *Store) Path(remoteCall, gameID string) string {
	name := wire.NormalizeCallsign(remoteCall) + "-" + gameID + ".pgn"
	return filepath.Join(s.dir, name)
}

// Save rewrites the record file and flushes it to disk. The next radio
// transmission may be the last evidence of the game if the process crashes,
// so durability is per ply, not per session.
func (s *Store) Save(path string, b rules.Board) error {
	data, err := b.MarshalPGN()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open record %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write record %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("flush record %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close record %s: %w", path, err)
	}
	s.log.Debug("record_saved", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Load replays a record file from the empty starting position.
func (s *Store) Load(path string) (rules.Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", path, err)
	}
	b, err := rules.FromPGN(data)
	if err != nil {
		return nil, fmt.Errorf("replay record %s: %w", path, err)
	}
	s.log.Info("record_loaded",
		zap.String("path", path),
		zap.Int("plies", len(b.Moves())),
	)
	return b, nil
}

// FindLatest returns the newest in-flight game id recorded for the remote
// callsign, if any. GameIDs are YYYYMMDDHHMM, so lexical order is
// chronological.
func (s *Store) FindLatest(remoteCall string) (string, bool) {
	prefix := wire.NormalizeCallsign(remoteCall) + "-"
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("record_scan_failed", zap.String("dir", s.dir), zap.Error(err))
		return "", false
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".pgn") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".pgn")
		if wire.ValidGameID(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	sort.Strings(ids)
	return ids[len(ids)-1], true
}
