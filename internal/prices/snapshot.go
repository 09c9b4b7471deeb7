package prices

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshot is the on-disk form of the price cache. Entries keep their
// original expiries, so stale data loaded at startup is refetched on first
// use unless the market is closed.
type snapshot struct {
	Entries map[string]cacheEntry `msgpack:"entries"`
}

// SaveSnapshot persists the current cache state to path. Written atomically
// via a temp file so a crash mid-write cannot corrupt the snapshot.
func (s *Service) SaveSnapshot(path string) error {
	s.mu.Lock()
	snap := snapshot{Entries: make(map[string]cacheEntry, len(s.cache))}
	for symbol, entry := range s.cache {
		snap.Entries[symbol] = entry
	}
	s.mu.Unlock()

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to encode price snapshot: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write price snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to finalize price snapshot: %w", err)
	}

	s.log.Info().Int("entries", len(snap.Entries)).Str("path", path).Msg("Saved price snapshot")
	return nil
}

// LoadSnapshot restores cache state from path. A missing file is not an
// error; a corrupt one is discarded with a warning so startup always
// succeeds.
func (s *Service) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read price snapshot: %w", err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Discarding corrupt price snapshot")
		return nil
	}

	s.mu.Lock()
	for symbol, entry := range snap.Entries {
		s.cache[symbol] = entry
	}
	s.mu.Unlock()

	s.log.Info().Int("entries", len(snap.Entries)).Str("path", path).Msg("Loaded price snapshot")
	return nil
}
