// Package offline keeps the last downloaded snapshot on disk so the CLI can
// draw the map without the API.
package offline

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"cadastre/internal/atlas"
	"cadastre/internal/cli"
)

var ErrNoSnapshot = errors.New("no cached snapshot")

func cachePath() (string, error) {
	dir, err := cli.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshot.json"), nil
}

func Load() (atlas.Snapshot, error) {
	path, err := cachePath()
	if err != nil {
		return atlas.Snapshot{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return atlas.Snapshot{}, ErrNoSnapshot
		}
		return atlas.Snapshot{}, err
	}
	if len(raw) == 0 {
		return atlas.Snapshot{}, ErrNoSnapshot
	}
	var out atlas.Snapshot
	if err := json.Unmarshal(raw, &out); err != nil {
		return atlas.Snapshot{}, err
	}
	if out.Data == nil {
		return atlas.Snapshot{}, ErrNoSnapshot
	}
	out.Data.Reindex()
	return out, nil
}

// Save replaces the cached snapshot. The file is written next to the target
// and renamed so a crash never leaves a truncated cache.
func Save(snap atlas.Snapshot) error {
	path, err := cachePath()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Clear() error {
	path, err := cachePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
