// Package fixture exports a table's entities to JSON Lines files and loads
// them back through a DAO. One entity per line; files are replaced
// atomically.
package fixture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

// ReadJSONL reads the entities stored in path. Blank lines and lines that do
// not hold a JSON object are skipped.
func ReadJSONL(path string) ([]types.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var entities []types.Entity
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		e, err := types.ParseEntity(line)
		if err != nil || e == nil {
			continue
		}
		entities = append(entities, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return entities, nil
}

// WriteJSONL replaces path with one JSON object per entity, writing a temp
// file in the same directory, syncing it and renaming it over path.
func WriteJSONL(path string, entities []types.Entity) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gdao-*.jsonl.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i, e := range entities {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding entity %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}

// Dump writes the entities selected by q to path and returns how many were
// written.
func Dump(ctx context.Context, dao types.DAO, path string, q *types.Query) (int, error) {
	entities, err := dao.All(ctx, q)
	if err != nil {
		return 0, err
	}
	if err := WriteJSONL(path, entities); err != nil {
		return 0, err
	}
	return len(entities), nil
}

// Load saves every entity stored in path and returns the saved entities.
// Identities in the file are ignored; storage assigns new ones. Load stops
// at the first failing save.
func Load(ctx context.Context, dao types.DAO, path string) ([]types.Entity, error) {
	entities, err := ReadJSONL(path)
	if err != nil {
		return nil, err
	}
	saved := make([]types.Entity, 0, len(entities))
	for i, e := range entities {
		s, err := dao.Save(ctx, e)
		if err != nil {
			return saved, fmt.Errorf("loading record %d of %s: %w", i+1, path, err)
		}
		saved = append(saved, s)
	}
	return saved, nil
}
