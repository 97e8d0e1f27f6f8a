package vectorstore

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	retrievalerrors "github.com/aman-labs/coderetrieval/internal/errors"
)

// snapshot is the gob-serializable metadata persisted alongside the HNSW
// graph export: ID mappings, per-vector metadata, and store configuration.
type snapshot struct {
	IDMap      map[string]uint64
	Meta       map[string]map[string]string
	NextKey    uint64
	Dimensions int
}

// Save persists the graph and its metadata to path (the HNSW export) and
// path+".meta" (ID mappings and per-vector metadata), using a temp-file-
// then-rename so readers never observe a partial write.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend, "vectorstore: store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("create directory: %w", err))
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("create index file: %w", err))
	}
	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("export graph: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("close index file: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("rename index file: %w", err))
	}

	return s.saveMetadata(path + ".meta")
}

func (s *Store) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("create temp metadata file: %w", err))
	}

	snap := snapshot{
		IDMap:      s.idMap,
		Meta:       s.meta,
		NextKey:    s.nextKey,
		Dimensions: s.dimensions,
	}

	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("encode metadata: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("close metadata file: %w", err))
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("rename metadata file: %w", err))
	}
	return nil
}

// Load restores the graph and its metadata from path, rebuilding the
// file_path side index from the restored metadata.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend, "vectorstore: store is closed")
	}

	if err := s.loadMetadata(path + ".meta"); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("open index file: %w", err))
	}
	defer file.Close()

	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("import graph: %w", err))
	}
	return nil
}

func (s *Store) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("open metadata file: %w", err))
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeVectorBackend, fmt.Errorf("decode metadata: %w", err))
	}

	s.idMap = snap.IDMap
	s.meta = snap.Meta
	s.nextKey = snap.NextKey
	s.dimensions = snap.Dimensions

	s.keyMap = make(map[uint64]string, len(s.idMap))
	s.filePathIndex = make(map[string]map[string]struct{})
	for id, key := range s.idMap {
		s.keyMap[key] = id
		s.addToFilePathIndex(id, s.meta[id])
	}
	return nil
}
