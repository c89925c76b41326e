package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/parleylabs/interviewd/pkg/analysis"
	"github.com/parleylabs/interviewd/pkg/interview"
)

// FileStore keeps records as JSON files under basePath/<type>/<id>.json.
// Writes go through a temp file and rename so a crash never leaves a
// half-written record.
type FileStore struct {
	basePath string
}

func NewFileStore(basePath string) (*FileStore, error) {
	for _, sub := range []string{"interviews", "analysis_results"} {
		if err := os.MkdirAll(filepath.Join(basePath, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) SaveInterview(_ context.Context, rec interview.Record) error {
	return s.write("interviews", rec.ID, rec)
}

func (s *FileStore) LoadInterview(_ context.Context, id string) (interview.Record, error) {
	var rec interview.Record
	if err := s.read("interviews", id, &rec); err != nil {
		return interview.Record{}, err
	}
	return rec, nil
}

func (s *FileStore) SaveAnalysis(_ context.Context, rec analysis.Record) error {
	return s.write("analysis_results", rec.DocumentID, rec)
}

func (s *FileStore) LoadAnalysis(_ context.Context, documentID string) (analysis.Record, error) {
	var rec analysis.Record
	if err := s.read("analysis_results", documentID, &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return analysis.Record{}, analysis.ErrNotFound
		}
		return analysis.Record{}, err
	}
	return rec, nil
}

func (s *FileStore) Close() {}

func (s *FileStore) path(kind, id string) string {
	return filepath.Join(s.basePath, kind, id+".json")
}

func (s *FileStore) write(kind, id string, v any) error {
	if id == "" {
		return fmt.Errorf("storage: empty record id")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s record: %w", kind, err)
	}
	target := s.path(kind, id)
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+id+"-*")
	if err != nil {
		return fmt.Errorf("write %s record: %w", kind, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s record: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s record: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s record: %w", kind, err)
	}
	return nil
}

func (s *FileStore) read(kind, id string, v any) error {
	data, err := os.ReadFile(s.path(kind, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s record: %w", kind, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s record: %w", kind, err)
	}
	return nil
}
