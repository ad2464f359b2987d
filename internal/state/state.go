package state

import (
	"fmt"
	"sync"

	"datalens/internal/models"
)

// Store holds the session state: the current dataset and its reconciled
// analysis. The dataset is the single source of truth; readers get the
// snapshot pointer and derived computations never mutate it, so replacement
// is atomic at whole-dataset granularity.
type Store struct {
	mu       sync.RWMutex
	dataset  *models.Dataset
	analysis *models.AnalysisResult
}

func NewStore() *Store {
	return &Store{}
}

// SetDataset installs a freshly parsed dataset and clears any analysis tied
// to the previous one.
func (s *Store) SetDataset(ds *models.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = ds
	s.analysis = nil
}

// Dataset returns the current snapshot, or nil before the first upload.
func (s *Store) Dataset() *models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// ReplaceRows swaps the dataset's row sequence wholesale, as the editing
// surface does on save. The dataset keeps its identity; in-flight readers
// keep the snapshot they already hold.
func (s *Store) ReplaceRows(rows []models.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return fmt.Errorf("no dataset loaded")
	}
	next := *s.dataset
	next.Rows = rows
	next.TotalRows = len(rows)
	s.dataset = &next
	return nil
}

// SetAnalysis stores the reconciled AI analysis for the current dataset.
func (s *Store) SetAnalysis(result *models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = result
}

// Analysis returns the stored analysis, or nil if none succeeded yet.
func (s *Store) Analysis() *models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analysis
}
