package ai

import (
	"context"
	"time"

	"datalens/internal/models"
)

// AnalyzeWithFloor runs AnalyzeDataset while a minimum-latency timer runs
// alongside it, so the caller's "analyzing" state is never shown for an
// implausibly short moment. A successful call waits out the remainder of the
// floor; a failed call returns immediately, the floor's outcome is
// irrelevant on the error path.
func (s *Service) AnalyzeWithFloor(ctx context.Context, floor time.Duration, sample []models.Row, sourceName string) (*models.AnalysisResult, error) {
	timer := time.NewTimer(floor)
	defer timer.Stop()

	result, err := s.AnalyzeDataset(ctx, sample, sourceName)
	if err != nil {
		return nil, err
	}

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return result, nil
}
