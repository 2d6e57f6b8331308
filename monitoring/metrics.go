package monitoring

import (
	"sync"
	"time"
)

// PredictionStats counts prediction outcomes in memory.
type PredictionStats struct {
	mu        sync.RWMutex
	bySpecies map[string]int64
	byError   map[string]int64
	total     int64
	last      time.Time
	startTime time.Time
}

// StatsSnapshot is a point-in-time copy of PredictionStats.
type StatsSnapshot struct {
	Total          int64            `json:"total"`
	Predictions    map[string]int64 `json:"predictions"`
	Errors         map[string]int64 `json:"errors"`
	StartTime      time.Time        `json:"start_time"`
	LastPrediction time.Time        `json:"last_prediction,omitempty"`
	Uptime         string           `json:"uptime"`
}

func NewPredictionStats() *PredictionStats {
	return &PredictionStats{
		bySpecies: make(map[string]int64),
		byError:   make(map[string]int64),
		startTime: time.Now(),
	}
}

func (s *PredictionStats) RecordPrediction(species string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySpecies[species]++
	s.total++
	s.last = time.Now()
}

func (s *PredictionStats) RecordError(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byError[code]++
	s.total++
	s.last = time.Now()
}

func (s *PredictionStats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := StatsSnapshot{
		Total:          s.total,
		Predictions:    make(map[string]int64, len(s.bySpecies)),
		Errors:         make(map[string]int64, len(s.byError)),
		StartTime:      s.startTime,
		LastPrediction: s.last,
		Uptime:         time.Since(s.startTime).Round(time.Second).String(),
	}
	for k, v := range s.bySpecies {
		snapshot.Predictions[k] = v
	}
	for k, v := range s.byError {
		snapshot.Errors[k] = v
	}
	return snapshot
}
