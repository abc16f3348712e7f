package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
)

// CallArchive persists call summaries beyond the session lifetime
type CallArchive interface {
	RecordCall(ctx context.Context, record pkg.CallRecord) error
	GetCall(ctx context.Context, sessionID string) (pkg.CallRecord, error)
	ListCalls(ctx context.Context, limit int) ([]pkg.CallRecord, error)
}

// JSONCallArchive keeps one JSON file per session under baseDir
type JSONCallArchive struct {
	baseDir string
	mu      sync.Mutex
}

// NewJSONCallArchive creates a file-based call archive
func NewJSONCallArchive(baseDir string) *JSONCallArchive {
	return &JSONCallArchive{baseDir: baseDir}
}

func (j *JSONCallArchive) path(sessionID string) (string, error) {
	if !pkg.ValidSessionID(sessionID) {
		return "", fmt.Errorf("%w: invalid session id %q", pkg.ErrMalformedInput, sessionID)
	}
	return filepath.Join(j.baseDir, sessionID+".json"), nil
}

// RecordCall writes or replaces the record for its session
func (j *JSONCallArchive) RecordCall(ctx context.Context, record pkg.CallRecord) error {
	filePath, err := j.path(record.SessionID)
	if err != nil {
		return err
	}

	data, err := sonic.ConfigStd.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write call record: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to commit call record: %w", err)
	}

	logger.Debug().
		Str("session_id", record.SessionID).
		Str("status", record.Status).
		Msg("Call record archived")
	return nil
}

// GetCall loads one record
func (j *JSONCallArchive) GetCall(ctx context.Context, sessionID string) (pkg.CallRecord, error) {
	filePath, err := j.path(sessionID)
	if err != nil {
		return pkg.CallRecord{}, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return pkg.CallRecord{}, fmt.Errorf("%w: %s", pkg.ErrCallNotFound, sessionID)
	}
	if err != nil {
		return pkg.CallRecord{}, fmt.Errorf("failed to read call record: %w", err)
	}

	var record pkg.CallRecord
	if err := sonic.Unmarshal(data, &record); err != nil {
		return pkg.CallRecord{}, fmt.Errorf("failed to parse call record: %w", err)
	}
	return record, nil
}

// ListCalls returns the most recently updated records first
func (j *JSONCallArchive) ListCalls(ctx context.Context, limit int) ([]pkg.CallRecord, error) {
	entries, err := os.ReadDir(j.baseDir)
	if errors.Is(err, os.ErrNotExist) {
		return []pkg.CallRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}

	records := make([]pkg.CallRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		record, err := j.GetCall(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("Skipping unreadable call record")
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(a, b int) bool {
		return records[a].UpdatedAt.After(records[b].UpdatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// CallStats aggregates archived calls
type CallStats struct {
	TotalCalls     int          `json:"total_calls"`
	CompletedCalls int          `json:"completed_calls"`
	BookedCalls    int          `json:"booked_calls"`
	TopIntents     []pkg.Intent `json:"top_intents"`
}

// SummarizeCalls computes stats over a set of records
func SummarizeCalls(records []pkg.CallRecord, topN int) CallStats {
	stats := CallStats{TotalCalls: len(records), TopIntents: []pkg.Intent{}}

	counts := make(map[pkg.Intent]int)
	for _, record := range records {
		if record.Status == pkg.CallCompleted {
			stats.CompletedCalls++
		}
		if record.AppointmentBooked {
			stats.BookedCalls++
		}
		if record.PrimaryIntent != "" {
			counts[record.PrimaryIntent]++
		}
	}

	for intent := range counts {
		stats.TopIntents = append(stats.TopIntents, intent)
	}
	sort.Slice(stats.TopIntents, func(a, b int) bool {
		ia, ib := stats.TopIntents[a], stats.TopIntents[b]
		if counts[ia] != counts[ib] {
			return counts[ia] > counts[ib]
		}
		return ia < ib
	})
	if topN > 0 && len(stats.TopIntents) > topN {
		stats.TopIntents = stats.TopIntents[:topN]
	}
	return stats
}
