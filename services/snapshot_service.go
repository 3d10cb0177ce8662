package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/storage"
)

// maxSnapshotsPerScope bounds the retained archive per (league, season).
// Older snapshots taken in this process are pruned once the bound is hit.
const maxSnapshotsPerScope = 10

// SnapshotService archives the previous table rows before a recalculation
// overwrites them, keeping an audit trail that allows manual rollback.
type SnapshotService interface {
	Snapshot(ctx context.Context, leagueID, seasonID int, entries []*models.TableEntry) (string, error)
}

type tableSnapshot struct {
	LeagueID int                  `json:"league_id"`
	SeasonID int                  `json:"season_id"`
	TakenAt  time.Time            `json:"taken_at"`
	Entries  []*models.TableEntry `json:"entries"`
}

type r2SnapshotService struct {
	uploader storage.FileUploader
	logger   *slog.Logger

	mu   sync.Mutex
	keys map[string][]string // uploaded keys per scope prefix, oldest first
}

func NewSnapshotService(uploader storage.FileUploader, logger *slog.Logger) SnapshotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &r2SnapshotService{
		uploader: uploader,
		logger:   logger,
		keys:     make(map[string][]string),
	}
}

func (s *r2SnapshotService) Snapshot(ctx context.Context, leagueID, seasonID int, entries []*models.TableEntry) (string, error) {
	snapshot := tableSnapshot{
		LeagueID: leagueID,
		SeasonID: seasonID,
		TakenAt:  time.Now().UTC(),
		Entries:  entries,
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal table snapshot for league %d season %d: %w", leagueID, seasonID, err)
	}

	prefix := fmt.Sprintf("snapshots/league_%d/season_%d/", leagueID, seasonID)
	key := prefix + snapshot.TakenAt.Format("20060102T150405.000000000") + ".json"
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to upload table snapshot %s: %w", key, err)
	}

	s.prune(ctx, prefix, result.Key)

	s.logger.Info("table snapshot archived",
		slog.Int("league_id", leagueID),
		slog.Int("season_id", seasonID),
		slog.String("key", result.Key))
	return result.Location, nil
}

// prune records the new key and deletes the oldest snapshots of the scope
// beyond the retention bound. Deletion is best-effort: a failed delete is
// kept in the ledger and retried on the next snapshot.
func (s *r2SnapshotService) prune(ctx context.Context, prefix, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[prefix] = append(s.keys[prefix], key)
	for len(s.keys[prefix]) > maxSnapshotsPerScope {
		oldest := s.keys[prefix][0]
		if err := s.uploader.Delete(ctx, oldest); err != nil {
			s.logger.Warn("failed to prune old table snapshot",
				slog.String("key", oldest), slog.Any("error", err))
			return
		}
		s.keys[prefix] = s.keys[prefix][1:]
	}
}
