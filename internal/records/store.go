package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// Store persists one record per (user, exercise, metric). Implementations
// must make UpsertPR atomic per key.
type Store interface {
	GetPR(ctx context.Context, userID, exerciseID string, metric models.Metric) (*models.PersonalRecord, error)
	// UpsertPR replaces value, unit, context and achieved-at of an existing
	// record and bumps UpdatedAt, or inserts a new record with a fresh ID.
	UpsertPR(ctx context.Context, rec models.PersonalRecord) (*models.PersonalRecord, error)
	ListPRs(ctx context.Context, userID string) ([]models.PersonalRecord, error)
	// ClearPRs deletes all of a user's records.
	ClearPRs(ctx context.Context, userID string) (int64, error)
}

// SavePRs writes new and first records. Ties leave the stored record alone.
// Returns the number of records written.
func SavePRs(ctx context.Context, store Store, userID string, evaluated []models.EvaluatedPR) (int, error) {
	saved := 0
	for _, pr := range evaluated {
		if pr.Status != models.StatusNewPR && pr.Status != models.StatusFirstPR {
			continue
		}
		rec := pr.NewRecord
		rec.UserID = userID
		if _, err := store.UpsertPR(ctx, rec); err != nil {
			return saved, fmt.Errorf("saving %s record for %s: %w", pr.Metric, pr.ExerciseID, err)
		}
		saved++
	}
	return saved, nil
}

// SortRecords orders records by exercise, then weight, reps, volume.
func SortRecords(recs []models.PersonalRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].ExerciseID != recs[j].ExerciseID {
			return recs[i].ExerciseID < recs[j].ExerciseID
		}
		return metricOrder(recs[i].Metric) < metricOrder(recs[j].Metric)
	})
}

func metricOrder(m models.Metric) int {
	for i, got := range models.Metrics {
		if got == m {
			return i
		}
	}
	return len(models.Metrics)
}

type memKey struct {
	userID     string
	exerciseID string
	metric     models.Metric
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[memKey]models.PersonalRecord
	now     func() time.Time
}

// Compile-time check: *MemoryStore satisfies Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{records: make(map[memKey]models.PersonalRecord), now: now}
}

func (m *MemoryStore) GetPR(_ context.Context, userID, exerciseID string, metric models.Metric) (*models.PersonalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[memKey{userID, exerciseID, metric}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) UpsertPR(_ context.Context, rec models.PersonalRecord) (*models.PersonalRecord, error) {
	if !rec.Metric.Valid() {
		return nil, fmt.Errorf("unknown metric %q", rec.Metric)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := memKey{rec.UserID, rec.ExerciseID, rec.Metric}
	if cur, ok := m.records[k]; ok {
		cur.ValueNumber = rec.ValueNumber
		cur.Unit = rec.Unit
		cur.Context = rec.Context
		cur.AchievedAt = rec.AchievedAt
		cur.UpdatedAt = now
		m.records[k] = cur
		return &cur, nil
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[k] = rec
	return &rec, nil
}

func (m *MemoryStore) ListPRs(_ context.Context, userID string) ([]models.PersonalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PersonalRecord{}
	for k, rec := range m.records {
		if k.userID == userID {
			out = append(out, rec)
		}
	}
	SortRecords(out)
	return out, nil
}

func (m *MemoryStore) ClearPRs(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.records {
		if k.userID == userID {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}
