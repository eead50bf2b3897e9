package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/metrics"
	"github.com/securelab/backend/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type SystemInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RecentLogs is ordered newest first and serializes as an object keyed by log id,
// keeping that order.
type RecentLogs []models.AccessLog

func (r RecentLogs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type SnapshotData struct {
	Users      map[string]models.AccessUser `json:"users"`
	Doors      map[string]models.Door       `json:"doors"`
	Devices    map[string]models.Device     `json:"devices"`
	RecentLogs RecentLogs                   `json:"recentLogs"`
}

// SystemSnapshot is the context object embedded in every prompt. A returned snapshot is
// shared between callers and must not be modified.
type SystemSnapshot struct {
	FetchedAt  time.Time    `json:"-"`
	Timestamp  string       `json:"timestamp"`
	Timezone   string       `json:"timezone"`
	SystemInfo SystemInfo   `json:"systemInfo"`
	Summary    Summary      `json:"dataSummary"`
	Schema     DataSchema   `json:"dataSchema"`
	Data       SnapshotData `json:"data"`
}

// SnapshotService reads the four collections and caches the assembled snapshot for ttl.
type SnapshotService struct {
	source SnapshotSource
	limits config.DataLimits
	ttl    time.Duration
	now    func() time.Time

	mu            sync.RWMutex
	snapshot      *SystemSnapshot
	lastFetchedAt time.Time
	// generation counts invalidations. A refresh started under an older generation
	// returns its result but does not cache it.
	generation uint64
	group      singleflight.Group
}

func NewSnapshotService(source SnapshotSource, limits config.DataLimits, ttl time.Duration) *SnapshotService {
	return &SnapshotService{
		source: source,
		limits: limits,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GetSystemSnapshot returns the cached snapshot while it is fresh and refreshes it otherwise.
// Concurrent refreshes share one fetch.
func (s *SnapshotService) GetSystemSnapshot(ctx context.Context) (*SystemSnapshot, error) {
	if snap := s.fresh(); snap != nil {
		metrics.SnapshotRequests.WithLabelValues("hit").Inc()
		return snap, nil
	}

	gen := s.currentGeneration()
	v, err, _ := s.group.Do("snapshot-"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		if snap := s.fresh(); snap != nil {
			return snap, nil
		}
		return s.refresh(context.WithoutCancel(ctx), gen)
	})
	if err != nil {
		metrics.SnapshotRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	return v.(*SystemSnapshot), nil
}

// Invalidate drops the cached snapshot so the next call reads the database again.
func (s *SnapshotService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.generation++
}

// CachedAt reports when the cached snapshot was fetched, if one is cached.
func (s *SnapshotService) CachedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return time.Time{}, false
	}
	return s.snapshot.FetchedAt, true
}

func (s *SnapshotService) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *SnapshotService) fresh() *SystemSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot != nil && s.now().Sub(s.snapshot.FetchedAt) < s.ttl {
		return s.snapshot
	}
	return nil
}

func (s *SnapshotService) refresh(ctx context.Context, gen uint64) (*SystemSnapshot, error) {
	now := s.now()
	cutoff := models.FormatTimestamp(now.Add(-time.Duration(s.limits.LogDays) * 24 * time.Hour))

	var (
		c                                       Collections
		usersErr, doorsErr, devicesErr, logsErr error
		g                                       errgroup.Group
	)
	g.Go(func() error {
		c.Users, usersErr = s.source.RecentUsers(ctx, s.limits.Users)
		return nil
	})
	g.Go(func() error {
		c.Doors, doorsErr = s.source.RecentDoors(ctx, s.limits.Doors)
		return nil
	})
	g.Go(func() error {
		c.Devices, devicesErr = s.source.RecentDevices(ctx, s.limits.Devices)
		return nil
	})
	g.Go(func() error {
		c.Logs, logsErr = s.source.LogsSince(ctx, cutoff, s.limits.Logs)
		return nil
	})
	_ = g.Wait()

	failed := 0
	for name, err := range map[string]error{
		"users":       usersErr,
		"doors":       doorsErr,
		"devices":     devicesErr,
		"access_logs": logsErr,
	} {
		if err == nil {
			continue
		}
		failed++
		metrics.SnapshotReadFailures.WithLabelValues(name).Inc()
		logger.WithSnapshot().WithField("collection", name).WithError(err).Warn("Collection read failed, continuing with an empty set")
	}

	if failed == 4 {
		s.mu.Lock()
		s.snapshot = nil
		s.mu.Unlock()

		cause := errors.Join(usersErr, doorsErr, devicesErr, logsErr)
		logger.WithError(cause, "snapshot").Error("All snapshot reads failed")
		return nil, newAssistantError(ErrDataSource, "Failed to load system data. Please try again.", cause)
	}

	if c.Users == nil {
		c.Users = map[string]models.AccessUser{}
	}
	if c.Doors == nil {
		c.Doors = map[string]models.Door{}
	}
	if c.Devices == nil {
		c.Devices = map[string]models.Device{}
	}
	c.Logs = newestFirst(c.Logs, s.limits.Logs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !now.After(s.lastFetchedAt) {
		now = s.lastFetchedAt.Add(time.Nanosecond)
	}
	s.lastFetchedAt = now

	snap := &SystemSnapshot{
		FetchedAt: now,
		Timestamp: models.FormatTimestamp(now),
		Timezone:  timezoneName(now),
		SystemInfo: SystemInfo{
			Name:        "SecureLab RFID",
			Description: "RFID access control system.",
		},
		Summary: Summarize(c, s.limits.LogDays),
		Schema:  BuildSchema(s.limits),
		Data: SnapshotData{
			Users:      c.Users,
			Doors:      c.Doors,
			Devices:    c.Devices,
			RecentLogs: RecentLogs(c.Logs),
		},
	}
	if s.generation == gen {
		s.snapshot = snap
	}

	metrics.SnapshotRequests.WithLabelValues("refresh").Inc()
	logger.WithSnapshot().WithFields(map[string]interface{}{
		"users":   snap.Summary.UserCount,
		"doors":   snap.Summary.DoorCount,
		"devices": snap.Summary.DeviceCount,
		"logs":    snap.Summary.LogCountFetched,
		"failed":  failed,
	}).Info("System snapshot refreshed")

	return snap, nil
}

// newestFirst sorts by timestamp descending, then id ascending, and applies the cap.
func newestFirst(logs []models.AccessLog, limit int) []models.AccessLog {
	out := make([]models.AccessLog, len(logs))
	copy(out, logs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func timezoneName(t time.Time) string {
	if name := t.Location().String(); name != "Local" {
		return name
	}
	name, _ := t.Zone()
	return name
}
