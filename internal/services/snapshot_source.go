package services

import (
	"context"
	"fmt"

	"github.com/securelab/backend/internal/models"
	"gorm.io/gorm"
)

// SnapshotSource is the database client the snapshot reader pulls collections from.
type SnapshotSource interface {
	RecentUsers(ctx context.Context, limit int) (map[string]models.AccessUser, error)
	RecentDoors(ctx context.Context, limit int) (map[string]models.Door, error)
	RecentDevices(ctx context.Context, limit int) (map[string]models.Device, error)
	// LogsSince returns logs with timestamp >= cutoff (ISO-8601), newest first, at most limit.
	LogsSince(ctx context.Context, cutoff string, limit int) ([]models.AccessLog, error)
}

type GormSnapshotSource struct {
	db *gorm.DB
}

func NewGormSnapshotSource(db *gorm.DB) *GormSnapshotSource {
	return &GormSnapshotSource{db: db}
}

func (s *GormSnapshotSource) RecentUsers(ctx context.Context, limit int) (map[string]models.AccessUser, error) {
	var users []models.AccessUser
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	out := make(map[string]models.AccessUser, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *GormSnapshotSource) RecentDoors(ctx context.Context, limit int) (map[string]models.Door, error) {
	var doors []models.Door
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&doors).Error; err != nil {
		return nil, fmt.Errorf("failed to read doors: %w", err)
	}
	out := make(map[string]models.Door, len(doors))
	for _, d := range doors {
		out[d.ID] = d
	}
	return out, nil
}

func (s *GormSnapshotSource) RecentDevices(ctx context.Context, limit int) (map[string]models.Device, error) {
	var devices []models.Device
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to read devices: %w", err)
	}
	out := make(map[string]models.Device, len(devices))
	for _, d := range devices {
		out[d.ID] = d
	}
	return out, nil
}

func (s *GormSnapshotSource) LogsSince(ctx context.Context, cutoff string, limit int) ([]models.AccessLog, error) {
	var logs []models.AccessLog
	err := s.db.WithContext(ctx).
		Where("timestamp >= ?", cutoff).
		Order("timestamp DESC").
		Order("id ASC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read access logs: %w", err)
	}
	return logs, nil
}
