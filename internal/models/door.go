package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DoorStatusLocked   = "locked"
	DoorStatusUnlocked = "unlocked"
)

type Door struct {
	ID               string         `json:"id" gorm:"primaryKey;size:64"`
	Name             string         `json:"name" gorm:"not null"`
	Location         string         `json:"location"`
	Status           string         `json:"status" gorm:"not null;default:'locked'"`
	DeviceID         string         `json:"device,omitempty"`
	LastStatusChange string         `json:"last_status_change,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Door) TableName() string {
	return "doors"
}

func (d *Door) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
