package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
	DeviceStatusWarning = "warning"
)

// Device is an RFID reader or door controller.
type Device struct {
	ID              string         `json:"id" gorm:"primaryKey;size:64"`
	Name            string         `json:"name" gorm:"not null"`
	Type            string         `json:"type"`
	Location        string         `json:"location"`
	Status          string         `json:"status" gorm:"not null;default:'offline'"`
	StatusMessage   string         `json:"statusMessage,omitempty"`
	FirmwareVersion string         `json:"firmware_version"`
	IP              string         `json:"ip,omitempty"`
	MAC             string         `json:"mac,omitempty"`
	LastOnline      string         `json:"last_online,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Device) TableName() string {
	return "devices"
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// IsOnline treats a device reporting a warning as reachable.
func (d Device) IsOnline() bool {
	return d.Status == DeviceStatusOnline || d.Status == DeviceStatusWarning
}
