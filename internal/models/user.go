package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// AccessUser is a card holder allowed (or not) through the doors.
type AccessUser struct {
	ID           string         `json:"id" gorm:"primaryKey;size:64"`
	Name         string         `json:"name" gorm:"not null"`
	Email        string         `json:"email" gorm:"index"`
	Department   string         `json:"department"`
	Role         string         `json:"role"`
	Status       UserStatus     `json:"status" gorm:"not null;default:'active'"`
	RFIDTag      string         `json:"rfid_tag" gorm:"index"`
	IsAuthorized bool           `json:"isAuthorized"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (AccessUser) TableName() string {
	return "users"
}

func (u *AccessUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Admin is an operator of the console.
type Admin struct {
	ID          string         `json:"id" gorm:"primaryKey;size:64"`
	Email       string         `json:"email" gorm:"uniqueIndex;not null"`
	Password    string         `json:"-" gorm:"not null"`
	DisplayName string         `json:"displayName"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Admin) TableName() string {
	return "admins"
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
