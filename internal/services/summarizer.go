package services

import (
	"fmt"

	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/models"
)

// Collections is the raw result of one snapshot read.
type Collections struct {
	Users   map[string]models.AccessUser
	Doors   map[string]models.Door
	Devices map[string]models.Device
	Logs    []models.AccessLog
}

// DeviceStatusCounts counts a warning device as online and also reports it on its own.
type DeviceStatusCounts struct {
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Warning int `json:"warning"`
}

type DoorStatusCounts struct {
	Locked   int `json:"locked"`
	Unlocked int `json:"unlocked"`
}

type Summary struct {
	UserCount       int                `json:"userCount"`
	DoorCount       int                `json:"doorCount"`
	DeviceCount     int                `json:"deviceCount"`
	LogCountFetched int                `json:"logCountFetched"`
	LogPeriodDays   int                `json:"logPeriodDays"`
	DeviceStatus    DeviceStatusCounts `json:"deviceStatus"`
	DoorStatus      DoorStatusCounts   `json:"doorStatus"`
}

type CollectionSchema struct {
	Description   string   `json:"_description"`
	ExampleFields []string `json:"_exampleFields"`
}

// DataSchema tells the model what each collection in the snapshot holds.
type DataSchema struct {
	Users      CollectionSchema `json:"users"`
	Doors      CollectionSchema `json:"doors"`
	Devices    CollectionSchema `json:"devices"`
	RecentLogs CollectionSchema `json:"recentLogs"`
}

// Summarize reduces the collections to counts.
func Summarize(c Collections, logDays int) Summary {
	s := Summary{
		UserCount:       len(c.Users),
		DoorCount:       len(c.Doors),
		DeviceCount:     len(c.Devices),
		LogCountFetched: len(c.Logs),
		LogPeriodDays:   logDays,
	}

	for _, d := range c.Devices {
		s.DeviceStatus.add(d.Status)
	}
	for _, d := range c.Doors {
		s.DoorStatus.add(d.Status)
	}
	return s
}

func (c *DeviceStatusCounts) add(status string) {
	switch status {
	case models.DeviceStatusOnline:
		c.Online++
	case models.DeviceStatusWarning:
		c.Online++
		c.Warning++
	case models.DeviceStatusOffline:
		c.Offline++
	}
}

func (c *DoorStatusCounts) add(status string) {
	if status == models.DoorStatusLocked {
		c.Locked++
		return
	}
	c.Unlocked++
}

// BuildSchema describes the snapshot collections and their caps.
func BuildSchema(limits config.DataLimits) DataSchema {
	return DataSchema{
		Users: CollectionSchema{
			Description:   fmt.Sprintf("Map of user objects keyed by id (limited to %d)", limits.Users),
			ExampleFields: []string{"name", "email", "department", "status", "rfid_tag", "isAuthorized"},
		},
		Doors: CollectionSchema{
			Description:   fmt.Sprintf("Map of door objects keyed by id (limited to %d)", limits.Doors),
			ExampleFields: []string{"name", "location", "status", "last_status_change"},
		},
		Devices: CollectionSchema{
			Description:   fmt.Sprintf("Map of device objects keyed by id (limited to %d)", limits.Devices),
			ExampleFields: []string{"name", "type", "status", "firmware_version", "last_online"},
		},
		RecentLogs: CollectionSchema{
			Description: fmt.Sprintf("Map of recent access logs keyed by id (limited to %d from the last %d days, ordered most recent first)",
				limits.Logs, limits.LogDays),
			ExampleFields: []string{"user_name", "door_name", "action", "timestamp", "reason"},
		},
	}
}
