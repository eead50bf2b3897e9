package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/securelab/backend/internal/models"
)

func sampleLogs() []models.AccessLog {
	return []models.AccessLog{
		{ID: "1", UserName: "Ana Souza", DoorID: "d1", DoorName: "Lab 1", Action: models.ActionAccessGranted, Method: "rfid", Timestamp: "2026-10-16T08:00:00.000Z"},
		{ID: "2", UserName: "Bruno", DoorID: "d1", DoorName: "Lab 1", Action: models.ActionAccessDenied, Method: "rfid", Reason: "expired card", Timestamp: "2026-10-16T09:00:00.000Z"},
		{ID: "3", UserName: "Admin", DoorID: "d2", DoorName: "Server Room", Action: models.ActionDoorUnlocked, Method: "remote", Timestamp: "2026-10-15T10:00:00.000Z"},
		{ID: "4", UserName: "Ana Souza", DoorID: "d2", DoorName: "Server Room", Action: models.ActionAccessGranted, Method: "rfid", Timestamp: "2026-10-01T10:00:00.000Z"},
		{ID: "5", UserName: "Ana Souza", DoorID: "d1", DoorName: "Lab 1", Action: models.ActionDoorLocked, Method: "remote", Timestamp: "2026-10-16T11:00:00.000Z"},
		{ID: "6", UserName: "Ghost", DoorID: "d1", DoorName: "Lab 1", Action: models.ActionAccessGranted, Timestamp: "not a date"},
	}
}

func TestFilterLogs(t *testing.T) {
	logs := sampleLogs()

	tests := []struct {
		name     string
		filter   LogFilter
		expected []string
	}{
		{"no filter sorts newest first", LogFilter{}, []string{"6", "5", "2", "1", "3", "4"}},
		{"action", LogFilter{Action: "access_granted"}, []string{"6", "1", "4"}},
		{"user substring case insensitive", LogFilter{User: "ana"}, []string{"5", "1", "4"}},
		{"door", LogFilter{Door: "server"}, []string{"3", "4"}},
		{"method", LogFilter{Method: "REMOTE"}, []string{"5", "3"}},
		{
			"time window inclusive",
			LogFilter{
				From: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
				To:   time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
			},
			[]string{"2", "1", "3"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := FilterLogs(logs, test.filter)
			var ids []string
			for _, l := range got {
				ids = append(ids, l.ID)
			}
			if strings.Join(ids, ",") != strings.Join(test.expected, ",") {
				t.Errorf("Expected %v, got %v", test.expected, ids)
			}
		})
	}
}

func TestDailyActivity(t *testing.T) {
	now := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	chart := DailyActivity(sampleLogs(), now, 7)

	if len(chart.Days) != 7 || chart.Days[0] != "2026-10-10" || chart.Days[6] != "2026-10-16" {
		t.Fatalf("Unexpected days: %v", chart.Days)
	}
	if len(chart.Doors) != 2 {
		t.Fatalf("Expected 2 doors, got %+v", chart.Doors)
	}

	lab, server := chart.Doors[0], chart.Doors[1]
	if lab.DoorName != "Lab 1" || lab.Counts[6] != 1 || lab.Total != 1 {
		t.Errorf("Unexpected Lab 1 activity: %+v", lab)
	}
	if server.DoorName != "Server Room" || server.Counts[5] != 1 || server.Total != 1 {
		t.Errorf("Unexpected Server Room activity: %+v", server)
	}
}

func TestTodayCounts(t *testing.T) {
	now := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	stats := TodayCounts(sampleLogs(), now)
	if stats.Total != 3 || stats.Denied != 1 {
		t.Errorf("Expected 3 total and 1 denied, got %+v", stats)
	}
}

func TestWriteCSV(t *testing.T) {
	logs := []models.AccessLog{
		{UserName: `Ana "A"`, DoorName: "Lab, 1", Action: models.ActionAccessDenied, Reason: "expired", Timestamp: "2026-10-16T08:00:00.000Z"},
		{Action: "custom", Timestamp: "2026-10-16T09:00:00.000Z"},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, logs); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	expected := "\ufeffTimestamp,User,Door,Action,Method,Reason\n" +
		"2026-10-16T08:00:00.000Z,\"Ana \"\"A\"\"\",\"Lab, 1\",Access denied,N/A,expired\n" +
		"2026-10-16T09:00:00.000Z,Unknown,Unknown,custom,N/A,\n"
	if buf.String() != expected {
		t.Errorf("Expected:\n%q\ngot:\n%q", expected, buf.String())
	}
}
