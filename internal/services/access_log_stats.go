package services

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/securelab/backend/internal/models"
)

// LogFilter narrows an access-log listing. Zero fields match everything.
type LogFilter struct {
	Action string
	User   string
	Door   string
	Method string
	From   time.Time
	To     time.Time
}

// FilterLogs returns the matching logs, newest first. User, door and method match
// case-insensitively as substrings; the time window is inclusive.
func FilterLogs(logs []models.AccessLog, f LogFilter) []models.AccessLog {
	user := strings.ToLower(strings.TrimSpace(f.User))
	door := strings.ToLower(strings.TrimSpace(f.Door))
	method := strings.ToLower(strings.TrimSpace(f.Method))

	out := make([]models.AccessLog, 0, len(logs))
	for _, l := range logs {
		if f.Action != "" && string(l.Action) != f.Action {
			continue
		}
		if user != "" && !strings.Contains(strings.ToLower(l.UserName), user) && !strings.Contains(strings.ToLower(l.UserID), user) {
			continue
		}
		if door != "" && !strings.Contains(strings.ToLower(l.DoorName), door) && !strings.Contains(strings.ToLower(l.DoorID), door) {
			continue
		}
		if method != "" && !strings.Contains(strings.ToLower(l.Method), method) {
			continue
		}
		if !f.From.IsZero() || !f.To.IsZero() {
			ts, err := models.ParseTimestamp(l.Timestamp)
			if err != nil {
				continue
			}
			if !f.From.IsZero() && ts.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && ts.After(f.To) {
				continue
			}
		}
		out = append(out, l)
	}
	return newestFirst(out, -1)
}

type DoorActivity struct {
	DoorID   string `json:"doorId"`
	DoorName string `json:"doorName"`
	Counts   []int  `json:"counts"`
	Total    int    `json:"total"`
}

// ActivityChart holds per-door daily access counts, days oldest first.
type ActivityChart struct {
	Days  []string       `json:"days"`
	Doors []DoorActivity `json:"doors"`
}

// DailyActivity counts granted accesses and unlocks per door for each of the last days
// (UTC dates, today included).
func DailyActivity(logs []models.AccessLog, now time.Time, days int) ActivityChart {
	if days <= 0 {
		days = 7
	}
	today := now.UTC().Truncate(24 * time.Hour)

	chart := ActivityChart{Days: make([]string, days)}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1).Format("2006-01-02")
		chart.Days[i] = day
		index[day] = i
	}

	byDoor := map[string]*DoorActivity{}
	for _, l := range logs {
		if l.Action != models.ActionAccessGranted && l.Action != models.ActionDoorUnlocked {
			continue
		}
		ts, err := models.ParseTimestamp(l.Timestamp)
		if err != nil {
			continue
		}
		i, ok := index[ts.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}

		key := l.DoorID
		if key == "" {
			key = l.DoorName
		}
		da, ok := byDoor[key]
		if !ok {
			da = &DoorActivity{DoorID: l.DoorID, DoorName: l.DoorName, Counts: make([]int, days)}
			if da.DoorName == "" {
				da.DoorName = key
			}
			byDoor[key] = da
		}
		da.Counts[i]++
		da.Total++
	}

	chart.Doors = make([]DoorActivity, 0, len(byDoor))
	for _, da := range byDoor {
		chart.Doors = append(chart.Doors, *da)
	}
	sort.Slice(chart.Doors, func(i, j int) bool {
		if chart.Doors[i].DoorName != chart.Doors[j].DoorName {
			return chart.Doors[i].DoorName < chart.Doors[j].DoorName
		}
		return chart.Doors[i].DoorID < chart.Doors[j].DoorID
	})
	return chart
}

type TodayStats struct {
	Total  int `json:"total"`
	Denied int `json:"denied"`
}

// TodayCounts counts the logs stamped on now's UTC date.
func TodayCounts(logs []models.AccessLog, now time.Time) TodayStats {
	today := now.UTC().Format("2006-01-02")
	var stats TodayStats
	for _, l := range logs {
		ts, err := models.ParseTimestamp(l.Timestamp)
		if err != nil || ts.UTC().Format("2006-01-02") != today {
			continue
		}
		stats.Total++
		if l.Action == models.ActionAccessDenied {
			stats.Denied++
		}
	}
	return stats
}

var actionLabels = map[models.AccessAction]string{
	models.ActionAccessGranted: "Access granted",
	models.ActionAccessDenied:  "Access denied",
	models.ActionDoorLocked:    "Door locked",
	models.ActionDoorUnlocked:  "Door unlocked",
}

// WriteCSV writes logs with a UTF-8 byte order mark so spreadsheets pick the right encoding.
func WriteCSV(w io.Writer, logs []models.AccessLog) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Timestamp", "User", "Door", "Action", "Method", "Reason"}); err != nil {
		return err
	}
	for _, l := range logs {
		action, ok := actionLabels[l.Action]
		if !ok {
			action = string(l.Action)
		}
		row := []string{
			l.Timestamp,
			valueOr(l.UserName, "Unknown"),
			valueOr(l.DoorName, "Unknown"),
			action,
			valueOr(l.Method, "N/A"),
			l.Reason,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
