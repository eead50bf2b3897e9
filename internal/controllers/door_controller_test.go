package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/models"
	"gorm.io/gorm"
)

func newDoorRouter(conn *gorm.DB, inv *countingInvalidator) *gin.Engine {
	dc := NewDoorController(conn, inv)
	dc.now = func() time.Time { return testNow }
	r := newTestRouter()
	r.POST("/doors", dc.CreateDoor)
	r.PUT("/doors/:id", dc.UpdateDoor)
	r.DELETE("/doors/:id", dc.DeleteDoor)
	r.POST("/doors/:id/lock", dc.LockDoor)
	r.POST("/doors/:id/unlock", dc.UnlockDoor)
	return r
}

func TestUnlockDoorWritesAccessLog(t *testing.T) {
	conn := newTestDB(t)
	conn.Create(&models.Door{ID: "d1", Name: "Lab 1", Status: models.DoorStatusLocked})
	inv := &countingInvalidator{}
	r := newDoorRouter(conn, inv)

	w := doRequest(r, http.MethodPost, "/doors/d1/unlock", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var door models.Door
	conn.First(&door, "id = ?", "d1")
	if door.Status != models.DoorStatusUnlocked {
		t.Errorf("Expected door unlocked, got %q", door.Status)
	}
	if door.LastStatusChange != "2026-10-09T12:00:00.000Z" {
		t.Errorf("Unexpected last_status_change %q", door.LastStatusChange)
	}

	var logs []models.AccessLog
	conn.Find(&logs)
	if len(logs) != 1 {
		t.Fatalf("Expected 1 access log, got %d", len(logs))
	}
	entry := logs[0]
	if entry.Action != models.ActionDoorUnlocked || entry.Method != "remote" ||
		entry.UserName != "Lab Admin" || entry.DoorName != "Lab 1" || entry.Timestamp != door.LastStatusChange {
		t.Errorf("Unexpected access log: %+v", entry)
	}
	if inv.calls.Load() != 1 {
		t.Errorf("Expected 1 invalidation, got %d", inv.calls.Load())
	}
}

func TestLockUnknownDoor(t *testing.T) {
	conn := newTestDB(t)
	inv := &countingInvalidator{}
	r := newDoorRouter(conn, inv)

	if w := doRequest(r, http.MethodPost, "/doors/nope/lock", nil); w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	var count int64
	conn.Model(&models.AccessLog{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no access log, got %d", count)
	}
	if inv.calls.Load() != 0 {
		t.Errorf("Expected no invalidation, got %d", inv.calls.Load())
	}
}

func TestCreateAndUpdateDoor(t *testing.T) {
	conn := newTestDB(t)
	r := newDoorRouter(conn, &countingInvalidator{})

	w := doRequest(r, http.MethodPost, "/doors", map[string]interface{}{"name": "Storage", "status": "ajar"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for invalid status, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, "/doors", map[string]interface{}{"name": "Storage"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created models.Door
	decodeBody(t, w, &created)
	if created.Status != models.DoorStatusLocked {
		t.Errorf("Expected new door to default to locked, got %q", created.Status)
	}

	w = doRequest(r, http.MethodPut, "/doors/"+created.ID, map[string]interface{}{"location": "Building B"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var updated models.Door
	decodeBody(t, w, &updated)
	if updated.Location != "Building B" || updated.Status != models.DoorStatusLocked {
		t.Errorf("Unexpected door after update: %+v", updated)
	}
}
