package controllers

import (
	"net/http"
	"testing"

	"github.com/securelab/backend/internal/models"
)

func TestDeviceCRUD(t *testing.T) {
	conn := newTestDB(t)
	inv := &countingInvalidator{}
	dc := NewDeviceController(conn, inv)
	r := newTestRouter()
	r.GET("/devices", dc.GetDevices)
	r.POST("/devices", dc.CreateDevice)
	r.PUT("/devices/:id", dc.UpdateDevice)
	r.DELETE("/devices/:id", dc.DeleteDevice)

	tests := []struct {
		name     string
		body     map[string]interface{}
		expected int
	}{
		{"default status", map[string]interface{}{"name": "Reader A"}, http.StatusCreated},
		{"warning", map[string]interface{}{"name": "Reader B", "status": "warning", "statusMessage": "Weak signal"}, http.StatusCreated},
		{"unknown status", map[string]interface{}{"name": "Reader C", "status": "broken"}, http.StatusBadRequest},
		{"no name", map[string]interface{}{"status": "online"}, http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if w := doRequest(r, http.MethodPost, "/devices", test.body); w.Code != test.expected {
				t.Fatalf("Expected %d, got %d: %s", test.expected, w.Code, w.Body.String())
			}
		})
	}

	var resp struct {
		Devices []models.Device `json:"devices"`
	}
	decodeBody(t, doRequest(r, http.MethodGet, "/devices?status=offline", nil), &resp)
	if len(resp.Devices) != 1 || resp.Devices[0].Name != "Reader A" {
		t.Fatalf("Expected only Reader A offline, got %+v", resp.Devices)
	}

	id := resp.Devices[0].ID
	if w := doRequest(r, http.MethodPut, "/devices/"+id, map[string]interface{}{"status": "online"}); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodDelete, "/devices/"+id, nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	if got := inv.calls.Load(); got != 4 {
		t.Errorf("Expected 4 invalidations, got %d", got)
	}
}
