package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/models"
	"gorm.io/gorm"
)

type DeviceController struct {
	db       *gorm.DB
	snapshot SnapshotInvalidator
}

func NewDeviceController(db *gorm.DB, snapshot SnapshotInvalidator) *DeviceController {
	return &DeviceController{db: db, snapshot: snapshot}
}

type DeviceRequest struct {
	Name            *string `json:"name"`
	Type            *string `json:"type"`
	Location        *string `json:"location"`
	Status          *string `json:"status"`
	StatusMessage   *string `json:"statusMessage"`
	FirmwareVersion *string `json:"firmware_version"`
	IP              *string `json:"ip"`
	MAC             *string `json:"mac"`
	LastOnline      *string `json:"last_online"`
}

func validDeviceStatus(status string) bool {
	switch status {
	case models.DeviceStatusOnline, models.DeviceStatusOffline, models.DeviceStatusWarning:
		return true
	}
	return false
}

func (r DeviceRequest) apply(d *models.Device) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return errors.New("name cannot be empty")
		}
		d.Name = strings.TrimSpace(*r.Name)
	}
	if r.Type != nil {
		d.Type = *r.Type
	}
	if r.Location != nil {
		d.Location = *r.Location
	}
	if r.Status != nil {
		if !validDeviceStatus(*r.Status) {
			return errors.New("status must be online, offline or warning")
		}
		d.Status = *r.Status
	}
	if r.StatusMessage != nil {
		d.StatusMessage = *r.StatusMessage
	}
	if r.FirmwareVersion != nil {
		d.FirmwareVersion = *r.FirmwareVersion
	}
	if r.IP != nil {
		d.IP = *r.IP
	}
	if r.MAC != nil {
		d.MAC = *r.MAC
	}
	if r.LastOnline != nil {
		d.LastOnline = *r.LastOnline
	}
	return nil
}

func (dc *DeviceController) GetDevices(c *gin.Context) {
	query := dc.db.Model(&models.Device{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var devices []models.Device
	if err := query.Order("name ASC").Find(&devices).Error; err != nil {
		logger.WithError(err, "device_controller").Error("Failed to fetch devices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch devices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (dc *DeviceController) GetDevice(c *gin.Context) {
	var device models.Device
	if err := dc.db.First(&device, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	c.JSON(http.StatusOK, device)
}

func (dc *DeviceController) CreateDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	device := models.Device{Status: models.DeviceStatusOffline}
	if err := req.apply(&device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := dc.db.Create(&device).Error; err != nil {
		logger.WithError(err, "device_controller").Error("Failed to create device")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create device"})
		return
	}
	dc.snapshot.Invalidate()

	c.JSON(http.StatusCreated, device)
}

func (dc *DeviceController) UpdateDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var device models.Device
	if err := dc.db.First(&device, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	if err := req.apply(&device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := dc.db.Save(&device).Error; err != nil {
		logger.WithError(err, "device_controller").Error("Failed to update device")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update device"})
		return
	}
	dc.snapshot.Invalidate()

	c.JSON(http.StatusOK, device)
}

func (dc *DeviceController) DeleteDevice(c *gin.Context) {
	result := dc.db.Delete(&models.Device{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		logger.WithError(result.Error, "device_controller").Error("Failed to delete device")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete device"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	dc.snapshot.Invalidate()

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Device deleted successfully"})
}
