package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/models"
	"gorm.io/gorm"
)

type DoorController struct {
	db       *gorm.DB
	snapshot SnapshotInvalidator
	now      func() time.Time
}

func NewDoorController(db *gorm.DB, snapshot SnapshotInvalidator) *DoorController {
	return &DoorController{db: db, snapshot: snapshot, now: time.Now}
}

type DoorRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
	DeviceID *string `json:"device"`
}

func (r DoorRequest) apply(d *models.Door) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return errors.New("name cannot be empty")
		}
		d.Name = strings.TrimSpace(*r.Name)
	}
	if r.Location != nil {
		d.Location = *r.Location
	}
	if r.Status != nil {
		if *r.Status != models.DoorStatusLocked && *r.Status != models.DoorStatusUnlocked {
			return errors.New("status must be locked or unlocked")
		}
		d.Status = *r.Status
	}
	if r.DeviceID != nil {
		d.DeviceID = *r.DeviceID
	}
	return nil
}

func (dc *DoorController) GetDoors(c *gin.Context) {
	var doors []models.Door
	if err := dc.db.Order("name ASC").Find(&doors).Error; err != nil {
		logger.WithError(err, "door_controller").Error("Failed to fetch doors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch doors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"doors": doors})
}

func (dc *DoorController) GetDoor(c *gin.Context) {
	var door models.Door
	if err := dc.db.First(&door, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Door not found"})
		return
	}
	c.JSON(http.StatusOK, door)
}

func (dc *DoorController) CreateDoor(c *gin.Context) {
	var req DoorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	door := models.Door{Status: models.DoorStatusLocked}
	if err := req.apply(&door); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	door.LastStatusChange = models.FormatTimestamp(dc.now())

	if err := dc.db.Create(&door).Error; err != nil {
		logger.WithError(err, "door_controller").Error("Failed to create door")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create door"})
		return
	}
	dc.snapshot.Invalidate()

	c.JSON(http.StatusCreated, door)
}

func (dc *DoorController) UpdateDoor(c *gin.Context) {
	var req DoorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var door models.Door
	if err := dc.db.First(&door, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Door not found"})
		return
	}
	previous := door.Status
	if err := req.apply(&door); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if door.Status != previous {
		door.LastStatusChange = models.FormatTimestamp(dc.now())
	}

	if err := dc.db.Save(&door).Error; err != nil {
		logger.WithError(err, "door_controller").Error("Failed to update door")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update door"})
		return
	}
	dc.snapshot.Invalidate()

	c.JSON(http.StatusOK, door)
}

func (dc *DoorController) DeleteDoor(c *gin.Context) {
	result := dc.db.Delete(&models.Door{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		logger.WithError(result.Error, "door_controller").Error("Failed to delete door")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete door"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Door not found"})
		return
	}
	dc.snapshot.Invalidate()

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Door deleted successfully"})
}

func (dc *DoorController) LockDoor(c *gin.Context) {
	dc.setDoorStatus(c, models.DoorStatusLocked, models.ActionDoorLocked)
}

func (dc *DoorController) UnlockDoor(c *gin.Context) {
	dc.setDoorStatus(c, models.DoorStatusUnlocked, models.ActionDoorUnlocked)
}

// setDoorStatus changes the door state and records the remote command in the access log
// within one transaction.
func (dc *DoorController) setDoorStatus(c *gin.Context, status string, action models.AccessAction) {
	now := dc.now()
	var door models.Door

	err := dc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&door, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}
		door.Status = status
		door.LastStatusChange = models.FormatTimestamp(now)
		if err := tx.Save(&door).Error; err != nil {
			return err
		}

		entry := models.NewAccessLog(action, now)
		entry.UserID = adminID(c)
		entry.UserName = adminDisplayName(c)
		entry.DoorID = door.ID
		entry.DoorName = door.Name
		entry.Method = "remote"
		return tx.Create(&entry).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Door not found"})
		return
	}
	if err != nil {
		logger.WithError(err, "door_controller").Error("Failed to change door status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change door status"})
		return
	}
	dc.snapshot.Invalidate()

	logger.WithAdmin(adminID(c)).WithFields(map[string]interface{}{
		"door_id": door.ID,
		"status":  status,
	}).Info("Door status changed remotely")

	c.JSON(http.StatusOK, door)
}
