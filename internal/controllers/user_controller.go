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

// UserController manages card holders.
type UserController struct {
	db       *gorm.DB
	snapshot SnapshotInvalidator
}

func NewUserController(db *gorm.DB, snapshot SnapshotInvalidator) *UserController {
	return &UserController{db: db, snapshot: snapshot}
}

// UserRequest is used for create and partial update; nil fields are left untouched.
type UserRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Department   *string `json:"department"`
	Role         *string `json:"role"`
	Status       *string `json:"status"`
	RFIDTag      *string `json:"rfid_tag"`
	IsAuthorized *bool   `json:"isAuthorized"`
}

func (r UserRequest) apply(u *models.AccessUser) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return errors.New("name cannot be empty")
		}
		u.Name = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Department != nil {
		u.Department = *r.Department
	}
	if r.Role != nil {
		u.Role = *r.Role
	}
	if r.Status != nil {
		status := models.UserStatus(*r.Status)
		if status != models.UserStatusActive && status != models.UserStatusInactive {
			return errors.New("status must be active or inactive")
		}
		u.Status = status
	}
	if r.RFIDTag != nil {
		u.RFIDTag = strings.TrimSpace(*r.RFIDTag)
	}
	if r.IsAuthorized != nil {
		u.IsAuthorized = *r.IsAuthorized
	}
	return nil
}

func (uc *UserController) GetUsers(c *gin.Context) {
	page, limit := pagination(c)
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))

	query := uc.db.Model(&models.AccessUser{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(department) LIKE ? OR LOWER(rfid_tag) LIKE ?",
			like, like, like, like)
	}

	var total int64
	query.Count(&total)

	var users []models.AccessUser
	if err := query.Order("name ASC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		logger.WithError(err, "user_controller").Error("Failed to fetch users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (uc *UserController) GetUser(c *gin.Context) {
	var user models.AccessUser
	if err := uc.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uc *UserController) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	user := models.AccessUser{Status: models.UserStatusActive, IsAuthorized: true}
	if err := req.apply(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := uc.db.Create(&user).Error; err != nil {
		logger.WithError(err, "user_controller").Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	uc.snapshot.Invalidate()

	logger.WithAdmin(adminID(c)).WithField("user_id", user.ID).Info("User created")
	c.JSON(http.StatusCreated, user)
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.AccessUser
	if err := uc.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err := req.apply(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := uc.db.Save(&user).Error; err != nil {
		logger.WithError(err, "user_controller").Error("Failed to update user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	uc.snapshot.Invalidate()

	c.JSON(http.StatusOK, user)
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	result := uc.db.Delete(&models.AccessUser{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		logger.WithError(result.Error, "user_controller").Error("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	uc.snapshot.Invalidate()

	logger.WithAdmin(adminID(c)).WithField("user_id", c.Param("id")).Info("User deleted")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}
