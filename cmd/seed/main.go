package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/db"
	"github.com/securelab/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminData represents an admin account in the seed file
type AdminData struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// DoorData references its reader by device name
type DoorData struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Device   string `json:"device"`
}

// SeedData represents the structure of the JSON file
type SeedData struct {
	Admins  []AdminData         `json:"admins"`
	Users   []models.AccessUser `json:"users"`
	Devices []models.Device     `json:"devices"`
	Doors   []DoorData          `json:"doors"`
}

var accessMethods = []string{"rfid", "rfid", "rfid", "pin"}

func main() {
	file := flag.String("file", "data/initial-data.json", "seed data file")
	logDays := flag.Int("log-days", 7, "days of synthetic access logs to generate")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(conn); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Fatalf("Failed to parse seed file: %v", err)
	}

	log.Println("Seeding database with sample data...")
	seedAdmins(conn, data.Admins)
	users := seedUsers(conn, data.Users)
	devices := seedDevices(conn, data.Devices)
	doors := seedDoors(conn, data.Doors, devices)
	seedLogs(conn, users, doors, *logDays)

	log.Println("✅ Database seeding completed successfully!")
}

func seedAdmins(conn *gorm.DB, admins []AdminData) {
	for _, a := range admins {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Error hashing password for %s: %v", a.Email, err)
			continue
		}

		admin := models.Admin{
			Email:       strings.ToLower(a.Email),
			Password:    string(hashedPassword),
			DisplayName: a.DisplayName,
		}

		var existing models.Admin
		if err := conn.Where("email = ?", admin.Email).First(&existing).Error; err == nil {
			log.Printf("⚠️  Admin already exists: %s", admin.Email)
			continue
		}
		if err := conn.Create(&admin).Error; err != nil {
			log.Printf("Error creating admin %s: %v", admin.Email, err)
			continue
		}
		log.Printf("✅ Created admin: %s", admin.Email)
	}
}

func seedUsers(conn *gorm.DB, users []models.AccessUser) []models.AccessUser {
	var out []models.AccessUser
	for _, u := range users {
		var existing models.AccessUser
		if err := conn.Where("rfid_tag = ?", u.RFIDTag).First(&existing).Error; err == nil {
			out = append(out, existing)
			continue
		}
		if err := conn.Create(&u).Error; err != nil {
			log.Printf("Error creating user %s: %v", u.Name, err)
			continue
		}
		log.Printf("✅ Created user: %s", u.Name)
		out = append(out, u)
	}
	return out
}

func seedDevices(conn *gorm.DB, devices []models.Device) map[string]models.Device {
	byName := make(map[string]models.Device, len(devices))
	for _, d := range devices {
		var existing models.Device
		if err := conn.Where("name = ?", d.Name).First(&existing).Error; err == nil {
			byName[existing.Name] = existing
			continue
		}
		if d.Status == models.DeviceStatusOnline {
			d.LastOnline = models.FormatTimestamp(time.Now())
		}
		if err := conn.Create(&d).Error; err != nil {
			log.Printf("Error creating device %s: %v", d.Name, err)
			continue
		}
		log.Printf("✅ Created device: %s", d.Name)
		byName[d.Name] = d
	}
	return byName
}

func seedDoors(conn *gorm.DB, doors []DoorData, devices map[string]models.Device) []models.Door {
	var out []models.Door
	for _, d := range doors {
		var existing models.Door
		if err := conn.Where("name = ?", d.Name).First(&existing).Error; err == nil {
			out = append(out, existing)
			continue
		}
		door := models.Door{
			Name:             d.Name,
			Location:         d.Location,
			Status:           d.Status,
			DeviceID:         devices[d.Device].ID,
			LastStatusChange: models.FormatTimestamp(time.Now()),
		}
		if err := conn.Create(&door).Error; err != nil {
			log.Printf("Error creating door %s: %v", d.Name, err)
			continue
		}
		log.Printf("✅ Created door: %s", door.Name)
		out = append(out, door)
	}
	return out
}

// seedLogs generates a few access events per door and day. Unauthorized or inactive
// users are denied.
func seedLogs(conn *gorm.DB, users []models.AccessUser, doors []models.Door, days int) {
	if len(users) == 0 || len(doors) == 0 || days <= 0 {
		return
	}

	var count int64
	conn.Model(&models.AccessLog{}).Count(&count)
	if count > 0 {
		log.Printf("⚠️  Access logs already present (%d), skipping", count)
		return
	}

	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()
	var entries []models.AccessLog
	for day := days - 1; day >= 0; day-- {
		base := now.Truncate(24*time.Hour).AddDate(0, 0, -day)
		for _, door := range doors {
			events := 2 + rng.Intn(5)
			for i := 0; i < events; i++ {
				user := users[rng.Intn(len(users))]
				at := base.Add(time.Duration(7+rng.Intn(12))*time.Hour + time.Duration(rng.Intn(3600))*time.Second)
				if at.After(now) {
					continue
				}

				action := models.ActionAccessGranted
				reason := ""
				if !user.IsAuthorized || user.Status != models.UserStatusActive {
					action = models.ActionAccessDenied
					reason = "Card not authorized"
				}

				entry := models.NewAccessLog(action, at)
				entry.UserID = user.ID
				entry.UserName = user.Name
				entry.DoorID = door.ID
				entry.DoorName = door.Name
				entry.Method = accessMethods[rng.Intn(len(accessMethods))]
				entry.Reason = reason
				entries = append(entries, entry)
			}
		}
	}

	if err := conn.CreateInBatches(entries, 100).Error; err != nil {
		log.Printf("Error creating access logs: %v", err)
		return
	}
	log.Printf("✅ Created %d access logs", len(entries))
}
