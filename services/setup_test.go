package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"angeleyes-http-service/config"
	"angeleyes-http-service/models"
)

// setupTestDB opens an isolated in-memory database for one test.
// TranslateError is on so duplicate-key failures surface as
// gorm.ErrDuplicatedKey, same as the production setup.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Baby{},
		&models.Caregiver{},
		&models.EmergencyContact{},
		&models.Milestone{},
		&models.MonitoringSession{},
		&models.SessionAlert{},
		&models.SessionDevice{},
		&models.Detection{},
		&models.DetectionAlert{},
		&models.EscalationRecord{},
	))

	return db
}

// family is a seeded household: a parent, a caregiver who receives
// alerts, a sitter who does not, and an unrelated user.
type family struct {
	Parent    models.User
	Caregiver models.User
	Sitter    models.User
	Stranger  models.User
	Baby      models.Baby
}

// seedFamily inserts the standard household used across service tests
func seedFamily(t *testing.T, db *gorm.DB) *family {
	t.Helper()

	f := &family{
		Parent:    models.User{FirstName: "Alice", LastName: "Miller", Email: "alice@example.com", Password: "secret123"},
		Caregiver: models.User{FirstName: "Grace", LastName: "Miller", Email: "grace@example.com", Password: "secret123"},
		Sitter:    models.User{FirstName: "Nina", LastName: "Jones", Email: "nina@example.com", Password: "secret123"},
		Stranger:  models.User{FirstName: "Sam", LastName: "Smith", Email: "sam@example.com", Password: "secret123"},
	}
	require.NoError(t, db.Create(&f.Parent).Error)
	require.NoError(t, db.Create(&f.Caregiver).Error)
	require.NoError(t, db.Create(&f.Sitter).Error)
	require.NoError(t, db.Create(&f.Stranger).Error)

	f.Baby = models.Baby{
		FirstName:   "Emma",
		LastName:    "Miller",
		DateOfBirth: time.Now().AddDate(0, -6, 0),
		Gender:      models.GenderFemale,
		IsActive:    true,
	}
	require.NoError(t, db.Create(&f.Baby).Error)
	require.NoError(t, db.Model(&f.Baby).Association("Parents").Append(&f.Parent))

	caregivers := []models.Caregiver{
		{
			BabyID: f.Baby.ID,
			UserID: f.Caregiver.ID,
			Role:   models.RoleGrandparent,
			Permissions: models.PermissionSet{
				ViewLiveStream: true,
				ReceiveAlerts:  true,
			},
			AddedAt: time.Now(),
		},
		{
			BabyID: f.Baby.ID,
			UserID: f.Sitter.ID,
			Role:   models.RoleNanny,
			Permissions: models.PermissionSet{
				ViewLiveStream: true,
			},
			AddedAt: time.Now(),
		},
	}
	require.NoError(t, db.Create(&caregivers).Error)

	// Reload so the parent set and embedded caregivers carry their IDs
	require.NoError(t, db.Preload("Parents").Preload("Caregivers").First(&f.Baby, f.Baby.ID).Error)

	return f
}

// recordingPush is a push delivery stub that records recipients
type recordingPush struct {
	mu    sync.Mutex
	users []uint
}

func (p *recordingPush) Connect() error { return nil }
func (p *recordingPush) Disconnect()    {}
func (p *recordingPush) IsAvailable() bool {
	return true
}

func (p *recordingPush) PushAlertToUser(userID uint, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	return nil
}

func (p *recordingPush) PushSystemMessage(messageType string, message map[string]interface{}) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{JWTSecretKey: "test-secret-key"}
}
