// file: services/testutil_test.go
package services

import (
	"path/filepath"
	"testing"

	"CASCTF/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB 每个测试用独立的 SQLite 文件库，结构与生产模型一致
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "casctf_test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.ChallengeSolve{},
		&models.ChallengeInstance{},
		&models.ChallengeFile{},
		&models.AppConfig{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "password123", Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func createTestChallenge(t *testing.T, db *gorm.DB, name string, point int, scoreType models.ChallengeScoreType) *models.Challenge {
	t.Helper()
	challenge := &models.Challenge{
		Name:            name,
		Category:        "misc",
		Message:         "test challenge",
		Point:           point,
		ScoreType:       scoreType,
		DynamicMinPoint: 100,
		DynamicDecay:    50,
		State:           models.ChallengeStateVisible,
		Flag:            "CASCTF{" + name + "}",
	}
	if err := db.Create(challenge).Error; err != nil {
		t.Fatalf("failed to create challenge %s: %v", name, err)
	}
	return challenge
}
