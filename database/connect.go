// file: database/connect.go
package database

import (
	"log"
	"time"

	"CASCTF/config"
	"CASCTF/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() {
	var err error
	DB, err = gorm.Open(mysql.Open(config.DatabaseDSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB:", err)
	}

	// 连接池配置：SetConnMaxLifetime 低于 MySQL wait_timeout，
	// 避免长时间空闲连接被服务端单方面断开
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection successfully established and connection pool configured.")
}

// MigrateTables 按模型定义自动建表/补列
func MigrateTables() {
	err := DB.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.ChallengeSolve{},
		&models.ChallengeInstance{},
		&models.ChallengeFile{},
		&models.AppConfig{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	log.Println("Database migration completed.")
}

// EnsureDefaults 保证默认管理员账号和配置单例存在
func EnsureDefaults() {
	var admin models.User
	err := DB.Where("username = ?", config.AdminUsername()).First(&admin).Error
	if err == gorm.ErrRecordNotFound {
		admin = models.User{
			Username: config.AdminUsername(),
			Password: config.AdminPassword(),
			Role:     models.RoleAdmin,
		}
		if err := DB.Create(&admin).Error; err != nil {
			log.Fatal("Failed to create default admin user:", err)
		}
		log.Printf("Created default admin user %q", admin.Username)
	} else if err == nil && admin.Role != models.RoleAdmin {
		DB.Model(&admin).Update("role", models.RoleAdmin)
	}

	var cfg models.AppConfig
	if err := DB.First(&cfg, 1).Error; err == gorm.ErrRecordNotFound {
		cfg = models.AppConfig{ID: 1, CTFName: "CASCTF"}
		if err := DB.Create(&cfg).Error; err != nil {
			log.Fatal("Failed to create default app config:", err)
		}
	}
}
