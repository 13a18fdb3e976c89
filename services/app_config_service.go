// file: services/app_config_service.go
package services

import (
	"strings"

	"CASCTF/models"

	"gorm.io/gorm"
)

// 配置单例的唯一读写入口，不允许绕过这里直接查 casctf_app_config。

// GetOrCreateAppConfig 读取 ID=1 的配置行，不存在就创建默认行
func GetOrCreateAppConfig(db *gorm.DB) (*models.AppConfig, error) {
	var cfg models.AppConfig
	err := db.First(&cfg, 1).Error
	if err == nil {
		return &cfg, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	cfg = models.AppConfig{ID: 1, CTFName: "CASCTF"}
	if err := db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsCTFRunning 比赛窗口已配置且当前时间落在窗口内
func IsCTFRunning(db *gorm.DB) bool {
	cfg, err := GetOrCreateAppConfig(db)
	if err != nil {
		return false
	}
	return cfg.IsActive(NowTS())
}

// NormalizeCTFName 压缩空白并截断到 80 字符
func NormalizeCTFName(name string) string {
	normalized := strings.Join(strings.Fields(name), " ")
	if len(normalized) > 80 {
		return normalized[:80]
	}
	return normalized
}
