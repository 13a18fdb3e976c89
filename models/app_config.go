// file: models/app_config.go
package models

import (
	"time"
)

// AppConfig 全局配置单例，约定只使用 ID = 1 这一行，
// 读写都经过 services.GetOrCreateAppConfig。
type AppConfig struct {
	ID      uint32 `gorm:"primarykey" json:"id"`
	CTFName string `gorm:"size:80;not null;default:'CASCTF'" json:"ctf_name"`
	// 两个时间戳要么都设置要么都为空；都设置且 now ∈ [start, end) 时比赛进行中
	DurationStartTS *int64    `json:"duration_start_ts"`
	DurationEndTS   *int64    `json:"duration_end_ts"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (AppConfig) TableName() string {
	return "casctf_app_config"
}

// IsActive 判断比赛是否正在进行
func (c *AppConfig) IsActive(nowTS int64) bool {
	if c.DurationStartTS == nil || c.DurationEndTS == nil {
		return false
	}
	return *c.DurationStartTS <= nowTS && nowTS < *c.DurationEndTS
}
