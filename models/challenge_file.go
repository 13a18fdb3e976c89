// file: models/challenge_file.go
package models

import (
	"time"
)

// ChallengeFile 题目附件元数据，文件本体存放在 config.UploadDir 下，
// 磁盘文件名使用 StoredName（随机前缀，全局唯一）。
type ChallengeFile struct {
	ID           uint32    `gorm:"primarykey" json:"id"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	StoredName   string    `gorm:"size:255;not null;uniqueIndex" json:"stored_name"`
	ContentType  string    `gorm:"size:255" json:"content_type"`
	FileSize     int64     `gorm:"not null;default:0" json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ChallengeFile) TableName() string {
	return "casctf_challenge_file"
}
