// file: models/challenge.go
package models

import (
	"time"
)

type ChallengeState string
type ChallengeScoreType string
type ChallengeDifficulty string

const (
	ChallengeStateVisible ChallengeState = "Visible"
	ChallengeStateHidden  ChallengeState = "Hidden"

	ScoreTypeBasic   ChallengeScoreType = "basic"
	ScoreTypeDynamic ChallengeScoreType = "dynamic"

	ChallengeDifficultyNormal ChallengeDifficulty = "NORMAL"
	ChallengeDifficultyHard   ChallengeDifficulty = "HARD"
)

type Challenge struct {
	ID         uint32              `gorm:"primarykey" json:"id"`
	Name       string              `gorm:"size:100;not null;index" json:"name"`
	Category   string              `gorm:"size:50;not null;index" json:"category"`
	Message    string              `gorm:"type:text;not null" json:"message"`
	Point      int                 `gorm:"not null;default:100" json:"point"`
	Difficulty ChallengeDifficulty `gorm:"size:20;not null;default:'NORMAL'" json:"difficulty"`
	State      ChallengeState      `gorm:"size:20;not null;default:'Visible'" json:"state"`
	ScoreType  ChallengeScoreType  `gorm:"size:20;not null;default:'basic'" json:"score_type"`
	// 动态计分参数：分值随解题人数向 DynamicMinPoint 衰减
	DynamicMinPoint int `gorm:"not null;default:100" json:"dynamic_min_point"`
	DynamicDecay    int `gorm:"not null;default:50" json:"dynamic_decay"`
	// Flag 为空表示暂不可提交
	Flag             string  `gorm:"size:255;not null;default:''" json:"-"`
	AttachmentFileID *uint32 `json:"attachment_file_id"`
	DockerEnabled    bool    `gorm:"not null;default:false" json:"docker_enabled"`
	// backend 模板目录 {DockerTemplateID}/docker-compose.yml
	DockerTemplateID *string   `gorm:"size:100" json:"docker_template_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Challenge) TableName() string {
	return "casctf_challenge"
}
