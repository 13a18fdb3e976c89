// file: dto/challenge.go
package dto

import "strings"

// ========== 请求 DTO ==========

type ChallengeUpsertReq struct {
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	Difficulty       string  `json:"difficulty"`
	Message          string  `json:"message"`
	Point            int     `json:"point"`
	State            string  `json:"state"`      // Visible / Hidden
	ScoreType        string  `json:"score_type"` // basic / dynamic
	DynamicMinPoint  int     `json:"dynamic_min_point"`
	DynamicDecay     int     `json:"dynamic_decay"`
	Flag             *string `json:"flag"`
	AttachmentFileID *uint32 `json:"attachment_file_id"`
	DockerEnabled    bool    `json:"docker_enabled"`
	DockerTemplateID *string `json:"docker_template_id"`
}

// Normalize 清洗输入并填默认值
func (r *ChallengeUpsertReq) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Message = strings.TrimSpace(r.Message)
	if r.Flag != nil {
		trimmed := strings.TrimSpace(*r.Flag)
		r.Flag = &trimmed
	}
	if r.Difficulty == "" {
		r.Difficulty = "NORMAL"
	}
	if r.State == "" {
		r.State = "Visible"
	}
	if r.ScoreType == "" {
		r.ScoreType = "basic"
	}
	if r.DynamicMinPoint == 0 {
		r.DynamicMinPoint = 100
	}
	if r.DynamicDecay == 0 {
		r.DynamicDecay = 50
	}
	if r.DockerTemplateID != nil {
		trimmed := strings.TrimSpace(*r.DockerTemplateID)
		if trimmed == "" {
			r.DockerTemplateID = nil
		} else {
			r.DockerTemplateID = &trimmed
		}
	}
}

type FlagSubmitReq struct {
	Flag string `json:"flag" binding:"required"`
}

// ========== 响应 DTO ==========

type ChallengeItemResp struct {
	ID                 uint32  `json:"id"`
	Name               string  `json:"name"`
	Category           string  `json:"category"`
	Difficulty         string  `json:"difficulty"`
	Message            string  `json:"message"`
	Point              int     `json:"point"`
	ScoreType          string  `json:"score_type"`
	AttachmentFileID   *uint32 `json:"attachment_file_id"`
	AttachmentFileName *string `json:"attachment_file_name"`
	DockerEnabled      bool    `json:"docker_enabled"`
}

type ChallengeAdminItemResp struct {
	ChallengeItemResp
	State            string  `json:"state"`
	Flag             string  `json:"flag"`
	DynamicMinPoint  int     `json:"dynamic_min_point"`
	DynamicDecay     int     `json:"dynamic_decay"`
	DockerTemplateID *string `json:"docker_template_id"`
}

type ServerAccessResp struct {
	ChallengeID      uint32 `json:"challenge_id"`
	Host             string `json:"host"`
	Port             int    `json:"port"`
	URL              string `json:"url"`
	ExpiresAtTS      int64  `json:"expires_at_ts"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Reused           bool   `json:"reused"`
}

type DockerTemplateResp struct {
	TemplateID           string   `json:"template_id"`
	Services             []string `json:"services"`
	DefaultService       string   `json:"default_service"`
	DefaultContainerPort int      `json:"default_container_port"`
}

type ChallengeFileResp struct {
	ID           uint32 `json:"id"`
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type"`
	FileSize     int64  `json:"file_size"`
}
