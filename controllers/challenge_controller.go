// file: controllers/challenge_controller.go
package controllers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"CASCTF/config"
	"CASCTF/database"
	"CASCTF/dto"
	"CASCTF/middlewares"
	"CASCTF/models"
	"CASCTF/services"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

// 难度排序：NORMAL 在前，HARD 其次，其余靠后
const difficultyOrder = "CASE difficulty WHEN 'NORMAL' THEN 0 WHEN 'HARD' THEN 1 ELSE 2 END asc, id asc"

// isChallengeAccessible 可见题目人人可访问，隐藏题目仅管理员可见
func isChallengeAccessible(challenge *models.Challenge, role models.UserRole) bool {
	return challenge.State == models.ChallengeStateVisible || role == models.RoleAdmin
}

// attachFileNames 把附件原始文件名批量补到响应条目上
func attachFileNames(items []dto.ChallengeItemResp) {
	fileIDs := make([]uint32, 0)
	for _, item := range items {
		if item.AttachmentFileID != nil {
			fileIDs = append(fileIDs, *item.AttachmentFileID)
		}
	}
	if len(fileIDs) == 0 {
		return
	}

	var files []models.ChallengeFile
	database.DB.Where("id IN ?", fileIDs).Find(&files)
	fileNames := make(map[uint32]string, len(files))
	for _, f := range files {
		fileNames[f.ID] = f.OriginalName
	}
	for i := range items {
		if items[i].AttachmentFileID != nil {
			if name, ok := fileNames[*items[i].AttachmentFileID]; ok {
				n := name
				items[i].AttachmentFileName = &n
			}
		}
	}
}

func toItemResp(ch *models.Challenge) dto.ChallengeItemResp {
	return dto.ChallengeItemResp{
		ID:               ch.ID,
		Name:             ch.Name,
		Category:         ch.Category,
		Difficulty:       string(ch.Difficulty),
		Message:          ch.Message,
		Point:            ch.Point,
		ScoreType:        string(ch.ScoreType),
		AttachmentFileID: ch.AttachmentFileID,
		DockerEnabled:    ch.DockerEnabled,
	}
}

func toAdminItemResp(ch *models.Challenge) dto.ChallengeAdminItemResp {
	return dto.ChallengeAdminItemResp{
		ChallengeItemResp: toItemResp(ch),
		State:             string(ch.State),
		Flag:              ch.Flag,
		DynamicMinPoint:   ch.DynamicMinPoint,
		DynamicDecay:      ch.DynamicDecay,
		DockerTemplateID:  ch.DockerTemplateID,
	}
}

// ListChallenges 选手可见的题目列表
func ListChallenges(c *gin.Context) {
	var challenges []models.Challenge
	if err := database.DB.
		Where("state = ?", models.ChallengeStateVisible).
		Order(difficultyOrder).
		Find(&challenges).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Query failed")
		return
	}

	items := make([]dto.ChallengeItemResp, 0, len(challenges))
	for i := range challenges {
		items = append(items, toItemResp(&challenges[i]))
	}
	attachFileNames(items)

	utils.Success(c, "success", items)
}

// AdminListChallenges 管理员题目列表，含隐藏题和 Flag
func AdminListChallenges(c *gin.Context) {
	var challenges []models.Challenge
	if err := database.DB.Order("id asc").Find(&challenges).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Query failed")
		return
	}

	items := make([]dto.ChallengeAdminItemResp, 0, len(challenges))
	plain := make([]dto.ChallengeItemResp, 0, len(challenges))
	for i := range challenges {
		items = append(items, toAdminItemResp(&challenges[i]))
		plain = append(plain, items[i].ChallengeItemResp)
	}
	attachFileNames(plain)
	for i := range items {
		items[i].AttachmentFileName = plain[i].AttachmentFileName
	}

	utils.Success(c, "success", items)
}

// ListChallengeDockerTemplates 管理员查询可用的容器模板
func ListChallengeDockerTemplates(c *gin.Context) {
	templates := services.ListDockerTemplates()
	items := make([]dto.DockerTemplateResp, 0, len(templates))
	for _, t := range templates {
		items = append(items, dto.DockerTemplateResp{
			TemplateID:           t.TemplateID,
			Services:             t.Services,
			DefaultService:       t.DefaultService,
			DefaultContainerPort: t.DefaultContainerPort,
		})
	}
	utils.Success(c, "success", items)
}

// ListMySolvedChallengeIDs 当前用户已解出的题目 ID 列表
func ListMySolvedChallengeIDs(c *gin.Context) {
	var ids []uint32
	database.DB.Model(&models.ChallengeSolve{}).
		Where("user_id = ?", middlewares.CurrentUserID(c)).
		Order("id asc").
		Pluck("challenge_id", &ids)
	if ids == nil {
		ids = []uint32{}
	}
	utils.Success(c, "success", ids)
}

// validateUpsertReq 创建/更新共用的校验；返回 false 时已写好错误响应
func validateUpsertReq(c *gin.Context, req *dto.ChallengeUpsertReq) bool {
	if req.Name == "" || req.Category == "" {
		utils.Error(c, http.StatusBadRequest, "name and category are required")
		return false
	}
	if req.Point < 1 || req.Point > 10000 {
		utils.Error(c, http.StatusBadRequest, "point must be between 1 and 10000")
		return false
	}
	if req.ScoreType != string(models.ScoreTypeBasic) && req.ScoreType != string(models.ScoreTypeDynamic) {
		utils.Error(c, http.StatusBadRequest, "score_type must be basic or dynamic")
		return false
	}
	if req.State != string(models.ChallengeStateVisible) && req.State != string(models.ChallengeStateHidden) {
		utils.Error(c, http.StatusBadRequest, "state must be Visible or Hidden")
		return false
	}
	if req.DynamicMinPoint > req.Point {
		utils.Error(c, http.StatusBadRequest, "dynamic_min_point must not exceed point")
		return false
	}

	if req.AttachmentFileID != nil {
		var file models.ChallengeFile
		if err := database.DB.First(&file, *req.AttachmentFileID).Error; err != nil {
			utils.Error(c, http.StatusBadRequest, "Attachment file not found")
			return false
		}
	}

	if req.DockerEnabled {
		if req.DockerTemplateID == nil {
			utils.Error(c, http.StatusBadRequest, "docker_template_id is required when docker_enabled=true")
			return false
		}
		template, err := services.GetDockerTemplate(*req.DockerTemplateID)
		if err != nil || template == nil {
			utils.Error(c, http.StatusBadRequest, "Selected docker template was not found")
			return false
		}
		if template.DefaultService == "" || template.DefaultContainerPort == 0 {
			utils.Error(c, http.StatusBadRequest, "Selected docker template has no detectable service port")
			return false
		}
	} else {
		req.DockerTemplateID = nil
	}
	return true
}

func applyUpsertReq(target *models.Challenge, req *dto.ChallengeUpsertReq) {
	target.Name = req.Name
	target.Category = req.Category
	target.Difficulty = models.ChallengeDifficulty(req.Difficulty)
	target.Message = req.Message
	target.Point = req.Point
	target.State = models.ChallengeState(req.State)
	target.ScoreType = models.ChallengeScoreType(req.ScoreType)
	target.DynamicMinPoint = req.DynamicMinPoint
	target.DynamicDecay = req.DynamicDecay
	target.AttachmentFileID = req.AttachmentFileID
	target.DockerEnabled = req.DockerEnabled
	target.DockerTemplateID = req.DockerTemplateID
	if req.Flag != nil {
		target.Flag = *req.Flag
	}
}

// CreateChallenge 管理员创建题目
func CreateChallenge(c *gin.Context) {
	var req dto.ChallengeUpsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	req.Normalize()
	if !validateUpsertReq(c, &req) {
		return
	}

	var challenge models.Challenge
	applyUpsertReq(&challenge, &req)
	if err := database.DB.Create(&challenge).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to create challenge: "+err.Error())
		return
	}

	utils.Created(c, "Challenge created successfully", toAdminItemResp(&challenge))
}

// UpdateChallenge 管理员编辑题目
func UpdateChallenge(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	var challenge models.Challenge
	if err := database.DB.First(&challenge, id).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Challenge not found")
		return
	}

	var req dto.ChallengeUpsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	req.Normalize()
	if !validateUpsertReq(c, &req) {
		return
	}

	applyUpsertReq(&challenge, &req)
	if err := database.DB.Save(&challenge).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to update challenge: "+err.Error())
		return
	}

	utils.Success(c, "Challenge updated successfully", toAdminItemResp(&challenge))
}

// DeleteChallenge 管理员删除题目，级联清理实例、解题记录和附件。
// 附件只有在没有其他题目引用时才一并删除。
func DeleteChallenge(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	var challenge models.Challenge
	if err := database.DB.First(&challenge, id).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Challenge not found")
		return
	}

	attachmentFileID := challenge.AttachmentFileID
	hasOtherReference := false
	if attachmentFileID != nil {
		var count int64
		database.DB.Model(&models.Challenge{}).
			Where("attachment_file_id = ? AND id <> ?", *attachmentFileID, challenge.ID).
			Count(&count)
		hasOtherReference = count > 0
	}

	var instances []models.ChallengeInstance
	database.DB.Where("challenge_id = ?", challenge.ID).Order("id asc").Find(&instances)
	for i := range instances {
		services.DeleteInstance(database.DB, &instances[i])
	}

	database.DB.Where("challenge_id = ?", challenge.ID).Delete(&models.ChallengeSolve{})
	if err := database.DB.Delete(&challenge).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to delete challenge: "+err.Error())
		return
	}

	if attachmentFileID != nil && !hasOtherReference {
		var file models.ChallengeFile
		if err := database.DB.First(&file, *attachmentFileID).Error; err == nil {
			savePath := filepath.Join(config.UploadDir(), file.StoredName)
			// 磁盘清理失败不阻塞删除流程
			if err := os.Remove(savePath); err != nil && !os.IsNotExist(err) {
				log.Printf("Warning: failed to remove attachment file %s: %v", savePath, err)
			}
			database.DB.Delete(&file)
		}
	}

	utils.NoContent(c)
}
