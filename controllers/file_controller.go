// file: controllers/file_controller.go
package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"CASCTF/config"
	"CASCTF/database"
	"CASCTF/dto"
	"CASCTF/middlewares"
	"CASCTF/models"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

// UploadChallengeFile 管理员上传题目附件（multipart）
func UploadChallengeFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Empty file")
		return
	}
	if file.Size == 0 {
		utils.Error(c, http.StatusBadRequest, "Empty file")
		return
	}

	if err := os.MkdirAll(config.UploadDir(), 0o755); err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to create upload directory")
		return
	}

	originalName := filepath.Base(file.Filename)
	storedName := utils.GenerateStoredName(originalName)
	savePath := filepath.Join(config.UploadDir(), storedName)
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to save file")
		return
	}

	saved := models.ChallengeFile{
		OriginalName: originalName,
		StoredName:   storedName,
		ContentType:  file.Header.Get("Content-Type"),
		FileSize:     file.Size,
	}
	if err := database.DB.Create(&saved).Error; err != nil {
		_ = os.Remove(savePath)
		utils.Error(c, http.StatusInternalServerError, "Failed to save file record")
		return
	}

	utils.Created(c, "File uploaded successfully", dto.ChallengeFileResp{
		ID:           saved.ID,
		OriginalName: saved.OriginalName,
		ContentType:  saved.ContentType,
		FileSize:     saved.FileSize,
	})
}

// DownloadChallengeFile 下载题目附件；隐藏题目的附件仅管理员可下载
func DownloadChallengeFile(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	var challenge models.Challenge
	if err := database.DB.First(&challenge, id).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Challenge not found")
		return
	}
	if !isChallengeAccessible(&challenge, middlewares.CurrentUserRole(c)) {
		utils.Error(c, http.StatusForbidden, "Not allowed")
		return
	}
	if challenge.AttachmentFileID == nil {
		utils.Error(c, http.StatusNotFound, "No attached file")
		return
	}

	var file models.ChallengeFile
	if err := database.DB.First(&file, *challenge.AttachmentFileID).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Attachment file not found")
		return
	}

	savePath := filepath.Join(config.UploadDir(), file.StoredName)
	if _, err := os.Stat(savePath); err != nil {
		utils.Error(c, http.StatusNotFound, "File missing on server")
		return
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.FileAttachment(savePath, file.OriginalName)
}
