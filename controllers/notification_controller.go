// file: controllers/notification_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"CASCTF/database"
	"CASCTF/dto"
	"CASCTF/models"
	"CASCTF/services"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

func notificationLimit(c *gin.Context, def, max int) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if limit < 1 || limit > max {
		limit = def
	}
	return limit
}

// ListNotifications 公开的通知列表。
// 带 after_id 时只返回更新的通知（升序），用于前端轮询增量拉取。
func ListNotifications(c *gin.Context) {
	limit := notificationLimit(c, 100, 500)

	var items []models.Notification
	if afterIDStr := c.Query("after_id"); afterIDStr != "" {
		afterID, _ := strconv.Atoi(afterIDStr)
		database.DB.Where("id > ?", afterID).Order("id asc").Limit(limit).Find(&items)
	} else {
		database.DB.Order("id desc").Limit(limit).Find(&items)
	}

	utils.Success(c, "success", items)
}

// AdminListNotifications 管理员通知列表
func AdminListNotifications(c *gin.Context) {
	limit := notificationLimit(c, 200, 1000)

	var items []models.Notification
	database.DB.Order("id desc").Limit(limit).Find(&items)
	utils.Success(c, "success", items)
}

// CreateNotification 管理员发布通知
func CreateNotification(c *gin.Context) {
	var req dto.NotificationCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.NoticeType == "" {
		req.NoticeType = string(models.NoticeTypeToast)
	}

	usernameAny, _ := c.Get("username")
	username, _ := usernameAny.(string)

	item := models.Notification{
		Title:      req.Title,
		Content:    req.Content,
		NoticeType: models.NoticeType(req.NoticeType),
		PlaySound:  req.PlaySound,
		CreatedBy:  username,
		CreatedTS:  services.NowTS(),
	}
	if err := database.DB.Create(&item).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to create notification")
		return
	}
	utils.Created(c, "Notification created successfully", item)
}

// ClearNotifications 管理员清空全部通知
func ClearNotifications(c *gin.Context) {
	result := database.DB.Where("1 = 1").Delete(&models.Notification{})
	if result.Error != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to clear notifications")
		return
	}
	utils.Success(c, "Notifications cleared", gin.H{"deleted": result.RowsAffected})
}
