// file: controllers/config_controller.go
package controllers

import (
	"net/http"

	"CASCTF/database"
	"CASCTF/dto"
	"CASCTF/models"
	"CASCTF/services"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

func toConfigResp(cfg *models.AppConfig) dto.ConfigResp {
	return dto.ConfigResp{
		CTFName:         cfg.CTFName,
		DurationStartTS: cfg.DurationStartTS,
		DurationEndTS:   cfg.DurationEndTS,
		IsActive:        cfg.IsActive(services.NowTS()),
	}
}

// GetPublicConfig 公开配置，未登录也能读
func GetPublicConfig(c *gin.Context) {
	cfg, err := services.GetOrCreateAppConfig(database.DB)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load config")
		return
	}
	utils.Success(c, "success", toConfigResp(cfg))
}

// GetAdminConfig 管理员读取配置
func GetAdminConfig(c *gin.Context) {
	cfg, err := services.GetOrCreateAppConfig(database.DB)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load config")
		return
	}
	utils.Success(c, "success", toConfigResp(cfg))
}

// UpdateConfigGeneral 管理员修改比赛名称
func UpdateConfigGeneral(c *gin.Context) {
	var req dto.ConfigGeneralUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	name := services.NormalizeCTFName(req.CTFName)
	if name == "" {
		utils.Error(c, http.StatusBadRequest, "CTF name cannot be empty.")
		return
	}

	cfg, err := services.GetOrCreateAppConfig(database.DB)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load config")
		return
	}
	cfg.CTFName = name
	if err := database.DB.Save(cfg).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to update config")
		return
	}
	utils.Success(c, "Config updated successfully", toConfigResp(cfg))
}

// UpdateConfigDuration 管理员设置比赛窗口。
// 两个时间戳必须同时提供或同时为空，且 end > start。
func UpdateConfigDuration(c *gin.Context) {
	var req dto.ConfigDurationUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if (req.DurationStartTS == nil) != (req.DurationEndTS == nil) {
		utils.Error(c, http.StatusBadRequest, "Both duration_start_ts and duration_end_ts must be provided together.")
		return
	}
	if req.DurationStartTS != nil && *req.DurationStartTS >= *req.DurationEndTS {
		utils.Error(c, http.StatusBadRequest, "duration_end_ts must be greater than duration_start_ts.")
		return
	}

	cfg, err := services.GetOrCreateAppConfig(database.DB)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load config")
		return
	}
	cfg.DurationStartTS = req.DurationStartTS
	cfg.DurationEndTS = req.DurationEndTS
	if err := database.DB.Save(cfg).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to update config")
		return
	}
	utils.Success(c, "Config updated successfully", toConfigResp(cfg))
}
