// file: controllers/flag_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"CASCTF/database"
	"CASCTF/dto"
	"CASCTF/middlewares"
	"CASCTF/models"
	"CASCTF/services"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

// SubmitFlag 提交 Flag。前置条件：比赛进行中、题目可访问、Flag 已配置。
// 判定和血奖逻辑见 services.SubmitFlag。
func SubmitFlag(c *gin.Context) {
	if !services.IsCTFRunning(database.DB) {
		utils.Error(c, http.StatusForbidden, "CTF is not currently running.")
		return
	}

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
	if challenge.Flag == "" {
		utils.Error(c, http.StatusBadRequest, "Flag is not configured for this challenge")
		return
	}

	var req dto.FlagSubmitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := services.SubmitFlag(database.DB, &challenge, user, req.Flag)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to record solve: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}
