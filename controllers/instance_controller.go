// file: controllers/instance_controller.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
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

func toServerAccessResp(challengeID uint32, instance *models.ChallengeInstance, reused bool) dto.ServerAccessResp {
	host := config.InstanceHost()
	remaining := instance.ExpiresTS - services.NowTS()
	if remaining < 0 {
		remaining = 0
	}
	return dto.ServerAccessResp{
		ChallengeID:      challengeID,
		Host:             host,
		Port:             instance.HostPort,
		URL:              fmt.Sprintf("http://%s:%d", host, instance.HostPort),
		ExpiresAtTS:      instance.ExpiresTS,
		RemainingSeconds: remaining,
		Reused:           reused,
	}
}

// loadDockerChallenge 校验题目存在、可访问且开启了容器
func loadDockerChallenge(c *gin.Context) *models.Challenge {
	id, _ := strconv.Atoi(c.Param("id"))

	var challenge models.Challenge
	if err := database.DB.First(&challenge, id).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Challenge not found")
		return nil
	}
	if !isChallengeAccessible(&challenge, middlewares.CurrentUserRole(c)) {
		utils.Error(c, http.StatusForbidden, "Not allowed")
		return nil
	}
	if !challenge.DockerEnabled {
		utils.Error(c, http.StatusBadRequest, "This challenge does not provide docker server access")
		return nil
	}
	return &challenge
}

// GetServerAccess 查询当前实例（只读）。顺带清理过期实例；
// 自己的实例刚好过期时也当场拆掉，绝不返回失效的连接信息。
func GetServerAccess(c *gin.Context) {
	challenge := loadDockerChallenge(c)
	if challenge == nil {
		return
	}

	services.CleanupExpiredInstances(database.DB)

	userID := middlewares.CurrentUserID(c)
	instance := services.FindUserInstance(database.DB, userID, challenge.ID)
	if instance == nil {
		utils.Error(c, http.StatusNotFound, "No active server instance")
		return
	}
	if instance.ExpiresTS <= services.NowTS() {
		services.DeleteInstance(database.DB, instance)
		utils.Error(c, http.StatusNotFound, "No active server instance")
		return
	}

	utils.Success(c, "success", toServerAccessResp(challenge.ID, instance, true))
}

// CreateServerAccess 申请实例：存活实例幂等复用，否则新建。
// 新建前先做全站过期清理，再执行"单实例"策略拆掉该用户其他题目的实例。
func CreateServerAccess(c *gin.Context) {
	if !services.IsCTFRunning(database.DB) {
		utils.Error(c, http.StatusForbidden, "CTF is not currently running.")
		return
	}

	challenge := loadDockerChallenge(c)
	if challenge == nil {
		return
	}

	userID := middlewares.CurrentUserID(c)
	services.CleanupExpiredInstances(database.DB)
	services.CleanupUserOtherInstances(database.DB, userID, challenge.ID)

	existing := services.FindUserInstance(database.DB, userID, challenge.ID)
	if existing != nil && existing.ExpiresTS > services.NowTS() {
		utils.Success(c, "success", toServerAccessResp(challenge.ID, existing, true))
		return
	}
	if existing != nil {
		services.DeleteInstance(database.DB, existing)
	}

	instance, err := services.ProvisionInstance(database.DB, challenge, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTemplateNotConfigured),
			errors.Is(err, services.ErrTemplateMissing),
			errors.Is(err, services.ErrTemplateNoPort),
			errors.Is(err, services.ErrInvalidTemplateID):
			utils.Error(c, http.StatusBadRequest, err.Error())
		default:
			utils.Error(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.Success(c, "success", toServerAccessResp(challenge.ID, instance, false))
}

// StopServerAccess 主动销毁实例；没有实例也返回 204（幂等）
func StopServerAccess(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	userID := middlewares.CurrentUserID(c)

	instance := services.FindUserInstance(database.DB, userID, uint32(id))
	if instance != nil {
		services.DeleteInstance(database.DB, instance)
	}
	utils.NoContent(c)
}
