// file: controllers/user_controller.go
package controllers

import (
	"net/http"

	"CASCTF/database"
	"CASCTF/dto"
	"CASCTF/middlewares"
	"CASCTF/models"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

// --- 公开接口 ---

func Signup(c *gin.Context) {
	var req dto.SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	var existing models.User
	if err := database.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(c, http.StatusBadRequest, "Username already exists.")
		return
	}

	newUser := models.User{
		Username: req.Username,
		Password: req.Password,
		Role:     models.RolePlayer,
	}
	if err := database.DB.Create(&newUser).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	utils.Created(c, "Signup successful.", gin.H{
		"id":       newUser.ID,
		"username": newUser.Username,
	})
}

func Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(c, http.StatusUnauthorized, "Invalid username or password.")
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Error(c, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	utils.Success(c, "Login successful.", gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"score":    user.Score,
		},
	})
}

// --- 需要登录的接口 ---

func Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, "success", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
		"score":    user.Score,
	})
}

// currentUser 按中间件写入的 user_id 加载用户；已注销的旧 Token 返回 401
func currentUser(c *gin.Context) (*models.User, bool) {
	var user models.User
	if err := database.DB.First(&user, middlewares.CurrentUserID(c)).Error; err != nil {
		utils.Error(c, http.StatusUnauthorized, "User not found")
		c.Abort()
		return nil, false
	}
	return &user, true
}
