// file: routes/router.go
package routes

import (
	"CASCTF/controllers"
	"CASCTF/middlewares"
	"CASCTF/models"

	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	{
		// --- 认证 ---
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", controllers.Signup)
			authRoutes.POST("/login", controllers.Login)
			authRoutes.GET("/me", middlewares.JWTAuthMiddleware(), controllers.Me)
		}

		// --- 题目模块 ---
		challengeRoutes := api.Group("/challenges")
		challengeRoutes.Use(middlewares.JWTAuthMiddleware())
		{
			// 用户接口
			challengeRoutes.GET("", controllers.ListChallenges)
			challengeRoutes.GET("/solved/me", controllers.ListMySolvedChallengeIDs)
			challengeRoutes.GET("/:id/file", controllers.DownloadChallengeFile)
			challengeRoutes.GET("/:id/server/access", controllers.GetServerAccess)
			challengeRoutes.POST("/:id/server/access", controllers.CreateServerAccess)
			challengeRoutes.POST("/:id/server/stop", controllers.StopServerAccess)
			challengeRoutes.POST("/:id/submit-flag", controllers.SubmitFlag)

			// 管理员接口
			admin := middlewares.RoleAuthMiddleware(models.RoleAdmin)
			challengeRoutes.GET("/admin", admin, controllers.AdminListChallenges)
			challengeRoutes.GET("/docker/templates", admin, controllers.ListChallengeDockerTemplates)
			challengeRoutes.POST("", admin, controllers.CreateChallenge)
			challengeRoutes.PUT("/:id", admin, controllers.UpdateChallenge)
			challengeRoutes.DELETE("/:id", admin, controllers.DeleteChallenge)
			challengeRoutes.POST("/files", admin, controllers.UploadChallengeFile)
		}

		// --- 全局配置 ---
		configRoutes := api.Group("/config")
		{
			configRoutes.GET("/public", controllers.GetPublicConfig)

			adminConfig := configRoutes.Group("/admin")
			adminConfig.Use(middlewares.JWTAuthMiddleware(), middlewares.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminConfig.GET("", controllers.GetAdminConfig)
				adminConfig.PUT("/general", controllers.UpdateConfigGeneral)
				adminConfig.PUT("/duration", controllers.UpdateConfigDuration)
			}
		}

		// --- 排行榜 ---
		api.GET("/scoreboard", controllers.GetScoreboard)

		// --- 通知 ---
		notificationRoutes := api.Group("/notifications")
		{
			notificationRoutes.GET("", controllers.ListNotifications)

			adminNotif := notificationRoutes.Group("/admin")
			adminNotif.Use(middlewares.JWTAuthMiddleware(), middlewares.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminNotif.GET("", controllers.AdminListNotifications)
				adminNotif.POST("", controllers.CreateNotification)
				adminNotif.DELETE("/clear", controllers.ClearNotifications)
			}
		}
	}

	return r
}
