// file: controllers/scoreboard_controller.go
package controllers

import (
	"encoding/json"
	"time"

	"CASCTF/database"
	"CASCTF/services"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

const scoreboardCacheKey = "scoreboard:rows"

// GetScoreboard 查询排行榜。
// 读取时全量重算一次分值（动态题参数可能已被管理员改过），
// 结果在 Redis 缓存 15 秒，兼顾实时性和重算开销。
func GetScoreboard(c *gin.Context) {
	if database.RDB != nil {
		if val, err := database.RDB.Get(database.Ctx, scoreboardCacheKey).Result(); err == nil {
			var rows []services.ScoreboardRow
			if json.Unmarshal([]byte(val), &rows) == nil {
				utils.Success(c, "success (from cache)", rows)
				return
			}
		}
	}

	services.RecalculateAllUserScores(database.DB)
	rows := services.BuildScoreboardRows(database.DB)

	if database.RDB != nil {
		if jsonData, err := json.Marshal(rows); err == nil {
			database.RDB.Set(database.Ctx, scoreboardCacheKey, jsonData, 15*time.Second)
		}
	}

	utils.Success(c, "success", rows)
}
