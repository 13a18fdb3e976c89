// file: services/scoring_service.go
package services

import (
	"math"
	"sort"
	"strings"

	"CASCTF/models"

	"gorm.io/gorm"
)

const (
	DefaultDynamicMinPoint = 100
	DefaultDynamicDecay    = 50
)

// NormalizeDynamicParams 约束动态计分参数：
// minPoint 落在 [1, point]，decay 至少为 1。
// 零值表示"未设置"，取默认；负值是非法输入，按下界 1 处理。
func NormalizeDynamicParams(point, dynamicMinPoint, dynamicDecay int) (minPoint, decay int) {
	minPoint = dynamicMinPoint
	if minPoint == 0 {
		minPoint = DefaultDynamicMinPoint
	}
	if minPoint > point {
		minPoint = point
	}
	if minPoint < 1 {
		minPoint = 1
	}

	decay = dynamicDecay
	if decay == 0 {
		decay = DefaultDynamicDecay
	}
	if decay < 1 {
		decay = 1
	}
	return minPoint, decay
}

// ComputeDynamicValue 二次衰减曲线：0 解时等于初始分，
// 随解题数平方衰减，永不低于 minPoint
func ComputeDynamicValue(initialPoint, minPoint, decay, solveCount int) int {
	if solveCount <= 0 {
		return initialPoint
	}

	curve := float64(minPoint-initialPoint) / float64(decay*decay) * float64(solveCount*solveCount)
	value := int(math.Ceil(curve + float64(initialPoint)))
	if value < minPoint {
		return minPoint
	}
	return value
}

// ComputeChallengeValue 题目当前有效分值；basic 题固定为基础分
func ComputeChallengeValue(challenge *models.Challenge, solveCount int) int {
	if challenge.ScoreType != models.ScoreTypeDynamic {
		return challenge.Point
	}
	minPoint, decay := NormalizeDynamicParams(challenge.Point, challenge.DynamicMinPoint, challenge.DynamicDecay)
	return ComputeDynamicValue(challenge.Point, minPoint, decay, solveCount)
}

// ChallengeSolveCountMap 各题目的解题人数
func ChallengeSolveCountMap(db *gorm.DB) map[uint32]int {
	type row struct {
		ChallengeID uint32
		Cnt         int
	}
	var rows []row
	db.Model(&models.ChallengeSolve{}).
		Select("challenge_id, count(id) as cnt").
		Group("challenge_id").
		Scan(&rows)

	counts := make(map[uint32]int, len(rows))
	for _, r := range rows {
		counts[r.ChallengeID] = r.Cnt
	}
	return counts
}

// RecalculateAllUserScores 全量重算所有用户总分。
// 不做增量：题目分值参数被管理员改过之后，只有全量重算才保证正确，
// 代价是 O(题目数 + 解题记录数)，在排行榜读取和进程启动时触发。
func RecalculateAllUserScores(db *gorm.DB) {
	var challenges []models.Challenge
	db.Find(&challenges)

	solveCounts := ChallengeSolveCountMap(db)
	challengeValues := make(map[uint32]int, len(challenges))
	for i := range challenges {
		challengeValues[challenges[i].ID] = ComputeChallengeValue(&challenges[i], solveCounts[challenges[i].ID])
	}

	var solves []models.ChallengeSolve
	db.Find(&solves)
	userScores := make(map[uint32]int)
	for _, s := range solves {
		userScores[s.UserID] += challengeValues[s.ChallengeID]
	}

	var users []models.User
	db.Find(&users)
	for i := range users {
		next := userScores[users[i].ID]
		if users[i].Score != next {
			db.Model(&users[i]).Update("score", next)
		}
	}
}

// ScoreboardRow 排行榜一行
type ScoreboardRow struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	Score       int    `json:"score"`
	SolvedCount int    `json:"solved_count"`
	LastSolveTS *int64 `json:"last_solve_ts"`
}

// BuildScoreboardRows 生成排行榜，管理员账号不上榜。
// 排序：总分降序 → 最后解题时间早者优先（未解题排最后）→
// 用户名（小写）→ ID，保证并列时顺序确定。
func BuildScoreboardRows(db *gorm.DB) []ScoreboardRow {
	var users []models.User
	db.Where("role <> ?", models.RoleAdmin).Find(&users)

	type agg struct {
		UserID uint32
		Cnt    int
		LastTS int64
	}
	var aggs []agg
	db.Model(&models.ChallengeSolve{}).
		Select("user_id, count(id) as cnt, max(solved_at_ts) as last_ts").
		Group("user_id").
		Scan(&aggs)

	solvedCounts := make(map[uint32]int, len(aggs))
	lastSolves := make(map[uint32]int64, len(aggs))
	for _, a := range aggs {
		solvedCounts[a.UserID] = a.Cnt
		lastSolves[a.UserID] = a.LastTS
	}

	const noSolveTS = int64(math.MaxInt32)
	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		aLast, aOK := lastSolves[a.ID]
		bLast, bOK := lastSolves[b.ID]
		if !aOK {
			aLast = noSolveTS
		}
		if !bOK {
			bLast = noSolveTS
		}
		if aLast != bLast {
			return aLast < bLast
		}
		aName, bName := strings.ToLower(a.Username), strings.ToLower(b.Username)
		if aName != bName {
			return aName < bName
		}
		return a.ID < b.ID
	})

	rows := make([]ScoreboardRow, 0, len(users))
	for i, user := range users {
		row := ScoreboardRow{
			Rank:        i + 1,
			Username:    user.Username,
			Score:       user.Score,
			SolvedCount: solvedCounts[user.ID],
		}
		if last, ok := lastSolves[user.ID]; ok {
			ts := last
			row.LastSolveTS = &ts
		}
		rows = append(rows, row)
	}
	return rows
}
