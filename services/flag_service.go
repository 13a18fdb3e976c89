// file: services/flag_service.go
package services

import (
	"strings"

	"CASCTF/models"

	"gorm.io/gorm"
)

const (
	BloodFirst  = "first"
	BloodSecond = "second"
	BloodThird  = "third"
)

// FlagSubmitResult 提交结果，直接序列化给前端
type FlagSubmitResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	AwardedPoint int     `json:"awarded_point"`
	TotalScore   int     `json:"total_score"`
	Blood        *string `json:"blood"`
}

func alreadySolvedResult(totalScore int) *FlagSubmitResult {
	return &FlagSubmitResult{
		Success:      true,
		Message:      "Already solved.",
		AwardedPoint: 0,
		TotalScore:   totalScore,
	}
}

// bloodForOrder 第 1/2/3 个解出的人获得血奖标记
func bloodForOrder(order int64) *string {
	var blood string
	switch order {
	case 1:
		blood = BloodFirst
	case 2:
		blood = BloodSecond
	case 3:
		blood = BloodThird
	default:
		return nil
	}
	return &blood
}

// SubmitFlag 校验 Flag 并记录解题。
// 重复提交幂等返回"已解出"；两个并发提交同时通过"未解出"检查时，
// 依赖 (user, challenge) 唯一索引拒绝第二条插入，冲突方降级为
// "已解出"成功路径并从库里刷新总分。
// 注意：加分用的是题目基础分 point，动态分值在下一次全量重算时修正。
func SubmitFlag(db *gorm.DB, challenge *models.Challenge, user *models.User, submittedFlag string) (*FlagSubmitResult, error) {
	var already models.ChallengeSolve
	err := db.Where("user_id = ? AND challenge_id = ?", user.ID, challenge.ID).
		First(&already).Error
	if err == nil {
		return alreadySolvedResult(user.Score), nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// 精确匹配，除 trim 外不做任何归一化
	if strings.TrimSpace(submittedFlag) != challenge.Flag {
		return &FlagSubmitResult{
			Success:      false,
			Message:      "Incorrect flag.",
			AwardedPoint: 0,
			TotalScore:   user.Score,
		}, nil
	}

	solve := models.ChallengeSolve{
		UserID:      user.ID,
		ChallengeID: challenge.ID,
		SolvedAtTS:  NowTS(),
	}
	createErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&solve).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("score", gorm.Expr("score + ?", challenge.Point)).Error
	})
	if createErr != nil {
		// 唯一索引冲突：并发提交抢先落库，按已解出处理并刷新总分
		var conflict models.ChallengeSolve
		if err := db.Where("user_id = ? AND challenge_id = ?", user.ID, challenge.ID).
			First(&conflict).Error; err == nil {
			db.First(user, user.ID)
			return alreadySolvedResult(user.Score), nil
		}
		return nil, createErr
	}

	db.First(user, user.ID)

	var solveOrder int64
	db.Model(&models.ChallengeSolve{}).
		Where("challenge_id = ?", challenge.ID).
		Count(&solveOrder)

	return &FlagSubmitResult{
		Success:      true,
		Message:      "Correct flag.",
		AwardedPoint: challenge.Point,
		TotalScore:   user.Score,
		Blood:        bloodForOrder(solveOrder),
	}, nil
}
