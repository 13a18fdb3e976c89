// file: models/challenge_solve.go
package models

// ChallengeSolve 解题记录，(user, challenge) 唯一。
// 并发重复提交依赖该唯一索引兜底，冲突方按"已解出"处理。
type ChallengeSolve struct {
	ID          uint64 `gorm:"primarykey" json:"id"`
	UserID      uint32 `gorm:"not null;uniqueIndex:uq_user_challenge_solve;index" json:"user_id"`
	ChallengeID uint32 `gorm:"not null;uniqueIndex:uq_user_challenge_solve;index" json:"challenge_id"`
	SolvedAtTS  int64  `gorm:"not null;index" json:"solved_at_ts"`
}

func (ChallengeSolve) TableName() string {
	return "casctf_challenge_solve"
}
