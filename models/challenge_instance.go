// file: models/challenge_instance.go
package models

// ChallengeInstance 一个选手正在运行的 Docker Compose 沙箱。
// 每个 (user, challenge) 至多一条记录；RuntimeComposePath 指向的文件
// 与记录同生共死，删除记录时必须一并删除文件。
type ChallengeInstance struct {
	ID          uint32 `gorm:"primarykey" json:"id"`
	UserID      uint32 `gorm:"not null;uniqueIndex:uq_user_challenge_instance;index" json:"user_id"`
	ChallengeID uint32 `gorm:"not null;uniqueIndex:uq_user_challenge_instance;index" json:"challenge_id"`

	DockerProjectName  string `gorm:"size:120;not null;uniqueIndex" json:"docker_project_name"`
	RuntimeComposePath string `gorm:"size:512;not null" json:"runtime_compose_path"`
	ServiceName        string `gorm:"size:100;not null" json:"service_name"`
	HostPort           int    `gorm:"not null" json:"host_port"`
	ContainerPort      int    `gorm:"not null" json:"container_port"`

	CreatedTS int64 `gorm:"not null;index" json:"created_ts"`
	ExpiresTS int64 `gorm:"not null;index" json:"expires_ts"`
}

func (ChallengeInstance) TableName() string {
	return "casctf_challenge_instance"
}
