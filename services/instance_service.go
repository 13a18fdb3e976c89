// file: services/instance_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"CASCTF/config"
	"CASCTF/models"
	"CASCTF/utils"

	"gorm.io/gorm"
)

// 实例状态机：absent → provisioning → active → {expired | stopped}。
// 这里不做进程内加锁，端口探测和数据库唯一索引是仅有的并发防线；
// "探测到空闲"与"compose up 真正绑定"之间存在窗口，撞上时 compose up
// 失败，请求方收到 500 后重试即可拿到新端口。

var (
	ErrTemplateNotConfigured = errors.New("docker template is not configured for this challenge")
	ErrTemplateMissing       = errors.New("docker template does not exist on server")
	ErrTemplateNoPort        = errors.New("docker template has no usable service port")
	ErrPortPoolExhausted     = errors.New("no free host port available in configured pool")
)

func NowTS() int64 {
	return time.Now().UTC().Unix()
}

// AllocateFreeHostPort 在端口池内随机顺序找一个可用端口。
// excluded 是数据库视角下已被活跃实例占用的端口；每个候选端口再做一次
// 真实 bind 探测，防止数据库和宿主机状态漂移（比如遗留监听进程）。
func AllocateFreeHostPort(excluded map[int]bool) (int, error) {
	min := config.InstancePortMin()
	max := config.InstancePortMax()

	candidates := make([]int, 0, max-min+1)
	for p := min; p <= max; p++ {
		candidates = append(candidates, p)
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, port := range candidates {
		if excluded[port] {
			continue
		}
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("%w: %d-%d", ErrPortPoolExhausted, min, max)
}

// activeHostPorts 当前所有未过期实例占用的端口集合
func activeHostPorts(db *gorm.DB) map[int]bool {
	var ports []int
	db.Model(&models.ChallengeInstance{}).
		Where("expires_ts > ?", NowTS()).
		Pluck("host_port", &ports)

	set := make(map[int]bool, len(ports))
	for _, p := range ports {
		set[p] = true
	}
	return set
}

// StopInstanceRuntime 尽力而为地停掉实例的容器资源。
// compose 文件已丢失就跳过 down；down 失败只记日志不中断——
// 残留容器可以事后人工清理，卡死的实例记录才是更大的麻烦。
// 不论结果如何，runtime compose 文件最后都要删掉。
func StopInstanceRuntime(instance *models.ChallengeInstance) {
	if _, err := os.Stat(instance.RuntimeComposePath); err == nil {
		if err := StopComposeProject(instance.RuntimeComposePath, instance.DockerProjectName); err != nil {
			log.Printf("Warning: failed to stop compose project %s: %v", instance.DockerProjectName, err)
		}
	}
	RemoveRuntimeComposeFile(instance.RuntimeComposePath)
}

// CleanupExpiredInstances 清理所有已过期实例（全站，不只当前用户）。
// 先停容器再删记录，过期的 Docker 资源不允许静默堆积。
func CleanupExpiredInstances(db *gorm.DB) {
	var expired []models.ChallengeInstance
	db.Where("expires_ts <= ?", NowTS()).Order("id asc").Find(&expired)

	for i := range expired {
		StopInstanceRuntime(&expired[i])
		if err := db.Delete(&expired[i]).Error; err != nil {
			log.Printf("Warning: failed to delete expired instance %d: %v", expired[i].ID, err)
		}
	}
}

// CleanupUserOtherInstances 单实例策略：用户打开新题目的实例前，
// 先拆掉他名下其他题目的实例
func CleanupUserOtherInstances(db *gorm.DB, userID, keepChallengeID uint32) {
	var rows []models.ChallengeInstance
	db.Where("user_id = ? AND challenge_id <> ?", userID, keepChallengeID).
		Order("id asc").Find(&rows)

	for i := range rows {
		StopInstanceRuntime(&rows[i])
		if err := db.Delete(&rows[i]).Error; err != nil {
			log.Printf("Warning: failed to delete instance %d: %v", rows[i].ID, err)
		}
	}
}

// FindUserInstance 查询用户在某题目上的实例记录，没有则返回 nil
func FindUserInstance(db *gorm.DB, userID, challengeID uint32) *models.ChallengeInstance {
	var instance models.ChallengeInstance
	err := db.Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&instance).Error
	if err != nil {
		return nil
	}
	return &instance
}

// DeleteInstance 停掉容器并删除记录（幂等，记录已不存在也不报错）
func DeleteInstance(db *gorm.DB, instance *models.ChallengeInstance) {
	StopInstanceRuntime(instance)
	db.Delete(instance)
}

// ProvisionInstance 为用户创建新实例：分配端口 → 生成 runtime compose →
// compose up → 落库。启动失败时删掉半成品文件并向上抛错，不落库。
func ProvisionInstance(db *gorm.DB, challenge *models.Challenge, userID uint32) (*models.ChallengeInstance, error) {
	if challenge.DockerTemplateID == nil || *challenge.DockerTemplateID == "" {
		return nil, ErrTemplateNotConfigured
	}
	templateID := *challenge.DockerTemplateID

	template, err := GetDockerTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, ErrTemplateMissing
	}
	if template.DefaultService == "" || template.DefaultContainerPort == 0 {
		return nil, ErrTemplateNoPort
	}

	hostPort, err := AllocateFreeHostPort(activeHostPorts(db))
	if err != nil {
		return nil, err
	}

	projectName := utils.GenerateProjectName(challenge.ID, userID)
	runtimePath, err := BuildRuntimeComposeFile(
		templateID, projectName, template.DefaultService,
		hostPort, template.DefaultContainerPort,
	)
	if err != nil {
		return nil, err
	}

	if err := StartComposeProject(runtimePath, projectName); err != nil {
		RemoveRuntimeComposeFile(runtimePath)
		return nil, fmt.Errorf("failed to start docker instance: %w", err)
	}

	nowTS := NowTS()
	instance := &models.ChallengeInstance{
		UserID:             userID,
		ChallengeID:        challenge.ID,
		DockerProjectName:  projectName,
		RuntimeComposePath: runtimePath,
		ServiceName:        template.DefaultService,
		HostPort:           hostPort,
		ContainerPort:      template.DefaultContainerPort,
		CreatedTS:          nowTS,
		ExpiresTS:          nowTS + int64(config.InstanceTTL().Seconds()),
	}
	if err := db.Create(instance).Error; err != nil {
		// 落库失败时不能留下孤儿容器
		StopInstanceRuntime(instance)
		return nil, err
	}
	return instance, nil
}
