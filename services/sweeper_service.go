// file: services/sweeper_service.go
package services

import (
	"log"

	"CASCTF/config"
	"CASCTF/database"

	"github.com/go-co-op/gocron/v2"
)

// InstanceSweeper 后台周期清理过期实例，不依赖任何请求触发。
// 与请求内的清理共用同一套逻辑：每轮都重新判定"是否仍然过期"，
// 重复清理天然幂等（删除已删除的记录是 no-op）。
type InstanceSweeper struct {
	scheduler gocron.Scheduler
}

func NewInstanceSweeper() (*InstanceSweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(config.SweepInterval()),
		gocron.NewTask(func() {
			// 单个实例清理失败只记日志，不能打断整轮清理
			CleanupExpiredInstances(database.DB)
		}),
	)
	if err != nil {
		return nil, err
	}

	return &InstanceSweeper{scheduler: sched}, nil
}

func (s *InstanceSweeper) Start() {
	s.scheduler.Start()
	log.Printf("[Sweeper] Instance expiry sweep started, interval=%s", config.SweepInterval())
}

// Stop 随进程退出调用，等待在途任务结束
func (s *InstanceSweeper) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("[Sweeper] Shutdown error: %v", err)
	}
}
