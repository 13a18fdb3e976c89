// file: config/config.go
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// 所有运行参数统一从环境变量读取，未设置时使用本地开发默认值。
// main.go 会先通过 godotenv 加载 .env。

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// DatabaseDSN MySQL 连接串
func DatabaseDSN() string {
	return getEnv("DATABASE_DSN", "root:123456@tcp(localhost:3306)/casctf?charset=utf8mb4&parseTime=True&loc=Local")
}

// RedisAddr Redis 服务器地址
func RedisAddr() string {
	return getEnv("REDIS_ADDR", "localhost:6379")
}

// JWTSecret 签名密钥
func JWTSecret() []byte {
	return []byte(getEnv("JWT_SECRET_KEY", "change-this-in-production"))
}

// JWTExpire Token 有效期
func JWTExpire() time.Duration {
	return time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 180)) * time.Minute
}

// AccessTokenCookieName 前端 Cookie 携带 Token 时使用的名字
func AccessTokenCookieName() string {
	return getEnv("ACCESS_TOKEN_COOKIE_NAME", "casctf_access_token")
}

// AdminUsername 默认管理员账号（开发用）
func AdminUsername() string {
	return getEnv("ADMIN_USERNAME", "admin")
}

func AdminPassword() string {
	return getEnv("ADMIN_PASSWORD", "admin1234")
}

// UploadDir 题目附件存储目录
func UploadDir() string {
	dir, err := filepath.Abs(getEnv("CHALLENGE_UPLOAD_DIR", "./uploads/challenges"))
	if err != nil {
		return "./uploads/challenges"
	}
	return dir
}

// DockerTemplateRoot 题目容器模板根目录，每个子目录一个模板
func DockerTemplateRoot() string {
	dir, err := filepath.Abs(getEnv("CHALLENGE_DOCKER_ROOT", "./docker"))
	if err != nil {
		return "./docker"
	}
	return dir
}

// DockerContext 非空时传给 docker --context
func DockerContext() string {
	return getEnv("CHALLENGE_DOCKER_CONTEXT", "")
}

// InstanceHost 返回给选手的连接地址
func InstanceHost() string {
	return getEnv("CHALLENGE_INSTANCE_HOST", "127.0.0.1")
}

// InstancePortMin / InstancePortMax 实例宿主机端口池边界
func InstancePortMin() int {
	return getEnvInt("CHALLENGE_INSTANCE_PORT_MIN", 40000)
}

func InstancePortMax() int {
	return getEnvInt("CHALLENGE_INSTANCE_PORT_MAX", 40100)
}

// InstanceTTL 实例生命周期，到期后由清理逻辑回收
func InstanceTTL() time.Duration {
	return time.Duration(getEnvInt("CHALLENGE_INSTANCE_TTL_SECONDS", 3600)) * time.Second
}

// SweepInterval 后台过期实例清理的执行间隔
func SweepInterval() time.Duration {
	return time.Duration(getEnvInt("CHALLENGE_INSTANCE_SWEEP_SECONDS", 60)) * time.Second
}

// ListenAddr HTTP 监听地址
func ListenAddr() string {
	return getEnv("LISTEN_ADDR", ":8080")
}
