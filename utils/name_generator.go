// file: utils/name_generator.go
package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GenerateProjectName 生成实例的 Compose 项目名。
// 带 6 位随机后缀，保证同一 (challenge, user) 重开实例时项目名也不同。
func GenerateProjectName(challengeID, userID uint32) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("casctf-c%d-u%d-%s", challengeID, userID, suffix)
}

// GenerateStoredName 生成附件的磁盘文件名，随机前缀避免重名覆盖
func GenerateStoredName(originalName string) string {
	base := filepath.Base(originalName)
	return fmt.Sprintf("%s_%s", strings.ReplaceAll(uuid.New().String(), "-", ""), base)
}
