// file: utils/name_generator_test.go
package utils

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerateProjectName(t *testing.T) {
	re := regexp.MustCompile(`^casctf-c42-u7-[0-9a-f]{6}$`)

	name := GenerateProjectName(42, 7)
	if !re.MatchString(name) {
		t.Errorf("project name %q does not match expected format", name)
	}

	// 同一 (challenge, user) 重开实例时项目名必须不同
	other := GenerateProjectName(42, 7)
	if name == other {
		t.Errorf("two generated names collided: %q", name)
	}
}

func TestGenerateStoredName(t *testing.T) {
	name := GenerateStoredName("challenge.zip")
	if !strings.HasSuffix(name, "_challenge.zip") {
		t.Errorf("stored name %q should keep the original base name", name)
	}
	if name == GenerateStoredName("challenge.zip") {
		t.Error("stored names must not collide for the same original name")
	}

	// 上传文件名里的路径部分不能进入磁盘文件名
	if got := GenerateStoredName("../../etc/passwd"); !strings.HasSuffix(got, "_passwd") || strings.Contains(got, "/") {
		t.Errorf("stored name %q should strip directories", got)
	}
}
