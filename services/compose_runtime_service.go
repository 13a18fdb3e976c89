// file: services/compose_runtime_service.go
package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// 把模板 compose 转换成实例专用的 runtime compose：
// build 一律换成预构建好的镜像 tag，端口只保留目标服务的一条映射。
// 模板每次都从磁盘重新解析，实例之间不共享可变文档。

var safeImageTokenRe = regexp.MustCompile(`[^a-z0-9_.-]+`)

func sanitizeImageToken(value string) string {
	token := safeImageTokenRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	token = strings.Trim(token, "-")
	if token == "" {
		return "default"
	}
	return token
}

// templateBuildProjectName 模板构建用的固定项目名，
// 按模板（而不是实例）命名，让镜像构建结果在所有实例间复用
func templateBuildProjectName(templateID string) string {
	return "casctf-template-build-" + sanitizeImageToken(templateID)
}

func templateServiceImageTag(templateID, serviceName string) string {
	return fmt.Sprintf("casctf-template-%s-%s:latest",
		sanitizeImageToken(templateID), sanitizeImageToken(serviceName))
}

func dockerImageExists(imageTag string) bool {
	res, err := runDockerCommand([]string{"image", "inspect", imageTag}, "", dockerInspectTimeout)
	return err == nil && res.ExitCode == 0
}

// composeServiceImageID 查询 compose 构建后某服务的镜像 ID
func composeServiceImageID(composePath, projectName, serviceName string) (string, error) {
	res, err := runDockerCommand([]string{
		"compose", "-f", composePath, "-p", projectName,
		"config", "--images", serviceName,
	}, filepath.Dir(composePath), dockerInspectTimeout)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", resultError(res, "Could not inspect compose service image")
	}

	imageRef := ""
	for _, line := range strings.Split(res.Stdout, "\n") {
		if candidate := strings.TrimSpace(line); candidate != "" {
			imageRef = candidate
			break
		}
	}
	if imageRef == "" {
		return "", fmt.Errorf("image reference for service %q is empty after compose build", serviceName)
	}

	inspect, err := runDockerCommand([]string{"image", "inspect", "--format", "{{.Id}}", imageRef}, "", dockerInspectTimeout)
	if err != nil {
		return "", err
	}
	if inspect.ExitCode != 0 {
		return "", resultError(inspect, fmt.Sprintf("Failed to inspect image %q", imageRef))
	}

	imageID := strings.TrimSpace(inspect.Stdout)
	if imageID == "" {
		return "", fmt.Errorf("image build output for service %q is empty", serviceName)
	}
	return imageID, nil
}

// ensureTemplateServiceImage 确保模板服务的镜像存在：
// 已有稳定 tag 直接复用，否则 build 一次并打上 tag，
// 避免每个选手开实例都重新构建
func ensureTemplateServiceImage(templateID, composePath, serviceName string) (string, error) {
	imageTag := templateServiceImageTag(templateID, serviceName)
	if dockerImageExists(imageTag) {
		return imageTag, nil
	}

	buildProject := templateBuildProjectName(templateID)
	if err := runCompose(composePath, buildProject, "build", serviceName); err != nil {
		return "", err
	}

	imageID, err := composeServiceImageID(composePath, buildProject, serviceName)
	if err != nil {
		return "", err
	}
	res, err := runDockerCommand([]string{"image", "tag", imageID, imageTag}, "", dockerInspectTimeout)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", resultError(res, "Failed to tag built image")
	}
	return imageTag, nil
}

// resolveRuntimeServiceImages 给每个服务算出 runtime 使用的镜像：
// 声明了 image 的原样保留，声明了 build 的换成预构建 tag
func resolveRuntimeServiceImages(templateID, composePath string, doc map[string]interface{}) (map[string]string, error) {
	resolved := make(map[string]string)
	services, ok := doc["services"].(map[string]interface{})
	if !ok {
		return resolved, nil
	}

	for serviceName, raw := range services {
		cfg, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if image, ok := cfg["image"].(string); ok && strings.TrimSpace(image) != "" {
			resolved[serviceName] = strings.TrimSpace(image)
			continue
		}
		if _, hasBuild := cfg["build"]; hasBuild {
			imageTag, err := ensureTemplateServiceImage(templateID, composePath, serviceName)
			if err != nil {
				return nil, err
			}
			resolved[serviceName] = imageTag
		}
	}
	return resolved, nil
}

// BuildRuntimeComposeFile 生成实例专用 compose 文件并返回其路径。
// 文件与模板同目录，名字由项目名推导，天然不会和其他实例冲突。
func BuildRuntimeComposeFile(templateID, projectName, serviceName string, hostPort, containerPort int) (string, error) {
	composePath, err := ComposePathFromTemplateID(templateID)
	if err != nil {
		return "", err
	}
	doc, _, err := loadComposeDoc(composePath)
	if err != nil {
		return "", err
	}

	serviceImages, err := resolveRuntimeServiceImages(templateID, composePath, doc)
	if err != nil {
		return "", err
	}

	services := doc["services"].(map[string]interface{})
	target, ok := services[serviceName].(map[string]interface{})
	if !ok {
		return "", errors.New("service not found in compose")
	}

	// container_name 会在并发实例间撞名，ports 和 build 都由这里接管
	for _, raw := range services {
		cfg, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		delete(cfg, "container_name")
		delete(cfg, "ports")
		delete(cfg, "build")
	}

	for name, raw := range services {
		cfg, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if image, ok := serviceImages[name]; ok && image != "" {
			cfg["image"] = image
		}
	}

	target["ports"] = []interface{}{fmt.Sprintf("%d:%d", hostPort, containerPort)}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}

	runtimePath := filepath.Join(filepath.Dir(composePath), fmt.Sprintf(".casctf-%s.yml", projectName))
	if err := os.WriteFile(runtimePath, out, 0o644); err != nil {
		return "", err
	}
	return runtimePath, nil
}

// runCompose 执行 docker compose 子命令，非零退出转成错误
func runCompose(composePath, projectName string, args ...string) error {
	full := append([]string{"compose", "-f", composePath, "-p", projectName}, args...)
	res, err := runDockerCommand(full, filepath.Dir(composePath), dockerComposeTimeout)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return resultError(res, "Unknown docker compose error")
	}
	return nil
}

// StartComposeProject 启动实例；镜像已在构建阶段解析好，禁止隐式 build
func StartComposeProject(composePath, projectName string) error {
	return runCompose(composePath, projectName, "up", "-d", "--no-build")
}

// StopComposeProject 停止并清理实例的容器、网络和卷
func StopComposeProject(composePath, projectName string) error {
	return runCompose(composePath, projectName, "down", "--remove-orphans", "-v")
}

// RemoveRuntimeComposeFile 删除 runtime compose 文件，文件不存在不算错误
func RemoveRuntimeComposeFile(composePath string) {
	if err := os.Remove(composePath); err != nil && !os.IsNotExist(err) {
		return
	}
}
