// file: services/docker_template_service.go
package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"CASCTF/config"

	"gopkg.in/yaml.v3"
)

const ComposeFilename = "docker-compose.yml"

var safeTemplateIDRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

var ErrInvalidTemplateID = errors.New("invalid docker template id")

// DockerTemplate 模板元数据，供管理端下拉选择使用
type DockerTemplate struct {
	TemplateID           string   `json:"template_id"`
	ComposePath          string   `json:"-"`
	Services             []string `json:"services"`
	DefaultService       string   `json:"default_service"`
	DefaultContainerPort int      `json:"default_container_port"`
}

// IsSafeTemplateID 模板 ID 只允许字母数字和 _.- ，从根上挡掉路径穿越
func IsSafeTemplateID(templateID string) bool {
	return safeTemplateIDRe.MatchString(templateID)
}

// ComposePathFromTemplateID 解析模板 compose 文件路径，
// 拒绝任何会落到模板根目录之外的 ID
func ComposePathFromTemplateID(templateID string) (string, error) {
	if !IsSafeTemplateID(templateID) {
		return "", ErrInvalidTemplateID
	}

	root, err := filepath.Abs(config.DockerTemplateRoot())
	if err != nil {
		return "", err
	}
	candidate, err := filepath.Abs(filepath.Join(root, templateID))
	if err != nil {
		return "", err
	}
	if filepath.Dir(candidate) != root {
		return "", ErrInvalidTemplateID
	}
	return filepath.Join(candidate, ComposeFilename), nil
}

// loadComposeDoc 读取并解析 compose 文档，没有 services 段视为非法。
// 第二个返回值是服务名的声明顺序：map 反序列化会丢失键序，
// 而"第一个声明的服务"是有语义的，必须保留原始顺序。
func loadComposeDoc(composePath string) (map[string]interface{}, []string, error) {
	raw, err := os.ReadFile(composePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s not found", ComposeFilename)
		}
		return nil, nil, err
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("invalid compose format: %w", err)
	}
	if doc == nil {
		return nil, nil, errors.New("invalid compose format")
	}

	services, ok := doc["services"].(map[string]interface{})
	if !ok || len(services) == 0 {
		return nil, nil, errors.New("compose services section is missing")
	}
	return doc, serviceDeclarationOrder(raw, services), nil
}

// serviceDeclarationOrder 用 yaml.Node 再读一遍文档，取出 services
// 下各键在文件里出现的顺序；解析不出来时退回名字排序
func serviceDeclarationOrder(raw []byte, services map[string]interface{}) []string {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err == nil && len(root.Content) > 0 {
		mapping := root.Content[0]
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			if mapping.Content[i].Value != "services" {
				continue
			}
			section := mapping.Content[i+1]
			names := make([]string, 0, len(section.Content)/2)
			for j := 0; j+1 < len(section.Content); j += 2 {
				names = append(names, section.Content[j].Value)
			}
			return names
		}
	}

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parsePortValue 支持整数、"host:container[/proto]" 字符串和带 target 的 mapping 三种写法
func parsePortValue(raw interface{}) int {
	switch v := raw.(type) {
	case int:
		return v
	case string:
		stripped := strings.Trim(strings.TrimSpace(v), `"'`)
		stripped = strings.SplitN(stripped, "/", 2)[0]
		parts := strings.Split(stripped, ":")
		tail := ""
		for i := len(parts) - 1; i >= 0; i-- {
			if s := strings.TrimSpace(parts[i]); s != "" {
				tail = s
				break
			}
		}
		if n, err := strconv.Atoi(tail); err == nil {
			return n
		}
	case map[string]interface{}:
		switch target := v["target"].(type) {
		case int:
			return target
		case string:
			if n, err := strconv.Atoi(target); err == nil {
				return n
			}
		}
	}
	return 0
}

// extractContainerPort 先扫 ports 再扫 expose，取第一个能解析出来的端口
func extractContainerPort(serviceCfg map[string]interface{}) int {
	if ports, ok := serviceCfg["ports"].([]interface{}); ok {
		for _, item := range ports {
			if parsed := parsePortValue(item); parsed > 0 {
				return parsed
			}
		}
	}
	if expose, ok := serviceCfg["expose"].([]interface{}); ok {
		for _, item := range expose {
			if parsed := parsePortValue(item); parsed > 0 {
				return parsed
			}
		}
	}
	return 0
}

// composeMetadata 汇总服务列表并选出默认服务，全部按声明顺序：
// 优先第一个能探测到端口的服务，否则退回第一个声明的服务（无默认端口）
func composeMetadata(templateID string, doc map[string]interface{}, order []string, composePath string) *DockerTemplate {
	services := doc["services"].(map[string]interface{})

	meta := &DockerTemplate{
		TemplateID:  templateID,
		ComposePath: composePath,
		Services:    []string{},
	}
	for _, name := range order {
		cfg, ok := services[name].(map[string]interface{})
		if !ok {
			continue
		}
		meta.Services = append(meta.Services, name)
		if meta.DefaultService == "" {
			meta.DefaultService = name
		}
		if port := extractContainerPort(cfg); port > 0 && meta.DefaultContainerPort == 0 {
			meta.DefaultService = name
			meta.DefaultContainerPort = port
		}
	}
	return meta
}

// GetDockerTemplate 按 ID 加载单个模板；ID 非法或目录不存在返回 nil
func GetDockerTemplate(templateID string) (*DockerTemplate, error) {
	composePath, err := ComposePathFromTemplateID(templateID)
	if err != nil {
		return nil, nil
	}
	if _, err := os.Stat(composePath); err != nil {
		return nil, nil
	}

	doc, order, err := loadComposeDoc(composePath)
	if err != nil {
		return nil, err
	}
	return composeMetadata(templateID, doc, order, composePath), nil
}

// ListDockerTemplates 扫描模板根目录，按名字排序返回全部可用模板。
// 解析失败的目录直接跳过，该列表只是管理端的参考数据。
func ListDockerTemplates() []*DockerTemplate {
	root := config.DockerTemplateRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		return []*DockerTemplate{}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !IsSafeTemplateID(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	templates := make([]*DockerTemplate, 0, len(names))
	for _, name := range names {
		composePath := filepath.Join(root, name, ComposeFilename)
		if _, err := os.Stat(composePath); err != nil {
			continue
		}
		doc, order, err := loadComposeDoc(composePath)
		if err != nil {
			continue
		}
		templates = append(templates, composeMetadata(name, doc, order, composePath))
	}
	return templates
}
