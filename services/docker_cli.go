// file: services/docker_cli.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"CASCTF/config"
)

// Docker CLI 调用统一走这里：同步子进程 + 超时控制。
// 超时视为硬失败，不做自动重试。

const (
	dockerInspectTimeout = 60 * time.Second
	dockerComposeTimeout = 180 * time.Second
)

var ErrDockerCLINotFound = errors.New("docker CLI not found on server")

type dockerResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func dockerBaseArgs() []string {
	if ctx := config.DockerContext(); ctx != "" {
		return []string{"--context", ctx}
	}
	return nil
}

// runDockerCommand 执行 docker 子命令并等待退出。
// 非零退出码不在这里判错，由调用方结合输出决定如何处理。
func runDockerCommand(args []string, workDir string, timeout time.Duration) (*dockerResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	full := append(dockerBaseArgs(), args...)
	cmd := exec.CommandContext(ctx, "docker", full...)
	if workDir != "" {
		cmd.Dir = workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("docker command timed out after %s: docker %s", timeout, strings.Join(args, " "))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &dockerResult{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrDockerCLINotFound
		}
		return nil, fmt.Errorf("failed to run docker command: %w", err)
	}

	return &dockerResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}, nil
}

// dockerError 把 CLI 输出转成带指引的错误。
// 能识别出 daemon 未启动时给出可操作的提示，其余原样透传。
func dockerError(log string) error {
	lower := strings.ToLower(log)
	if strings.Contains(lower, "open //./pipe/dockerdesktoplinuxengine") ||
		strings.Contains(lower, "open //./pipe/docker_engine") {
		return errors.New("Docker daemon is not available. Start Docker Desktop (or Docker Engine) and retry.")
	}
	if strings.Contains(lower, "cannot connect to the docker daemon") ||
		strings.Contains(lower, "failed to connect to the docker api") {
		return errors.New("Cannot connect to Docker daemon. Check Docker service status and docker context.")
	}
	if log == "" {
		log = "Unknown docker error"
	}
	return errors.New(log)
}

// resultError 从失败结果中取最有信息量的输出生成错误
func resultError(res *dockerResult, fallback string) error {
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.Stdout)
	}
	if msg == "" {
		msg = fallback
	}
	return dockerError(msg)
}
