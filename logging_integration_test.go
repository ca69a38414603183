package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggingFallbackToConsole(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("创建文件失败: %v", err)
	}

	logPath := filepath.Join(blocker, "sub", "content-cache.log")
	configPath := writeConfigFile(t, `
LogLevel = "info"
LogFilePath = "`+filepath.ToSlash(logPath)+`"
StoragePath = "`+filepath.ToSlash(filepath.Join(dir, "storage"))+`"
`)

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, checkOnly: true})
	if code != 0 {
		t.Fatalf("日志 fallback 不应导致失败，得到 %d", code)
	}
	if !strings.Contains(stdErrBuffer().String(), "logger_fallback") {
		t.Fatalf("fallback 日志应写入 stderr: %s", stdErrBuffer().String())
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(strings.TrimSpace(content)), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}
