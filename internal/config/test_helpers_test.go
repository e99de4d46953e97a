package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testConfigPath 返回 testdata 下的配置文件路径，文件不存在时立即失败。
func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("缺少测试配置 %s: %v", name, err)
	}
	return path
}

// writeTempConfig 写入临时 TOML；未声明 StoragePath 时指向临时目录，避免在包目录下生成缓存。
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "StoragePath") {
		content = fmt.Sprintf("StoragePath = %q\n", filepath.Join(dir, "storage")) + content
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}
