package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var sourceNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError("Global.LogLevel", "无法识别的日志级别")
		}
	}
	if g.MaxRetries < 0 {
		return newFieldError("Global.MaxRetries", "不能为负数")
	}
	if g.RequestsPerSecond < 0 {
		return newFieldError("Global.RequestsPerSecond", "不能为负数")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.MaxListingSize < 0 || g.MaxContentSize < 0 {
		return newFieldError("Global.MaxListingSize/MaxContentSize", "不能为负数")
	}

	if len(c.Sources) == 0 {
		return errors.New("至少需要配置一个 Source")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			return newFieldError("Source[].Name", "不能为空")
		}
		if !sourceNamePattern.MatchString(src.Name) {
			return newFieldError(sourceField(src.Name, "Name"), "仅允许小写字母、数字、- 与 _")
		}
		if _, exists := seenNames[src.Name]; exists {
			return newFieldError(sourceField(src.Name, "Name"), "重复")
		}
		seenNames[src.Name] = struct{}{}

		normalizedType := strings.ToLower(strings.TrimSpace(src.Type))
		if normalizedType == "" {
			return newFieldError(sourceField(src.Name, "Type"), "不能为空")
		}
		src.Type = normalizedType

		for _, mirror := range src.Mirrors {
			if err := validateMirror(mirror); err != nil {
				return fmt.Errorf("%s: %w", sourceField(src.Name, "Mirrors"), err)
			}
		}
		if _, err := BuildSourceRuntime(*src); err != nil {
			return err
		}
	}

	return nil
}

func validateMirror(raw string) error {
	if raw == "" {
		return errors.New("镜像地址不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，镜像: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("镜像缺少 Host: %s", raw)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("镜像地址不允许包含查询参数: %s", raw)
	}
	return nil
}
