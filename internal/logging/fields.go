package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// QueryFields 提供目录源/路径/结果来源字段，供目录与内容查询日志复用。
func QueryFields(source, path, kind, outcome string) logrus.Fields {
	return logrus.Fields{
		"source":  source,
		"path":    path,
		"kind":    kind,
		"outcome": outcome,
	}
}

// RequestFields 提供浏览接口的请求字段。
func RequestFields(requestID, source, route string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"source":     source,
		"route":      route,
		"status":     status,
	}
}
