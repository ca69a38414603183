package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// StoreFields 描述当前使用的存储后端。
func StoreFields(backendKey, storagePath string, shardDepth int, syncOnStore bool) logrus.Fields {
	return logrus.Fields{
		"backend":       backendKey,
		"storage_path":  storagePath,
		"shard_depth":   shardDepth,
		"sync_on_store": syncOnStore,
	}
}

// BenchFields 提供基准阶段的进度字段。
func BenchFields(phase string, done, total int) logrus.Fields {
	return logrus.Fields{
		"phase": phase,
		"done":  done,
		"total": total,
	}
}
