// 服务层便捷日志函数
package logger

import (
	"github.com/sirupsen/logrus"
)

// LogInfo 记录信息日志
// 服务层通用信息记录，path参数在非HTTP调用场景下传操作标识
func LogInfo(message string, requestID string, userID uint, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	if message == "" {
		return
	}

	// 构建日志字段
	fields := logrus.Fields{
		"type":       "info",
		"message":    message,
		"request_id": requestID,
		"user_id":    userID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}

	// 添加额外字段
	for k, v := range extraFields {
		fields[k] = v
	}

	// 记录信息日志
	LoggerInstance.logger.WithFields(fields).Info(message)
}

// LogWarn 记录警告日志
func LogWarn(message string, requestID string, userID uint, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	if message == "" {
		return
	}

	// 构建日志字段
	fields := logrus.Fields{
		"type":       "warn",
		"message":    message,
		"request_id": requestID,
		"user_id":    userID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}

	// 添加额外字段
	for k, v := range extraFields {
		fields[k] = v
	}

	// 记录警告日志
	LoggerInstance.logger.WithFields(fields).Warn(message)
}

// LogBusinessError 记录业务错误日志
// 服务层业务错误记录，operation为业务操作名，source为来源标识（SERVICE/SCHEDULER等）
func LogBusinessError(err error, requestID string, userID uint, clientIP, operation, source string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	if err == nil {
		return
	}

	// 构建日志字段
	fields := logrus.Fields{
		"type":       BusinessLog,
		"error":      err.Error(),
		"request_id": requestID,
		"user_id":    userID,
		"client_ip":  clientIP,
		"operation":  operation,
		"source":     source,
	}

	// 添加额外字段
	for k, v := range extraFields {
		fields[k] = v
	}

	// 记录业务错误日志
	LoggerInstance.logger.WithFields(fields).Errorf("Business operation failed: %s", operation)
}
