/*
 * @author: sun977
 * @date: 2025.12.20
 * @description: uuid工具包
 * @func: 提供uuid生成工具函数
 */

package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成UUID v4（基于随机数）
// 返回标准格式的UUID字符串，如：550e8400-e29b-41d4-a716-446655440000
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GenerateSimpleUUID 生成简化格式的UUID（不含连字符）
// 返回32位十六进制字符串，如：550e8400e29b41d4a716446655440000
func GenerateSimpleUUID() (string, error) {
	id, err := GenerateUUID()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id, "-", ""), nil
}
