package logger

import (
	"go.uber.org/zap"
)

// New 按运行模式构造 zap 日志器
// development 输出彩色可读格式，其余模式输出 JSON
func New(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
