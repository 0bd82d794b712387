// Package config 从环境变量（可选 .env 文件）读取连接配置
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Kaguya154/dbic/types"
)

// Config 命令行工具使用的配置
type Config struct {
	DB    types.Config
	Trace bool
}

// Load 先加载 envFile（为空时尝试 .env，文件不存在不算错误），再读取 DBIC_* 环境变量
func Load(envFile string) (*Config, error) {
	file := envFile
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	kind, err := types.ParseDriverKind(getEnv("DBIC_DRIVER", "sqlite"))
	if err != nil {
		return nil, err
	}
	options, err := parseOptions(getEnv("DBIC_OPTIONS", ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		DB: types.Config{
			Driver:   kind,
			Host:     getEnv("DBIC_HOST", ""),
			Port:     getEnv("DBIC_PORT", ""),
			User:     getEnv("DBIC_USER", ""),
			Password: getEnv("DBIC_PASSWORD", ""),
			Database: getEnv("DBIC_DATABASE", ""),
			DSN:      getEnv("DBIC_DSN", ""),
			Options:  options,
		},
		Trace: getEnvBool("DBIC_TRACE", false),
	}, nil
}

// parseOptions 解析 k=v;k=v
func parseOptions(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	opts := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid option %q, want key=value", part)
		}
		opts[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return opts, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
