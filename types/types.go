package types

import (
	"fmt"
	"log/slog"
	"strings"
)

// DriverKind 后端数据库类型
type DriverKind string

const (
	MySQL      DriverKind = "mysql"
	PostgreSQL DriverKind = "postgresql"
	SQLite     DriverKind = "sqlite"
)

func (k DriverKind) String() string {
	return string(k)
}

// ParseDriverKind 解析驱动名称，支持常见别名
func ParseDriverKind(name string) (DriverKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return MySQL, nil
	case "postgresql", "postgres", "pg":
		return PostgreSQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown driver %q", name)
}

// Dialect 占位符风格
type Dialect uint8

const (
	// DialectQuestion 原生支持 ? 占位符（MySQL、SQLite）
	DialectQuestion Dialect = iota
	// DialectDollar 使用 $1, $2 ... 编号占位符（PostgreSQL）
	DialectDollar
)

func (d Dialect) String() string {
	if d == DialectDollar {
		return "dollar"
	}
	return "question"
}

// Config 连接参数
type Config struct {
	Driver   DriverKind
	Host     string
	Port     string
	User     string
	Password string
	Database string
	// DSN 非空时直接使用，忽略上面的字段
	DSN string
	// Options 驱动相关参数，例如 sslmode、sslcert、sslkey
	Options map[string]string
	Logger  *slog.Logger
}

// Column 列元数据，在取第一行之前即可用
type Column struct {
	Name     string
	Ordinal  int
	DeclType string
	Nullable bool
}

type ConditionOp string

type ConditionExpr struct {
	Op     ConditionOp
	Field  string
	Value  interface{}
	Values []interface{}
	Exprs  []*ConditionExpr
}

// CondBuilder 用于构建通用条件表达式的结构体。
type CondBuilder struct {
	exprs []*ConditionExpr
}

type OpType string

const (
	OpInsert OpType = "Insert"
	OpQuery  OpType = "Query"
	OpUpdate OpType = "Update"
	OpDelete OpType = "Delete"
)

func (op OpType) String() string {
	return string(op)
}
