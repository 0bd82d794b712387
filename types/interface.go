package types

import "errors"

// ErrConnLost 由驱动包装返回，表示会话已断开，连接不可再用
var ErrConnLost = errors.New("connection lost")

// ErrTxEnded 由驱动包装返回，表示 COMMIT 虽然失败，后端已经结束了事务
var ErrTxEnded = errors.New("transaction ended")

// Driver 后端驱动能力集合，每种数据库一个实现
type Driver interface {
	Kind() DriverKind
	Dialect() Dialect
	Connect(cfg Config) (Session, error)
	Quote(identifier string) string
	Escape(value string) string
}

// Session 一个已建立的数据库会话，同一时刻只允许一个操作
type Session interface {
	// Exec 执行不带参数的语句，返回影响行数
	Exec(sql string) (int64, error)
	// Prepare 编译已转换为原生占位符的语句
	Prepare(sql string) (CompiledStmt, error)

	Begin() error
	Commit() error
	Rollback() error
	Savepoint(name string) error
	ReleaseSavepoint(name string) error
	RollbackToSavepoint(name string) error

	Ping() error
	Close() error
}

// CompiledStmt 后端编译好的语句
type CompiledStmt interface {
	// NumInput 返回后端报告的参数个数，未知时返回 -1
	NumInput() int
	Execute(args []interface{}) (RawResult, error)
	Close() error
}

// RawResult 后端原始结果集，只能向前读取
type RawResult interface {
	Columns() []Column
	// Next 读取下一行到 dest，没有更多行时返回 false
	Next(dest []interface{}) (bool, error)
	RowsAffected() int64
	LastInsertID() int64
	Close() error
}
