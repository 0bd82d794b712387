package dbic

import (
	"database/sql/driver"
	"fmt"

	"github.com/Kaguya154/dbic/types"
)

// StmtState 语句执行状态
type StmtState uint8

const (
	StateIdle StmtState = iota
	StateExecuting
	StateHasPendingRows
)

func (s StmtState) String() string {
	switch s {
	case StateExecuting:
		return "executing"
	case StateHasPendingRows:
		return "pending rows"
	}
	return "idle"
}

// Statement 绑定在一个 Conn 上的预编译语句。
//
// 重新执行时，上一次执行未读完的游标会被丢弃并失效（之后表现为已读完），
// 不需要在循环里手动关闭游标。在同一语句的 ForEach 回调里再次执行该语句返回 ErrStatementBusy。
type Statement struct {
	conn      *Conn
	sql       string
	native    string
	nparams   int
	compiled  types.CompiledStmt
	state     StmtState
	args      []interface{}
	cursor    *Cursor
	iterating int
	released  bool
}

// SQL 原始语句（? 占位符）
func (st *Statement) SQL() string {
	return st.sql
}

// NativeSQL 发送给后端的语句
func (st *Statement) NativeSQL() string {
	return st.native
}

// NumParams 需要绑定的参数个数
func (st *Statement) NumParams() int {
	return st.nparams
}

func (st *Statement) State() StmtState {
	return st.state
}

// Args 最近一次执行绑定的参数
func (st *Statement) Args() []interface{} {
	out := make([]interface{}, len(st.args))
	copy(out, st.args)
	return out
}

// Execute 按位置绑定参数并执行，每次成功执行都返回一个新游标；
// 没有结果列的语句（INSERT 等）返回零列、已读完的游标。
func (st *Statement) Execute(args ...interface{}) (*Cursor, error) {
	c := st.conn
	if err := c.guard("execute"); err != nil {
		return nil, err
	}
	if st.released {
		return nil, errorf(KindExecution, "execute", "statement already released")
	}
	if st.iterating > 0 {
		return nil, newError(KindStatementBusy, "execute", st.sql, fmt.Errorf("statement is being iterated"))
	}
	if len(args) != st.nparams {
		return nil, newError(KindBind, "execute", st.sql,
			fmt.Errorf("expected %d bind values, got %d", st.nparams, len(args)))
	}

	vals := make([]interface{}, len(args))
	for i, a := range args {
		v, err := driver.DefaultParameterConverter.ConvertValue(a)
		if err != nil {
			return nil, newError(KindBind, "execute", st.sql, fmt.Errorf("bind value %d: %w", i+1, err))
		}
		vals[i] = v
	}

	if st.cursor != nil {
		st.cursor.discard()
		st.cursor = nil
	}
	if err := c.quiesce(); err != nil {
		return nil, err
	}

	c.traceSQL(st.native, vals)
	st.args = vals
	st.state = StateExecuting
	raw, err := st.compiled.Execute(vals)
	if err != nil {
		st.state = StateIdle
		return nil, c.fail(KindExecution, "execute", st.sql, err)
	}

	cur := newCursor(st, raw)
	st.cursor = cur
	if cur.done {
		st.state = StateIdle
	} else {
		st.state = StateHasPendingRows
		c.active = cur
	}
	return cur, nil
}

// Release 释放后端语句，未读完的游标失效
func (st *Statement) Release() error {
	if st.released {
		return nil
	}
	return st.release()
}

func (st *Statement) release() error {
	if st.cursor != nil {
		st.cursor.discard()
		st.cursor = nil
	}
	st.released = true
	st.state = StateIdle
	delete(st.conn.stmts, st)
	return st.compiled.Close()
}
