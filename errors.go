package dbic

import (
	"fmt"
)

// Kind 错误类别
type Kind uint8

const (
	KindConnect Kind = iota + 1
	KindPrepare
	KindBind
	KindExecution
	KindStatementBusy
	KindConnectionClosed
	KindTransaction
)

var kindNames = map[Kind]string{
	KindConnect:          "connect error",
	KindPrepare:          "prepare error",
	KindBind:             "bind error",
	KindExecution:        "execution error",
	KindStatementBusy:    "statement busy",
	KindConnectionClosed: "connection closed",
	KindTransaction:      "transaction error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error 所有操作返回的错误。Err 为后端给出的原始诊断。
type Error struct {
	Kind Kind
	Op   string
	SQL  string
	Err  error
}

// 用于 errors.Is 比较类别
var (
	ErrConnect          = &Error{Kind: KindConnect}
	ErrPrepare          = &Error{Kind: KindPrepare}
	ErrBind             = &Error{Kind: KindBind}
	ErrExecution        = &Error{Kind: KindExecution}
	ErrStatementBusy    = &Error{Kind: KindStatementBusy}
	ErrConnectionClosed = &Error{Kind: KindConnectionClosed}
	ErrTransaction      = &Error{Kind: KindTransaction}
)

func (e *Error) Error() string {
	msg := "dbic: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.SQL != "" {
		msg += " (sql: " + e.SQL + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 只比较类别，使 errors.Is(err, ErrBind) 成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

func newError(kind Kind, op, sql string, err error) *Error {
	return &Error{Kind: kind, Op: op, SQL: sql, Err: err}
}

func errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}
