package dbic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Kaguya154/dbic/types"
)

// frame 一层事务。最外层对应 BEGIN，其余对应保存点。
type frame struct {
	name string
}

// newSavepointName 生成连接生命周期内唯一的保存点名
func newSavepointName() string {
	return "sp" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func validSavepointName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Depth 当前事务嵌套层数
func (c *Conn) Depth() int {
	return len(c.frames)
}

// Transactions 活动事务名，最外层在前
func (c *Conn) Transactions() []string {
	names := make([]string, len(c.frames))
	for i, f := range c.frames {
		names[i] = f.name
	}
	return names
}

// Begin 开启一层事务：第一层发 BEGIN，之后创建保存点。name 为空时自动生成，返回实际使用的名字。
func (c *Conn) Begin(name string) (string, error) {
	if err := c.guard("begin"); err != nil {
		return "", err
	}
	if name == "" {
		name = newSavepointName()
	} else if !validSavepointName(name) {
		return "", errorf(KindTransaction, "begin", "invalid savepoint name %q", name)
	}
	for _, f := range c.frames {
		if f.name == name {
			return "", errorf(KindTransaction, "begin", "savepoint %s already active", name)
		}
	}
	if err := c.quiesce(); err != nil {
		return "", err
	}

	var err error
	if len(c.frames) == 0 {
		c.traceSQL("BEGIN", nil)
		err = c.sess.Begin()
	} else {
		c.traceSQL("SAVEPOINT "+name, nil)
		err = c.sess.Savepoint(name)
	}
	if err != nil {
		return "", c.fail(KindExecution, "begin", "", err)
	}
	c.frames = append(c.frames, frame{name: name})
	return name, nil
}

// top 校验 name 是否为栈顶，name 为空表示栈顶
func (c *Conn) top(op, name string) (int, error) {
	if err := c.guard(op); err != nil {
		return 0, err
	}
	if len(c.frames) == 0 {
		return 0, errorf(KindTransaction, op, "no active transaction")
	}
	idx := len(c.frames) - 1
	if name != "" && c.frames[idx].name != name {
		return 0, errorf(KindTransaction, op, "%s is not the innermost transaction", name)
	}
	return idx, nil
}

// Commit 提交栈顶事务：最外层 COMMIT，其余 RELEASE SAVEPOINT
func (c *Conn) Commit(name string) error {
	idx, err := c.top("commit", name)
	if err != nil {
		return err
	}
	return c.finishFrame(idx, true)
}

// Rollback 回滚栈顶事务：最外层 ROLLBACK，其余回滚到保存点后释放它
func (c *Conn) Rollback(name string) error {
	idx, err := c.top("rollback", name)
	if err != nil {
		return err
	}
	return c.finishFrame(idx, false)
}

func (c *Conn) frameIndex(name string) int {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].name == name {
			return i
		}
	}
	return -1
}

// finishFrame 结束第 idx 层，其上的层一并出栈（后端的 RELEASE/ROLLBACK TO 同样作用于更内层的保存点）。
// 后端执行成功后才出栈；失败时该层保留，调用方可以重试或回滚。
// 最外层 ROLLBACK 以及后端声明已结束事务的 COMMIT 失败例外。
func (c *Conn) finishFrame(idx int, commit bool) error {
	if err := c.quiesce(); err != nil {
		return err
	}
	name := c.frames[idx].name

	var err error
	switch {
	case idx == 0 && commit:
		c.traceSQL("COMMIT", nil)
		err = c.sess.Commit()
	case idx == 0:
		c.traceSQL("ROLLBACK", nil)
		err = c.sess.Rollback()
	case commit:
		c.traceSQL("RELEASE SAVEPOINT "+name, nil)
		err = c.sess.ReleaseSavepoint(name)
	default:
		c.traceSQL("ROLLBACK TO SAVEPOINT "+name, nil)
		err = c.sess.RollbackToSavepoint(name)
		if err == nil {
			c.traceSQL("RELEASE SAVEPOINT "+name, nil)
			err = c.sess.ReleaseSavepoint(name)
		}
	}
	if err == nil || (idx == 0 && (!commit || errors.Is(err, types.ErrTxEnded))) {
		c.frames = c.frames[:idx]
	}
	if err != nil {
		op := "rollback"
		if commit {
			op = "commit"
		}
		return c.fail(KindExecution, op, "", err)
	}
	return nil
}

// Transaction 在新的一层事务中执行 body。
// body 返回 nil 时提交该层，返回错误或 panic 时先回滚该层再把错误返回（或继续 panic）。
// 内层回滚只撤销内层的修改，外层事务不受影响。
// body 自己已经提交或回滚了这一层时不再重复处理。
func (c *Conn) Transaction(body func(c *Conn) error) (err error) {
	name, err := c.Begin("")
	if err != nil {
		return err
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		if p := recover(); p != nil {
			if idx := c.frameIndex(name); idx >= 0 && !c.closed {
				if rbErr := c.finishFrame(idx, false); rbErr != nil {
					c.logger.Warn("rollback after panic failed", "savepoint", name, "error", rbErr)
				}
			}
			panic(p)
		}
	}()

	bodyErr := body(c)
	completed = true

	idx := c.frameIndex(name)
	if idx < 0 || c.closed {
		return bodyErr
	}
	if bodyErr != nil {
		if rbErr := c.finishFrame(idx, false); rbErr != nil {
			return errors.Join(bodyErr, fmt.Errorf("rollback %s: %w", name, rbErr))
		}
		return bodyErr
	}
	if err := c.finishFrame(idx, true); err != nil {
		if idx := c.frameIndex(name); idx >= 0 && !c.closed {
			if rbErr := c.finishFrame(idx, false); rbErr != nil {
				return errors.Join(err, fmt.Errorf("rollback %s: %w", name, rbErr))
			}
		}
		return err
	}
	return nil
}
