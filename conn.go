package dbic

import (
	"errors"
	"log/slog"

	"github.com/Kaguya154/dbic/dbtools"
	"github.com/Kaguya154/dbic/parser"
	"github.com/Kaguya154/dbic/types"
)

// 辅助方法缓存的语句上限
const stmtCacheLimit = 64

// Conn 一个数据库会话。状态 Open -> Closed，关闭后所有操作返回 ErrConnectionClosed。
type Conn struct {
	drv    types.Driver
	sess   types.Session
	logger *slog.Logger
	trace  bool
	closed bool

	frames []frame
	stmts  map[*Statement]struct{}
	// active 正在占用会话流式读取的游标，最多一个
	active *Cursor

	cache *dbtools.Cache[*Statement]
	sqlp  *parser.SQLParser
}

func connect(drv types.Driver, cfg types.Config) (*Conn, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sess, err := drv.Connect(cfg)
	if err != nil {
		return nil, newError(KindConnect, "open", "", err)
	}

	c := &Conn{
		drv:    drv,
		sess:   sess,
		logger: logger,
		stmts:  make(map[*Statement]struct{}),
		sqlp:   &parser.SQLParser{QuoteFunc: drv.Quote},
	}
	c.cache = dbtools.NewCache(stmtCacheLimit, func(_ string, st *Statement) {
		st.Release()
	})
	logger.Info("connection opened", "driver", drv.Kind(), "host", cfg.Host, "database", cfg.Database)
	return c, nil
}

// Driver 后端类型
func (c *Conn) Driver() types.DriverKind {
	return c.drv.Kind()
}

// SetLogger 替换日志记录器
func (c *Conn) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Trace 开启后发送到后端的每条 SQL 都以 Debug 级别记录
func (c *Conn) Trace(on bool) {
	c.trace = on
}

func (c *Conn) traceSQL(sql string, args []interface{}) {
	if !c.trace {
		return
	}
	if len(args) > 0 {
		c.logger.Debug("sql", "driver", c.drv.Kind(), "sql", sql, "args", args)
		return
	}
	c.logger.Debug("sql", "driver", c.drv.Kind(), "sql", sql)
}

// IsClosed 连接是否已关闭（显式关闭或断线）
func (c *Conn) IsClosed() bool {
	return c.closed
}

func (c *Conn) guard(op string) error {
	if c.closed {
		return newError(KindConnectionClosed, op, "", nil)
	}
	return nil
}

// fail 包装后端错误；断线时连接转为 Closed
func (c *Conn) fail(kind Kind, op, sql string, err error) error {
	if errors.Is(err, types.ErrConnLost) {
		c.logger.Warn("connection lost", "driver", c.drv.Kind(), "op", op, "error", err)
		c.shutdown()
		return newError(KindConnectionClosed, op, sql, err)
	}
	return newError(kind, op, sql, err)
}

// quiesce 在会话被其它操作使用前，把仍在流式读取的游标剩余行读入内存
func (c *Conn) quiesce() error {
	if c.active == nil {
		return nil
	}
	return c.active.materialize()
}

// Execute 执行一条语句，返回影响行数（DML）或返回行数（查询）。
// 带参数或返回结果集时走临时预编译语句。
func (c *Conn) Execute(sql string, args ...interface{}) (int64, error) {
	if err := c.guard("execute"); err != nil {
		return 0, err
	}
	if len(args) == 0 && !parser.ReturnsRows(sql) {
		if err := c.quiesce(); err != nil {
			return 0, err
		}
		c.traceSQL(sql, nil)
		n, err := c.sess.Exec(sql)
		if err != nil {
			return 0, c.fail(KindExecution, "execute", sql, err)
		}
		return n, nil
	}

	st, err := c.Prepare(sql)
	if err != nil {
		return 0, err
	}
	defer st.Release()
	cur, err := st.Execute(args...)
	if err != nil {
		return 0, err
	}
	if len(cur.Columns()) == 0 {
		return cur.RowsAffected(), nil
	}
	var n int64
	err = cur.ForEach(func(*types.Row) error {
		n++
		return nil
	})
	return n, err
}

// Prepare 改写占位符并在后端编译一次，之后可多次执行
func (c *Conn) Prepare(sql string) (*Statement, error) {
	if err := c.guard("prepare"); err != nil {
		return nil, err
	}
	if err := c.quiesce(); err != nil {
		return nil, err
	}

	dialect := c.drv.Dialect()
	native, n := parser.Rewrite(sql, dialect)
	if n == 0 && dialect == types.DialectDollar {
		n = parser.MaxDollarParam(native)
	}

	c.traceSQL(native, nil)
	compiled, err := c.sess.Prepare(native)
	if err != nil {
		return nil, c.fail(KindPrepare, "prepare", sql, err)
	}
	if k := compiled.NumInput(); k >= 0 {
		n = k
	}

	st := &Statement{
		conn:     c,
		sql:      sql,
		native:   native,
		nparams:  n,
		compiled: compiled,
	}
	c.stmts[st] = struct{}{}
	return st, nil
}

// Ping 检查会话，失败且为断线时连接关闭
func (c *Conn) Ping() error {
	if err := c.guard("ping"); err != nil {
		return err
	}
	if err := c.quiesce(); err != nil {
		return err
	}
	if err := c.sess.Ping(); err != nil {
		return c.fail(KindExecution, "ping", "", err)
	}
	return nil
}

// Quote 按方言引用标识符
func (c *Conn) Quote(identifier string) string {
	return c.drv.Quote(identifier)
}

// Escape 按方言生成带引号的字符串字面量
func (c *Conn) Escape(value string) string {
	return c.drv.Escape(value)
}

// Close 回滚未完成的事务，释放所有语句并关闭会话。
// 未读完的游标随之失效，之后读取返回 ErrConnectionClosed。
func (c *Conn) Close() error {
	if err := c.guard("close"); err != nil {
		return err
	}
	if len(c.frames) > 0 {
		c.logger.Warn("closing with open transaction, rolling back", "driver", c.drv.Kind(), "depth", len(c.frames))
		c.traceSQL("ROLLBACK", nil)
		c.invalidateActive()
		if err := c.sess.Rollback(); err != nil {
			c.logger.Warn("rollback on close failed", "error", err)
		}
	}
	err := c.shutdown()
	c.logger.Info("connection closed", "driver", c.drv.Kind())
	if err != nil {
		return newError(KindExecution, "close", "", err)
	}
	return nil
}

func (c *Conn) invalidateActive() {
	if c.active != nil {
		c.active.invalidate(newError(KindConnectionClosed, "fetch", c.active.stmt.sql, nil))
	}
}

// invalidateCursors 让所有语句上未读完的游标失效
func (c *Conn) invalidateCursors() {
	c.invalidateActive()
	for st := range c.stmts {
		if cur := st.cursor; cur != nil {
			cur.invalidate(newError(KindConnectionClosed, "fetch", st.sql, nil))
		}
	}
}

// shutdown 标记关闭并释放资源，断线时也会调用
func (c *Conn) shutdown() error {
	if c.closed {
		return nil
	}
	c.invalidateCursors()
	c.closed = true
	c.frames = nil
	c.cache.Clear()
	for st := range c.stmts {
		st.release()
	}
	return c.sess.Close()
}
