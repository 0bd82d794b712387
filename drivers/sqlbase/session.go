// Package sqlbase 基于 database/sql 的后端会话实现，三种驱动共用。
// 每个会话独占一个物理连接，事务和保存点都在这个连接上执行。
package sqlbase

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/Kaguya154/dbic/parser"
	"github.com/Kaguya154/dbic/types"
)

// Options 由具体驱动提供
type Options struct {
	// DriverName database/sql 注册名
	DriverName string
	DSN        string
	// BeginSQL 开启事务的语句，默认 BEGIN
	BeginSQL string
	// Classify 识别驱动特有的断线错误，需要时包装 types.ErrConnLost
	Classify func(err error) error
	// IsBinary 列类型是否保留 []byte，其余类型的 []byte 转成 string
	IsBinary func(dbType string) bool

	// CommitEndsTx 为 true 时 COMMIT 失败后后端不再处于事务中（PostgreSQL）
	CommitEndsTx bool
}

var binaryTypes = map[string]bool{
	"BLOB":       true,
	"TINYBLOB":   true,
	"MEDIUMBLOB": true,
	"LONGBLOB":   true,
	"BINARY":     true,
	"VARBINARY":  true,
	"BYTEA":      true,
}

// DefaultIsBinary 常见二进制列类型
func DefaultIsBinary(dbType string) bool {
	return binaryTypes[strings.ToUpper(dbType)]
}

// Session 实现 types.Session
type Session struct {
	db   *sql.DB
	conn *sql.Conn
	opts Options
}

// Open 打开数据库并取出一个专用连接
func Open(opts Options) (*Session, error) {
	if opts.BeginSQL == "" {
		opts.BeginSQL = "BEGIN"
	}
	if opts.IsBinary == nil {
		opts.IsBinary = DefaultIsBinary
	}

	db, err := sql.Open(opts.DriverName, opts.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}
	return &Session{db: db, conn: conn, opts: opts}, nil
}

func (s *Session) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", types.ErrConnLost, err)
	}
	if s.opts.Classify != nil {
		return s.opts.Classify(err)
	}
	return err
}

func (s *Session) Exec(query string) (int64, error) {
	res, err := s.conn.ExecContext(context.Background(), query)
	if err != nil {
		return 0, s.classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *Session) control(query string) error {
	_, err := s.Exec(query)
	return err
}

func (s *Session) Prepare(query string) (types.CompiledStmt, error) {
	stmt, err := s.conn.PrepareContext(context.Background(), query)
	if err != nil {
		return nil, s.classify(err)
	}
	return &Stmt{
		sess:        s,
		stmt:        stmt,
		returnsRows: parser.ReturnsRows(query),
	}, nil
}

func (s *Session) Begin() error {
	return s.control(s.opts.BeginSQL)
}

func (s *Session) Commit() error {
	err := s.control("COMMIT")
	if err != nil && s.opts.CommitEndsTx && !errors.Is(err, types.ErrConnLost) {
		return fmt.Errorf("%w: %w", types.ErrTxEnded, err)
	}
	return err
}

func (s *Session) Rollback() error {
	return s.control("ROLLBACK")
}

func (s *Session) Savepoint(name string) error {
	return s.control("SAVEPOINT " + name)
}

func (s *Session) ReleaseSavepoint(name string) error {
	return s.control("RELEASE SAVEPOINT " + name)
}

func (s *Session) RollbackToSavepoint(name string) error {
	return s.control("ROLLBACK TO SAVEPOINT " + name)
}

func (s *Session) Ping() error {
	return s.classify(s.conn.PingContext(context.Background()))
}

func (s *Session) Close() error {
	err := s.conn.Close()
	if dbErr := s.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

// Stmt 实现 types.CompiledStmt
type Stmt struct {
	sess        *Session
	stmt        *sql.Stmt
	returnsRows bool
}

// NumInput database/sql 不暴露参数个数
func (st *Stmt) NumInput() int {
	return -1
}

func (st *Stmt) Execute(args []interface{}) (types.RawResult, error) {
	ctx := context.Background()
	if !st.returnsRows {
		res, err := st.stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, st.sess.classify(err)
		}
		r := &Result{lastID: -1}
		if n, err := res.RowsAffected(); err == nil {
			r.affected = n
		}
		if id, err := res.LastInsertId(); err == nil {
			r.lastID = id
		}
		return r, nil
	}

	rows, err := st.stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, st.sess.classify(err)
	}
	cts, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, st.sess.classify(err)
	}
	cols := make([]types.Column, len(cts))
	binary := make([]bool, len(cts))
	for i, ct := range cts {
		nullable, _ := ct.Nullable()
		cols[i] = types.Column{
			Name:     ct.Name(),
			Ordinal:  i,
			DeclType: ct.DatabaseTypeName(),
			Nullable: nullable,
		}
		binary[i] = st.sess.opts.IsBinary(ct.DatabaseTypeName())
	}
	return &Result{
		sess:     st.sess,
		rows:     rows,
		cols:     cols,
		binary:   binary,
		scratch:  make([]interface{}, len(cols)),
		affected: -1,
		lastID:   -1,
	}, nil
}

func (st *Stmt) Close() error {
	return st.stmt.Close()
}

// Result 实现 types.RawResult
type Result struct {
	sess     *Session
	rows     *sql.Rows
	cols     []types.Column
	binary   []bool
	scratch  []interface{}
	affected int64
	lastID   int64
}

func (r *Result) Columns() []types.Column {
	return r.cols
}

func (r *Result) Next(dest []interface{}) (bool, error) {
	if r.rows == nil {
		return false, nil
	}
	if !r.rows.Next() {
		err := r.rows.Err()
		r.rows.Close()
		r.rows = nil
		return false, r.sess.classify(err)
	}
	for i := range r.scratch {
		r.scratch[i] = &dest[i]
	}
	if err := r.rows.Scan(r.scratch...); err != nil {
		return false, r.sess.classify(err)
	}
	for i, v := range dest {
		if b, ok := v.([]byte); ok && !r.binary[i] {
			dest[i] = string(b)
		}
	}
	return true, nil
}

func (r *Result) RowsAffected() int64 {
	return r.affected
}

func (r *Result) LastInsertID() int64 {
	return r.lastID
}

func (r *Result) Close() error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	return err
}
