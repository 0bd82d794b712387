package dbic

import (
	"iter"

	"github.com/Kaguya154/dbic/types"
)

// Cursor 一次执行的结果，只能向前读取。
// Fetchrow、First、FetchHash、ForEach、Iter 共用同一个读取位置。
// 读完后返回 nil 行，反复调用也不会报错。
type Cursor struct {
	stmt *Statement
	raw  types.RawResult
	cols []types.Column

	// materialized 为 true 时剩余行在 buf 中，raw 已关闭
	materialized bool
	buf          [][]interface{}

	done     bool
	err      error
	pos      int
	affected int64
	lastID   int64
}

func newCursor(st *Statement, raw types.RawResult) *Cursor {
	cur := &Cursor{
		stmt:     st,
		raw:      raw,
		cols:     raw.Columns(),
		affected: raw.RowsAffected(),
		lastID:   raw.LastInsertID(),
	}
	if len(cur.cols) == 0 {
		raw.Close()
		cur.raw = nil
		cur.done = true
	}
	return cur
}

// Columns 列元数据，第一行之前即可用
func (cur *Cursor) Columns() []types.Column {
	return cur.cols
}

// ColumnNames 按顺序的列名
func (cur *Cursor) ColumnNames() []string {
	names := make([]string, len(cur.cols))
	for i, c := range cur.cols {
		names[i] = c.Name
	}
	return names
}

// Rows 已知的总行数：已读完或已缓存时返回总数，仍在流式读取时返回 -1
func (cur *Cursor) Rows() int {
	switch {
	case cur.materialized:
		return cur.pos + len(cur.buf)
	case cur.done:
		return cur.pos
	}
	return -1
}

// RowsAffected DML 影响行数，查询为 -1
func (cur *Cursor) RowsAffected() int64 {
	return cur.affected
}

// LastInsertID 后端不支持时为 -1（PostgreSQL 请使用 RETURNING）
func (cur *Cursor) LastInsertID() int64 {
	return cur.lastID
}

// Exhausted 是否已读完
func (cur *Cursor) Exhausted() bool {
	return cur.done
}

// advance 唯一的取行入口
func (cur *Cursor) advance() (*types.Row, error) {
	if cur.err != nil {
		return nil, cur.err
	}
	if cur.done {
		return nil, nil
	}

	if cur.materialized {
		if len(cur.buf) == 0 {
			cur.finish()
			return nil, nil
		}
		vals := cur.buf[0]
		cur.buf[0] = nil
		cur.buf = cur.buf[1:]
		cur.pos++
		return types.NewRow(cur.cols, vals), nil
	}

	c := cur.stmt.conn
	if c.closed {
		return nil, newError(KindConnectionClosed, "fetch", cur.stmt.sql, nil)
	}
	vals := make([]interface{}, len(cur.cols))
	ok, err := cur.raw.Next(vals)
	if err != nil {
		cur.err = c.fail(KindExecution, "fetch", cur.stmt.sql, err)
		cur.detach()
		return nil, cur.err
	}
	if !ok {
		cur.finish()
		return nil, nil
	}
	cur.pos++
	return types.NewRow(cur.cols, vals), nil
}

// Fetchrow 读取下一行，读完返回 nil, nil
func (cur *Cursor) Fetchrow() (*types.Row, error) {
	return cur.advance()
}

// First 从当前位置读取一行，不会回到开头
func (cur *Cursor) First() (*types.Row, error) {
	return cur.advance()
}

// FetchHash 读取下一行，以列名为键，读完返回 nil, nil
func (cur *Cursor) FetchHash() (map[string]interface{}, error) {
	row, err := cur.advance()
	if row == nil || err != nil {
		return nil, err
	}
	return row.Map(), nil
}

// ForEach 读完所有剩余行；fn 返回错误时停止并原样返回，游标保持已读位置
func (cur *Cursor) ForEach(fn func(row *types.Row) error) error {
	cur.stmt.iterating++
	defer func() { cur.stmt.iterating-- }()
	for {
		row, err := cur.advance()
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// All 读完剩余行并返回
func (cur *Cursor) All() ([]*types.Row, error) {
	var rows []*types.Row
	err := cur.ForEach(func(row *types.Row) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// Iter range-over-func 形式的 ForEach
func (cur *Cursor) Iter() iter.Seq2[*types.Row, error] {
	return func(yield func(*types.Row, error) bool) {
		cur.stmt.iterating++
		defer func() { cur.stmt.iterating-- }()
		for {
			row, err := cur.advance()
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil || !yield(row, nil) {
				return
			}
		}
	}
}

// Close 丢弃剩余行
func (cur *Cursor) Close() error {
	cur.discard()
	return nil
}

// materialize 把剩余行读入内存，释放会话
func (cur *Cursor) materialize() error {
	if cur.done || cur.materialized || cur.raw == nil {
		return nil
	}
	c := cur.stmt.conn
	for {
		vals := make([]interface{}, len(cur.cols))
		ok, err := cur.raw.Next(vals)
		if err != nil {
			cur.err = c.fail(KindExecution, "fetch", cur.stmt.sql, err)
			cur.detach()
			return cur.err
		}
		if !ok {
			break
		}
		cur.buf = append(cur.buf, vals)
	}
	cur.materialized = true
	cur.detach()
	return nil
}

// detach 关闭后端结果集并让出会话
func (cur *Cursor) detach() {
	if cur.raw != nil {
		cur.raw.Close()
		cur.raw = nil
	}
	if c := cur.stmt.conn; c.active == cur {
		c.active = nil
	}
}

func (cur *Cursor) finish() {
	cur.done = true
	cur.buf = nil
	cur.detach()
	if cur.stmt.cursor == cur {
		cur.stmt.state = StateIdle
	}
}

// discard 语句重新执行或释放时调用，之后表现为已读完
func (cur *Cursor) discard() {
	if cur.done {
		return
	}
	cur.finish()
}

// invalidate 连接关闭时调用，未读完的游标（流式或已缓存）之后返回 err
func (cur *Cursor) invalidate(err error) {
	if cur.done || cur.err != nil {
		return
	}
	cur.err = err
	cur.buf = nil
	cur.detach()
}
