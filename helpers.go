package dbic

import (
	"github.com/Kaguya154/dbic/dbtools"
	"github.com/Kaguya154/dbic/types"
)

// stmtFor 按生成的 SQL 复用预编译语句。
// 缓存的语句可能被淘汰，因此辅助方法返回的游标应在下一次调用前读完。
func (c *Conn) stmtFor(op types.OpType, sql string) (*Statement, error) {
	key := dbtools.MakeKey(c.drv.Kind(), op, sql)
	if st, ok := c.cache.Get(key); ok && !st.released {
		return st, nil
	}
	st, err := c.Prepare(sql)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, st)
	return st, nil
}

func (c *Conn) runHelper(op types.OpType, table string, where, set *types.ConditionExpr) (*Cursor, error) {
	if err := c.guard(string(op)); err != nil {
		return nil, err
	}
	sql, args, err := c.sqlp.Build(op, table, where, set)
	if err != nil {
		return nil, newError(KindPrepare, string(op), "", err)
	}
	st, err := c.stmtFor(op, sql)
	if err != nil {
		return nil, err
	}
	return st.Execute(args...)
}

// Select 查询整表或满足条件的行
func (c *Conn) Select(table string, cond *types.ConditionExpr) (*Cursor, error) {
	return c.runHelper(types.OpQuery, table, cond, nil)
}

// Insert 插入一行，data 为 Eq 条件的组合，返回自增 ID（PostgreSQL 为 -1）
func (c *Conn) Insert(table string, data *types.ConditionExpr) (int64, error) {
	cur, err := c.runHelper(types.OpInsert, table, data, nil)
	if err != nil {
		return 0, err
	}
	return cur.LastInsertID(), nil
}

// Update 更新满足 where 的行，返回影响行数
func (c *Conn) Update(table string, where, set *types.ConditionExpr) (int64, error) {
	cur, err := c.runHelper(types.OpUpdate, table, where, set)
	if err != nil {
		return 0, err
	}
	return cur.RowsAffected(), nil
}

// Delete 删除满足条件的行，返回影响行数
func (c *Conn) Delete(table string, cond *types.ConditionExpr) (int64, error) {
	cur, err := c.runHelper(types.OpDelete, table, cond, nil)
	if err != nil {
		return 0, err
	}
	return cur.RowsAffected(), nil
}
