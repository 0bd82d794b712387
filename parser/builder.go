package parser

import (
	"fmt"
	"strings"

	"github.com/Kaguya154/dbic/types"
)

// SQLParser 把条件表达式树转成使用 ? 占位符的 SQL，
// 占位符在 Prepare 时再按方言改写。
type SQLParser struct {
	QuoteFunc func(string) string
}

var opStrMap = map[types.ConditionOp]string{
	types.OpEq:   "=",
	types.OpNe:   "<>",
	types.OpGt:   ">",
	types.OpGte:  ">=",
	types.OpLt:   "<",
	types.OpLte:  "<=",
	types.OpLike: "LIKE",
}

func (p *SQLParser) quote(s string) string {
	if p.QuoteFunc == nil {
		return s
	}
	return p.QuoteFunc(s)
}

// Build 生成语句和参数。
// Insert 的 where 为数据（Eq 的 AND 组合），Update 的 set 为数据。
func (p *SQLParser) Build(op types.OpType, table string, where, set *types.ConditionExpr) (string, []interface{}, error) {
	if table == "" {
		return "", nil, fmt.Errorf("table name cannot be empty")
	}

	var sb strings.Builder
	var args []interface{}
	switch op {
	case types.OpInsert:
		fields := assignments(where)
		if len(fields) == 0 {
			return "", nil, fmt.Errorf("Insert data must be EQ or AND of EQ exprs")
		}
		sb.WriteString("INSERT INTO ")
		sb.WriteString(p.quote(table))
		sb.WriteString(" (")
		for i, expr := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(p.quote(expr.Field))
			args = append(args, expr.Value)
		}
		sb.WriteString(") VALUES (")
		sb.WriteString(strings.TrimSuffix(strings.Repeat("?,", len(fields)), ","))
		sb.WriteByte(')')

	case types.OpQuery:
		sb.WriteString("SELECT * FROM ")
		sb.WriteString(p.quote(table))
		p.writeWhere(&sb, where, &args)

	case types.OpUpdate:
		fields := assignments(set)
		if len(fields) == 0 {
			return "", nil, fmt.Errorf("Update data must be EQ or AND of EQ exprs")
		}
		sb.WriteString("UPDATE ")
		sb.WriteString(p.quote(table))
		sb.WriteString(" SET ")
		for i, expr := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(p.quote(expr.Field))
			sb.WriteString("=?")
			args = append(args, expr.Value)
		}
		// SET 的参数在前，WHERE 的参数在后
		p.writeWhere(&sb, where, &args)

	case types.OpDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(p.quote(table))
		p.writeWhere(&sb, where, &args)

	default:
		return "", nil, fmt.Errorf("unsupported op: %s", op)
	}

	return sb.String(), args, nil
}

// assignments 取出数据表达式中的 Eq 项，出现其它操作时返回 nil
func assignments(data *types.ConditionExpr) []*types.ConditionExpr {
	if data == nil {
		return nil
	}
	if data.Op == types.OpEq && data.Field != "" {
		return []*types.ConditionExpr{data}
	}
	if data.Op != types.OpAnd {
		return nil
	}
	for _, expr := range data.Exprs {
		if expr == nil || expr.Op != types.OpEq || expr.Field == "" {
			return nil
		}
	}
	return data.Exprs
}

func (p *SQLParser) writeWhere(sb *strings.Builder, where *types.ConditionExpr, args *[]interface{}) {
	if where == nil {
		return
	}
	var wb strings.Builder
	p.buildWhere(&wb, where, args)
	if wb.Len() > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(wb.String())
	}
}

// buildWhere 递归构建 WHERE 子句
func (p *SQLParser) buildWhere(sb *strings.Builder, cond *types.ConditionExpr, args *[]interface{}) {
	if cond == nil {
		return
	}
	switch cond.Op {
	case types.OpAnd, types.OpOr:
		sep := " AND "
		if cond.Op == types.OpOr {
			sep = " OR "
		}
		first := true
		for _, expr := range cond.Exprs {
			if expr == nil {
				continue
			}
			if !first {
				sb.WriteString(sep)
			}
			sb.WriteByte('(')
			p.buildWhere(sb, expr, args)
			sb.WriteByte(')')
			first = false
		}
	case types.OpEq, types.OpNe, types.OpGt, types.OpGte, types.OpLt, types.OpLte, types.OpLike:
		sb.WriteString(p.quote(cond.Field))
		sb.WriteByte(' ')
		sb.WriteString(opStrMap[cond.Op])
		sb.WriteString(" ?")
		*args = append(*args, cond.Value)
	case types.OpNull:
		sb.WriteString(p.quote(cond.Field))
		sb.WriteString(" IS NULL")
	case types.OpIn:
		if len(cond.Values) == 0 {
			sb.WriteString("1=0")
			return
		}
		sb.WriteString(p.quote(cond.Field))
		sb.WriteString(" IN (")
		sb.WriteString(strings.TrimSuffix(strings.Repeat("?,", len(cond.Values)), ","))
		sb.WriteByte(')')
		*args = append(*args, cond.Values...)
	case types.OpRaw:
		if s, ok := cond.Value.(string); ok {
			sb.WriteString(s)
		}
		*args = append(*args, cond.Values...)
	}
}
