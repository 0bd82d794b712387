package types

const (
	OpEq   ConditionOp = "EQ"
	OpNe   ConditionOp = "NE"
	OpGt   ConditionOp = "GT"
	OpGte  ConditionOp = "GTE"
	OpLt   ConditionOp = "LT"
	OpLte  ConditionOp = "LTE"
	OpLike ConditionOp = "LIKE"
	OpIn   ConditionOp = "IN"
	OpNull ConditionOp = "NULL"
	OpAnd  ConditionOp = "AND"
	OpOr   ConditionOp = "OR"
	OpRaw  ConditionOp = "RAW"
)

// NewCondition 创建并返回一个新的 CondBuilder 实例。
func NewCondition() *CondBuilder {
	return &CondBuilder{
		exprs: make([]*ConditionExpr, 0),
	}
}

func (b *CondBuilder) add(op ConditionOp, field string, value interface{}) *CondBuilder {
	b.exprs = append(b.exprs, &ConditionExpr{Op: op, Field: field, Value: value})
	return b
}

// Eq 等于（=）。Insert/Update 的数据也用 Eq 表达。
func (b *CondBuilder) Eq(field string, value interface{}) *CondBuilder {
	return b.add(OpEq, field, value)
}

func (b *CondBuilder) Ne(field string, value interface{}) *CondBuilder {
	return b.add(OpNe, field, value)
}

func (b *CondBuilder) Gt(field string, value interface{}) *CondBuilder {
	return b.add(OpGt, field, value)
}

func (b *CondBuilder) Gte(field string, value interface{}) *CondBuilder {
	return b.add(OpGte, field, value)
}

func (b *CondBuilder) Lt(field string, value interface{}) *CondBuilder {
	return b.add(OpLt, field, value)
}

func (b *CondBuilder) Lte(field string, value interface{}) *CondBuilder {
	return b.add(OpLte, field, value)
}

// Like 模糊匹配（LIKE）。
func (b *CondBuilder) Like(field string, pattern string) *CondBuilder {
	return b.add(OpLike, field, pattern)
}

// IsNull 生成 IS NULL，参数值不会被绑定。
func (b *CondBuilder) IsNull(field string) *CondBuilder {
	return b.add(OpNull, field, nil)
}

// In IN 查询，空列表生成恒假条件。
func (b *CondBuilder) In(field string, values []interface{}) *CondBuilder {
	b.exprs = append(b.exprs, &ConditionExpr{Op: OpIn, Field: field, Values: values})
	return b
}

// And 组合多个条件为 AND。
func (b *CondBuilder) And(conds ...*CondBuilder) *CondBuilder {
	return b.group(OpAnd, conds)
}

// Or 组合多个条件为 OR。
func (b *CondBuilder) Or(conds ...*CondBuilder) *CondBuilder {
	return b.group(OpOr, conds)
}

func (b *CondBuilder) group(op ConditionOp, conds []*CondBuilder) *CondBuilder {
	exprs := make([]*ConditionExpr, 0, len(conds))
	for _, c := range conds {
		if e := c.Build(); e != nil {
			exprs = append(exprs, e)
		}
	}
	b.exprs = append(b.exprs, &ConditionExpr{Op: op, Exprs: exprs})
	return b
}

// Raw 添加原始条件（不安全，慎用）。sql 中使用 ? 占位符，args 按顺序绑定。
func (b *CondBuilder) Raw(sql string, args ...interface{}) *CondBuilder {
	b.exprs = append(b.exprs, &ConditionExpr{Op: OpRaw, Value: sql, Values: args})
	return b
}

// Build 生成最终的通用条件表达式树。
// 返回值：
//   - *types.ConditionExpr: 根条件表达式（AND 连接所有条件），没有条件时为 nil
func (b *CondBuilder) Build() *ConditionExpr {
	if b == nil || len(b.exprs) == 0 {
		return nil
	}
	if len(b.exprs) == 1 {
		return b.exprs[0]
	}
	return &ConditionExpr{
		Op:    OpAnd,
		Exprs: b.exprs,
	}
}
