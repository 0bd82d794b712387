package types

import (
	"strconv"
)

// Row 一行结果，值按列顺序排列，SQL NULL 为 nil
type Row struct {
	cols []Column
	vals []interface{}
}

func NewRow(cols []Column, vals []interface{}) *Row {
	return &Row{cols: cols, vals: vals}
}

// Len 列数
func (r *Row) Len() int {
	return len(r.vals)
}

// Values 按列顺序返回所有值
func (r *Row) Values() []interface{} {
	return r.vals
}

// Index 按位置取值
func (r *Row) Index(i int) interface{} {
	if i < 0 || i >= len(r.vals) {
		return nil
	}
	return r.vals[i]
}

// Get 原始取值
func (r *Row) Get(col string) interface{} {
	for i, c := range r.cols {
		if c.Name == col {
			return r.Index(i)
		}
	}
	return nil
}

// IsNull 列不存在或值为 NULL
func (r *Row) IsNull(col string) bool {
	return r.Get(col) == nil
}

// GetString 取字符串
func (r *Row) GetString(col string) string {
	switch v := r.Get(col).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// GetInt 取整数
func (r *Row) GetInt(col string) int {
	switch v := r.Get(col).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	case []byte:
		n, _ := strconv.Atoi(string(v))
		return n
	}
	return 0
}

// GetFloat 取浮点数
func (r *Row) GetFloat(col string) float64 {
	switch v := r.Get(col).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	}
	return 0
}

// Map 返回以列名为键的副本
func (r *Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.cols))
	for i, c := range r.cols {
		m[c.Name] = r.Index(i)
	}
	return m
}
