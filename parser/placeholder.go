package parser

import (
	"strconv"
	"strings"

	"github.com/Kaguya154/dbic/types"
)

// Translate 把 ? 占位符改写为方言的原生写法。
func Translate(query string, dialect types.Dialect) string {
	out, _ := Rewrite(query, dialect)
	return out
}

// Rewrite 扫描 query，单引号字面量（'' 视为转义）以及 -- 和 /* */ 注释中的 ? 不算占位符。
// 返回改写后的语句和占位符个数。DialectQuestion 原样返回语句。
// 字面量未闭合时其后的内容不再识别占位符，交给后端报错。
func Rewrite(query string, dialect types.Dialect) (string, int) {
	if strings.IndexByte(query, '?') < 0 {
		return query, 0
	}

	var sb strings.Builder
	if dialect == types.DialectDollar {
		sb.Grow(len(query) + 8)
	}

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if !inQuote {
			if end := commentEnd(query, i); end > i {
				if dialect == types.DialectDollar {
					sb.WriteString(query[i:end])
				}
				i = end - 1
				continue
			}
		}
		switch {
		case c == '\'':
			// 字面量内连续两个单引号是转义，状态不变
			if inQuote && i+1 < len(query) && query[i+1] == '\'' {
				if dialect == types.DialectDollar {
					sb.WriteString("''")
				}
				i++
				continue
			}
			inQuote = !inQuote
		case c == '?' && !inQuote:
			n++
			if dialect == types.DialectDollar {
				sb.WriteByte('$')
				sb.WriteString(strconv.Itoa(n))
				continue
			}
		}
		if dialect == types.DialectDollar {
			sb.WriteByte(c)
		}
	}

	if dialect != types.DialectDollar || n == 0 {
		return query, n
	}
	return sb.String(), n
}

// CountPlaceholders 统计可绑定的 ? 个数
func CountPlaceholders(query string) int {
	_, n := Rewrite(query, types.DialectQuestion)
	return n
}

// commentEnd i 处是注释开头时返回注释结束后的位置，否则返回 i。
// 行注释包含结尾的换行，未闭合的注释延伸到语句末尾。
func commentEnd(query string, i int) int {
	if i+1 >= len(query) {
		return i
	}
	switch query[i : i+2] {
	case "--":
		if nl := strings.IndexByte(query[i+2:], '\n'); nl >= 0 {
			return i + 2 + nl + 1
		}
		return len(query)
	case "/*":
		if end := strings.Index(query[i+2:], "*/"); end >= 0 {
			return i + 2 + end + 2
		}
		return len(query)
	}
	return i
}

// MaxDollarParam 返回单引号字面量和注释之外出现的最大 $n，用于已经是原生写法的 PostgreSQL 语句
func MaxDollarParam(query string) int {
	hi := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		if !inQuote {
			if end := commentEnd(query, i); end > i {
				i = end - 1
				continue
			}
		}
		switch c := query[i]; {
		case c == '\'':
			inQuote = !inQuote
		case c == '$' && !inQuote:
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				if n, err := strconv.Atoi(query[i+1 : j]); err == nil && n > hi {
					hi = n
				}
				i = j - 1
			}
		}
	}
	return hi
}
