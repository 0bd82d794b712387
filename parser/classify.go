package parser

import (
	"strings"
	"unicode"
)

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"SHOW":     true,
	"PRAGMA":   true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"DESC":     true,
	"TABLE":    true,
}

// ReturnsRows 判断语句是否会返回结果集（SELECT 一类或带 RETURNING 的 DML）
func ReturnsRows(query string) bool {
	kw := leadingKeyword(query)
	if rowKeywords[kw] {
		return true
	}
	switch kw {
	case "INSERT", "UPDATE", "DELETE", "REPLACE":
		return hasKeyword(query, "RETURNING")
	}
	return false
}

// leadingKeyword 跳过空白、注释和左括号后取第一个单词
func leadingKeyword(query string) string {
	i := 0
	for i < len(query) {
		switch {
		case query[i] == '(' || unicode.IsSpace(rune(query[i])):
			i++
		case strings.HasPrefix(query[i:], "--"):
			nl := strings.IndexByte(query[i:], '\n')
			if nl < 0 {
				return ""
			}
			i += nl + 1
		case strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return ""
			}
			i += end + 4
		default:
			j := i
			for j < len(query) && isWordByte(query[j]) {
				j++
			}
			return strings.ToUpper(query[i:j])
		}
	}
	return ""
}

// hasKeyword 在单引号字面量之外查找独立的单词
func hasKeyword(query, word string) bool {
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote || !isWordByte(c) || (i > 0 && isWordByte(query[i-1])) {
			continue
		}
		j := i
		for j < len(query) && isWordByte(query[j]) {
			j++
		}
		if strings.EqualFold(query[i:j], word) {
			return true
		}
		i = j - 1
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// EscapeLiteral 生成带单引号的字符串字面量；backslash 为 true 时同时转义反斜杠（MySQL）
func EscapeLiteral(value string, backslash bool) string {
	var sb strings.Builder
	sb.Grow(len(value) + 2)
	sb.WriteByte('\'')
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '\'':
			sb.WriteString("''")
		case c == '\\' && backslash:
			sb.WriteString(`\\`)
		case c == 0 && backslash:
			sb.WriteString(`\0`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
