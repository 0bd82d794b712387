package dbic

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NullField 批量写入时表示 NULL 的字段
const NullField = `\N`

// endOfData 单独一行时表示输入结束
const endOfData = `\.`

// Write 从 r 读取 COPY 文本格式的行批量插入 table：字段以制表符分隔，行以换行结束，
// 引号是普通字符，\t \n \r \\ 等为反斜杠转义，整个字段为 \N 时写入 NULL。
// 每行字段数必须与 fields 一致。所有行在同一层事务中写入，任一行失败则整体回滚。返回写入行数。
func (c *Conn) Write(table string, fields []string, r io.Reader) (int64, error) {
	if err := c.guard("write"); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, errorf(KindPrepare, "write", "write needs at least one field")
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = c.drv.Quote(f)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.drv.Quote(table),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", "))

	br := bufio.NewReaderSize(r, 64*1024)
	var rows int64
	err := c.Transaction(func(c *Conn) error {
		st, err := c.Prepare(sql)
		if err != nil {
			return err
		}
		defer st.Release()

		args := make([]interface{}, len(fields))
		for line := 1; ; line++ {
			text, err := br.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return newError(KindBind, "write", sql, fmt.Errorf("line %d: %w", line, err))
			}
			if text == "" && err != nil {
				return nil
			}
			text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
			if text == endOfData {
				return nil
			}
			if err := decodeLine(text, args); err != nil {
				return newError(KindBind, "write", sql, fmt.Errorf("line %d: %w", line, err))
			}
			if _, err := st.Execute(args...); err != nil {
				return err
			}
			rows++
		}
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// decodeLine 按制表符切分一行并解码转义，字段数必须等于 len(args)
func decodeLine(line string, args []interface{}) error {
	parts := strings.Split(line, "\t")
	if len(parts) != len(args) {
		return fmt.Errorf("wrong number of fields: got %d, want %d", len(parts), len(args))
	}
	for i, p := range parts {
		if p == NullField {
			args[i] = nil
			continue
		}
		args[i] = unescapeField(p)
	}
	return nil
}

var fieldEscapes = map[byte]byte{
	'b': '\b',
	'f': '\f',
	'n': '\n',
	'r': '\r',
	't': '\t',
	'v': '\v',
}

// unescapeField 解码反斜杠转义，未知转义取反斜杠后的字符本身
func unescapeField(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		if e, ok := fieldEscapes[s[i]]; ok {
			sb.WriteByte(e)
		} else {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
