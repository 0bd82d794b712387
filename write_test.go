package dbic_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Kaguya154/dbic"
)

func TestWrite(t *testing.T) {
	conn := openMemory(t)
	data := "Tom\t20\nAmy\t\\N\nBob\t31\n"
	n, err := conn.Write("user", []string{"name", "age"}, strings.NewReader(data))
	if err != nil || n != 3 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	cur, err := conn.Select("user", dbic.Cond().Eq("name", "Amy").Build())
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	row, _ := cur.Fetchrow()
	if row == nil || !row.IsNull("age") {
		t.Fatalf("\\N 应写入 NULL: %v", row)
	}
	if conn.Depth() != 0 {
		t.Fatalf("Write 后 Depth = %d", conn.Depth())
	}
}

func TestWriteRollsBackOnBadLine(t *testing.T) {
	conn := openMemory(t)
	data := "Tom\t20\nAmy\n"
	_, err := conn.Write("user", []string{"name", "age"}, strings.NewReader(data))
	if !errors.Is(err, dbic.ErrBind) {
		t.Fatalf("字段数不符应返回 ErrBind, got %v", err)
	}
	if c := count(t, conn, "user"); c != 0 {
		t.Fatalf("失败的 Write 应整体回滚, count=%d", c)
	}

	// 约束冲突
	_, err = conn.Write("user", []string{"name"}, strings.NewReader("x\nx\n"))
	if !errors.Is(err, dbic.ErrExecution) {
		t.Fatalf("唯一约束冲突应返回 ErrExecution, got %v", err)
	}
	if c := count(t, conn, "user"); c != 0 {
		t.Fatalf("count = %d", c)
	}
}

func TestWriteInsideTransaction(t *testing.T) {
	conn := openMemory(t)
	if _, err := conn.Begin("outer"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := conn.Write("user", []string{"name"}, strings.NewReader("a\nb\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := conn.Rollback("outer"); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if c := count(t, conn, "user"); c != 0 {
		t.Fatalf("外层回滚应撤销 Write, count=%d", c)
	}
	if _, err := conn.Write("user", nil, strings.NewReader("")); err == nil {
		t.Fatalf("没有字段时应报错")
	}
}

func TestWriteQuotesAndEscapes(t *testing.T) {
	conn := openMemory(t)
	data := "\"quoted\"\t1\n" +
		"tab\\there\t2\n" +
		"line\\nbreak\\\\end\t3\n" +
		"it's \"x\"\t\\N\r\n" +
		"\\.\n" +
		"ignored\t9\n"
	n, err := conn.Write("user", []string{"name", "age"}, strings.NewReader(data))
	if err != nil || n != 4 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	want := []string{`"quoted"`, "tab\there", "line\nbreak\\end", `it's "x"`}
	cur, err := conn.Select("user", nil)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	rows, err := cur.All()
	if err != nil || len(rows) != len(want) {
		t.Fatalf("读取: %d 行 err=%v", len(rows), err)
	}
	for i, row := range rows {
		if got := row.GetString("name"); got != want[i] {
			t.Fatalf("第 %d 行 name = %q, 期望 %q", i+1, got, want[i])
		}
	}
	if !rows[3].IsNull("age") {
		t.Fatalf("\\N 应写入 NULL")
	}
}
