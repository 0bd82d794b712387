package sqlite_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Kaguya154/dbic"
	"github.com/Kaguya154/dbic/drivers/sqlite"
	"github.com/Kaguya154/dbic/types"

	sqlite3 "github.com/mattn/go-sqlite3"
)

func TestDSN(t *testing.T) {
	cases := []struct {
		cfg  types.Config
		want string
	}{
		{types.Config{}, ":memory:"},
		{types.Config{Database: "/tmp/a.db"}, "/tmp/a.db"},
		{types.Config{DSN: "file:x.db?mode=ro", Database: "ignored"}, "file:x.db?mode=ro"},
		{types.Config{Database: "a.db", Options: map[string]string{"_busy_timeout": "5000"}}, "a.db?_busy_timeout=5000"},
		{types.Config{Database: "file:a.db?cache=shared", Options: map[string]string{"_fk": "1"}}, "file:a.db?cache=shared&_fk=1"},
	}
	for _, c := range cases {
		if got := sqlite.DSN(c.cfg); got != c.want {
			t.Errorf("DSN(%+v) = %s, want %s", c.cfg, got, c.want)
		}
	}
}

func TestDriverInfo(t *testing.T) {
	d := sqlite.GetDriver()
	if d.Kind() != types.SQLite || d.Dialect() != types.DialectQuestion {
		t.Fatalf("Kind=%s Dialect=%d", d.Kind(), d.Dialect())
	}
	if d.Quote("user") != "`user`" {
		t.Fatalf("Quote = %s", d.Quote("user"))
	}
	if d.Escape(`a'b\c`) != `'a''b\c'` {
		t.Fatalf("Escape = %s", d.Escape(`a'b\c`))
	}
}

func TestErrorHelpers(t *testing.T) {
	constraint := sqlite3.Error{Code: sqlite3.ErrConstraint}
	if !sqlite.IsConstraint(fmt.Errorf("wrapped: %w", constraint)) {
		t.Fatalf("IsConstraint 应识别包装后的错误")
	}
	if sqlite.IsBusy(constraint) {
		t.Fatalf("约束错误不是 busy")
	}
	if !sqlite.IsBusy(sqlite3.Error{Code: sqlite3.ErrBusy}) {
		t.Fatalf("IsBusy 应识别 SQLITE_BUSY")
	}
}

func TestSQLiteDriver_CRUD(t *testing.T) {
	conn, err := dbic.Open(dbic.NewDrivers(sqlite.GetDriver()), types.Config{Driver: types.SQLite})
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Execute("CREATE TABLE user (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, age INT, avatar BLOB)"); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	id, err := conn.Insert("user", dbic.Cond().Eq("name", "Tom").Eq("age", 20).Eq("avatar", []byte{0xff, 0x00}).Build())
	if err != nil || id == 0 {
		t.Fatalf("插入失败: %v, id=%d", err, id)
	}
	t.Logf("插入成功, id=%d", id)

	cur, err := conn.Select("user", dbic.Cond().Eq("name", "Tom").Build())
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	row, err := cur.Fetchrow()
	if err != nil || row == nil {
		t.Fatalf("查询失败: %v", err)
	}
	if v, ok := row.Get("name").(string); !ok || v != "Tom" {
		t.Fatalf("TEXT 列应为 string: %#v", row.Get("name"))
	}
	if v, ok := row.Get("avatar").([]byte); !ok || len(v) != 2 {
		t.Fatalf("BLOB 列应为 []byte: %#v", row.Get("avatar"))
	}
	t.Logf("查询成功, row=%v", row.Map())

	n, err := conn.Update("user", dbic.Cond().Eq("id", id).Build(), dbic.Cond().Eq("age", 21).Build())
	if err != nil || n != 1 {
		t.Fatalf("更新失败: %v, n=%d", err, n)
	}
	n, err = conn.Delete("user", dbic.Cond().Eq("id", id).Build())
	if err != nil || n != 1 {
		t.Fatalf("删除失败: %v, n=%d", err, n)
	}
}

func TestSQLiteDriver_Savepoints(t *testing.T) {
	conn, err := dbic.Open(dbic.NewDrivers(sqlite.GetDriver()), types.Config{Driver: types.SQLite})
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	defer conn.Close()
	conn.Execute("CREATE TABLE t (v INT)")

	conn.Begin("a")
	conn.Execute("INSERT INTO t VALUES (1)")
	conn.Begin("b")
	conn.Execute("INSERT INTO t VALUES (2)")
	conn.Begin("c")
	conn.Execute("INSERT INTO t VALUES (3)")
	if err := conn.Rollback("c"); err != nil {
		t.Fatalf("Rollback c: %v", err)
	}
	if err := conn.Commit("b"); err != nil {
		t.Fatalf("Commit b: %v", err)
	}
	if err := conn.Commit("a"); err != nil {
		t.Fatalf("Commit a: %v", err)
	}

	var got []string
	st, _ := conn.Prepare("SELECT v FROM t ORDER BY v")
	cur, _ := st.Execute()
	for row, err := range cur.Iter() {
		if err != nil {
			t.Fatalf("读取失败: %v", err)
		}
		got = append(got, row.GetString("v"))
	}
	if strings.Join(got, ",") != "1,2" {
		t.Fatalf("got %v", got)
	}
}

func TestSQLiteDriver_ConnectError(t *testing.T) {
	_, err := sqlite.GetDriver().Connect(types.Config{Database: "/nonexistent/dir/db.sqlite"})
	if err == nil {
		t.Fatalf("无法打开的路径应返回错误")
	}
	_, err = dbic.Open(dbic.NewDrivers(sqlite.GetDriver()), types.Config{Driver: types.SQLite, Database: "/nonexistent/dir/db.sqlite"})
	if !errors.Is(err, dbic.ErrConnect) {
		t.Fatalf("Open 应返回 ErrConnect, got %v", err)
	}
}
