package dbic_test

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kaguya154/dbic"
	"github.com/Kaguya154/dbic/drivers/sqlite"
	"github.com/Kaguya154/dbic/types"
)

func sqliteDrivers() *dbic.Drivers {
	return dbic.NewDrivers(sqlite.GetDriver())
}

// openMemory 打开内存库并建一张 user 表
func openMemory(t *testing.T) *dbic.Conn {
	t.Helper()
	conn, err := dbic.Open(sqliteDrivers(), types.Config{Driver: types.SQLite})
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() {
		if !conn.IsClosed() {
			conn.Close()
		}
	})
	if _, err := conn.Execute("CREATE TABLE user (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE, age INT)"); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return conn
}

func count(t *testing.T, conn *dbic.Conn, table string) int64 {
	t.Helper()
	st, err := conn.Prepare("SELECT COUNT(*) FROM " + conn.Quote(table))
	if err != nil {
		t.Fatalf("预编译 count 失败: %v", err)
	}
	defer st.Release()
	cur, err := st.Execute()
	if err != nil {
		t.Fatalf("执行 count 失败: %v", err)
	}
	row, err := cur.Fetchrow()
	if err != nil || row == nil {
		t.Fatalf("读取 count 失败: %v", err)
	}
	return row.Index(0).(int64)
}

func TestOpenErrors(t *testing.T) {
	if _, err := dbic.Open(nil, types.Config{Driver: types.SQLite}); !errors.Is(err, dbic.ErrConnect) {
		t.Fatalf("nil 驱动表应返回 ErrConnect, got %v", err)
	}
	if _, err := dbic.Open(dbic.NewDrivers(), types.Config{Driver: types.MySQL}); !errors.Is(err, dbic.ErrConnect) {
		t.Fatalf("未注册驱动应返回 ErrConnect, got %v", err)
	}
	bad := filepath.Join(t.TempDir(), "missing", "dir", "x.db")
	if _, err := dbic.Open(sqliteDrivers(), types.Config{Driver: types.SQLite, Database: bad}); !errors.Is(err, dbic.ErrConnect) {
		t.Fatalf("无法打开的文件应返回 ErrConnect, got %v", err)
	}
}

func TestDriversRegister(t *testing.T) {
	r := dbic.NewDrivers()
	if err := r.Register(sqlite.GetDriver()); err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if err := r.Register(sqlite.GetDriver()); err == nil {
		t.Fatalf("重复注册应报错")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("nil 驱动应报错")
	}
	if kinds := r.Kinds(); len(kinds) != 1 || kinds[0] != types.SQLite {
		t.Fatalf("Kinds = %v", kinds)
	}
	if _, err := r.Get(types.PostgreSQL); err == nil {
		t.Fatalf("未注册驱动应报错")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("NewDrivers 重复驱动应 panic")
		}
	}()
	dbic.NewDrivers(sqlite.GetDriver(), sqlite.GetDriver())
}

func TestExecute(t *testing.T) {
	conn := openMemory(t)
	if conn.Driver() != types.SQLite {
		t.Fatalf("Driver = %s", conn.Driver())
	}

	n, err := conn.Execute("INSERT INTO user (name, age) VALUES (?, ?)", "Tom", 20)
	if err != nil || n != 1 {
		t.Fatalf("插入失败: n=%d err=%v", n, err)
	}
	if _, err := conn.Execute("INSERT INTO user (name, age) VALUES ('Amy', 30)"); err != nil {
		t.Fatalf("插入失败: %v", err)
	}
	n, err = conn.Execute("UPDATE user SET age = age + 1")
	if err != nil || n != 2 {
		t.Fatalf("更新: n=%d err=%v", n, err)
	}
	// 查询返回行数
	n, err = conn.Execute("SELECT * FROM user WHERE age > ?", 25)
	if err != nil || n != 1 {
		t.Fatalf("查询: n=%d err=%v", n, err)
	}

	if _, err := conn.Execute("SELEC 1"); !errors.Is(err, dbic.ErrExecution) && !errors.Is(err, dbic.ErrPrepare) {
		t.Fatalf("语法错误应返回 ErrExecution 或 ErrPrepare, got %v", err)
	}
	_, err = conn.Execute("INSERT INTO user (name) VALUES ('Tom')")
	if !errors.Is(err, dbic.ErrExecution) || !sqlite.IsConstraint(err) {
		t.Fatalf("唯一约束冲突应返回 ErrExecution, got %v", err)
	}
}

func TestClosedConnection(t *testing.T) {
	conn := openMemory(t)
	st, err := conn.Prepare("SELECT id FROM user")
	if err != nil {
		t.Fatalf("预编译失败: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}
	if !conn.IsClosed() {
		t.Fatalf("IsClosed 应为 true")
	}

	checks := map[string]error{
		"close": conn.Close(),
		"ping":  conn.Ping(),
	}
	_, checks["execute"] = conn.Execute("SELECT 1")
	_, checks["prepare"] = conn.Prepare("SELECT 1")
	_, checks["begin"] = conn.Begin("")
	checks["commit"] = conn.Commit("")
	_, checks["stmt execute"] = st.Execute()
	_, checks["select"] = conn.Select("user", nil)
	for op, err := range checks {
		if !errors.Is(err, dbic.ErrConnectionClosed) {
			t.Errorf("%s: 期望 ErrConnectionClosed, got %v", op, err)
		}
	}
}

func TestCloseInvalidatesStreamingCursor(t *testing.T) {
	conn := openMemory(t)
	for _, name := range []string{"a", "b", "c"} {
		if _, err := conn.Execute("INSERT INTO user (name) VALUES (?)", name); err != nil {
			t.Fatalf("插入失败: %v", err)
		}
	}
	st, err := conn.Prepare("SELECT name FROM user ORDER BY id")
	if err != nil {
		t.Fatalf("预编译失败: %v", err)
	}
	cur, err := st.Execute()
	if err != nil {
		t.Fatalf("执行失败: %v", err)
	}
	if row, err := cur.Fetchrow(); err != nil || row.GetString("name") != "a" {
		t.Fatalf("第一行不正确: %v %v", row, err)
	}
	conn.Close()
	if _, err := cur.Fetchrow(); !errors.Is(err, dbic.ErrConnectionClosed) {
		t.Fatalf("关闭后读取应返回 ErrConnectionClosed, got %v", err)
	}
}

func TestCloseInvalidatesBufferedCursor(t *testing.T) {
	conn := openMemory(t)
	for _, name := range []string{"a", "b", "c"} {
		if _, err := conn.Execute("INSERT INTO user (name) VALUES (?)", name); err != nil {
			t.Fatalf("插入失败: %v", err)
		}
	}
	st, err := conn.Prepare("SELECT name FROM user ORDER BY id")
	if err != nil {
		t.Fatalf("预编译失败: %v", err)
	}
	cur, err := st.Execute()
	if err != nil {
		t.Fatalf("执行失败: %v", err)
	}
	if row, err := cur.Fetchrow(); err != nil || row.GetString("name") != "a" {
		t.Fatalf("第一行不正确: %v %v", row, err)
	}
	// 另一条查询让 cur 的剩余行读入内存
	if _, err := conn.Execute("SELECT 1"); err != nil {
		t.Fatalf("执行失败: %v", err)
	}
	if cur.Rows() != 3 {
		t.Fatalf("缓存后 Rows = %d, 期望 3", cur.Rows())
	}

	conn.Close()
	row, err := cur.Fetchrow()
	if row != nil || !errors.Is(err, dbic.ErrConnectionClosed) {
		t.Fatalf("关闭后读取缓存的游标应返回 ErrConnectionClosed, got %v %v", row, err)
	}
	if err := cur.ForEach(func(*types.Row) error { return nil }); !errors.Is(err, dbic.ErrConnectionClosed) {
		t.Fatalf("ForEach 应返回 ErrConnectionClosed, got %v", err)
	}
}

func TestCloseRollsBackOpenTransaction(t *testing.T) {
	cfg := types.Config{Driver: types.SQLite, Database: filepath.Join(t.TempDir(), "test.db")}
	conn, err := dbic.Open(sqliteDrivers(), cfg)
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	if _, err := conn.Execute("CREATE TABLE t (v INT)"); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	if _, err := conn.Begin(""); err != nil {
		t.Fatalf("开始事务失败: %v", err)
	}
	if _, err := conn.Execute("INSERT INTO t VALUES (1)"); err != nil {
		t.Fatalf("插入失败: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}

	conn, err = dbic.Open(sqliteDrivers(), cfg)
	if err != nil {
		t.Fatalf("重新打开失败: %v", err)
	}
	defer conn.Close()
	if n := count(t, conn, "t"); n != 0 {
		t.Fatalf("未提交的事务应被回滚, count=%d", n)
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	conn, err := dbic.Open(sqliteDrivers(), types.Config{Driver: types.SQLite, Logger: logger})
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	defer conn.Close()

	conn.Execute("SELECT 1")
	if strings.Contains(buf.String(), "SELECT 1") {
		t.Fatalf("未开启 trace 时不应记录 SQL")
	}
	conn.Trace(true)
	if _, err := conn.Execute("SELECT ?", 42); err != nil {
		t.Fatalf("执行失败: %v", err)
	}
	conn.Begin("outer")
	conn.Rollback("outer")
	out := buf.String()
	for _, want := range []string{"SELECT ?", "args=", "BEGIN", "ROLLBACK"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace 日志缺少 %q:\n%s", want, out)
		}
	}
}

func TestPingQuoteEscape(t *testing.T) {
	conn := openMemory(t)
	if err := conn.Ping(); err != nil {
		t.Fatalf("Ping 失败: %v", err)
	}
	if q := conn.Quote("user"); q != "`user`" {
		t.Fatalf("Quote = %s", q)
	}
	lit := conn.Escape("it's")
	if lit != "'it''s'" {
		t.Fatalf("Escape = %s", lit)
	}
	n, err := conn.Execute("SELECT " + lit)
	if err != nil || n != 1 {
		t.Fatalf("转义后的字面量不可用: %v", err)
	}
}
