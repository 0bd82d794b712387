package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/Kaguya154/dbic"
	"github.com/Kaguya154/dbic/drivers"
	"github.com/Kaguya154/dbic/internal/config"
	"github.com/Kaguya154/dbic/internal/report"
	"github.com/Kaguya154/dbic/types"
)

func main() {
	envFile := flag.String("env", "", "env file (default .env if present)")
	driver := flag.String("driver", "", "override DBIC_DRIVER (mysql, postgresql, sqlite)")
	hash := flag.Bool("hash", false, "print rows as name=value pairs")
	first := flag.Bool("first", false, "print only the first row")
	format := flag.String("format", "text", "output format: "+strings.Join(report.Formats, ", "))
	trace := flag.Bool("trace", false, "log every SQL sent to the server")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  dbicq [flags] <sql> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Placeholders are written as ? for every backend.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *trace {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	if *driver != "" {
		kind, err := types.ParseDriverKind(*driver)
		if err != nil {
			slog.Error("bad driver", "error", err)
			os.Exit(2)
		}
		cfg.DB.Driver = kind
	}

	conn, err := dbic.Open(drivers.NewRegistry(), cfg.DB)
	if err != nil {
		slog.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	conn.Trace(cfg.Trace || *trace)

	args := make([]interface{}, 0, flag.NArg()-1)
	for _, a := range flag.Args()[1:] {
		if a == dbic.NullField {
			args = append(args, nil)
			continue
		}
		args = append(args, a)
	}

	if err := query(conn, flag.Arg(0), args, *hash, *first, *format); err != nil {
		slog.Error("query failed", "error", err)
		conn.Close()
		os.Exit(1)
	}
}

func query(conn *dbic.Conn, sql string, args []interface{}, hash, first bool, format string) error {
	st, err := conn.Prepare(sql)
	if err != nil {
		return err
	}
	defer st.Release()

	cur, err := st.Execute(args...)
	if err != nil {
		return err
	}
	defer cur.Close()

	if len(cur.Columns()) == 0 {
		fmt.Printf("%d rows affected\n", cur.RowsAffected())
		if id := cur.LastInsertID(); id > 0 {
			fmt.Printf("last insert id %d\n", id)
		}
		return nil
	}

	switch {
	case hash:
		for {
			m, err := cur.FetchHash()
			if err != nil {
				return err
			}
			if m == nil {
				return nil
			}
			printHash(m)
			if first {
				return nil
			}
		}
	case first:
		row, err := cur.First()
		if err != nil || row == nil {
			return err
		}
		for i, name := range cur.ColumnNames() {
			fmt.Printf("%s: %v\n", name, row.Index(i))
		}
		return nil
	}

	enc, err := report.New(format, os.Stdout)
	if err != nil {
		return err
	}
	defer enc.Close()
	n, err := report.WriteCursor(enc, cur)
	if err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	slog.Info("query done", "rows", n)
	return nil
}

func printHash(m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	fmt.Println(strings.Join(parts, " "))
}
