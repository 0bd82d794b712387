package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kaguya154/dbic"
	"github.com/Kaguya154/dbic/drivers"
	"github.com/Kaguya154/dbic/internal/config"
	"github.com/Kaguya154/dbic/internal/report"
	"github.com/Kaguya154/dbic/types"
)

const selectSQL = "SELECT id, name, email FROM users WHERE id > ?"

type options struct {
	envFile    string
	driver     string
	setup      bool
	rows       int
	iterations int
	workers    int
	format     string
	out        string
}

// result 单个 worker 的统计
type result struct {
	worker     int
	iterations int
	rows       int64
	elapsed    time.Duration
}

func (r result) rate() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.rows) / r.elapsed.Seconds()
}

func main() {
	var opts options
	flag.StringVar(&opts.envFile, "env", "", "env file (default .env if present)")
	flag.StringVar(&opts.driver, "driver", "", "override DBIC_DRIVER (mysql, postgresql, sqlite)")
	flag.BoolVar(&opts.setup, "setup", false, "drop and recreate the users table before running")
	flag.IntVar(&opts.rows, "rows", 10000, "rows to insert with -setup")
	flag.IntVar(&opts.iterations, "iterations", 100, "executions per worker")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent connections")
	flag.StringVar(&opts.format, "format", "text", "report format: "+strings.Join(report.Formats, ", "))
	flag.StringVar(&opts.out, "out", "", "report file (default stdout)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  dbicbench [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConnection settings come from DBIC_* environment variables.\n")
		fmt.Fprintf(os.Stderr, "SQLite needs DBIC_DATABASE set to a file, every worker opens its own connection.\n")
	}
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), opts); err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if opts.driver != "" {
		kind, err := types.ParseDriverKind(opts.driver)
		if err != nil {
			return err
		}
		cfg.DB.Driver = kind
	}
	if opts.workers < 1 || opts.iterations < 1 {
		return fmt.Errorf("workers and iterations must be positive")
	}

	registry := drivers.NewRegistry()
	if opts.setup {
		if err := setup(registry, cfg, opts.rows); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}

	results := make([]result, opts.workers)
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.workers; i++ {
		g.Go(func() error {
			r, err := worker(ctx, registry, cfg, i, opts.iterations)
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	total := result{worker: -1, elapsed: time.Since(start)}
	for _, r := range results {
		total.iterations += r.iterations
		total.rows += r.rows
	}
	slog.Info("benchmark finished", "driver", cfg.DB.Driver, "workers", opts.workers, "rows", total.rows, "elapsed", total.elapsed)

	return writeReport(opts, results, total)
}

func open(registry *dbic.Drivers, cfg *config.Config) (*dbic.Conn, error) {
	conn, err := dbic.Open(registry, cfg.DB)
	if err != nil {
		return nil, err
	}
	conn.Trace(cfg.Trace)
	return conn, nil
}

// setup 重建 users 表并用 Write 批量写入 n 行
func setup(registry *dbic.Drivers, cfg *config.Config, n int) error {
	conn, err := open(registry, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Execute("DROP TABLE IF EXISTS users"); err != nil {
		return err
	}
	if _, err := conn.Execute("CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(64), email VARCHAR(128))"); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	go func() {
		var err error
		for i := 1; i <= n && err == nil; i++ {
			_, err = fmt.Fprintf(pw, "%d\tuser%d\tuser%d@example.com\n", i, i, i)
		}
		pw.CloseWithError(err)
	}()
	inserted, err := conn.Write("users", []string{"id", "name", "email"}, pr)
	// Write 失败时让写端退出
	pr.Close()
	if err != nil {
		return err
	}
	slog.Info("users table ready", "rows", inserted)
	return nil
}

// worker 在自己的连接上预编译一次查询，执行 iterations 次并读完每次的结果
func worker(ctx context.Context, registry *dbic.Drivers, cfg *config.Config, id, iterations int) (result, error) {
	r := result{worker: id}
	conn, err := open(registry, cfg)
	if err != nil {
		return r, err
	}
	defer conn.Close()

	st, err := conn.Prepare(selectSQL)
	if err != nil {
		return r, err
	}
	defer st.Release()

	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		cur, err := st.Execute(i % 10)
		if err != nil {
			return r, err
		}
		err = cur.ForEach(func(*types.Row) error {
			r.rows++
			return nil
		})
		if err != nil {
			return r, err
		}
		r.iterations++
	}
	r.elapsed = time.Since(start)
	return r, nil
}

func writeReport(opts options, results []result, total result) (err error) {
	var w io.Writer = os.Stdout
	if opts.out != "" {
		var f *os.File
		if f, err = os.Create(opts.out); err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	enc, err := report.New(opts.format, w)
	if err != nil {
		return err
	}
	defer enc.Close()

	if err := enc.WriteHeader([]string{"worker", "iterations", "rows", "elapsed", "rows_per_sec"}); err != nil {
		return err
	}
	for _, r := range append(results, total) {
		name := interface{}(int64(r.worker))
		if r.worker < 0 {
			name = "total"
		}
		row := []interface{}{name, int64(r.iterations), r.rows, r.elapsed.Round(time.Millisecond).String(), float64(int64(r.rate()))}
		if err := enc.WriteRow(row); err != nil {
			return err
		}
	}
	return enc.Flush()
}
