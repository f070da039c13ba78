package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	crossref "github.com/AAreesha/Cross-Reference-Database-System"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// =============================================================================
// 🧰 离线命令
// =============================================================================
// ingest / search / suggestions / insert 在进程内构建引擎，
// 适用于 sqlite、postgres、mysql 等持久化存储
// =============================================================================

// withEngine 加载配置、构建引擎并在 fn 返回后关闭
func withEngine(ctx context.Context, configPath string, fn func(*crossref.Engine) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	engine, err := crossref.New(ctx, cfg, crossref.WithLogger(logger))
	if err != nil {
		return err
	}
	runErr := fn(engine)

	closeCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, engine.Close(closeCtx))
}

// writeJSON 以缩进格式输出
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIngest(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("ingest", stderr)
	partition := fs.String("partition", "", "Target partition (db1..db4)")
	wait := fs.Bool("wait", true, "Wait for the job to finish")
	poll := fs.Duration("poll", 500*time.Millisecond, "Status poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *partition == "" {
		fmt.Fprintln(stderr, "Usage: crossref ingest --partition <db1..db4> [--config path] <file.csv|xls|xlsx>")
		return errUsage
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return withEngine(ctx, *configPath, func(engine *crossref.Engine) error {
		jobID, err := engine.SubmitIngest(ctx, data, filepath.Base(path), *partition)
		if err != nil {
			return err
		}
		if !*wait {
			fmt.Fprintln(stdout, jobID)
			return nil
		}

		status, err := waitForJob(ctx, engine, jobID, *poll)
		if err != nil {
			return err
		}
		if err := writeJSON(stdout, status); err != nil {
			return err
		}
		if status.State == types.JobFailed {
			return fmt.Errorf("ingestion failed: %s", status.Reason)
		}
		return nil
	})
}

// waitForJob 轮询任务直到进入终态
func waitForJob(ctx context.Context, engine *crossref.Engine, jobID string, interval time.Duration) (types.JobStatus, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := engine.IngestStatus(ctx, jobID)
		if err != nil {
			return types.JobStatus{}, err
		}
		if status.State.Terminal() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func runSearch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("search", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(stderr, "Usage: crossref search [--config path] <query>")
		return errUsage
	}

	return withEngine(ctx, *configPath, func(engine *crossref.Engine) error {
		resp, err := engine.Search(ctx, query)
		if err != nil {
			return err
		}
		return writeJSON(stdout, resp)
	})
}

func runSuggestions(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("suggestions", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withEngine(ctx, *configPath, func(engine *crossref.Engine) error {
		for _, q := range engine.KnownQueries(ctx) {
			fmt.Fprintln(stdout, q)
		}
		return nil
	})
}

func runInsert(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("insert", stderr)
	partition := fs.String("partition", "", "Target partition (db1..db4)")
	id := fs.String("id", "", "Record id, unique within the partition")
	text := fs.String("text", "", "Record text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *partition == "" || *id == "" || *text == "" {
		fs.Usage()
		return errUsage
	}

	return withEngine(ctx, *configPath, func(engine *crossref.Engine) error {
		if err := engine.InsertRecord(ctx, *partition, *id, *text); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "inserted %s/%s\n", strings.ToLower(strings.TrimSpace(*partition)), strings.TrimSpace(*id))
		return nil
	})
}
