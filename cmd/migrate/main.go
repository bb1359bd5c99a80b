package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/db"
	"github.com/lamaai/lama-api/pkg/logger"
	"github.com/lamaai/lama-api/pkg/migrate"
)

const usage = `usage: migrate [flags] <command> [arg]

commands:
  up               apply all pending migrations
  down             roll back the latest migration
  reset            roll back every migration
  to <version>     migrate up or down to <version>
  status           list migrations and whether they are applied
  version          print the current schema version
  create <name>    write a new SQL migration into -dir
  validate         check migration file names and goose sections
`

func main() {
	dir := flag.String("dir", "", "migrations directory (default: migrations embedded in the binary; create writes to "+migrate.DefaultDir+")")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dir, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dir, command string, args []string) error {
	switch command {
	case "create":
		if len(args) == 0 {
			return errors.New("a migration name is required")
		}
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.Create(dir, args[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		if err := migrate.Validate(migrate.Source(dir)); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "command": command})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}

	runner, err := migrate.NewRunner(sqlDB, migrate.Dialect(cfg.DB), migrate.Source(dir), logg)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "reset":
		return runner.Reset(ctx)
	case "to":
		if len(args) == 0 {
			return errors.New("a target version is required")
		}
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q is not a YYYYMMDDHHMMSS number", args[0])
		}
		return runner.To(ctx, target)
	case "version":
		version, err := runner.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(statuses)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printStatus(statuses []migrate.Status) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "pending"
		if st.Applied {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", st.Version, applied, st.Path)
	}
	return w.Flush()
}
