package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/logger"
)

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

// command is one parsed CLI invocation.
type command struct {
	name string
	n    int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}

	cmd := command{name: args[0]}
	switch cmd.name {
	case "up", "down", "version":
		return cmd, nil
	case "force", "steps":
		if len(args) < 2 {
			return command{}, fmt.Errorf("%s requires a number", cmd.name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("%s: invalid number %q", cmd.name, args[1])
		}
		if cmd.name == "steps" && n == 0 {
			return command{}, errors.New("steps: N must not be zero")
		}
		cmd.n = n
		return cmd, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", cmd.name)
	}
}

// run executes cmd. ErrNoChange is reported, not treated as a failure.
func run(m migrator, cmd command, log zerolog.Logger) error {
	var err error
	switch cmd.name {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(cmd.n)
	case "force":
		err = m.Force(cmd.n)
	case "version":
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("command", cmd.name).Msg("No migrations to apply")
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.name, err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info().Str("command", cmd.name).Msg("Database has no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	log.Info().Str("command", cmd.name).Uint("version", version).Bool("dirty", dirty).Msg("Migration state")
	return nil
}

func main() {
	var migrationDir string
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.Usage = printUsage
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "migrate")

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("Invalid invocation")
		printUsage()
		os.Exit(2)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", migrationDir).Msg("Migration failed to initialize")
	}
	defer m.Close()

	if err := run(m, cmd, log); err != nil {
		log.Error().Err(err).Msg("Migration failed")
		m.Close()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command>")
	fmt.Fprintln(os.Stderr, "Commands: up, down, version, force <version>, steps <n>")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
