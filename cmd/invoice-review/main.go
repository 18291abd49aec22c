package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/invoice-review/internal/export"
	"github.com/zombor/invoice-review/internal/intake"
	"github.com/zombor/invoice-review/internal/logging"
	"github.com/zombor/invoice-review/internal/review"
	"github.com/zombor/invoice-review/internal/session"
	"github.com/zombor/invoice-review/internal/submit"
	"github.com/zombor/invoice-review/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; flags and the environment still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error loading .env: %v\n", err)
	}

	fs := ff.NewFlagSet("invoice-review")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		serviceURL  = fs.StringLong("service-url", submit.DefaultBaseURL, "Base URL of the OCR service")
		timeout     = fs.DurationLong("timeout", 0, "Timeout for the OCR call (0 waits indefinitely)")
		exportDir   = fs.StringLong("export-dir", "", "Directory that receives exported CSV files (optional)")
		exportDB    = fs.StringLong("export-db", "", "Bolt database that archives exported CSV files (optional)")
		filePath    = fs.StringLong("file", "", "Process a single invoice image and exit")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat   = fs.StringLong("log-format", "text", "Log format: text or json")
		logFile     = fs.StringLong("log-file", "", "Also write logs to this rotated file (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_REVIEW"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Setup(logging.Config{
		Level:  *logLevel,
		Format: *logFormat,
		File:   *logFile,
	})

	client := submit.NewClient(*serviceURL, *timeout)
	machine := session.NewMachine(client)
	slog.Info("OCR service configured", "endpoint", client.Endpoint(), "timeout", *timeout)

	// Initialize export destinations
	var savers export.MultiSaver
	if *exportDir != "" {
		dir, err := export.NewDirSaver(*exportDir)
		if err != nil {
			slog.Error("Failed to initialize export directory", "error", err)
			os.Exit(1)
		}
		savers = append(savers, dir)
	}
	if *exportDB != "" {
		archive, err := export.NewBoltArchive(*exportDB)
		if err != nil {
			slog.Error("Failed to initialize export archive", "error", err)
			os.Exit(1)
		}
		defer archive.Close()
		savers = append(savers, archive)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *filePath != "" {
		if err := processFile(ctx, machine, savers, *filePath, *exportDir); err != nil {
			slog.Error("Failed to process invoice", "file", *filePath, "error", err)
			stop()
			os.Exit(1)
		}
		return
	}

	var archive export.Saver
	if len(savers) > 0 {
		archive = savers
	}
	basicAuth := web.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := web.NewServer(machine, archive, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		stop()
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

// processFile runs one upload cycle for a local file, prints the review and
// saves the export next to the annotated image
func processFile(ctx context.Context, machine *session.Machine, savers export.MultiSaver, path, exportDir string) error {
	file, err := intake.FromPath(path)
	if err != nil {
		return err
	}
	file, err = intake.Prepare(file)
	if err != nil {
		return err
	}
	slog.Info("Processing invoice", "file", file.Name, "size", file.SizeLabel())

	done, err := machine.StartUpload(ctx, file)
	if err != nil {
		return fmt.Errorf("starting upload: %w", err)
	}

	var outcome session.Outcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if outcome.Err != nil {
		return errors.New(outcome.Session.ErrorMessage)
	}

	if err := review.WriteReport(os.Stdout, machine.Fields(), outcome.Session.Result.RawCSV); err != nil {
		return err
	}

	artifact, err := machine.Export()
	if err != nil {
		return err
	}
	if len(savers) == 0 {
		dir, err := export.NewDirSaver(".")
		if err != nil {
			return err
		}
		savers = export.MultiSaver{dir}
		exportDir = "."
	}
	location, err := savers.Save(artifact)
	if err != nil {
		return fmt.Errorf("saving export: %w", err)
	}
	slog.Info("Export saved", "location", location)

	image, err := machine.AnnotatedImage()
	if err != nil {
		return err
	}
	if exportDir != "" {
		name := strings.TrimSuffix(artifact.Name, ".csv") + "_annotated.jpg"
		dest := filepath.Join(exportDir, name)
		if err := os.WriteFile(dest, image, 0644); err != nil {
			return fmt.Errorf("writing annotated image: %w", err)
		}
		slog.Info("Annotated image saved", "location", dest)
	}
	return nil
}
