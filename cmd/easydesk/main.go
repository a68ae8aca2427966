// Package main starts the EasyDesk terminal application: it loads the
// configuration, sets up logging and storage, and runs the interactive shell.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/atinyakov/EasyDesk/internal/bridge"
	"github.com/atinyakov/EasyDesk/internal/cipher"
	"github.com/atinyakov/EasyDesk/internal/config"
	"github.com/atinyakov/EasyDesk/internal/db"
	"github.com/atinyakov/EasyDesk/internal/logger"
	"github.com/atinyakov/EasyDesk/internal/repository"
	"github.com/atinyakov/EasyDesk/internal/service"
	"github.com/atinyakov/EasyDesk/internal/shell"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	fmt.Printf("EasyDesk %s (built %s)\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))

	ctx := context.Background()

	// Initialize structured logging, off the terminal when a log file is set.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if path := options.LogPath(); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := log.InitWriter(options.LogLevel, f); err != nil {
			fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
			os.Exit(1)
		}
	} else if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	// Initialize repositories for credentials and documents.
	documentRepo := repository.NewFileDocumentRepository(options.DataPath())
	credentialRepo, closeCredentials, err := openCredentials(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot open credential store", zap.Error(err))
	}
	defer closeCredentials()

	// Initialize business-logic services.
	authService := service.NewAuthService(credentialRepo, documentRepo, zapLogger)
	documentService := service.NewDocumentService(documentRepo, authService, zapLogger)

	sh := shell.New(os.Stdin, os.Stdout, cipher.NewCaesar(options.CipherShift), options.AutosaveInterval, zapLogger)
	b := bridge.New(authService, documentService, sh, options.InferContent, zapLogger)

	zapLogger.Info("starting shell",
		zap.String("data", options.DataPath()),
		zap.String("backend", options.CredentialsBackend),
	)
	if err := sh.Run(ctx, b); err != nil {
		zapLogger.Error("shell stopped", zap.Error(err))
	}
	b.SignOut()
}

// openCredentials builds the configured credential repository and a function
// releasing its resources.
func openCredentials(ctx context.Context, options *config.Options, log *zap.Logger) (service.CredentialRepository, func(), error) {
	switch options.CredentialsBackend {
	case config.BackendPostgres:
		postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresCredentialRepository(postgresDB), func() { _ = postgresDB.Close() }, nil
	default:
		repo := repository.NewFileCredentialRepository(options.UsersPath(), options.StrictCredentials, log)
		return repo, func() {}, nil
	}
}
