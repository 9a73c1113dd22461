package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crudbind/internal/api"
	"crudbind/internal/blob"
	"crudbind/internal/config"
	"crudbind/internal/dsl"
	"crudbind/internal/logging"
	"crudbind/internal/reference"
	"crudbind/internal/registry"
	"crudbind/internal/schema"
	"crudbind/internal/store"
)

var cfg config.Config

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crudbind",
		Short: "Declarative CRUD editors over SQL tables",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load("crudbind.yaml", cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			return logging.Setup(cfg.LogLevel, cfg.LogFile)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP server", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Create tables declared in DSL", RunE: runMigrate},
		&cobra.Command{Use: "lint", Short: "Check DSL and enum catalogs", RunE: runLint},
	)
	return root
}

func migrate(ctx context.Context, st *store.SQL, doc *dsl.Document) error {
	ddl, err := schema.GenerateDDL(doc.Tables, st.Dialect())
	if err != nil {
		return err
	}
	if err := schema.Apply(ctx, st.DB(), ddl); err != nil {
		return err
	}
	log.WithField("tables", len(doc.Tables)).Info("schema applied")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DBURL)
	if err != nil {
		return err
	}
	defer st.Close()

	// у SQLite в памяти таблиц нет, пока их не создать
	if cfg.AutoMigrate || cfg.DBURL == "" {
		doc, err := dsl.LoadAll(cfg.DSLDir)
		if err != nil {
			return fmt.Errorf("load dsl: %w", err)
		}
		if err := migrate(ctx, st, doc); err != nil {
			return err
		}
	}

	files, err := blob.New(cfg.BlobDriver, cfg.FilesRoot)
	if err != nil {
		return err
	}
	reg := registry.New(st, registry.WithBlob(files), registry.WithDebug(cfg.Debug))
	issues, err := reg.Reload(cfg.DSLDir, cfg.EnumsDir)
	if err != nil {
		printIssues(issues)
		return err
	}

	return api.Run(ctx, ":"+cfg.Port, &api.Server{
		Registry: reg,
		Blob:     files,
		DSLDir:   cfg.DSLDir,
		EnumsDir: cfg.EnumsDir,
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	doc, err := dsl.LoadAll(cfg.DSLDir)
	if err != nil {
		return fmt.Errorf("load dsl: %w", err)
	}
	st, err := store.Open(cfg.DBURL)
	if err != nil {
		return err
	}
	defer st.Close()
	return migrate(cmd.Context(), st, doc)
}

func runLint(cmd *cobra.Command, _ []string) error {
	doc, err := dsl.LoadAll(cfg.DSLDir)
	if err != nil {
		return fmt.Errorf("load dsl: %w", err)
	}
	enums, err := reference.LoadEnumCatalog(cfg.EnumsDir)
	if err != nil {
		return fmt.Errorf("load enums: %w", err)
	}
	issues := registry.Lint(doc, enums)
	printIssues(issues)
	if len(issues) > 0 {
		return registry.ErrLint
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tables, %d editors, %d enums\n", len(doc.Tables), len(doc.Editors), len(enums))
	return nil
}

func printIssues(issues []registry.Issue) {
	for _, is := range issues {
		entry := log.WithFields(log.Fields{"entity": is.Entity, "code": is.Code})
		if is.Field != "" {
			entry = entry.WithField("field", is.Field)
		}
		entry.Error(is.Message)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
