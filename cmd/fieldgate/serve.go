package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/fieldgate/internal/api"
	"github.com/rpattn/fieldgate/internal/audit"
	"github.com/rpattn/fieldgate/internal/changes"
	"github.com/rpattn/fieldgate/internal/config"
	"github.com/rpattn/fieldgate/internal/db"
	"github.com/rpattn/fieldgate/internal/definitions"
	"github.com/rpattn/fieldgate/internal/gate"
	"github.com/rpattn/fieldgate/internal/repository"
	"github.com/rpattn/fieldgate/internal/workflow"
)

type repositories struct {
	schemas     repository.DocumentSchemaRepository
	definitions repository.WorkflowDefinitionRepository
	changeLogs  repository.ChangeLogRepository
	close       func()
}

func openRepositories(ctx context.Context, cfg config.Config, migrate bool) (repositories, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("using in-memory storage, change logs are lost on exit")
		store := repository.NewMemoryStore()
		return repositories{
			schemas:     store.Schemas(),
			definitions: store.Definitions(),
			changeLogs:  store.ChangeLogs(),
			close:       func() {},
		}, nil
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return repositories{}, errors.WithMessage(err, "could not connect to db")
	}
	if migrate {
		if err := db.RunMigrations(conn.Pool); err != nil {
			conn.Close()
			return repositories{}, errors.WithMessage(err, "could not migrate db")
		}
	}
	return repositories{
		schemas:     repository.NewDocumentSchemaRepository(conn.Pool),
		definitions: repository.NewWorkflowDefinitionRepository(conn.Pool),
		changeLogs:  repository.NewChangeLogRepository(conn.Pool),
		close:       conn.Close,
	}, nil
}

func NewServeCommand() *cobra.Command {
	var (
		seedFile    string
		skipMigrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow hooks, definition API and change log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			repos, err := openRepositories(ctx, cfg, !skipMigrate)
			if err != nil {
				return err
			}
			defer repos.close()

			workflows := workflow.NewService(repos.definitions)
			if seedFile != "" {
				bundle, err := definitions.LoadFile(seedFile)
				if err != nil {
					return err
				}
				if err := bundle.Seed(ctx, repos.schemas, workflows); err != nil {
					return err
				}
			}

			server := api.NewServer(api.Dependencies{
				Gate:        gate.New(changes.NewDetector(cfg.ChildTableLimit), audit.NewLogger(repos.changeLogs, nil)),
				Workflows:   workflows,
				Schemas:     repos.schemas,
				Definitions: repos.definitions,
				ChangeLogs:  repos.changeLogs,
			})

			httpServer := &http.Server{
				Addr:         cfg.HTTPAddr,
				Handler:      server.Handler(cfg.AllowedOrigins),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithFields(log.Fields{
					"addr":    cfg.HTTPAddr,
					"storage": cfg.StorageDriver,
				}).Info("starting fieldgate server")
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				if err != nil {
					return errors.Wrap(err, "server failed")
				}
				return nil
			case <-quit:
			}
			log.Info("shutting down server")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "server forced to shutdown")
			}
			log.Info("server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML bundle of schemas and workflows to load at startup")
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply database migrations at startup")
	return cmd
}
