// cmd/tools/jobctl/root.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cv-pipeline/internal/common/config"
	"cv-pipeline/internal/common/database"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/jobs"
	"cv-pipeline/internal/queue"
	"cv-pipeline/internal/store"
	"cv-pipeline/pkg/registry"

	"github.com/spf13/cobra"
)

const app = "jobctl"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "jobctl submits, inspects and maintains cv-pipeline jobs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

func newLogger() logger.Logger {
	level := "warn"
	if debug {
		level = "debug"
	}
	return logger.NewStructured(level, "console")
}

// env holds the connections a command opened; Close releases them.
type env struct {
	cfg    *config.Config
	log    logger.Logger
	closes []func() error
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &env{cfg: cfg, log: newLogger()}, nil
}

func (e *env) Close() {
	for i := len(e.closes) - 1; i >= 0; i-- {
		e.closes[i]()
	}
}

func (e *env) store(ctx context.Context) (store.Store, error) {
	if e.cfg.Store.Backend == "memory" {
		return nil, fmt.Errorf("store.backend=memory is process local; jobctl needs the postgres store")
	}
	pg, err := database.NewPostgres(e.cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	e.closes = append(e.closes, pg.Close)
	return store.NewPostgresStore(pg.DB, e.log), nil
}

func (e *env) broker() (queue.Broker, error) {
	if e.cfg.Queue.Backend == "zeebe" {
		return nil, fmt.Errorf("jobctl submits through the redis broker; submit zeebe jobs through the API")
	}
	rdb, err := database.NewRedis(e.cfg.Database.Redis)
	if err != nil {
		return nil, err
	}
	e.closes = append(e.closes, rdb.Close)
	return queue.NewRedisBroker(rdb.Client, queue.RedisBrokerConfig{Prefix: e.cfg.Queue.Prefix}, e.log), nil
}

func (e *env) jobService(ctx context.Context, withBroker bool) (*jobs.Service, error) {
	reg, err := registry.Load(e.cfg.Registry.Path)
	if err != nil {
		return nil, err
	}
	st, err := e.store(ctx)
	if err != nil {
		return nil, err
	}
	var broker queue.Broker
	if withBroker {
		if broker, err = e.broker(); err != nil {
			return nil, err
		}
	}
	return jobs.NewService(reg, st, broker, e.log)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
