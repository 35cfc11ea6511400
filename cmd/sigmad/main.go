// Copyright (c) 2026 Sigma. All rights reserved.

/*
Sigmad is the entry point for the Sigma configuration-driven data
gateway.

Sigma exposes collections described entirely by configuration —
endpoint paths, HTTP methods, filters, schemas, and enum bindings all
live in a hierarchical config store — as a uniform REST surface over a
single polymorphic document table.

Usage:

	go run cmd/sigmad/main.go

Environment variables (§6): ENV, SERVICE, SERVER_PORT, DEBUG,
ZOOKEEPER_URL, DATABASE_TYPE, DATABASE_URL, REDIS_URL,
JWT_PUBLIC_KEY_PATH, SERVICE_PRINCIPAL, EXTRA_ORIGINS.

Startup sequence:

 1. Logger: structured JSON logging (slog).
 2. Config: load and validate environment variables.
 3. Config store: dial etcd, take the initial snapshot.
 4. Storage: open the SQL pool for the inferred dialect, bootstrap schema.
 5. Schema & Enum Manager: load schema bodies, start the enum refresh loop.
 6. Endpoint Registry: build the routing table from the snapshot.
 7. Watch: re-reload the registry and schema manager on config changes.
 8. Server: bind the HTTP listener and handle graceful shutdown.

No business logic lives here. This file is strictly for orchestration and wiring.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/sigma-gateway/sigma/internal/api"
	"github.com/sigma-gateway/sigma/internal/audit"
	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
	"github.com/sigma-gateway/sigma/internal/gateway/httpapi"
	"github.com/sigma-gateway/sigma/internal/gateway/repository"
	"github.com/sigma-gateway/sigma/internal/gateway/schema"
	"github.com/sigma-gateway/sigma/internal/platform/config"
	"github.com/sigma-gateway/sigma/internal/platform/constants"
	"github.com/sigma-gateway/sigma/internal/platform/configstore"
	"github.com/sigma-gateway/sigma/internal/platform/database"
	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
	"github.com/sigma-gateway/sigma/internal/platform/migration"
	redisstore "github.com/sigma-gateway/sigma/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)
	log.Info("service_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Debug {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})).
			With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}
	log.Info("configuration_loaded", slog.String("env", cfg.Env), slog.String("service", cfg.Service))

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// # 3. Config Store
	cstore, err := configstore.NewEtcdClient(startupCtx, strings.Split(cfg.ZookeeperURL, ","), log)
	if err != nil {
		return fmt.Errorf("connect to config store: %w", err)
	}
	snapshot, err := cstore.ReadSubtree(startupCtx, "/"+cfg.Env)
	if err != nil {
		return fmt.Errorf("read initial config snapshot: %w", err)
	}

	apiPrefix := snapshotString(snapshot, cfg.ConfigRoot()+"/apiPrefix", "")
	endpointsRoot := cfg.ConfigRoot() + "/endpoints"
	schemasRoot := cfg.ConfigRoot() + "/schemas"
	enumURL := snapshotString(snapshot, "/"+cfg.Env+"/dataSource/enumURL", "")
	refreshSeconds := snapshotInt(snapshot, "/"+cfg.Env+"/Globals/EnumRefreshIntervalSeconds", 60)
	failOnEnumLoad := snapshotBool(snapshot, "/"+cfg.Env+"/Globals/FailOnEnumLoadFailure", false)

	// # 4. Storage
	d, err := dialect.Select(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("select dialect: %w", err)
	}
	db, err := database.Open(startupCtx, d, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database pool")
		_ = db.Close()
	}()
	if err := migration.RunUp(startupCtx, db, d, log); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	repo := repository.New(db, d)

	// # 5. Schema & Enum Manager
	var rdb *redis.Client
	var opts []schema.Option
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		opts = append(opts, schema.WithRedisWarmCache(rdb))
	}
	schemaMgr := schema.NewManager(schema.NewHTTPSource(enumURL), time.Duration(refreshSeconds)*time.Second, log, opts...)
	schemaMgr.SetFailOnEnumLoadFailure(failOnEnumLoad)
	schemaMgr.LoadDefinitions(loadSchemaDefinitions(snapshot, schemasRoot))

	// # 6. Endpoint Registry
	registry := endpoint.NewRegistry(log)
	registry.Reload(snapshot, endpointsRoot, apiPrefix)

	// # 7. Auditor Resolution
	resolver, err := buildAuditorResolver(cfg)
	if err != nil {
		return fmt.Errorf("build auditor resolver: %w", err)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// # 8. Live Config Reload
	reload := func() {
		fresh, err := cstore.ReadSubtree(appCtx, "/"+cfg.Env)
		if err != nil {
			log.Error("config_snapshot_refresh_failed", slog.Any("error", err))
			return
		}
		registry.Reload(fresh, endpointsRoot, apiPrefix)
		schemaMgr.LoadDefinitions(loadSchemaDefinitions(fresh, schemasRoot))
	}
	if err := cstore.Watch(appCtx, cfg.ConfigRoot(), func(configstore.Event) { reload() }); err != nil {
		log.Warn("config_watch_registration_failed", slog.Any("error", err))
	}

	if err := schemaMgr.RunRefreshLoop(appCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("enum_refresh_loop_exited", slog.Any("error", err))
	}

	// # 9. Health Wiring
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error { return database.Ping(context.Background(), db) },
		CheckCache: func() error {
			if rdb == nil {
				return nil
			}
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	deps := &httpapi.Deps{
		Registry: registry,
		Repo:     repo,
		Dialect:  d,
		Schema:   schemaMgr,
		Resolver: resolver,
		Log:      log,
	}

	server := api.NewServer(appCtx, cfg, log, resolver, deps, api.Handlers{Liveness: liveness, Readiness: readiness})

	// # 10. Lifecycle Handling
	shutdownErr := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr <- fmt.Errorf("http_server_crash: %w", err)
		}
	}()

	log.Info("sigma_gateway_running", slog.String("port", cfg.ServerPort))

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-shutdownErr:
		return err
	}

	appCancel()
	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("server_shutdown_failed: %w", err)
	}
	log.Info("graceful_shutdown_complete")
	return nil
}

// buildAuditorResolver wires the JWT-verifying resolver when a public
// key is configured, falling back to a static service-principal
// resolver otherwise (§6's auditor identity contract).
func buildAuditorResolver(cfg *config.Config) (audit.Resolver, error) {
	if cfg.JWTPublicKeyPath == "" {
		return audit.Static{Principal: cfg.ServicePrincipal}, nil
	}
	raw, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt public key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse jwt public key: %w", err)
	}
	return audit.NewJWTResolver(pub, cfg.ServicePrincipal), nil
}

// loadSchemaDefinitions extracts every leaf under schemasRoot as a
// named JSON Schema body (§6: "/{ENV}/{SERVICE}/schemas/{name} → JSON
// Schema body" — one leaf per schema, not a further subtree).
func loadSchemaDefinitions(snapshot configstore.Snapshot, schemasRoot string) []schema.RawDefinition {
	prefix := strings.TrimSuffix(schemasRoot, "/") + "/"
	var defs []schema.RawDefinition
	for path, body := range snapshot {
		name := strings.TrimPrefix(path, prefix)
		if name == path || strings.Contains(name, "/") {
			continue
		}
		defs = append(defs, schema.RawDefinition{Name: name, Body: body})
	}
	return defs
}

func snapshotString(snapshot configstore.Snapshot, path, def string) string {
	if v, ok := snapshot[path]; ok && len(v) > 0 {
		return string(v)
	}
	return def
}

func snapshotInt(snapshot configstore.Snapshot, path string, def int) int {
	raw := snapshotString(snapshot, path, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func snapshotBool(snapshot configstore.Snapshot, path string, def bool) bool {
	raw := snapshotString(snapshot, path, "")
	if raw == "" {
		return def
	}
	return strings.EqualFold(raw, "true")
}
