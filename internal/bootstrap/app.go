package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/mzextract/internal/config"
	"github.com/locvowork/mzextract/internal/database"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/locvowork/mzextract/internal/handler"
	"github.com/locvowork/mzextract/internal/logger"
	"github.com/locvowork/mzextract/internal/repository"
	"github.com/locvowork/mzextract/internal/service"
	"github.com/locvowork/mzextract/pkg/googlecloud"
	"github.com/olivere/elastic/v7"
)

const memoryRunsCapacity = 200

type App struct {
	Echo    *echo.Echo
	DB      *sql.DB
	GCP     *googlecloud.Client
	Elastic *elastic.Client
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	presets, err := config.LoadPresets(cfg.PRESETS_FILE)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}
	logger.InfoLog(ctx, "Loaded %d range presets", len(presets))

	recorders, lister := a.initRecorders(ctx)

	extractionSvc := service.NewExtractionService(service.Options{
		KeyColumn:   cfg.KEY_COLUMN,
		TrimHeaders: cfg.TRIM_HEADERS,
		Workers:     cfg.BATCH_WORKERS,
		Presets:     presets,
		Recorders:   recorders,
		Lister:      lister,
	})
	extractionHandler := handler.NewExtractionHandler(extractionSvc)

	a.RegisterMiddlewares()
	a.RegisterRoutes(extractionHandler)

	return nil
}

// initRecorders connects the audit backends named in AUDIT_BACKENDS. A
// backend that fails to connect is logged and skipped. Runs are always kept
// in memory; GET /runs reads from the first persistent backend if any.
func (a *App) initRecorders(ctx context.Context) ([]domain.RunRecorder, domain.RunLister) {
	cfg := config.DefaultEnvConfig
	var recorders []domain.RunRecorder
	var lister domain.RunLister

	add := func(r interface {
		domain.RunRecorder
		domain.RunLister
	}) {
		recorders = append(recorders, r)
		if lister == nil {
			lister = r
		}
	}

	for _, backend := range cfg.AUDIT_BACKENDS {
		switch backend {
		case "postgres":
			db, err := database.NewPostgresDB(ctx, database.Config{
				Host:            cfg.DB_HOST,
				Port:            cfg.DB_PORT,
				User:            cfg.DB_USER,
				Password:        cfg.DB_PASSWORD,
				DBName:          cfg.DB_NAME,
				SSLMode:         cfg.DB_SSL_MODE,
				MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
				MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
				ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
			})
			if err != nil {
				logger.ErrorLog(ctx, "failed to initialize database: %v", err)
				continue
			}
			repo := repository.NewPostgresRunRepository(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.ErrorLog(ctx, "failed to prepare extraction_runs: %v", err)
				db.Close()
				continue
			}
			a.DB = db
			add(repo)

		case "datastore":
			gcpClient, err := googlecloud.NewClient(ctx, cfg.GCP_PROJECT_ID)
			if err != nil {
				logger.ErrorLog(ctx, "failed to initialize GCP client: %v", err)
				continue
			}
			a.GCP = gcpClient
			add(repository.NewDatastoreRunRepository(gcpClient))

		case "elastic":
			client, err := repository.NewElasticClient(cfg.ES_URL)
			if err != nil {
				logger.ErrorLog(ctx, "failed to initialize elastic client: %v", err)
				continue
			}
			repo := repository.NewElasticRunRepository(client, cfg.ES_INDEX)
			if err := repo.EnsureIndex(ctx); err != nil {
				logger.ErrorLog(ctx, "failed to prepare index %s: %v", cfg.ES_INDEX, err)
				client.Stop()
				continue
			}
			a.Elastic = client
			add(repo)

		default:
			logger.WarnLog(ctx, "unknown audit backend %q ignored", backend)
		}
	}

	mem := repository.NewMemoryRunRepository(memoryRunsCapacity)
	recorders = append(recorders, mem)
	if lister == nil {
		lister = mem
	}

	names := make([]string, len(recorders))
	for i, r := range recorders {
		names[i] = r.Name()
	}
	logger.InfoLog(ctx, "Run recorders: %v", names)
	return recorders, lister
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(handler.RequestContext())
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
	a.Echo.Use(middleware.BodyLimit(config.DefaultEnvConfig.MAX_UPLOAD_SIZE))
}

func (a *App) RegisterRoutes(extractionHandler *handler.ExtractionHandler) {
	a.Echo.GET("/healthz", extractionHandler.HealthHandler)
	a.Echo.GET("/presets", extractionHandler.PresetsHandler)
	a.Echo.POST("/workbooks/inspect", extractionHandler.InspectHandler)
	a.Echo.POST("/extractions", extractionHandler.ExtractHandler)
	a.Echo.GET("/runs", extractionHandler.RunsHandler)
}

func (a *App) Run() error {
	defer a.Close()
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}

// Close releases the audit backend connections.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.GCP != nil {
		a.GCP.Close()
	}
	if a.Elastic != nil {
		a.Elastic.Stop()
	}
}
