package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appcatalog "github.com/jhoicas/conciliador-api/internal/application/catalog"
	"github.com/jhoicas/conciliador-api/internal/application/invoices"
	"github.com/jhoicas/conciliador-api/internal/application/orders"
	"github.com/jhoicas/conciliador-api/internal/application/payment"
	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/application/sideeffect"
	"github.com/jhoicas/conciliador-api/internal/domain/extraction"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
	"github.com/jhoicas/conciliador-api/internal/domain/settlement"
	"github.com/jhoicas/conciliador-api/internal/domain/validation"
	infraai "github.com/jhoicas/conciliador-api/internal/infrastructure/ai"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/memstore"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/notify"
	infrapdf "github.com/jhoicas/conciliador-api/internal/infrastructure/pdf"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/postgres"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/realtime"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/ubl"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/xlsx"
	httpRouter "github.com/jhoicas/conciliador-api/internal/interfaces/http"
	"github.com/jhoicas/conciliador-api/pkg/config"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

// storage agrupa los adaptadores de persistencia del driver elegido.
type storage struct {
	orderTx     orders.OrderTxRunner
	catalogTx   appcatalog.CatalogTxRunner
	orderRepo   repository.OrderRepository
	providers   repository.ProviderRepository
	documents   repository.DocumentRepository
	catalog     repository.CatalogRepository
	linkHistory repository.LinkHistoryRepository
	broadcaster ports.EventBroadcaster
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer store.close()

	effects := sideeffect.NewDispatcher(store.broadcaster, notify.NewLogNotifier(log), store.linkHistory, log)
	extractor := extraction.NewExtractor(cfg.Settlement.DefaultCurrency)
	engine := validation.NewEngine(cfg.Validation.DefaultCurrency, cfg.Validation.OCRMinConfidence)
	builder := settlement.NewBuilder(cfg.Settlement.DefaultCurrency, cfg.Settlement.DefaultMethod, cfg.Settlement.Locale)

	// Extracción de ítems con Claude: solo si hay API key.
	var lineItems ports.LineItemExtractor
	aiTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	if cfg.AI.AnthropicAPIKey != "" {
		anthropicSvc, err := infraai.NewAnthropicService(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicModel, cfg.AI.BaseURL, aiTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("inicializar extractor de ítems")
		}
		lineItems = anthropicSvc
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY vacío: extracción de ítems con IA deshabilitada")
	}

	processUC := invoices.NewProcessUseCase(
		store.documents, store.orderRepo, store.providers,
		extractor, engine, ubl.NewInvoiceReader(cfg.Settlement.DefaultCurrency), lineItems, effects,
	).WithLineItemTimeout(aiTimeout)
	validateUC := invoices.NewValidateUseCase(store.orderRepo, store.providers, store.documents, engine, effects)
	flowUC := orders.NewFlowUseCase(store.orderTx, effects)
	paymentUC := payment.NewPaymentDataUseCase(store.orderRepo, store.providers, builder, infrapdf.NewSlipRenderer())
	reconcileUC := appcatalog.NewReconcileUseCase(store.catalogTx, store.providers)
	exportUC := appcatalog.NewExportUseCase(store.catalog, xlsx.NewCatalogExporter(log))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Conciliador API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.DB.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Process:   processUC,
		Validate:  validateUC,
		Flow:      flowUC,
		Payment:   paymentUC,
		Reconcile: reconcileUC,
		Export:    exportUC,
		JWTSecret: cfg.JWT.Secret,
		Logger:    log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage crea los repositorios según STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos se pierden al reiniciar; tiempo real deshabilitado")
		s := memstore.New()
		return &storage{
			orderTx:     s,
			catalogTx:   s,
			orderRepo:   s.Orders(),
			providers:   s.Providers(),
			documents:   s.Documents(),
			catalog:     s.Catalog(),
			linkHistory: s.LinkHistory(),
			close:       func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		orderTx:     postgres.NewTxRunner(pool),
		catalogTx:   postgres.NewTxRunner(pool),
		orderRepo:   postgres.NewOrderRepository(pool),
		providers:   postgres.NewProviderRepository(pool),
		documents:   postgres.NewDocumentRepository(pool),
		catalog:     postgres.NewCatalogRepository(pool),
		linkHistory: postgres.NewLinkHistoryRepository(pool),
		broadcaster: realtime.NewPgNotifyBroadcaster(pool, cfg.Realtime.Channel),
		close:       pool.Close,
	}, nil
}
