package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/catalog-cart/internal/adapter/channel"
	"github.com/rl1809/catalog-cart/internal/adapter/handler"
	"github.com/rl1809/catalog-cart/internal/adapter/handler/adminpb"
	"github.com/rl1809/catalog-cart/internal/adapter/metrics"
	"github.com/rl1809/catalog-cart/internal/adapter/storage"
	"github.com/rl1809/catalog-cart/internal/config"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/service"
	"github.com/rl1809/catalog-cart/internal/port"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	cat, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load catalog")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: cfg.RedisPoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect redis")
		}
		defer rdb.Close()
		log.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	}

	var db *sqlx.DB
	if cfg.UsesMySQL() {
		db, err = openMySQL(ctx, cfg)
		if err != nil {
			log.WithError(err).Fatal("failed to connect mysql")
		}
		defer db.Close()
		log.Info("connected to mysql")
	}

	carts, cache, closeCarts, err := cartStorage(cfg, rdb)
	if err != nil {
		log.WithError(err).Fatal("failed to open cart storage")
	}
	defer closeCarts()

	recorder := metrics.NewRecorder()
	hub := handler.NewHub()
	checkout := service.NewCheckoutService(cache, cfg.QueueSize, service.WithCheckoutMetrics(recorder))

	orderRepos := make(map[string]port.OrderRepository, len(cat.Tenants))
	tenants := make([]*handler.Tenant, 0, len(cat.Tenants))
	for _, t := range cat.Tenants {
		inv, orders, prices := repositories(cfg, t.ID, rdb, db)
		orderRepos[t.ID] = orders

		var inventory *service.InventoryService
		if t.InventoryEnabled {
			inventory = service.NewInventoryService(inv, orders,
				service.WithPublisher(port.Publishers{hub.Publisher(t.ID), recorder}),
				service.WithInventoryMetrics(recorder),
			)
		}
		wa := channel.NewWhatsApp(t.Phone, cfg.MaxLinkLength)
		if err := wa.Check(); err != nil {
			log.WithError(err).WithField("tenant", t.ID).Warn("catalog has no usable WhatsApp number")
		}
		tenant := handler.NewTenant(t, inventory, orders, prices, wa)
		if err := tenant.Prices.Refresh(ctx); err != nil {
			log.WithError(err).WithField("tenant", t.ID).Warn("could not load price overrides")
		}
		tenants = append(tenants, tenant)
	}
	registry := handler.NewTenants(carts, tenants...)
	registry.SetSessionTTL(cfg.CartTTL)
	go registry.Run(ctx, sessionSweepInterval(cfg.CartTTL))
	log.WithField("tenants", len(tenants)).Info("catalog loaded")

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, checkout.GetOrderQueue(), orderRepos)
		}(i)
	}
	log.WithField("workers", cfg.WorkerCount).Info("started order workers")

	grpcServer := grpc.NewServer()
	adminpb.RegisterInventoryAdminServer(grpcServer, handler.NewGRPCHandler(registry))

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(registry, checkout, hub, recorder.Handler()).Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return errors.Wrap(err, "listen grpc")
		}
		log.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP server shutdown")
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server error")
	}

	hub.Close()

	// Close order queue and wait for workers
	checkout.Close()
	wg.Wait()
	log.Info("workers stopped")
}

func openMySQL(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MySQLMaxConns)
	db.SetMaxIdleConns(cfg.MySQLMaxConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	if err := storage.Migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// cartStorage picks where carts live. Idempotency keys share Redis when it
// is configured so that every replica sees them.
func cartStorage(cfg config.Config, rdb *redis.Client) (port.CartStorage, port.CacheRepository, func(), error) {
	var cache port.CacheRepository = storage.NewMemoryAdapter()
	if rdb != nil {
		cache = storage.NewRedisAdapter(rdb, "checkout", cfg.CartTTL)
	}

	switch cfg.CartBackend {
	case config.BackendRedis:
		return storage.NewRedisAdapter(rdb, "carts", cfg.CartTTL), cache, func() {}, nil
	case config.BackendSQLite:
		s, err := storage.OpenSQLiteCartStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, cache, func() { s.Close() }, nil
	}
	return storage.NewMemoryAdapter(), cache, func() {}, nil
}

func repositories(cfg config.Config, tenant string, rdb *redis.Client, db *sqlx.DB) (port.InventoryRepository, port.OrderRepository, port.PriceRepository) {
	switch cfg.InventoryBackend {
	case config.BackendRedis:
		r := storage.NewRedisAdapter(rdb, tenant, cfg.CartTTL)
		return r, storage.NewMySQLAdapter(db, tenant), r
	case config.BackendMySQL:
		m := storage.NewMySQLAdapter(db, tenant)
		return m, m, m
	}
	m := storage.NewMemoryAdapter()
	return m, m, m
}

// sessionSweepInterval checks idle sessions a few times per TTL.
func sessionSweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = handler.DefaultSessionTTL
	}
	if iv := ttl / 4; iv > time.Minute {
		return iv
	}
	return time.Minute
}

func workerLoop(id int, queue <-chan domain.Order, repos map[string]port.OrderRepository) {
	for order := range queue {
		logger := log.WithFields(log.Fields{"worker": id, "order_id": order.ID, "tenant": order.CatalogKey})
		repo, ok := repos[order.CatalogKey]
		if !ok {
			logger.Error("CRITICAL: no order repository for catalog, order dropped")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := repo.CreateOrder(ctx, order); err != nil {
			logger.WithError(err).Error("CRITICAL: failed to record order")
		} else {
			logger.Debug("recorded order")
		}
		cancel()
	}
}
