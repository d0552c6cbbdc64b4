// Package config loads process settings from the environment and tenant
// catalogs from YAML.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envPrefix = "cart"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`

	// InventoryBackend is memory, redis or mysql. Orders live in MySQL for
	// the redis and mysql backends.
	InventoryBackend string `envconfig:"INVENTORY_BACKEND" default:"memory"`
	// CartBackend is memory, redis or sqlite.
	CartBackend string `envconfig:"CART_BACKEND" default:"memory"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPoolSize int    `envconfig:"REDIS_POOL_SIZE" default:"100"`
	MySQLDSN      string `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/catalog_cart?parseTime=true"`
	MySQLMaxConns int    `envconfig:"MYSQL_MAX_CONNS" default:"50"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"carts.db"`

	CatalogFile string        `envconfig:"CATALOG_FILE" default:"catalog.yaml"`
	CartTTL     time.Duration `envconfig:"CART_TTL" default:"720h"`

	WorkerCount int `envconfig:"WORKER_COUNT" default:"10"`
	QueueSize   int `envconfig:"QUEUE_SIZE" default:"10000"`

	// MaxLinkLength caps generated deep links; 0 means no cap.
	MaxLinkLength int `envconfig:"MAX_LINK_LENGTH" default:"0"`

	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return c, errors.Wrap(err, "read environment")
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.InventoryBackend {
	case BackendMemory, BackendRedis, BackendMySQL:
	default:
		return errors.Errorf("unknown inventory backend %q", c.InventoryBackend)
	}
	switch c.CartBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return errors.Errorf("unknown cart backend %q", c.CartBackend)
	}
	if c.WorkerCount <= 0 {
		return errors.New("worker count must be positive")
	}
	if c.QueueSize < 0 {
		return errors.New("queue size cannot be negative")
	}
	return nil
}

// UsesRedis reports whether any backend needs a Redis connection.
func (c Config) UsesRedis() bool {
	return c.InventoryBackend == BackendRedis || c.CartBackend == BackendRedis
}

// UsesMySQL reports whether orders are kept in MySQL.
func (c Config) UsesMySQL() bool {
	return c.InventoryBackend == BackendRedis || c.InventoryBackend == BackendMySQL
}
