package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// RegistryConfig holds configuration for the tenant registry service.
type RegistryConfig struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr  string `env:"REGISTRY_SERVER_ADDR" envDefault:":8080"`
	AdminAddr   string `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	PostgresURL string `env:"POSTGRES_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR"`
	JWTSecret   string `env:"JWT_SECRET,required"`

	// Audit trail. Empty broker list keeps the stdout publisher.
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"audit.events"`

	// Duplicate-email registration policy. When false, a contact email
	// that already owns a non-deactivated tenant is a 409.
	AllowDuplicateEmail bool `env:"ALLOW_DUPLICATE_EMAIL" envDefault:"false"`

	// Provisioning reconciliation.
	ProvisionTimeout time.Duration `env:"PROVISION_TIMEOUT" envDefault:"30s"`
	PendingTTL       time.Duration `env:"PENDING_TTL" envDefault:"10m"`
	ReapInterval     time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
	ReapMaxRetries   int           `env:"REAP_MAX_RETRIES" envDefault:"3"`

	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
}

// GatewayConfig holds configuration for the gateway router.
type GatewayConfig struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr string `env:"GATEWAY_SERVER_ADDR" envDefault:":8000"`
	AdminAddr  string `env:"ADMIN_SERVER_ADDR" envDefault:":9092"`
	JWTSecret  string `env:"JWT_SECRET,required"`
	RedisAddr  string `env:"REDIS_ADDR"`

	// Backend topology: SERVICE_BACKENDS maps URL prefixes to instance
	// lists, e.g. "menu=http://menu-1:8081|http://menu-2:8081,pos=http://pos-1:8082".
	ServiceBackends map[string]string `env:"SERVICE_BACKENDS,required" envSeparator:"," envKeyValSeparator:"="`

	ProbeInterval  time.Duration `env:"HEALTH_PROBE_INTERVAL" envDefault:"5s"`
	ProbeTimeout   time.Duration `env:"HEALTH_PROBE_TIMEOUT" envDefault:"2s"`
	FailThreshold  int           `env:"HEALTH_FAIL_THRESHOLD" envDefault:"3"`
	RiseThreshold  int           `env:"HEALTH_RISE_THRESHOLD" envDefault:"2"`
	ProxyTimeout   time.Duration `env:"PROXY_TIMEOUT" envDefault:"15s"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
}

// LoadRegistry reads registry configuration from environment variables.
// A .env file is loaded first if present, for local development.
func LoadRegistry() (*RegistryConfig, error) {
	_ = godotenv.Load()

	cfg := &RegistryConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadGateway reads gateway configuration from environment variables.
func LoadGateway() (*GatewayConfig, error) {
	_ = godotenv.Load()

	cfg := &GatewayConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
