package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// DefaultPropertiesFile is the properties file looked up when no path is given.
const DefaultPropertiesFile = "application.properties"

const (
	// DefaultJWTSecret is the placeholder signing secret used when none is configured.
	DefaultJWTSecret = "change-me-in-production"
	// MemoryDriver as db.driver keeps all data in process memory.
	MemoryDriver = "memory"
)

// PoolConfig mirrors the db.pool.* properties.
type PoolConfig struct {
	MaximumPoolSize        int
	MinimumIdle            int
	ConnectionTimeout      time.Duration
	IdleTimeout            time.Duration
	MaxLifetime            time.Duration
	LeakDetectionThreshold time.Duration
	ConnectionTestQuery    string
}

// Config holds application configuration from the properties file and environment variables
type Config struct {
	// Application
	AppPort string

	// Database
	DBDriver   string
	DBURL      string
	DBUsername string
	DBPassword string
	Pool       PoolConfig

	// Tokens
	JWTSecret     string
	JWTExpiration time.Duration
	JWTIssuer     string

	// Product cache
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Low-stock monitor period, disabled when zero
	InventoryMonitorInterval time.Duration

	// Seeded administrator, skipped when AdminUsername is empty
	AdminUsername string
	AdminPassword string
	AdminEmail    string

	// OpenTelemetry
	OTELEnabled               bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPHeaders   string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELServiceVersion        string
	OTELDeploymentEnvironment string
}

// Load reads the properties file at path (DefaultPropertiesFile when empty),
// then applies environment overrides. A missing file means defaults only.
func Load(path string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	if path == "" {
		path = DefaultPropertiesFile
	}
	values, err := godotenv.Read(path)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		log.Printf("[CONFIG] %s not found, using defaults", path)
		values = map[string]string{}
	}

	p := properties(values)
	cfg := &Config{
		AppPort: p.get("server.port", "APP_PORT", "8080"),

		DBDriver:   p.get("db.driver", "DB_DRIVER", "mysql"),
		DBURL:      p.get("db.url", "DB_URL", "jdbc:mysql://localhost:3306/ecommerce_db?useSSL=false&serverTimezone=UTC"),
		DBUsername: p.get("db.username", "DB_USERNAME", "root"),
		DBPassword: p.get("db.password", "DB_PASSWORD", "password"),
		Pool: PoolConfig{
			MaximumPoolSize:        p.getInt("db.pool.maximumPoolSize", "DB_POOL_MAX_SIZE", 20),
			MinimumIdle:            p.getInt("db.pool.minimumIdle", "DB_POOL_MIN_IDLE", 5),
			ConnectionTimeout:      p.getMillis("db.pool.connectionTimeout", "DB_POOL_CONNECTION_TIMEOUT", 30000),
			IdleTimeout:            p.getMillis("db.pool.idleTimeout", "DB_POOL_IDLE_TIMEOUT", 600000),
			MaxLifetime:            p.getMillis("db.pool.maxLifetime", "DB_POOL_MAX_LIFETIME", 1800000),
			LeakDetectionThreshold: p.getMillis("db.pool.leakDetectionThreshold", "DB_POOL_LEAK_DETECTION_THRESHOLD", 60000),
			ConnectionTestQuery:    p.get("db.pool.connectionTestQuery", "DB_POOL_TEST_QUERY", "SELECT 1"),
		},

		JWTSecret:     p.get("jwt.secret", "JWT_SECRET", DefaultJWTSecret),
		JWTExpiration: time.Duration(p.getInt("jwt.expirationMinutes", "JWT_EXPIRATION_MINUTES", 1440)) * time.Minute,
		JWTIssuer:     p.get("jwt.issuer", "JWT_ISSUER", "ecommerce-rest-api"),

		CacheTTL:      time.Duration(p.getInt("cache.ttlSeconds", "CACHE_TTL_SECONDS", 300)) * time.Second,
		RedisAddr:     p.get("cache.redis.addr", "REDIS_ADDR", ""),
		RedisPassword: p.get("cache.redis.password", "REDIS_PASSWORD", ""),
		RedisDB:       p.getInt("cache.redis.db", "REDIS_DB", 0),

		InventoryMonitorInterval: time.Duration(p.getInt("inventory.monitorIntervalSeconds", "INVENTORY_MONITOR_INTERVAL_SECONDS", 60)) * time.Second,

		AdminUsername: p.get("admin.username", "ADMIN_USERNAME", ""),
		AdminPassword: p.get("admin.password", "ADMIN_PASSWORD", ""),
		AdminEmail:    p.get("admin.email", "ADMIN_EMAIL", ""),

		OTELEnabled:               p.getBool("otel.enabled", "OTEL_ENABLED", false),
		OTELExporterOTLPEndpoint:  p.get("otel.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPHeaders:   p.get("otel.headers", "OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure:  p.getBool("otel.insecure", "OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:           p.get("otel.serviceName", "OTEL_SERVICE_NAME", "ecommerce-rest-api"),
		OTELServiceVersion:        p.get("otel.serviceVersion", "OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment: p.get("otel.environment", "OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
	}
	if cfg.UsesDefaultJWTSecret() {
		log.Printf("[CONFIG] Warning: jwt.secret is the built-in default, set jwt.secret or JWT_SECRET before deploying")
	}
	return cfg, nil
}

// UsesDefaultJWTSecret reports whether tokens are signed with the shipped
// placeholder secret.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// UsesMemoryStore reports whether db.driver selects the in-process store
// instead of MySQL.
func (c *Config) UsesMemoryStore() bool {
	return strings.EqualFold(c.DBDriver, MemoryDriver)
}

// DSN converts DBURL into a go-sql-driver DSN. Both the JDBC form
// (jdbc:mysql://host:port/db?params) and a native DSN are accepted.
func (c *Config) DSN() (string, error) {
	if c.DBDriver != "" && !strings.Contains(c.DBDriver, "mysql") {
		return "", fmt.Errorf("unsupported db.driver %q", c.DBDriver)
	}

	var mc *mysql.Config
	if strings.HasPrefix(c.DBURL, "jdbc:") {
		parsed, err := fromJDBC(c.DBURL)
		if err != nil {
			return "", err
		}
		mc = parsed
	} else {
		parsed, err := mysql.ParseDSN(c.DBURL)
		if err != nil {
			return "", fmt.Errorf("invalid db.url: %w", err)
		}
		mc = parsed
	}

	if mc.User == "" {
		mc.User = c.DBUsername
		mc.Passwd = c.DBPassword
	}
	mc.ParseTime = true
	// UPDATE reports matched rows, so an unchanged row still counts as found.
	mc.ClientFoundRows = true
	if c.Pool.ConnectionTimeout > 0 {
		mc.Timeout = c.Pool.ConnectionTimeout
	}
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	if _, ok := mc.Params["charset"]; !ok {
		mc.Params["charset"] = "utf8mb4"
	}
	return mc.FormatDSN(), nil
}

func fromJDBC(raw string) (*mysql.Config, error) {
	u, err := url.Parse(strings.TrimPrefix(raw, "jdbc:"))
	if err != nil {
		return nil, fmt.Errorf("invalid db.url: %w", err)
	}
	if u.Scheme != "mysql" {
		return nil, fmt.Errorf("unsupported db.url scheme %q", u.Scheme)
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = u.Host
	if u.Port() == "" {
		mc.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	mc.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}

	q := u.Query()
	if q.Get("useSSL") == "false" {
		mc.TLSConfig = "false"
	}
	if tz := q.Get("serverTimezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid serverTimezone %q: %w", tz, err)
		}
		mc.Loc = loc
	}
	return mc, nil
}

// GetAppPortInt returns the application port as an integer
func (c *Config) GetAppPortInt() int {
	port, err := strconv.Atoi(c.AppPort)
	if err != nil {
		return 8080
	}
	return port
}

// properties resolves a key from the environment first, then the file.
type properties map[string]string

func (p properties) get(key, envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if value := strings.TrimSpace(p[key]); value != "" {
		return value
	}
	return defaultValue
}

func (p properties) getInt(key, envKey string, defaultValue int) int {
	raw := p.get(key, envKey, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid integer for %s: %q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func (p properties) getMillis(key, envKey string, defaultValue int) time.Duration {
	return time.Duration(p.getInt(key, envKey, defaultValue)) * time.Millisecond
}

func (p properties) getBool(key, envKey string, defaultValue bool) bool {
	switch strings.ToLower(p.get(key, envKey, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}
