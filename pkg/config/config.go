package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Scheduler    SchedulerConfig
	HTTP         HTTPConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POSPORTAL_APP_ENV" required:"true"`
	Port         string `envconfig:"POSPORTAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POSPORTAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSPORTAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"POSPORTAL_DB_DSN"`
	Driver string `envconfig:"POSPORTAL_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"POSPORTAL_DB_HOST"`
	Port     int    `envconfig:"POSPORTAL_DB_PORT" default:"5432"`
	User     string `envconfig:"POSPORTAL_DB_USER"`
	Password string `envconfig:"POSPORTAL_DB_PASSWORD"`
	Name     string `envconfig:"POSPORTAL_DB_NAME"`
	SSLMode  string `envconfig:"POSPORTAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POSPORTAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSPORTAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POSPORTAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSPORTAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POSPORTAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"POSPORTAL_REDIS_ADDR"`
	Password     string        `envconfig:"POSPORTAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSPORTAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSPORTAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSPORTAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSPORTAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSPORTAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSPORTAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SchedulerConfig struct {
	LockKey         string        `envconfig:"POSPORTAL_SCHEDULER_LOCK_KEY" default:"posportal:scheduler:lock"`
	LockTTL         time.Duration `envconfig:"POSPORTAL_SCHEDULER_LOCK_TTL" default:"2m"`
	ReloadInterval  time.Duration `envconfig:"POSPORTAL_SCHEDULER_RELOAD_INTERVAL" default:"1m"`
	MinBoundaryWait time.Duration `envconfig:"POSPORTAL_SCHEDULER_MIN_BOUNDARY_WAIT" default:"1s"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"POSPORTAL_HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"POSPORTAL_HTTP_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"POSPORTAL_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"POSPORTAL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"POSPORTAL_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
