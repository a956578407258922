package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	cfg     *Config
	loadErr error
	once    sync.Once
)

// Config is the configuration for the application
type Config struct {
	Server
	PostgreSQL
	Node
	Wallet
	Process
	Log
}

// Server is the configuration for the server
type Server struct {
	Port string `env:"PORT" envDefault:"8080"`
}

// Addr returns the address for the server
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%s", "0.0.0.0", s.Port)
}

// PostgreSQL is the configuration for the database
type PostgreSQL struct {
	Driver          string `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            string `env:"DB_PORT" envDefault:"5432"`
	Database        string `env:"DB_DATABASE" envDefault:"grinpay"`
	Username        string `env:"DB_USERNAME" envDefault:"grinpay"`
	Password        string `env:"DB_PASSWORD" envDefault:"grinpay"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConnAttempts int    `env:"DB_MAX_CONN_ATTEMPTS" envDefault:"5"`
	MaxConns        int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

// DSN returns the DSN for the database
func (c PostgreSQL) DSN() string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=%s",
		c.Driver,
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

type Node struct {
	NodeURL      string        `env:"NODE_URL" envDefault:"http://127.0.0.1:3413"`
	NodeUser     string        `env:"NODE_USER" envDefault:"grin"`
	NodePassword string        `env:"NODE_PASS" envDefault:""`
	NodeTimeout  time.Duration `env:"NODE_TIMEOUT" envDefault:"10s"`
}

type Wallet struct {
	WalletURL      string        `env:"WALLET_URL" envDefault:"http://127.0.0.1:3415"`
	WalletUser     string        `env:"WALLET_USER" envDefault:"grin"`
	WalletPassword string        `env:"WALLET_PASS" envDefault:""`
	WalletTimeout  time.Duration `env:"WALLET_TIMEOUT" envDefault:"30s"`
}

// Process configures the reconciliation jobs.
type Process struct {
	RejectNewInterval     time.Duration `env:"REJECT_NEW_INTERVAL" envDefault:"5s"`
	RejectPendingInterval time.Duration `env:"REJECT_PENDING_INTERVAL" envDefault:"5s"`
	SyncInterval          time.Duration `env:"SYNC_INTERVAL" envDefault:"5s"`
	AutoconfirmInterval   time.Duration `env:"AUTOCONFIRM_INTERVAL" envDefault:"5s"`
	ReportInterval        time.Duration `env:"REPORT_INTERVAL" envDefault:"5s"`
	TickTimeout           time.Duration `env:"TICK_TIMEOUT" envDefault:"30s"`
	WorkerPoolSize        int           `env:"WORKER_POOL_SIZE" envDefault:"8"`
	CallbackTimeout       time.Duration `env:"CALLBACK_TIMEOUT" envDefault:"10s"`
}

type Log struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile    string `env:"LOG_FILE" envDefault:""`
	LogConsole bool   `env:"LOG_CONSOLE" envDefault:"true"`
}

// Load reads .env (if present), an optional CONFIG_FILE and the environment.
// The result is computed once per process.
func Load() (*Config, error) {
	once.Do(func() {
		// a missing .env is fine, the environment may already be populated
		_ = godotenv.Load()

		v := viper.New()
		if file, ok := os.LookupEnv("CONFIG_FILE"); ok && file != "" {
			v.SetConfigFile(file)
			if err := v.ReadInConfig(); err != nil {
				loadErr = fmt.Errorf("read config file %s: %w", file, err)
				return
			}
		}
		cfg, loadErr = New(v)
	})

	return cfg, loadErr
}

// MustLoad is Load for entry points that cannot continue without configuration.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a Config from v. Every field is bound to its env variable, with
// the lower-cased variable name as the key for config files.
func New(v *viper.Viper) (*Config, error) {
	c := &Config{}
	cfgType := reflect.TypeOf(*c)
	cfgValue := reflect.ValueOf(c).Elem()

	for i := 0; i < cfgType.NumField(); i++ {
		field := cfgType.Field(i)
		fieldValue := cfgValue.Field(i)
		for j := 0; j < field.Type.NumField(); j++ {
			subField := field.Type.Field(j)
			envVar := subField.Tag.Get("env")
			key := strings.ToLower(envVar)

			v.SetDefault(key, subField.Tag.Get("envDefault"))
			if err := v.BindEnv(key, envVar); err != nil {
				return nil, fmt.Errorf("bind %s: %w", envVar, err)
			}

			if err := setField(fieldValue.Field(j), v, key); err != nil {
				return nil, fmt.Errorf("%s: %w", envVar, err)
			}
		}
	}

	return c, c.Validate()
}

var durationType = reflect.TypeOf(time.Duration(0))

func setField(field reflect.Value, v *viper.Viper, key string) error {
	if field.Type() == durationType {
		d := v.GetDuration(key)
		if d == 0 && v.GetString(key) != "" && v.GetString(key) != "0" {
			return fmt.Errorf("invalid duration %q", v.GetString(key))
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(v.GetString(key))
	case reflect.Bool:
		field.SetBool(v.GetBool(key))
	case reflect.Int, reflect.Int32, reflect.Int64:
		field.SetInt(v.GetInt64(key))
	default:
		return fmt.Errorf("unsupported config field kind %s", field.Kind())
	}
	return nil
}

// Validate checks the values the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{"NODE_URL": c.NodeURL, "WALLET_URL": c.WalletURL} {
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL, got %q", name, raw))
		}
	}

	intervals := map[string]time.Duration{
		"REJECT_NEW_INTERVAL":     c.RejectNewInterval,
		"REJECT_PENDING_INTERVAL": c.RejectPendingInterval,
		"SYNC_INTERVAL":           c.SyncInterval,
		"AUTOCONFIRM_INTERVAL":    c.AutoconfirmInterval,
		"REPORT_INTERVAL":         c.ReportInterval,
		"TICK_TIMEOUT":            c.TickTimeout,
		"CALLBACK_TIMEOUT":        c.CallbackTimeout,
	}
	for name, d := range intervals {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.WorkerPoolSize < 1 {
		errs = append(errs, errors.New("WORKER_POOL_SIZE must be at least 1"))
	}
	if c.MaxConns < 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must not be negative"))
	}

	return errors.Join(errs...)
}
