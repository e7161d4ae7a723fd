package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/tenant"
)

// Service names accepted by `hospital serve`.
const (
	ServiceGateway        = "gateway"
	ServiceConsultations  = "consultations"
	ServiceAdministration = "administration"
	ServicePatients       = "patients"
)

var defaultPorts = map[string]string{
	ServiceGateway:        "8000",
	ServiceConsultations:  "8001",
	ServiceAdministration: "8002",
	ServicePatients:       "8003",
}

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	DatabaseURLGuayaquil string `mapstructure:"DATABASE_URL_GUAYAQUIL"`
	DatabaseURLCuenca    string `mapstructure:"DATABASE_URL_CUENCA"`
	DBMaxConns           int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir        string `mapstructure:"MIGRATIONS_DIR"`

	JWTKey      string `mapstructure:"JWT_KEY"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	ConsultationsURL  string `mapstructure:"CONSULTATIONS_URL"`
	AdministrationURL string `mapstructure:"ADMINISTRATION_URL"`
	PatientsURL       string `mapstructure:"PATIENTS_URL"`

	RPCTimeout        time.Duration `mapstructure:"RPC_TIMEOUT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	FanOutConcurrency int           `mapstructure:"FANOUT_CONCURRENCY"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
}

var envKeys = []string{
	"PORT", "ENV",
	"DATABASE_URL", "DATABASE_URL_GUAYAQUIL", "DATABASE_URL_CUENCA",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"JWT_KEY", "JWT_ISSUER", "JWT_AUDIENCE",
	"CONSULTATIONS_URL", "ADMINISTRATION_URL", "PATIENTS_URL",
	"RPC_TIMEOUT", "REQUEST_TIMEOUT", "FANOUT_CONCURRENCY", "BODY_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("JWT_ISSUER", "GestionHospitalaria")
	v.SetDefault("CONSULTATIONS_URL", "http://localhost:8001")
	v.SetDefault("ADMINISTRATION_URL", "http://localhost:8002")
	v.SetDefault("PATIENTS_URL", "http://localhost:8003")
	v.SetDefault("RPC_TIMEOUT", "5s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("FANOUT_CONCURRENCY", 3)
	v.SetDefault("BODY_LIMIT", "1M")

	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in development mode (ENV=development): requests without a token act as Admin.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ListenAddr returns the address for service, honoring PORT when set.
func (c *Config) ListenAddr(service string) string {
	port := c.Port
	if port == "" {
		port = defaultPorts[service]
	}
	return ":" + port
}

// ConnectionStrings returns the configured database URLs keyed by the
// connection names of the routing table. Unset URLs are omitted so the
// resolver reports them as configuration errors.
func (c *Config) ConnectionStrings() map[string]string {
	out := make(map[string]string, 3)
	for name, dsn := range map[string]string{
		tenant.ConnPrimary:   c.DatabaseURL,
		tenant.ConnGuayaquil: c.DatabaseURLGuayaquil,
		tenant.ConnCuenca:    c.DatabaseURLCuenca,
	} {
		if dsn != "" {
			out[name] = dsn
		}
	}
	return out
}

// Validate checks that the configuration can run service.
func (c *Config) Validate(service string) error {
	if _, ok := defaultPorts[service]; !ok {
		return fmt.Errorf("unknown service %q", service)
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("RPC_TIMEOUT must be positive, got %s", c.RPCTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}

	switch service {
	case ServiceGateway:
		if !c.IsDev() && c.JWTKey == "" {
			return fmt.Errorf("JWT_KEY is required outside development (ENV=%q)", c.Env)
		}
		if c.ConsultationsURL == "" || c.AdministrationURL == "" || c.PatientsURL == "" {
			return fmt.Errorf("CONSULTATIONS_URL, ADMINISTRATION_URL and PATIENTS_URL are required")
		}
	case ServiceConsultations:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.AdministrationURL == "" || c.PatientsURL == "" {
			return fmt.Errorf("ADMINISTRATION_URL and PATIENTS_URL are required")
		}
		if c.FanOutConcurrency < 1 {
			return fmt.Errorf("FANOUT_CONCURRENCY must be at least 1, got %d", c.FanOutConcurrency)
		}
	case ServiceAdministration, ServicePatients:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	}
	return nil
}
