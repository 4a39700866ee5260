package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App        AppConfig
	DB         DBConfig
	JWT        JWTConfig
	HTTP       HTTPConfig
	Settlement SettlementConfig
	Validation ValidationConfig
	Realtime   RealtimeConfig
	AI         AIConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// Drivers de almacenamiento.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory" // solo desarrollo local; los datos se pierden al reiniciar
)

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo (ej. DATABASE_URL de Supabase).
type DBConfig struct {
	Driver      string
	MaxConns    int32
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT (solo validación; la emisión la hace el servicio de identidad).
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SettlementConfig valores por defecto para los datos de pago.
type SettlementConfig struct {
	DefaultCurrency string // ARS
	DefaultMethod   string // transfer
	Locale          string // es-AR, usado para formatear montos en el mensaje
}

// ValidationConfig umbrales del motor de validación.
type ValidationConfig struct {
	DefaultCurrency  string  // moneda del tenant; otra moneda en la factura penaliza la confianza
	OCRMinConfidence float64 // por debajo se marca revisión manual
}

// RealtimeConfig canal de notificación de cambios de estado (pg_notify).
type RealtimeConfig struct {
	Channel string
}

// AIConfig extracción opcional de ítems con Anthropic. Sin API key la extracción se omite.
type AIConfig struct {
	AnthropicAPIKey string
	AnthropicModel  string
	BaseURL         string
	TimeoutSeconds  int
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, DB_PORT, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	currency := strings.ToUpper(getString(v, "SETTLEMENT_DEFAULT_CURRENCY", "ARS"))
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "conciliador-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(getString(v, "STORAGE_DRIVER", DriverPostgres)),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 25)),
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "conciliador"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "conciliador-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Settlement: SettlementConfig{
			DefaultCurrency: currency,
			DefaultMethod:   getString(v, "SETTLEMENT_DEFAULT_METHOD", "transfer"),
			Locale:          getString(v, "SETTLEMENT_LOCALE", "es-AR"),
		},
		Validation: ValidationConfig{
			DefaultCurrency:  strings.ToUpper(getString(v, "VALIDATION_DEFAULT_CURRENCY", currency)),
			OCRMinConfidence: getFloat(v, "VALIDATION_OCR_MIN_CONFIDENCE", 0.7),
		},
		Realtime: RealtimeConfig{
			Channel: getString(v, "REALTIME_CHANNEL", "order_status"),
		},
		AI: AIConfig{
			AnthropicAPIKey: getString(v, "ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getString(v, "ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
			BaseURL:         getString(v, "ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			TimeoutSeconds:  getInt(v, "AI_TIMEOUT_SECONDS", 20),
		},
	}

	if cfg.App.Env == "production" && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET requerido en production")
	}
	if cfg.DB.Driver != DriverPostgres && cfg.DB.Driver != DriverMemory {
		return nil, fmt.Errorf("config: STORAGE_DRIVER %q no soportado", cfg.DB.Driver)
	}
	if cfg.DB.Driver == DriverMemory && cfg.App.Env == "production" {
		return nil, fmt.Errorf("config: STORAGE_DRIVER=memory no se permite en production")
	}
	if cfg.Validation.OCRMinConfidence < 0 || cfg.Validation.OCRMinConfidence > 1 {
		return nil, fmt.Errorf("config: VALIDATION_OCR_MIN_CONFIDENCE fuera de rango [0,1]")
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if v.IsSet(key) {
		if s, ok := v.Get(key).(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return def
			}
			return f
		}
		return v.GetFloat64(key)
	}
	return def
}
