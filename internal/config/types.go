package config

import (
	"strings"
	"time"
)

// PlaceholderAPIKey значение api_key из шаблона конфигурации, означает "не настроено"
const PlaceholderAPIKey = "YOUR_API_KEY"

// Режимы выбора бэкенда
const (
	BackendAuto   = "auto"
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// ConfigLogger настройки логирования
type ConfigLogger struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ConfigBackend правила выбора бэкенда при старте сессии
type ConfigBackend struct {
	Prefer          string `mapstructure:"prefer"`
	FallbackToLocal bool   `mapstructure:"fallback_to_local"`
}

// ConfigRemote настройки удаленного бэкенда (notedb)
type ConfigRemote struct {
	Addr             string `mapstructure:"addr"`
	APIKey           string `mapstructure:"api_key"`
	ProjectID        string `mapstructure:"project_id"`
	AppID            string `mapstructure:"app_id"`
	CustomToken      string `mapstructure:"custom_token"`
	ServerTimestamps bool   `mapstructure:"server_timestamps"`
	DialTimeout      int    `mapstructure:"dial_timeout"`
}

// Valid проверяет, что удаленная конфигурация присутствует и не является шаблоном
func (r *ConfigRemote) Valid() bool {
	if r == nil {
		return false
	}
	key := strings.TrimSpace(r.APIKey)
	return strings.TrimSpace(r.Addr) != "" &&
		key != "" && key != PlaceholderAPIKey &&
		strings.TrimSpace(r.AppID) != ""
}

// Timeout таймаут установки соединения и входа
func (r *ConfigRemote) Timeout() time.Duration {
	return time.Duration(r.DialTimeout) * time.Second
}

// ConfigLocal настройки локального хранилища
type ConfigLocal struct {
	Path string `mapstructure:"path"`
}

// ConfigEditor настройки редактора
type ConfigEditor struct {
	AutosaveDelayMS int `mapstructure:"autosave_delay_ms"`
}

// AutosaveDelay окно тишины автосохранения
func (e *ConfigEditor) AutosaveDelay() time.Duration {
	return time.Duration(e.AutosaveDelayMS) * time.Millisecond
}

// ClientConfig конфигурация клиента заметок
type ClientConfig struct {
	Logger  *ConfigLogger  `mapstructure:"logger"`
	Backend *ConfigBackend `mapstructure:"backend"`
	Remote  *ConfigRemote  `mapstructure:"remote"`
	Local   *ConfigLocal   `mapstructure:"local"`
	Editor  *ConfigEditor  `mapstructure:"editor"`
}

// SetDefaults заполняет незаданные секции и поля
func (c *ClientConfig) SetDefaults() {
	if c.Logger == nil {
		c.Logger = &ConfigLogger{}
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Backend == nil {
		c.Backend = &ConfigBackend{}
	}
	if c.Backend.Prefer == "" {
		c.Backend.Prefer = BackendAuto
	}
	if c.Remote == nil {
		c.Remote = &ConfigRemote{}
	}
	if c.Remote.AppID == "" {
		c.Remote.AppID = "markdown-note-cloud"
	}
	if c.Remote.DialTimeout == 0 {
		c.Remote.DialTimeout = 10
	}
	if c.Local == nil {
		c.Local = &ConfigLocal{}
	}
	if c.Local.Path == "" {
		c.Local.Path = "notes-storage.json"
	}
	if c.Editor == nil {
		c.Editor = &ConfigEditor{}
	}
	if c.Editor.AutosaveDelayMS == 0 {
		c.Editor.AutosaveDelayMS = 1500
	}
}

// ConfigServer настройки сервера notedb
type ConfigServer struct {
	UseReflection           bool `mapstructure:"use_reflection"`
	PortGRPC                int  `mapstructure:"port_grpc"`
	PortHTTP                int  `mapstructure:"port_http"`
	HTTPReadTimeout         int  `mapstructure:"http_read_timeout"`
	HTTPWriteTimeout        int  `mapstructure:"http_write_timeout"`
	HTTPIdleTimeout         int  `mapstructure:"http_idle_timeout"`
	HTTPReadHeaderTimeout   int  `mapstructure:"http_read_header_timeout"`
	GracefulShutdownTimeout int  `mapstructure:"graceful_shutdown_timeout"`
}

// ConfigGateway настройки HTTP Gateway
type ConfigGateway struct {
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`
	CORSMaxAge         int    `mapstructure:"cors_max_age"`
	RateLimitRPS       int    `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int    `mapstructure:"rate_limit_burst"`
}

// ConfigStorage настройки хранилища документов
type ConfigStorage struct {
	Driver string `mapstructure:"driver"` // memory | sqlite
	DSN    string `mapstructure:"dsn"`
}

// ConfigAuth настройки выдачи токенов
type ConfigAuth struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	TokenTTL int    `mapstructure:"token_ttl"` // в минутах
	APIKeys  string `mapstructure:"api_keys"`  // через запятую
}

// Keys возвращает список разрешенных api key
func (a *ConfigAuth) Keys() []string {
	var keys []string
	for _, k := range strings.Split(a.APIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ServerConfig основная структура конфигурации notedb
type ServerConfig struct {
	Logger  *ConfigLogger  `mapstructure:"logger"`
	Server  *ConfigServer  `mapstructure:"server"`
	Gateway *ConfigGateway `mapstructure:"gateway"`
	Storage *ConfigStorage `mapstructure:"storage"`
	Auth    *ConfigAuth    `mapstructure:"auth"`
}

// SetDefaults заполняет незаданные секции и поля
func (c *ServerConfig) SetDefaults() {
	if c.Logger == nil {
		c.Logger = &ConfigLogger{Level: "info"}
	}
	if c.Server == nil {
		c.Server = &ConfigServer{}
	}
	if c.Server.PortGRPC == 0 {
		c.Server.PortGRPC = 50051
	}
	if c.Server.PortHTTP == 0 {
		c.Server.PortHTTP = 8080
	}
	if c.Server.GracefulShutdownTimeout == 0 {
		c.Server.GracefulShutdownTimeout = 10
	}
	if c.Gateway == nil {
		c.Gateway = &ConfigGateway{}
	}
	if c.Gateway.CORSAllowedOrigins == "" {
		c.Gateway.CORSAllowedOrigins = "*"
	}
	if c.Storage == nil {
		c.Storage = &ConfigStorage{}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Auth == nil {
		c.Auth = &ConfigAuth{}
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "notedb"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 60
	}
}
