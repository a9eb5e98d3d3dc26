package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
	Publishing  Publishing  `json:"publishing"`
	Scheduler   Scheduler   `json:"scheduler"`
	Encryption  Encryption  `json:"encryption"`
}

type App struct {
	Port           int      `json:"port"`
	SecretKey      string   `json:"secretKey"`
	TLSEnabled     bool     `json:"tlsEnabled"`
	TLSCertFile    string   `json:"tlsCertFile"`
	TLSKeyFile     string   `json:"tlsKeyFile"`
	AllowedOrigins []string `json:"allowedOrigins"`
	PublicBaseURL  string   `json:"publicBaseURL"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type Pubsub struct {
	ProjectID     string `json:"projectID"`
	ActivityTopic string `json:"activityTopic"`
}

type ServiceBus struct {
	Namespace     string `json:"namespace"`
	ActivityQueue string `json:"activityQueue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// OAuth holds the registered application of every platform.
type OAuth struct {
	Twitter   OAuthClient `json:"twitter"`
	LinkedIn  OAuthClient `json:"linkedin"`
	Facebook  OAuthClient `json:"facebook"`
	Instagram OAuthClient `json:"instagram"`
	TikTok    OAuthClient `json:"tiktok"`
	YouTube   OAuthClient `json:"youtube"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

// Publishing tunes outbound provider calls.
type Publishing struct {
	Platforms              []string `json:"platforms"`
	MetadataTimeoutSeconds int      `json:"metadataTimeoutSeconds"`
	PublishTimeoutSeconds  int      `json:"publishTimeoutSeconds"`
	MediaTimeoutSeconds    int      `json:"mediaTimeoutSeconds"`
	RequestsPerSecond      float64  `json:"requestsPerSecond"`
	FanoutLimit            int      `json:"fanoutLimit"`
}

type Scheduler struct {
	Enabled     bool   `json:"enabled"`
	Spec        string `json:"spec"`
	BatchSize   int    `json:"batchSize"`
	Concurrency int    `json:"concurrency"`
}

// Encryption configures the credential key ring. Keys maps key id to secret.
type Encryption struct {
	ActiveKeyID string            `json:"activeKeyId"`
	Keys        map[string]string `json:"keys"`
}

var C Config

func init() {
	Reload()
}

// Reload re-reads the config file and environment, e.g. after LoadEnvFromFile.
func Reload() {
	C = Config{}
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initPublishing(&C)
	initEncryption(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.SSLMode = getConfigValue(C.Database.Psql.SSLMode, "DB_SSLMODE", "disable")

	// Optional MSSQL config via environment variables (Azure SQL in production)
	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "sa")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")
	C.Database.Mongo.User = getConfigValue(C.Database.Mongo.User, "MONGO_USER", "")
	C.Database.Mongo.Password = getConfigValue(C.Database.Mongo.Password, "MONGO_PASSWORD", "")
	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "social_publisher")

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	C.App.TLSCertFile = getConfigValue(C.App.TLSCertFile, "TLS_CERT_FILE", "")
	C.App.TLSKeyFile = getConfigValue(C.App.TLSKeyFile, "TLS_KEY_FILE", "")
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:4200"}
	}
	if C.App.PublicBaseURL == "" {
		scheme := "http"
		if C.App.TLSEnabled {
			scheme = "https"
		}
		C.App.PublicBaseURL = fmt.Sprintf("%s://localhost:%d", scheme, C.App.Port)
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; every API request will be rejected. Provide SECRET_KEY via environment.")
	}
}

func initPublishing(C *Config) {
	p := &C.Publishing
	if len(p.Platforms) == 0 {
		p.Platforms = []string{"twitter", "linkedin", "facebook", "instagram", "tiktok", "youtube"}
	}
	if p.MetadataTimeoutSeconds <= 0 {
		p.MetadataTimeoutSeconds = 10
	}
	if p.PublishTimeoutSeconds <= 0 {
		p.PublishTimeoutSeconds = 30
	}
	if p.MediaTimeoutSeconds <= 0 {
		p.MediaTimeoutSeconds = 60
	}
	if p.FanoutLimit <= 0 {
		p.FanoutLimit = len(p.Platforms)
	}

	s := &C.Scheduler
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		s.Enabled = v == "true" || v == "1"
	}
	s.Spec = getConfigValue(s.Spec, "SCHEDULER_SPEC", "@every 1m")
	if s.BatchSize <= 0 {
		s.BatchSize = 50
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 4
	}
}

// initEncryption accepts CREDENTIAL_KEYS="v2:secret,v1:oldsecret"; the first entry becomes active
// unless CREDENTIAL_ACTIVE_KEY names another one.
func initEncryption(C *Config) {
	if v := os.Getenv("CREDENTIAL_KEYS"); v != "" {
		keys, first := parseKeyList(v)
		if len(keys) > 0 {
			C.Encryption.Keys = keys
			C.Encryption.ActiveKeyID = first
		}
	}
	C.Encryption.ActiveKeyID = getConfigValue(C.Encryption.ActiveKeyID, "CREDENTIAL_ACTIVE_KEY", "")
	if len(C.Encryption.Keys) == 0 {
		logger.GetLogger().Warn("No credential encryption keys configured; credential storage is disabled")
	}
}

func parseKeyList(v string) (map[string]string, string) {
	keys := map[string]string{}
	first := ""
	for _, pair := range strings.Split(v, ",") {
		id, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || id == "" || secret == "" {
			continue
		}
		if first == "" {
			first = id
		}
		keys[id] = secret
	}
	return keys, first
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
