package config

import (
	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/asuogyaman/constituency-gateway/pkg/logger"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Configuration This struct holds config envs and values
// which are used in the gateway. Only this struct must be used
// to hold any configuration values, no direct access to
// env, ini or any other config source should be made
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"constituency_gateway"`
	AppDebug            bool   `env:"APP_DEBUG" default:"1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`
	AppBaseUrl          string `env:"APP_BASE_URL"`

	HttpListenAddr            string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`
	HttpBaseRequestUrl        string `env:"HTTP_BASE_REQUEST_URI" validation:"mustExists"`
	HttpServerReadTimeout     int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout    int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`
	HttpServerReadBufferSize  int    `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int    `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	ProfilerEnable bool `env:"PROFILER_ENABLE"`
	ProfilerPort   int  `env:"PROFILER_PORT"`

	LogLevel []string `env:"LOG_LEVEL"`

	// Gateway credentials. These never appear anywhere else; every client
	// takes them from this struct at construction.
	PaystackSecretKey     string `env:"PAYSTACK_SECRET_KEY"`
	PaystackBaseUrl       string `env:"PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	PaystackWebhookSecret string `env:"PAYSTACK_WEBHOOK_SECRET"`

	SMSOnlineApiKey  string `env:"SMSONLINE_API_KEY"`
	SMSOnlineBaseUrl string `env:"SMSONLINE_BASE_URL" default:"https://api.smsonlinegh.com/v4"`
	SMSSenderName    string `env:"SMS_SENDER_NAME" default:"ASSEMBLY"`

	JWTSecret string `env:"JWT_SECRET"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
