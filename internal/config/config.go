package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Upstream struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"upstream"`
	Session struct {
		Driver     string        `mapstructure:"driver"`
		Secret     string        `mapstructure:"secret"`
		CookieName string        `mapstructure:"cookie_name"`
		TTL        time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`
	Notification struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"notification"`
	DB struct {
		DSN           string `mapstructure:"dsn"`
		MigrationsURL string `mapstructure:"migrations_url"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	Tracing struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"tracing"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("upstream.base_url", "http://localhost:5000")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.cookie_name", "editor_session")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("notification.ttl", 3*time.Second)
	v.SetDefault("db.migrations_url", "file://migrations")
}

// LoadConfig reads .env, then config.yaml from each path (the working directory
// when none is given), then the environment. Later sources win.
func LoadConfig(paths ...string) (cfg Config, err error) {
	if err = godotenv.Load(); err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read env only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("upstream.base_url", "UPSTREAM_BASE_URL")
	v.BindEnv("upstream.timeout", "UPSTREAM_TIMEOUT")
	v.BindEnv("session.driver", "SESSION_DRIVER")
	v.BindEnv("session.secret", "SESSION_SECRET")
	v.BindEnv("session.cookie_name", "SESSION_COOKIE_NAME")
	v.BindEnv("session.ttl", "SESSION_TTL")
	v.BindEnv("notification.ttl", "NOTIFICATION_TTL")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("db.migrations_url", "DB_MIGRATIONS_URL")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("tracing.otlp_endpoint", "TRACING_OTLP_ENDPOINT")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")

	err = v.Unmarshal(&cfg)
	return
}
