package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"autopost/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Facebook    Facebook    `json:"facebook"`
	GroupPost   GroupPost   `json:"groupPost"`
}

type App struct {
	Port        int      `json:"port"`
	SecretKey   string   `json:"secretKey"`
	TLSEnabled  bool     `json:"tlsEnabled"`
	TLSCertFile string   `json:"tlsCertFile"`
	TLSKeyFile  string   `json:"tlsKeyFile"`
	CorsOrigins []string `json:"corsOrigins"`
}

type Database struct {
	Mongo Mongo `json:"mongo"`
	Psql  Db    `json:"psql"`
}

type Mongo struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
	Database int    `json:"database"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace        string `json:"namespace"`
	ConnectionString string `json:"connectionString"`
	Queue            string `json:"queue"`
}

// Facebook configures the Graph API poster.
type Facebook struct {
	GraphBaseURL string        `json:"graphBaseURL"`
	APIVersion   string        `json:"apiVersion"`
	Timeout      time.Duration `json:"timeout"`
	// RatePerSecond caps provider calls across every running job; 0 disables the limit.
	RatePerSecond float64       `json:"ratePerSecond"`
	Burst         int           `json:"burst"`
	BreakerWindow time.Duration `json:"breakerWindow"`
	BreakerOpen   time.Duration `json:"breakerOpen"`
}

type GroupPost struct {
	FlushEvery       int           `json:"flushEvery"`
	MaxTargets       int           `json:"maxTargets"`
	JanitorSchedule  string        `json:"janitorSchedule"`
	JobRetention     time.Duration `json:"jobRetention"`
	HistoryRetention time.Duration `json:"historyRetention"`
	// HistoryBackend is "mongo" (TTL index) or "postgres" (purged by the janitor).
	HistoryBackend string        `json:"historyBackend"`
	CancelWait     time.Duration `json:"cancelWait"`
	ShutdownWait   time.Duration `json:"shutdownWait"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
}

func setDefaults() {
	viper.SetDefault("app.port", 10001)
	viper.SetDefault("app.corsOrigins", []string{"http://localhost:3000"})
	viper.SetDefault("database.mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.mongo.name", "autopost")
	viper.SetDefault("database.psql.sslMode", "disable")
	viper.SetDefault("redisClient.host", "localhost")
	viper.SetDefault("redisClient.port", "6379")
	viper.SetDefault("pubsub.topic", "group-post-events")
	viper.SetDefault("serviceBus.queue", "group-post-events")
	viper.SetDefault("facebook.graphBaseURL", "https://graph.facebook.com")
	viper.SetDefault("facebook.apiVersion", "v19.0")
	viper.SetDefault("facebook.timeout", 30*time.Second)
	viper.SetDefault("facebook.burst", 1)
	viper.SetDefault("facebook.breakerWindow", time.Minute)
	viper.SetDefault("facebook.breakerOpen", 2*time.Minute)
	viper.SetDefault("groupPost.flushEvery", 5)
	viper.SetDefault("groupPost.maxTargets", 500)
	viper.SetDefault("groupPost.janitorSchedule", "@every 1h")
	viper.SetDefault("groupPost.jobRetention", 72*time.Hour)
	viper.SetDefault("groupPost.historyRetention", 24*time.Hour)
	viper.SetDefault("groupPost.historyBackend", "mongo")
	viper.SetDefault("groupPost.cancelWait", 10*time.Second)
	viper.SetDefault("groupPost.shutdownWait", 15*time.Second)
}

func LoadConfig() {
	name := getConfig()
	setDefaults()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().WithField("config", name).Warn("Config file not found, using defaults")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		C.Database.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		C.Database.Mongo.Name = v
	}
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = "5432"
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		C.RedisClient.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		C.RedisClient.Password = v
	}
}

func initApp(C *Config) {
	// SECRET_KEY from the environment wins over the config file.
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order: APP_PORT -> PORT -> config -> default 10001
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
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.GroupPost.FlushEvery <= 0 {
		C.GroupPost.FlushEvery = 5
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

// Addr joins host and port of the redis section.
func (r RedisClient) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// DSN builds a lib/pq connection string.
func (d Db) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
