package shared

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	Storage        string // "db" selects MySQL, anything else the file store
	FilePath       string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration
	CORSOrigins    []string
	RateLimitRPM   int
	RequestTimeout time.Duration
	MirrorSource   string
	MirrorWorkers  int
	MirrorRPS      int
}

// UseDB reports whether the MySQL backend is selected.
func (c Config) UseDB() bool { return c.Storage == "db" }

// Load reads the environment, after loading .env if one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env not loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       net.JoinHostPort(env("HBNB_API_HOST", "0.0.0.0"), env("HBNB_API_PORT", "5000")),
		MetricsAddr:    env("METRICS_ADDR", ""),
		Storage:        env("HBNB_TYPE_STORAGE", "file"),
		FilePath:       env("HBNB_FILE_PATH", "file.json"),
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		RedisPass:      env("REDIS_PASSWORD", ""),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		CORSOrigins:    list(env("CORS_ORIGINS", "*")),
		RateLimitRPM:   atoi("RATE_LIMIT_RPM", 600),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		MirrorSource:   env("MIRROR_SOURCE_URL", ""),
		MirrorWorkers:  atoi("MIRROR_WORKERS", 4),
		MirrorRPS:      atoi("MIRROR_RPS", 5),
	}
	c.MySQLDSN = env("MYSQL_DSN", mysqlDSN(
		env("HBNB_MYSQL_USER", "hbnb_dev"),
		env("HBNB_MYSQL_PWD", "hbnb_dev_pwd"),
		env("HBNB_MYSQL_HOST", "localhost"),
		env("HBNB_MYSQL_DB", "hbnb_dev_db"),
	))
	if c.UseDB() && os.Getenv("HBNB_MYSQL_PWD") == "" && os.Getenv("MYSQL_DSN") == "" {
		log.Warn().Msg("HBNB_MYSQL_PWD is empty, using development default")
	}
	return c
}

func mysqlDSN(user, pwd, host, db string) string {
	if !strings.Contains(host, ":") {
		host += ":3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC", user, pwd, host, db)
}

func list(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
