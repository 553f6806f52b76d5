package config

import (
	"flag"
	"os"
	"time"

	handlerConfig "github.com/iurnickita/vouchermart/internal/handler/config"
	loggerConfig "github.com/iurnickita/vouchermart/internal/logger/config"
	serviceConfig "github.com/iurnickita/vouchermart/internal/service/config"
	storeConfig "github.com/iurnickita/vouchermart/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
}

func GetConfig() Config {
	var cfg Config

	flag.StringVar(&cfg.Handler.ServerAddr, "a", ":8080", "server address")
	flag.StringVar(&cfg.Store.DBDsn, "d", "", "database dsn")
	flag.StringVar(&cfg.Service.IssuerAddr, "i", "", "issuer service address")
	flag.StringVar(&cfg.Service.IssuerSandboxAddr, "is", "", "issuer sandbox address")
	flag.StringVar(&cfg.Service.SallaAddr, "s", "https://api.salla.dev", "salla api address")
	flag.StringVar(&cfg.Service.RedisAddr, "r", "", "redis address for stock cache")
	flag.StringVar(&cfg.Logger.LogLevel, "l", "info", "log level")
	flag.Parse()

	if addr := os.Getenv("RUN_ADDRESS"); addr != "" {
		cfg.Handler.ServerAddr = addr
	}
	if dsn := os.Getenv("DATABASE_URI"); dsn != "" {
		cfg.Store.DBDsn = dsn
	}
	if addr := os.Getenv("ISSUER_ADDRESS"); addr != "" {
		cfg.Service.IssuerAddr = addr
	}
	if addr := os.Getenv("ISSUER_SANDBOX_ADDRESS"); addr != "" {
		cfg.Service.IssuerSandboxAddr = addr
	}
	if addr := os.Getenv("SALLA_ADDRESS"); addr != "" {
		cfg.Service.SallaAddr = addr
	}
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		cfg.Service.RedisAddr = addr
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Logger.LogLevel = lvl
	}
	cfg.Handler.TokenSecret = os.Getenv("TOKEN_SECRET")

	// таймауты и темп обращений к эмитенту
	cfg.Service.ClientTimeout = 15 * time.Second
	cfg.Service.ThrottleEvery = 10
	cfg.Service.ThrottlePause = 2 * time.Second
	cfg.Service.RetryDelay = 500 * time.Millisecond

	return cfg
}
