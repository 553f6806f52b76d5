package main

import (
	"log"

	"github.com/iurnickita/vouchermart/internal/auth"
	"github.com/iurnickita/vouchermart/internal/config"
	"github.com/iurnickita/vouchermart/internal/handler"
	"github.com/iurnickita/vouchermart/internal/logger"
	"github.com/iurnickita/vouchermart/internal/service"
	"github.com/iurnickita/vouchermart/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.GetConfig()

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}

	// без БД работаем на хранилище в памяти
	var s store.Store
	if cfg.Store.DBDsn != "" {
		s, err = store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
	} else {
		s = store.NewMemStore()
	}

	auth := auth.NewAuth(s, cfg.Handler.TokenSecret)
	service := service.NewService(cfg.Service, s, zaplog)

	return handler.Serve(cfg.Handler, auth, service, zaplog)
}
