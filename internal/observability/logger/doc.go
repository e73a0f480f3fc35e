// Package logger provee un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "consolegate"})
//	defer logger.Sync()
//
// En controllers/services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Exchanger.Exchange"))
//	log.Info("code redeemed", logger.Scope(sc.String()))
//
// El middleware WithLogging inyecta un logger con request_id, method y path;
// fuera de un request From(ctx) cae al singleton.
package logger
