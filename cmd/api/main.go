package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"taskSync/internal/app"
	"taskSync/internal/config"
	"taskSync/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yml", "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("загрузка конфигурации: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg)
	if err := application.Init(ctx); err != nil {
		log.Fatalf("инициализация: %v", err)
	}

	// SIGHUP перечитывает конфигурацию: новый токен возвращает
	// error-записи в набор повторной отправки
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := application.Reload(ctx); err != nil {
				logger.Error("App: Перезагрузка конфигурации не удалась", err)
			} else {
				logger.Info("App: Конфигурация перезагружена")
			}
		}
	}()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("запуск: %v", err)
	}
}
