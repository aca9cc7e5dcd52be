package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"dc-purchase-api/internal/app"
	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/idgen"
	"dc-purchase-api/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	// load config env
	config.Init()
	logger.Init(config.C.Log.Dir, config.C.Log.Level)

	// idgen
	idgen.InitFromEnv()

	// init infra
	if err := app.InitInfra(); err != nil {
		log.Fatalf("init infra: %v", err)
	}
	a, err := app.Build()
	if err != nil {
		log.Fatalf("build services: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.StartConsumers(ctx)
	a.Background().StartAll(ctx)

	// http server
	if config.C.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + config.C.Server.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening %s (treasury %s)", srv.Addr, a.Treasury.PublicKey())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	// 等待进程内派发的订单处理结束，超出的由对账任务接手
	a.Wait()
}
