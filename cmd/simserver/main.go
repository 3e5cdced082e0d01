package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"seckill-client/config"
	"seckill-client/internal/clock"
	"seckill-client/internal/sim"
	"seckill-client/internal/util"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Client.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting seckill backend simulator")

	tp, err := util.InitTracer("seckill-sim", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Printf("Tracer disabled: %v", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	clk := clock.NewRealClock()
	state := sim.NewState(clk.Now())

	var stock sim.StockKeeper
	if cfg.Redis.Addr != "" {
		redisStock, err := sim.NewRedisStock(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStock.Close()
		stock = redisStock
		log.Println("Redis stock keeper initialized")
	} else {
		stock = sim.NewMemoryStock()
		log.Println("In-memory stock keeper initialized")
	}

	var queue sim.Queue
	if len(cfg.Kafka.Brokers) > 0 {
		queue = sim.NewKafkaQueue(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		log.Println("Kafka order queue initialized")
	} else {
		queue = sim.NewMemoryQueue()
		log.Println("In-memory order queue initialized")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	worker := sim.NewOrderWorker(queue, state, time.Duration(cfg.Sim.OrderDelayMs)*time.Millisecond)
	go func() {
		if err := worker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("Order worker error: %v", err)
		}
	}()

	if cfg.Client.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	server := sim.NewServer(state, stock, queue, cfg.Sim.JWTSecret, clk)
	server.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Sim.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Sim.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	worker.Stop()

	log.Println("Server exited")
}
