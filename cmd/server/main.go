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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hungerapp/hunger/internal/cartstore"
	"github.com/hungerapp/hunger/internal/catalog"
	"github.com/hungerapp/hunger/internal/config"
	"github.com/hungerapp/hunger/internal/es"
	"github.com/hungerapp/hunger/internal/events"
	"github.com/hungerapp/hunger/internal/handlers"
	"github.com/hungerapp/hunger/internal/kv"
	"github.com/hungerapp/hunger/internal/logging"
	"github.com/hungerapp/hunger/internal/metrics"
	"github.com/hungerapp/hunger/internal/recommend"
	"github.com/hungerapp/hunger/internal/service/search"
	"github.com/hungerapp/hunger/internal/session"
	httpserver "github.com/hungerapp/hunger/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	cat := &catalog.Service{DB: db}
	ctx := context.Background()
	if err := cat.Seed(ctx); err != nil {
		log.Fatalf("catalog seed error: %v", err)
	}

	var store kv.Store
	if configuration.DATA_DIR != "" {
		pebbleStore, err := kv.NewPebbleStore(configuration.DATA_DIR)
		if err != nil {
			log.Fatalf("state store error: %v", err)
		}
		store = pebbleStore
	} else {
		logger.Warn("DATA_DIR empty, cart state will not survive restarts")
		store = kv.NewMemoryStore()
	}

	var producer *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = events.NewProducer(configuration.KAFKA_ADDRESS, logger)
	} else {
		logger.Info("KAFKA_ADDRESS empty, order events disabled")
	}

	searchSvc := &search.Service{DB: db}
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch error: %v", err)
		}
		searchSvc.ES = esClient
		restaurants, err := cat.Restaurants(ctx)
		if err != nil {
			log.Fatalf("catalog read error: %v", err)
		}
		if err := searchSvc.IndexCatalog(ctx, restaurants); err != nil {
			logger.Error("search index bootstrap failed", "error", err)
		}
	}

	var completion *recommend.CompletionClient
	if configuration.OPENAI_API_KEY != "" {
		completion = recommend.NewCompletionClient(
			configuration.OPENAI_API_KEY,
			configuration.OPENAI_BASE_URL,
			configuration.OPENAI_MODEL,
		)
	} else {
		logger.Warn("OPENAI_API_KEY empty, serving local recommendations only")
	}

	reg := metrics.NewRegistry()
	gateway := recommend.New(cat, completion, func(strategy string) {
		reg.Recommendations.WithLabelValues(strategy).Inc()
	})

	sessions, err := session.NewManager([]byte(configuration.SESSION_SECRET))
	if err != nil {
		log.Fatalf("session manager error: %v", err)
	}

	carts := cartstore.New(store, logger)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), logger)))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		Sessions:          sessions,
		RestaurantHandler: &handlers.RestaurantHandler{Catalog: cat},
		CartHandler:       &handlers.CartHandler{Store: carts, Catalog: cat, Producer: producer, Metrics: reg},
		OrderHandler:      &handlers.OrderHandler{Store: carts, Metrics: reg},
		RecommendHandler:  &handlers.RecommendHandler{Gateway: gateway},
		SearchHandler:     &handlers.SearchHandler{Svc: searchSvc},
		Metrics:           reg,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := store.Close(); err != nil {
		log.Printf("state store close error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
