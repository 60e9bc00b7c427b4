package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/teeforge/teeforge/backend-go/internal/asset"
	"github.com/teeforge/teeforge/backend-go/internal/auth"
	"github.com/teeforge/teeforge/backend-go/internal/catalog"
	"github.com/teeforge/teeforge/backend-go/internal/config"
	"github.com/teeforge/teeforge/backend-go/internal/designs"
	"github.com/teeforge/teeforge/backend-go/internal/engine"
	"github.com/teeforge/teeforge/backend-go/internal/export"
	"github.com/teeforge/teeforge/backend-go/internal/imagesrc"
	mw "github.com/teeforge/teeforge/backend-go/internal/middleware"
	"github.com/teeforge/teeforge/backend-go/internal/raster"
	"github.com/teeforge/teeforge/backend-go/internal/session"
	"github.com/teeforge/teeforge/backend-go/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err, "type", cfg.StorageType)
		os.Exit(1)
	}
	defer st.Close()

	blobs, err := openAssets(ctx, cfg)
	if err != nil {
		slog.Error("open asset storage", "error", err, "type", cfg.AssetStorage)
		os.Exit(1)
	}

	images := imagesrc.New(
		imagesrc.WithBlobs(blobs),
		imagesrc.WithBaseURL(cfg.StaticBaseURL),
		imagesrc.WithMaxBytes(cfg.ImageMaxBytes),
		imagesrc.WithHTTPClient(&http.Client{Timeout: cfg.ImageFetchTimeout}),
	)

	fonts, err := raster.LoadFonts()
	if err != nil {
		slog.Error("load fonts", "error", err)
		os.Exit(1)
	}
	renderer := raster.NewRenderer(fonts, images)
	products := catalog.Default()
	canvas := raster.Options{Width: cfg.CanvasWidth, Height: cfg.CanvasHeight}

	limits, err := surfaceLimits(cfg)
	if err != nil {
		slog.Error("design area", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	designService := designs.NewService(st, renderer, products, canvas)
	designHandler := designs.NewHandler(designService)

	assetHandler := asset.NewHandler(blobs)
	catalogHandler := catalog.NewHandler(products)
	exportHandler := export.NewHandler(renderer, products, canvas)

	hub := session.NewHub()
	go hub.Run()

	sessionHandler := session.NewHandler(hub, session.Deps{
		Catalog: products,
		Loader:  images,
		Designs: designService,
		SurfaceOptions: []engine.SurfaceOption{
			engine.WithMeasurer(fonts),
			engine.WithLimits(limits),
			engine.WithCanvasSize(float64(cfg.CanvasWidth), float64(cfg.CanvasHeight)),
			engine.WithHistoryLimit(cfg.HistoryLimit),
		},
		LoadConcurrency: cfg.ImageConcurrency,
	}, cfg.Origins())

	r := mux.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, hub.Count())
	}).Methods("GET")

	// Uploads and the catalog are public so anonymous visitors can design.
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.HandleFunc("/assets/{name}", assetHandler.Serve).Methods("GET")

	r.HandleFunc("/catalog/products", catalogHandler.Products).Methods("GET")
	r.HandleFunc("/catalog/products/{product}/colors", catalogHandler.Colors).Methods("GET")
	r.HandleFunc("/catalog/background", catalogHandler.Background).Methods("GET")

	r.HandleFunc("/export/preview", exportHandler.Preview).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/designs", designHandler.List).Methods("GET")
	api.HandleFunc("/designs", designHandler.Create).Methods("POST")
	api.HandleFunc("/designs/{designId}", designHandler.Get).Methods("GET")
	api.HandleFunc("/designs/{designId}", designHandler.Update).Methods("PUT")
	api.HandleFunc("/designs/{designId}", designHandler.Delete).Methods("DELETE")
	api.HandleFunc("/designs/{designId}/preview", designHandler.Preview).Methods("GET")
	api.HandleFunc("/assets/{name}", assetHandler.Delete).Methods("DELETE")

	r.Handle("/ws/session", authService.OptionalMiddleware(http.HandlerFunc(sessionHandler.ServeWS)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StorageType, "assets", cfg.AssetStorage)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openAssets(ctx context.Context, cfg *config.Config) (asset.Storage, error) {
	if cfg.AssetStorage == "s3" {
		return asset.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Prefix)
	}
	return asset.NewFileStorage(cfg.AssetDir)
}

func surfaceLimits(cfg *config.Config) (engine.Limits, error) {
	limits := engine.Limits{MinScale: cfg.MinScale, MaxScale: cfg.MaxScale}
	area, err := cfg.ParseDesignArea()
	if err != nil {
		return limits, err
	}
	if area != nil {
		limits.DesignArea = &engine.Rect{X: area.X, Y: area.Y, Width: area.Width, Height: area.Height}
	}
	return limits, nil
}
