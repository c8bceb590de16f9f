package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zedseven/textsteg"
	"github.com/zedseven/textsteg/internal/cache"
	"github.com/zedseven/textsteg/internal/config"
	"github.com/zedseven/textsteg/internal/metrics"
	"github.com/zedseven/textsteg/internal/server"
	"github.com/zedseven/textsteg/internal/store"
)

const usage = `Usage: textsteg <command> [flags]

Commands:
  hide     Hide text inside a PNG, BMP or QOI image
  dig      Recover text hidden inside an image
  serve    Run the HTTP service
  version  Print the version`

// Program entry point

func main() {
	if len(os.Args) < 2 {
		fmt.Println("You have to specify what you want me to do!")
		fmt.Println(usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "hide":
		err = runHide(os.Args[2:])
	case "dig":
		err = runDig(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Println("textsteg", textsteg.Version())
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command '%s'.\n", os.Args[1])
		fmt.Println(usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func levelFlag(fs *flag.FlagSet) *string {
	return fs.String("v", textsteg.OutputSteps.String(), "How much to print: none, steps, info or debug")
}

func runHide(args []string) error {
	hideCmd := flag.NewFlagSet("hide", flag.ExitOnError)
	imgPath := hideCmd.String("img", "", "The filepath to the cover image on disk")
	outPath := hideCmd.String("out", "", "The filepath to write the steg image to (its extension picks the format)")
	text := hideCmd.String("text", "", "The text to hide")
	filePath := hideCmd.String("file", "", "The filepath to a file whose contents are hidden instead of -text")
	level := levelFlag(hideCmd)
	_ = hideCmd.Parse(args)

	if len(*imgPath) <= 0 || len(*outPath) <= 0 || (len(*text) <= 0 && len(*filePath) <= 0) {
		hideCmd.PrintDefaults()
		return errors.New("hide needs -img, -out and one of -text or -file")
	}
	lvl, err := textsteg.ParseOutputLevel(*level)
	if err != nil {
		return err
	}

	return textsteg.Hide(&textsteg.HideConfig{
		ImagePath:   *imgPath,
		OutPath:     *outPath,
		Text:        *text,
		FilePath:    *filePath,
		OutputLevel: lvl,
	})
}

func runDig(args []string) error {
	digCmd := flag.NewFlagSet("dig", flag.ExitOnError)
	imgPath := digCmd.String("img", "", "The filepath to the steg image on disk")
	outPath := digCmd.String("out", "", "The filepath to write the recovered bytes to (optional)")
	partial := digCmd.Bool("partial", false, "Whether to print whatever was recovered from an image with no terminating block")
	level := levelFlag(digCmd)
	_ = digCmd.Parse(args)

	if len(*imgPath) <= 0 {
		digCmd.PrintDefaults()
		return errors.New("dig needs -img")
	}
	lvl, err := textsteg.ParseOutputLevel(*level)
	if err != nil {
		return err
	}

	text, err := textsteg.Dig(textsteg.DigConfig{
		ImagePath:    *imgPath,
		OutPath:      *outPath,
		AllowPartial: *partial,
		OutputLevel:  lvl,
	})
	if err != nil {
		return err
	}
	if len(*outPath) <= 0 {
		fmt.Println(text)
	}
	return nil
}

func runServe(args []string) error {
	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := serveCmd.String("config", "textsteg.yaml", "The filepath to the YAML configuration file")
	_ = serveCmd.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := textsteg.NewConsoleLogger(cfg.Level())
	recorder := &metrics.Counter{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, recorder, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err = os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory '%s': %w", cfg.OutputDir, err)
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: server.New(server.Options{
			Store:          st,
			Metrics:        recorder,
			Logger:         logger,
			OutputDir:      cfg.OutputDir,
			AllowedOrigins: cfg.AllowedOrigins,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	snap := recorder.Snapshot()
	logger.Info("served", "encodes", snap.Encodes, "decodes", snap.Decodes,
		"cache_hits", snap.CacheHits, "cache_misses", snap.CacheMisses)
	fmt.Println("All done! c:")
	return nil
}

// openStore picks Postgres or the in-memory store, and puts the Redis cache in front of it when configured.
func openStore(ctx context.Context, cfg config.Config, recorder metrics.Recorder, logger textsteg.Logger) (store.Store, error) {
	var st store.Store
	if cfg.PostgresDSN != "" {
		pg, err := store.OpenPostgres(ctx, cfg.PostgresDSN, store.PoolConfig{})
		if err != nil {
			return nil, err
		}
		if err = pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info("using postgres store")
		st = pg
	} else {
		logger.Warn("no postgres_dsn set, records are kept in memory only")
		st = store.NewMemory()
	}

	if cfg.RedisAddr == "" {
		return st, nil
	}

	c := cache.New(cache.Options{
		Client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		Codec: cfg.Codec(),
		TTL:   cfg.CacheTTL,
	})
	if err := c.Ping(ctx); err != nil {
		logger.Warn("redis is unreachable, continuing without warm cache", "addr", cfg.RedisAddr, "err", err)
	}
	return &cache.Cached{
		Store:  st,
		Cache:  c,
		OnHit:  recorder.RecordCacheHit,
		OnMiss: recorder.RecordCacheMiss,
		OnError: func(op string, err error) {
			recorder.RecordError(op)
			logger.Warn("cache error", "op", op, "err", err)
		},
	}, nil
}
