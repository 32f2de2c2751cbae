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

	"github.com/spf13/cobra"

	"pico/admin"
	"pico/catalog"
	"pico/config"
	"pico/metrics"
	"pico/server"
	"pico/session"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the application server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "pico.lua", "path to the Lua config file")
	return cmd
}

func runServe(configPath string) error {
	settings := config.LoadSettings()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	defer cfg.Close()

	cat, err := catalog.Open(cfg.DB, settings.FunctionsDir, settings.MigrationsDir)
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := cfg.VerifyFunctions(cat); err != nil {
		return err
	}

	stopWatch, err := cat.Watch()
	if err != nil {
		log.Printf("[main] function watcher unavailable: %v", err)
	} else {
		defer stopWatch()
	}

	m := metrics.New()
	hub := server.NewHub()
	codec := session.NewCodec(settings.SecretKey)

	srv := server.New(server.Config{
		Routes:      cfg.Routes,
		Tree:        cfg.Tree,
		Catalog:     cat,
		Codec:       codec,
		Metrics:     m,
		Hub:         hub,
		PublicDir:   settings.PublicDir,
		HeaderLimit: settings.HeaderLimit,
		BodyTimeout: settings.BodyReadTimeout,
	})

	adminSrv := admin.New(settings.AdminAddr, cfg, cat, hub, m.Registry())

	addr := settings.Addr
	if addr == "" {
		addr = ":" + cfg.Port
	}

	banner(addr, settings.AdminAddr, len(cfg.Routes), cat.Size())

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.ListenAndServe(addr)
	}()
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("[main] received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Printf("[main] server error: %v", err)
		}
	}

	srv.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(ctx); err != nil {
		log.Printf("[main] admin shutdown error: %v", err)
	}

	return nil
}

func banner(addr, adminAddr string, routes, functions int) {
	fmt.Printf("pico application server\n")
	fmt.Printf("  listening:  %s\n", addr)
	fmt.Printf("  admin:      %s\n", adminAddr)
	fmt.Printf("  routes:     %d\n", routes)
	fmt.Printf("  functions:  %d\n", functions)
}
