package main

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"minim/api"
	"minim/config"
	"minim/deliver"
	"minim/gateway"
	"minim/metrics"
	"minim/presence"
	"minim/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	collector := metrics.NewCollector("minim")
	registry := presence.NewRegistry()
	router := deliver.NewRouter(st, registry, log, collector)

	gw := gateway.New(&gateway.Config{
		Addr:         cfg.TCPAddr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, registry, router, log, collector)

	apiServer := api.New(st, log, collector)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiServer.Router(),
	}

	go startControlSocket(cfg.ControlSocket, gw, log)

	go func() {
		log.Info("http api listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("shutting down", zap.String("signal", sig.String()))

		gw.Shutdown("maintenance")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)

		os.Remove(cfg.ControlSocket)
		os.Exit(0)
	}()

	if err := gw.Start(); err != nil {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	if err := logCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return logCfg.Build()
}

// startControlSocket exposes management commands over a unix socket:
// stats and shutdown.
func startControlSocket(path string, gw *gateway.Server, log *zap.Logger) {
	os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		log.Warn("failed to create control socket", zap.Error(err))
		return
	}
	defer listener.Close()
	defer os.Remove(path)

	log.Info("control socket listening", zap.String("path", path))

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}

		go handleControlCommand(conn, path, gw, log)
	}
}

func handleControlCommand(conn net.Conn, socketPath string, gw *gateway.Server, log *zap.Logger) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	line = strings.TrimSpace(line)
	parts := strings.SplitN(line, "|", 2)

	switch parts[0] {
	case "stats":
		connections, usernames := gw.Stats()
		stats := "connections=" + strconv.Itoa(connections) +
			",users=" + strings.Join(usernames, ";")
		conn.Write([]byte("OK|" + stats + "\n"))

	case "shutdown":
		reason := "maintenance"
		if len(parts) >= 2 && parts[1] != "" {
			reason = parts[1]
		}

		conn.Write([]byte("OK|Shutting down\n"))
		conn.Close()

		// Give time for the response to be sent
		time.Sleep(100 * time.Millisecond)

		log.Info("shutdown requested", zap.String("reason", reason))
		gw.Shutdown(reason)

		os.Remove(socketPath)
		os.Exit(0)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
