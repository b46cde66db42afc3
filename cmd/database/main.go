// Command database runs the D-node: local-id issuance, the GlobalStock
// registry, and the order-result log (spec §4.3).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/analytics"
	"github.com/ferriscommerce/fabric/internal/cache"
	"github.com/ferriscommerce/fabric/internal/config"
	"github.com/ferriscommerce/fabric/internal/console"
	"github.com/ferriscommerce/fabric/internal/database"
	"github.com/ferriscommerce/fabric/internal/logging"
	"github.com/ferriscommerce/fabric/internal/telemetry"
)

const dbListenAddr = ":9000"

// controller maps console commands onto the D-node. Only "q" has an
// effect; "s", "cc" and "rc" do nothing on this node.
type controller struct {
	cancel context.CancelFunc
}

func (c *controller) Stop()             { c.cancel() }
func (c *controller) StartProcessing()  {}
func (c *controller) CloseConnections() {}
func (c *controller) Reconnect()        {}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "database:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = config.LoadDotEnv(".env")
	ambient := config.LoadAmbient()

	log, err := logging.New("database", "0", config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	metrics := telemetry.NewNodeMetrics("database")
	telemetry.ServeMetrics(ambient.MetricsAddr)

	shutdownTracing, err := telemetry.InitTracer("ferriscommerce-database", ambient.OTLPEndpoint, log)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing()
	}

	publisher, closePublisher, err := analytics.Connect(ambient.AMQPUser, ambient.AMQPPass, ambient.AMQPHost, ambient.AMQPPort)
	if err != nil {
		log.Warn("analytics publisher disabled", zap.Error(err))
		publisher = nil
	} else {
		defer closePublisher() //nolint:errcheck
	}

	stockCache, err := cache.Connect(ambient.RedisAddr, 30*time.Second)
	if err != nil {
		log.Warn("stock cache disabled", zap.Error(err))
		stockCache = nil
	} else {
		defer stockCache.Close() //nolint:errcheck
	}

	registry := database.NewRegistry()
	handler := database.NewConnectionHandler(registry, log, publisher, stockCache)
	handler.SetMetrics(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		if err := handler.Listen(ctx, dbListenAddr); err != nil {
			log.Error("db listener stopped", zap.Error(err))
			cancel()
		}
	}()

	ctrl := &controller{cancel: cancel}
	console.Run(os.Stdin, ctrl, log)
	<-ctx.Done()
	return nil
}
