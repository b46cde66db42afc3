// Command localshop runs an L-node: the stock actor, order worker pool,
// order handler, and connection handler that talks to the e-commerce
// leader (spec §4.4-§4.7).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ferriscommerce/fabric/internal/config"
	"github.com/ferriscommerce/fabric/internal/console"
	"github.com/ferriscommerce/fabric/internal/localshop"
	"github.com/ferriscommerce/fabric/internal/logging"
	"github.com/ferriscommerce/fabric/internal/model"
	"github.com/ferriscommerce/fabric/internal/parsing"
	"github.com/ferriscommerce/fabric/internal/telemetry"
)

type controller struct {
	cancel context.CancelFunc
	conn   *localshop.ConnectionHandler
}

func (c *controller) Stop()             { c.conn.Stop(); c.cancel() }
func (c *controller) StartProcessing()  { c.conn.StartProcessing() }
func (c *controller) CloseConnections() { c.conn.CloseConnections() }
func (c *controller) Reconnect()        { c.conn.Reconnect() }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "localshop:", err)
		os.Exit(1)
	}
}

func run() error {
	ordersPath := flag.String("o", "orders.txt", "orders file")
	stockPath := flag.String("s", "stock.txt", "stock file")
	workers := flag.Int("w", 3, "number of order workers")
	leaderAddr := flag.String("leader", "localhost:9500", "e-commerce SL listen address")
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	ambient := config.LoadAmbient()

	log, err := logging.New("localshop", *leaderAddr, config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	metrics := telemetry.NewNodeMetrics("localshop")
	telemetry.ServeMetrics(ambient.MetricsAddr)

	stock, err := parsing.ParseStockFile(*stockPath)
	if err != nil {
		return fmt.Errorf("load stock file: %w", err)
	}
	orders, err := parsing.ParseOrdersFile(*ordersPath, model.Local)
	if err != nil {
		return fmt.Errorf("load orders file: %w", err)
	}

	stockActor := localshop.NewStock(stock, log)
	stockActor.SetMetrics(metrics)
	defer stockActor.Stop()

	orderHandler := localshop.NewOrderHandler(orders, *workers, stockActor, log)
	conn := localshop.NewConnectionHandler(*leaderAddr, stockActor, orderHandler, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go conn.Run(ctx)

	ctrl := &controller{cancel: cancel, conn: conn}
	console.Run(os.Stdin, ctrl, log)
	<-ctx.Done()
	return nil
}
