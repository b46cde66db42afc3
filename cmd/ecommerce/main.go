// Command ecommerce runs an E-node: the bully-elected leader hub plus the
// order workers that drive web orders through it (spec §4.8-4.9).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/config"
	"github.com/ferriscommerce/fabric/internal/console"
	"github.com/ferriscommerce/fabric/internal/discovery"
	"github.com/ferriscommerce/fabric/internal/ecommerce"
	"github.com/ferriscommerce/fabric/internal/logging"
	"github.com/ferriscommerce/fabric/internal/model"
	"github.com/ferriscommerce/fabric/internal/parsing"
	"github.com/ferriscommerce/fabric/internal/telemetry"
)

// peerSSPorts is the fixed SS port range e-commerce nodes scan for each
// other at boot (spec §6 "Port convention").
var peerSSPorts = []int{15000, 15001, 15002}

// controller maps console commands onto the E-node. Only "q" has an
// effect: web orders go to the workers at boot without waiting for "s",
// and "s", "cc" and "rc" do nothing on this node.
type controller struct {
	cancel context.CancelFunc
}

func (c *controller) Stop()             { c.cancel() }
func (c *controller) StartProcessing()  {}
func (c *controller) CloseConnections() {}
func (c *controller) Reconnect()        {}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ecommerce:", err)
		os.Exit(1)
	}
}

func run() error {
	ssPort := flag.Int("ss", 15000, "ss listen port (also this node's ss_id)")
	slPort := flag.Int("sl", 15500, "sl listen port (also this node's sl_id)")
	ordersPath := flag.String("o", "orders.txt", "web orders file")
	workers := flag.Int("w", 3, "number of order workers")
	logLevel := flag.String("l", "info", "log level")
	dbAddr := flag.String("db", "localhost:9000", "database address")
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	ambient := config.LoadAmbient()
	if *logLevel == "" {
		*logLevel = config.GetEnv("LOG_LEVEL", "info")
	}

	log, err := logging.New("ecommerce", strconv.Itoa(*ssPort), *logLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	metrics := telemetry.NewNodeMetrics("ecommerce")
	telemetry.ServeMetrics(ambient.MetricsAddr)
	shutdownTracing, err := telemetry.InitTracer(fmt.Sprintf("ferriscommerce-ecommerce-%d", *ssPort), ambient.OTLPEndpoint, log)
	if err == nil {
		defer shutdownTracing()
	}

	reg, err := discovery.Register(ambient.ConsulAddr, "ecommerce", strconv.Itoa(*ssPort), "localhost", *ssPort)
	if err != nil {
		log.Debug("consul registration skipped", zap.Error(err))
	} else {
		defer reg.Deregister() //nolint:errcheck
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go reg.RunHeartbeat(ctx, 10*time.Second)
	}

	webOrders, err := parsing.ParseOrdersFile(*ordersPath, model.Web)
	if err != nil {
		return fmt.Errorf("load orders file: %w", err)
	}

	hub := ecommerce.New(uint16(*ssPort), uint16(*slPort), *dbAddr, log)
	hub.SetMetrics(metrics)
	orderHandler := ecommerce.NewOrderHandler(len(webOrders) + 64)

	workerList := make([]*ecommerce.OrderWorker, 0, *workers)
	for i := 0; i < *workers; i++ {
		workerList = append(workerList, ecommerce.NewOrderWorker(uint16(i), hub, log))
	}
	hub.SetOrderHandler(orderHandler, workerList)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go hub.Run(ctx)
	go func() {
		if err := hub.ListenSS(ctx, fmt.Sprintf(":%d", *ssPort)); err != nil {
			log.Error("ss listener stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := hub.ListenSL(ctx, fmt.Sprintf(":%d", *slPort)); err != nil {
			log.Error("sl listener stopped", zap.Error(err))
		}
	}()

	for _, port := range peerSSPorts {
		if port == *ssPort {
			continue
		}
		go hub.DialPeer(fmt.Sprintf("localhost:%d", port))
	}

	for _, w := range workerList {
		go w.Run(ctx, orderHandler)
	}

	for _, order := range webOrders {
		orderHandler.Add(order)
	}

	ctrl := &controller{cancel: cancel}
	console.Run(os.Stdin, ctrl, log)
	<-ctx.Done()
	return nil
}
