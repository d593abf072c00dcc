package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"crypto-desk/src/backend"
	"crypto-desk/src/config"
	"crypto-desk/src/data_source/coingecko"
	"crypto-desk/src/interfaces"
	"crypto-desk/src/logger"
	"crypto-desk/src/models"
	"crypto-desk/src/network"
	"crypto-desk/src/realtime"
	"crypto-desk/src/server"
	"crypto-desk/src/view"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	// 2. Setup Components
	netLogger := logger.NewLogger(conf.MConfig, "NetworkManager")
	var netMgr interfaces.INetworkManager = network.NewAsyncNetworkManager(conf.MConfig, netLogger)

	source := coingecko.NewCoinGeckoSource(conf.MConfig, netMgr)
	backendClient := backend.NewSupabaseClient(conf.MConfig, netMgr)

	// 3. View Controller + Push Surface
	desk := view.NewDesk(conf.MConfig, source, backendClient)
	srv := server.NewDeskServer(conf.MConfig, desk, backendClient, logger.NewLogger(conf.MConfig, "DeskServer"))
	desk.SetExchanger(srv)

	// Signed-In transitions happen asynchronously, on session install/clear.
	backendClient.OnAuthStateChange(desk.HandleAuthChange)

	// Lifecycle Management
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 4. Initial Load
	appLogger.Info("Performing initial render...")
	desk.Init(ctx)
	srv.UpdateSnapshot(desk.Snapshot())

	// 5. Realtime Bridge: any row change on a watched table triggers a full
	// refetch of the owning panel. The dashboard still works without push;
	// a failed connection only loses live invalidation.
	rt := realtime.NewRealtimeClient(conf.MConfig)
	var subscriptions []interfaces.ISubscription
	if err := rt.Connect(); err != nil {
		appLogger.Warning("Realtime unavailable: %v", err)
	} else {
		subscriptions = setupRealtime(ctx, rt, desk, appLogger)
	}

	// 6. Price Polling Loop
	var wg sync.WaitGroup
	ticks := make(chan models.MPriceTick, 64)
	if err := source.Start(ctx, ticks, &wg); err != nil {
		appLogger.Critical("Failed to start price source: %v", err)
	}

	go func() {
		for tick := range ticks {
			desk.ApplyTick(tick)
		}
	}()

	// 7. Serve
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// Wait for cleanup on exit
	<-ctx.Done()
	appLogger.Info("Shutting down...")

	for _, sub := range subscriptions {
		sub.Unsubscribe()
	}
	rt.Close()

	cancel()
	wg.Wait()
	close(ticks)
	srv.Stop()
	appLogger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

// setupRealtime wires the three watched tables to their panels.
func setupRealtime(ctx context.Context, rt interfaces.IRealtime, desk *view.Desk, appLogger *logger.Logger) []interfaces.ISubscription {
	var subs []interfaces.ISubscription

	wire := func(table string, refresh func(context.Context)) {
		sub, err := rt.Subscribe(table, func(models.MChangeEvent) {
			refresh(ctx)
		})
		if err != nil {
			appLogger.Warning("Subscribe %s failed: %v", table, err)
			return
		}
		subs = append(subs, sub)
	}

	wire("orders", desk.RefreshOrders)
	wire("wallets", desk.RefreshBalances)
	wire("trades", desk.RefreshTrades)

	return subs
}
