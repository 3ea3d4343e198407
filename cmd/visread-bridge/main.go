// Package main implements the table bridge server. It runs on the host
// that can read measurement sets and serves them over gRPC to analysis
// machines that cannot.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/mpol-dev/visread/internal/backend/bridge"
	"github.com/mpol-dev/visread/internal/config"
	"github.com/mpol-dev/visread/internal/ms"
	"github.com/mpol-dev/visread/pkg/tablepb"
	// Import backends package to register all table backends
	_ "github.com/mpol-dev/visread/pkg/backends"
)

func main() {
	configPath := flag.String("config", "", "config file (default: search for visread.yaml)")
	listen := flag.String("listen", "", "listen address override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("bridge: bad config")
	}
	lvl, lerr := zerolog.ParseLevel(cfg.LogLevel)
	if lerr != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()

	// Tables come from the config file plus any name=url arguments.
	tables := map[string]string{}
	for name, url := range cfg.Bridge.Tables {
		tables[name] = url
	}
	if args := flag.Args(); len(args) > 0 {
		extra, err := config.ParseTables(strings.Join(args, ";"))
		if err != nil {
			logger.Fatal().Err(err).Msg("bridge: bad table argument")
		}
		for name, url := range extra {
			tables[name] = url
		}
	}
	if len(tables) == 0 {
		logger.Fatal().Msg("bridge: no tables to serve; set bridge.tables or pass name=url arguments")
	}

	ctx := context.Background()
	srv := bridge.NewServer(logger)
	srv.SetSliceRows(cfg.Bridge.SliceRows)
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t, err := ms.Open(ctx, tables[name])
		if err != nil {
			logger.Fatal().Err(err).Str("table", name).Str("url", tables[name]).Msg("bridge: open failed")
		}
		srv.Add(name, t)
	}

	addr := cfg.Bridge.Listen
	if *listen != "" {
		addr = *listen
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("bridge: listen failed")
	}

	grpcServer := grpc.NewServer()
	tablepb.RegisterTableBridgeServer(grpcServer, srv)
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	// Enable reflection for debugging with grpcurl
	reflection.Register(grpcServer)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info().Msg("bridge: shutting down")
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
	}()

	logger.Info().Str("addr", addr).Strs("tables", srv.Names()).Msg("bridge: listening")
	if err := grpcServer.Serve(lis); err != nil {
		logger.Fatal().Err(err).Msg("bridge: serve failed")
	}
	srv.CloseAll()
}
