package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"weiqi_room/internal/adapters"
	"weiqi_room/internal/bootstrap"
	gameDelivery "weiqi_room/internal/delivery/game"
	ownMiddleware "weiqi_room/internal/middleware"
	repo "weiqi_room/internal/repository"
	gameuc "weiqi_room/internal/usecase/game"
)

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	databaseAdapters := initDatabaseAdapters(ctx, logger, *cfg)
	defer databaseAdapters.close(context.Background())

	rooms := gameuc.NewRooms(*cfg, logger, snapshotStore(*cfg, logger, databaseAdapters), archiveStore(logger, databaseAdapters))
	defer rooms.Close()

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go serveGRPC(grpcServer, cfg.GrpcPort, logger)
	defer grpcServer.GracefulStop()

	r := chi.NewRouter()
	if cfg.IsLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)
	gameDelivery.NewGameHandler(*cfg, logger, rooms).Routes(r)

	srv := &http.Server{Addr: ":" + cfg.ServerPort, Handler: r}
	go func() {
		<-ctx.Done()
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	logger.Infof("Server is running on port %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func serveGRPC(server *grpc.Server, port string, log *zap.SugaredLogger) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		log.Error("Failed to listen for grpc", zap.Error(err))
		return
	}
	log.Infof("gRPC health is running on port %s", port)
	if err := server.Serve(lis); err != nil {
		log.Error("gRPC server stopped", zap.Error(err))
	}
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config) *dataBaseAdapters {
	result := &dataBaseAdapters{}

	if cfg.StoreDriver == bootstrap.StoreDriverRedis {
		redisAdapter := adapters.NewAdapterRedis(&cfg, log)
		if err := redisAdapter.Init(ctx); err != nil {
			log.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		result.redisAdapter = redisAdapter
	}

	if cfg.ArchiveEnabled {
		mongoAdapter := adapters.NewAdapterMongo(&cfg, log)
		if err := mongoAdapter.Init(ctx); err != nil {
			// без архива играть можно
			log.Warnw("MongoDB unavailable, archive disabled", zap.Error(err))
		} else {
			result.mongoAdapter = mongoAdapter
		}
	}

	log.Info("Database adapters initialized")
	return result
}

func (d *dataBaseAdapters) close(ctx context.Context) {
	if d.mongoAdapter != nil {
		_ = d.mongoAdapter.Close(ctx)
	}
	if d.redisAdapter != nil {
		_ = d.redisAdapter.Close(ctx)
	}
}

func snapshotStore(cfg bootstrap.Config, log *zap.SugaredLogger, d *dataBaseAdapters) gameuc.SnapshotStore {
	if d.redisAdapter == nil {
		log.Infof("store driver %q: snapshots stay in this process", cfg.StoreDriver)
		return repo.NewMemorySnapshotStore()
	}
	return repo.NewRedisSnapshotStore(d.redisAdapter.GetClient(), log)
}

func archiveStore(log *zap.SugaredLogger, d *dataBaseAdapters) gameuc.ArchiveStore {
	if d.mongoAdapter == nil {
		return nil
	}
	return repo.NewGameRepository(log, d.mongoAdapter.Database)
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
}
