package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/config"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/replication"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/repository"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/transport/peer"
	"github.com/rocketscienceinc/tictactoe-peersync/transport/rest"
)

var (
	ErrAddrNotFound        = errors.New("redis address string is empty")
	ErrUnknownContextStore = errors.New("unknown context store")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	contextRepo, closeStore, err := newContextRepository(ctx, conf)
	if err != nil {
		return err
	}
	defer closeStore()

	link := peer.New(logger, peer.Options{
		Role:                 conf.Device.Role,
		ListenAddr:           conf.Peer.ListenAddr,
		PeerURL:              conf.Peer.URL,
		SendBuffer:           conf.Peer.SendBuffer,
		MaxReconnectInterval: conf.Peer.MaxReconnectInterval,
	}, contextRepo)

	engine := replication.New(logger, link, replication.Options{
		DeviceID:         conf.Device.ID,
		AnnounceProfiles: conf.Device.Role == peer.RolePrimary,
	})

	// run replication engine
	engineErrCh := make(chan error, 1)
	go func() {
		if engineErr := engine.Run(ctx); engineErr != nil {
			engineErrCh <- engineErr
		}
	}()

	// run peer link
	peerErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting peer link", "role", conf.Device.Role, "device", engine.DeviceID())
		if peerErr := link.Run(ctx, engine); peerErr != nil {
			log.Error("Peer link error", "error", peerErr)
			peerErrCh <- peerErr
		}
	}()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, engine); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-engineErrCh:
		return fmt.Errorf("replication engine error: %w", err)
	case err = <-peerErrCh:
		return fmt.Errorf("peer link error: %w", err)
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func newContextRepository(ctx context.Context, conf *config.Config) (repository.ContextRepository, func(), error) {
	switch conf.ContextStore {
	case config.ContextStoreMemory:
		return repository.NewMemoryContextRepository(), func() {}, nil
	case config.ContextStoreRedis:
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return nil, nil, ErrAddrNotFound
		}

		client, err := storage.NewRedisClient(ctx, redisAddrString)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		deviceKey := conf.Device.ID
		if deviceKey == "" {
			deviceKey = conf.Device.Role
		}

		return repository.NewRedisContextRepository(client, deviceKey), closeRedis(client), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownContextStore, conf.ContextStore)
	}
}

func closeRedis(client *redis.Client) func() {
	return func() {
		_ = client.Close()
	}
}
