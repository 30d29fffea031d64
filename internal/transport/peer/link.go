package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
)

const (
	RolePrimary   = "primary"
	RoleCompanion = "companion"

	// Path - endpoint the primary serves and the companion dials.
	Path = "/peer"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 30 * time.Second
	pingPeriod      = 25 * time.Second
	shutdownTimeout = 5 * time.Second
	maxPayloadSize  = 64 * 1024

	defaultSendBuffer        = 16
	initialReconnectInterval = 100 * time.Millisecond
	defaultMaxReconnect      = 5 * time.Second
)

var ErrUnknownRole = errors.New("unknown device role")

// Receiver - gets everything that arrives from the peer. Called from link goroutines.
type Receiver interface {
	HandlePayload(payload []byte)
	HandleReachability(reachable bool)
}

type contextStore interface {
	Save(ctx context.Context, payload []byte) error
	Load(ctx context.Context) ([]byte, error)
}

type Options struct {
	Role                 string
	ListenAddr           string
	PeerURL              string
	SendBuffer           int
	MaxReconnectInterval time.Duration
}

// Link - the single logical channel between the two devices. The primary accepts the
// connection, the companion dials it and keeps redialing while the peer is away.
type Link struct {
	logger  *slog.Logger
	options Options
	store   contextStore

	upgrader websocket.Upgrader
	dialer   *websocket.Dialer

	// notifyMu keeps reachability notifications in connection order.
	notifyMu sync.Mutex

	// slotMu guards the stored context and whether the peer already has it.
	slotMu    sync.Mutex
	slotGen   uint64
	delivered bool

	mu   sync.Mutex
	conn *connection
}

func New(logger *slog.Logger, options Options, store contextStore) *Link {
	if options.SendBuffer <= 0 {
		options.SendBuffer = defaultSendBuffer
	}

	if options.MaxReconnectInterval <= 0 {
		options.MaxReconnectInterval = defaultMaxReconnect
	}

	return &Link{
		logger:  logger.With("component", "peer", "role", options.Role),
		options: options,
		store:   store,

		upgrader: websocket.Upgrader{
			// the peer is another device of the same user, not a browser
			CheckOrigin: func(*http.Request) bool { return true },
		},
		dialer: websocket.DefaultDialer,

		// a context left in the store by an earlier run counts as delivered
		delivered: true,
	}
}

// Run - blocks until ctx is canceled, delivering peer traffic to receiver.
func (that *Link) Run(ctx context.Context, receiver Receiver) error {
	switch that.options.Role {
	case RolePrimary:
		return that.listen(ctx, receiver)
	case RoleCompanion:
		return that.dialLoop(ctx, receiver)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, that.options.Role)
	}
}

// Send - hands payload to the current connection. Never queues for a future connection.
func (that *Link) Send(payload []byte) error {
	return that.enqueue(frame{payload: payload})
}

// UpdateContext - overwrites the stored context and pushes it right away when connected.
// A context the peer has not received yet is pushed on the next connection, once.
func (that *Link) UpdateContext(payload []byte) error {
	log := that.logger.With("method", "UpdateContext")

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	that.slotMu.Lock()
	defer that.slotMu.Unlock()

	if err := that.store.Save(ctx, payload); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}

	that.slotGen++
	that.delivered = false

	if err := that.enqueue(that.contextFrame(payload, that.slotGen)); err != nil {
		log.Debug("context stored, delivery deferred to next connection", "reason", err)
	}

	return nil
}

// AcceptContext - stores a context received from the peer. The peer already has it,
// so it is never pushed back.
func (that *Link) AcceptContext(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	that.slotMu.Lock()
	defer that.slotMu.Unlock()

	if err := that.store.Save(ctx, payload); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}

	that.slotGen++
	that.delivered = true

	return nil
}

// StoredContext - the last context installed or accepted, apperror.ErrContextNotFound if none.
func (that *Link) StoredContext(ctx context.Context) ([]byte, error) {
	payload, err := that.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}

	return payload, nil
}

// Disconnect - drops the current connection, if any. The companion will redial.
func (that *Link) Disconnect() {
	that.mu.Lock()
	conn := that.conn
	that.mu.Unlock()

	if conn != nil {
		conn.close()
	}
}

// Handler - websocket endpoint for the primary role. Exposed so it can be mounted on any server.
func (that *Link) Handler(ctx context.Context, receiver Receiver) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		log := that.logger.With("method", "Handler")

		ws, err := that.upgrader.Upgrade(writer, req, nil)
		if err != nil {
			log.Warn("failed to upgrade peer connection", "error", err)
			return
		}

		log.Info("peer connected", "remote", req.RemoteAddr)
		that.serve(ctx, ws, receiver)
	})
}

func (that *Link) listen(ctx context.Context, receiver Receiver) error {
	log := that.logger.With("method", "listen")

	mux := http.NewServeMux()
	mux.Handle(Path, that.Handler(ctx, receiver))

	srv := &http.Server{
		Addr:              that.options.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: writeWait,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down peer listener", "error", err)
		}
	}()

	log.Info("waiting for peer", "addr", that.options.ListenAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to listen for peer: %w", err)
	}

	return nil
}

func (that *Link) dialLoop(ctx context.Context, receiver Receiver) error {
	log := that.logger.With("method", "dialLoop")

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = min(initialReconnectInterval, that.options.MaxReconnectInterval)
	policy.MaxInterval = that.options.MaxReconnectInterval
	policy.MaxElapsedTime = 0

	for {
		var ws *websocket.Conn

		err := backoff.Retry(func() error {
			conn, _, err := that.dialer.DialContext(ctx, that.options.PeerURL, nil)
			if err != nil {
				log.Debug("peer not reachable yet", "url", that.options.PeerURL, "error", err)
				return err
			}

			ws = conn
			return nil
		}, backoff.WithContext(policy, ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to dial peer: %w", err)
		}

		log.Info("connected to peer", "url", that.options.PeerURL)
		policy.Reset()

		that.serve(ctx, ws, receiver)

		if ctx.Err() != nil {
			return nil
		}

		log.Info("peer connection lost, redialing")
	}
}

// serve - owns one websocket until it fails. Blocks in the read loop.
func (that *Link) serve(ctx context.Context, ws *websocket.Conn, receiver Receiver) {
	conn := newConnection(ws, that.options.SendBuffer)

	that.attach(ctx, conn, receiver)

	go conn.writePump(that.logger)
	go func() {
		select {
		case <-ctx.Done():
			conn.close()
		case <-conn.done:
		}
	}()

	conn.readPump(that.logger, receiver)
	conn.close()

	that.detach(conn, receiver)
}

func (that *Link) attach(ctx context.Context, conn *connection, receiver Receiver) {
	that.notifyMu.Lock()
	defer that.notifyMu.Unlock()

	that.mu.Lock()
	previous := that.conn
	that.conn = conn
	that.mu.Unlock()

	if previous != nil {
		previous.close()
		receiver.HandleReachability(false)
	}

	that.pushContext(ctx, conn)
	receiver.HandleReachability(true)
}

func (that *Link) detach(conn *connection, receiver Receiver) {
	that.notifyMu.Lock()
	defer that.notifyMu.Unlock()

	that.mu.Lock()
	current := that.conn == conn
	if current {
		that.conn = nil
	}
	that.mu.Unlock()

	if current {
		receiver.HandleReachability(false)
	}
}

func (that *Link) pushContext(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "pushContext")

	that.slotMu.Lock()
	defer that.slotMu.Unlock()

	if that.delivered {
		return
	}

	payload, err := that.store.Load(ctx)
	if errors.Is(err, apperror.ErrContextNotFound) {
		return
	}

	if err != nil {
		log.Warn("failed to load stored context", "error", err)
		return
	}

	if err = conn.enqueue(that.contextFrame(payload, that.slotGen)); err != nil {
		log.Warn("failed to push stored context", "error", err)
	}
}

func (that *Link) enqueue(out frame) error {
	that.mu.Lock()
	conn := that.conn
	that.mu.Unlock()

	if conn == nil {
		return apperror.ErrPeerUnreachable
	}

	return conn.enqueue(out)
}

// contextFrame - marks the slot delivered once written, unless a newer context replaced it meanwhile.
func (that *Link) contextFrame(payload []byte, gen uint64) frame {
	return frame{
		payload: payload,
		written: func() {
			that.slotMu.Lock()
			defer that.slotMu.Unlock()

			if that.slotGen == gen {
				that.delivered = true
			}
		},
	}
}
