package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/entity"
)

const commandBuffer = 64

// Link - transport towards the peer device.
type Link interface {
	// Send - fire-and-forget message. Fails when the peer is unreachable; nothing is queued for later.
	Send(payload []byte) error
	// UpdateContext - replaces the shared context the peer observes on its next connection.
	UpdateContext(payload []byte) error
	// AcceptContext - records a context received from the peer without sending it back.
	AcceptContext(payload []byte) error
	// StoredContext - last installed or accepted context, apperror.ErrContextNotFound if none.
	StoredContext(ctx context.Context) ([]byte, error)
}

type Options struct {
	// DeviceID - identifies this device in outgoing envelopes. Generated when empty.
	DeviceID string
	// AnnounceProfiles - install the local profiles as shared context as soon as Run starts,
	// unless a stored context was restored.
	AnnounceProfiles bool
	Clock            func() time.Time
}

// Snapshot - read-only copy of everything the engine owns.
type Snapshot struct {
	Model     entity.GameModel `json:"model"`
	Profiles  entity.Profiles  `json:"profiles"`
	Reachable bool             `json:"reachable"`
}

// Engine - owns the local game model and profiles. All state is touched only by the Run loop;
// public methods and link callbacks hand work to that loop.
type Engine struct {
	logger *slog.Logger
	link   Link

	deviceID         string
	announceProfiles bool
	now              func() time.Time

	commands chan func()
	stopped  chan struct{}

	model     entity.GameModel
	profiles  entity.Profiles
	reachable bool

	reachableView atomic.Bool
}

func New(logger *slog.Logger, link Link, opts Options) *Engine {
	if opts.DeviceID == "" {
		opts.DeviceID = uuid.NewString()
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Engine{
		logger: logger.With("component", "replication", "device", opts.DeviceID),
		link:   link,

		deviceID:         opts.DeviceID,
		announceProfiles: opts.AnnounceProfiles,
		now:              opts.Clock,

		commands: make(chan func(), commandBuffer),
		stopped:  make(chan struct{}),

		model:    *entity.NewGameModel(opts.Clock()),
		profiles: entity.DefaultProfiles(),
	}
}

func (that *Engine) DeviceID() string {
	return that.deviceID
}

// Run - processes commands until ctx is canceled. Must be called exactly once.
func (that *Engine) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")
	defer close(that.stopped)

	restored := that.restoreProfiles(ctx)
	if that.announceProfiles && !restored {
		that.broadcastProfiles()
	}

	log.Info("replication engine started", "turn", that.model.CurrentTurn, "revision", that.model.Revision)

	for {
		select {
		case <-ctx.Done():
			log.Info("replication engine stopped")
			return nil
		case cmd := <-that.commands:
			cmd()
		}
	}
}

// AttemptMove - plays pos for the current slot. An accepted move is broadcast to the peer.
func (that *Engine) AttemptMove(ctx context.Context, pos entity.Position) (bool, error) {
	var accepted bool

	if err := that.do(ctx, func() {
		accepted = that.model.AttemptMove(pos, that.now())
		if accepted {
			that.broadcastGameState()
		}
	}); err != nil {
		return false, err
	}

	return accepted, nil
}

// Reset - starts a new game and broadcasts it.
func (that *Engine) Reset(ctx context.Context) error {
	return that.do(ctx, func() {
		that.model.Reset(that.now())
		that.broadcastGameState()
	})
}

func (that *Engine) CurrentGameState(ctx context.Context) (entity.GameState, error) {
	var state entity.GameState
	if err := that.do(ctx, func() { state = that.model.State }); err != nil {
		return entity.GameState{}, err
	}

	return state, nil
}

func (that *Engine) BoardSnapshot(ctx context.Context) (entity.Board, error) {
	var board entity.Board
	if err := that.do(ctx, func() { board = that.model.Board }); err != nil {
		return entity.Board{}, err
	}

	return board, nil
}

func (that *Engine) CurrentTurnProfile(ctx context.Context) (entity.PlayerProfile, error) {
	var (
		profile entity.PlayerProfile
		err     error
	)

	if doErr := that.do(ctx, func() { profile, err = that.profiles.ProfileFor(that.model.CurrentTurn) }); doErr != nil {
		return entity.PlayerProfile{}, doErr
	}

	return profile, err
}

func (that *Engine) ProfileFor(ctx context.Context, slot entity.Slot) (entity.PlayerProfile, error) {
	var (
		profile entity.PlayerProfile
		err     error
	)

	if doErr := that.do(ctx, func() { profile, err = that.profiles.ProfileFor(slot) }); doErr != nil {
		return entity.PlayerProfile{}, doErr
	}

	return profile, err
}

// SetName - local edit only. Nothing is sent until CommitProfileEdits.
func (that *Engine) SetName(ctx context.Context, slot entity.Slot, name string) error {
	var err error

	if doErr := that.do(ctx, func() { err = that.profiles.SetName(slot, name) }); doErr != nil {
		return doErr
	}

	return err
}

// CommitProfileEdits - installs the current profile pair as the shared context.
func (that *Engine) CommitProfileEdits(ctx context.Context) error {
	return that.do(ctx, that.broadcastProfiles)
}

func (that *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot

	if err := that.do(ctx, func() {
		snapshot = Snapshot{
			Model:     that.model,
			Profiles:  that.profiles,
			Reachable: that.reachable,
		}
	}); err != nil {
		return Snapshot{}, err
	}

	return snapshot, nil
}

// Reachable - last reachability reported by the link. Safe from any goroutine.
func (that *Engine) Reachable() bool {
	return that.reachableView.Load()
}

// HandlePayload - called by the link for every frame received from the peer.
func (that *Engine) HandlePayload(payload []byte) {
	log := that.logger.With("method", "HandlePayload")

	envelope, err := DecodeEnvelope(payload)
	if err != nil {
		MessagesReceived.WithLabelValues("unknown", outcomeDecodeFailed).Inc()
		log.Warn("discarding peer payload", "error", err)
		return
	}

	if envelope.Sender == that.deviceID {
		MessagesReceived.WithLabelValues(envelope.Kind, outcomeEcho).Inc()
		log.Debug("discarding own payload", "id", envelope.ID)
		return
	}

	switch envelope.Kind {
	case KindGameState:
		model, err := envelope.GameModel()
		if err != nil {
			MessagesReceived.WithLabelValues(envelope.Kind, outcomeDecodeFailed).Inc()
			log.Warn("discarding peer game state", "id", envelope.ID, "error", err)
			return
		}

		that.post(func() { that.applyGameModel(envelope.ID, model) })
	case KindProfiles:
		profiles, err := envelope.Profiles()
		if err != nil {
			MessagesReceived.WithLabelValues(envelope.Kind, outcomeDecodeFailed).Inc()
			log.Warn("discarding peer profiles", "id", envelope.ID, "error", err)
			return
		}

		that.post(func() { that.applyProfiles(envelope.ID, profiles, payload) })
	}
}

// HandleReachability - called by the link whenever the peer connection comes up or goes down.
func (that *Engine) HandleReachability(reachable bool) {
	that.post(func() {
		log := that.logger.With("method", "HandleReachability")

		becameReachable := reachable && !that.reachable
		that.reachable = reachable
		that.reachableView.Store(reachable)

		if reachable {
			PeerReachable.Set(1)
		} else {
			PeerReachable.Set(0)
		}

		log.Info("peer reachability changed", "reachable", reachable)

		if becameReachable {
			that.broadcastGameState()
		}
	})
}

func (that *Engine) applyGameModel(id string, incoming *entity.GameModel) {
	log := that.logger.With("method", "applyGameModel", "id", id)

	if incoming.Revision <= that.model.Revision {
		MessagesReceived.WithLabelValues(KindGameState, outcomeStale).Inc()
		log.Debug("ignoring stale game state", "incoming", incoming.Revision, "local", that.model.Revision)
		return
	}

	that.model = *incoming
	MessagesReceived.WithLabelValues(KindGameState, outcomeAdopted).Inc()
	log.Info("adopted peer game state", "revision", incoming.Revision, "state", incoming.State.String())
}

func (that *Engine) applyProfiles(id string, incoming *entity.Profiles, payload []byte) {
	log := that.logger.With("method", "applyProfiles", "id", id)

	that.profiles = *incoming
	MessagesReceived.WithLabelValues(KindProfiles, outcomeApplied).Inc()
	log.Info("applied peer profiles")

	if err := that.link.AcceptContext(payload); err != nil {
		log.Warn("failed to store peer profiles", "error", err)
	}
}

// restoreProfiles - picks up the context left by an earlier run. Reports whether one was found.
func (that *Engine) restoreProfiles(ctx context.Context) bool {
	log := that.logger.With("method", "restoreProfiles")

	payload, err := that.link.StoredContext(ctx)
	if errors.Is(err, apperror.ErrContextNotFound) {
		return false
	}

	if err != nil {
		log.Warn("failed to load stored profiles", "error", err)
		return false
	}

	envelope, err := DecodeEnvelope(payload)
	if err != nil {
		log.Warn("discarding stored profiles", "error", err)
		return false
	}

	profiles, err := envelope.Profiles()
	if err != nil {
		log.Warn("discarding stored profiles", "error", err)
		return false
	}

	that.profiles = *profiles
	log.Info("restored stored profiles", "id", envelope.ID)

	return true
}

func (that *Engine) broadcastGameState() {
	log := that.logger.With("method", "broadcastGameState")

	if !that.reachable {
		MessagesDropped.WithLabelValues(KindGameState, reasonUnreachable).Inc()
		log.Debug("peer unreachable, game state not sent", "revision", that.model.Revision)
		return
	}

	payload, err := EncodeGameModel(that.deviceID, &that.model)
	if err != nil {
		MessagesDropped.WithLabelValues(KindGameState, reasonSendFailed).Inc()
		log.Error("failed to encode game state", "error", err)
		return
	}

	if err = that.link.Send(payload); err != nil {
		reason := reasonSendFailed
		if errors.Is(err, apperror.ErrPeerUnreachable) {
			reason = reasonUnreachable
		}

		MessagesDropped.WithLabelValues(KindGameState, reason).Inc()
		log.Warn("failed to send game state", "error", err)
		return
	}

	MessagesSent.WithLabelValues(KindGameState).Inc()
}

func (that *Engine) broadcastProfiles() {
	log := that.logger.With("method", "broadcastProfiles")

	payload, err := EncodeProfiles(that.deviceID, &that.profiles)
	if err != nil {
		MessagesDropped.WithLabelValues(KindProfiles, reasonSendFailed).Inc()
		log.Error("failed to encode profiles", "error", err)
		return
	}

	if err = that.link.UpdateContext(payload); err != nil {
		MessagesDropped.WithLabelValues(KindProfiles, reasonSendFailed).Inc()
		log.Warn("failed to install profile context", "error", err)
		return
	}

	MessagesSent.WithLabelValues(KindProfiles).Inc()
}

// do - runs fn on the engine loop and waits for it.
func (that *Engine) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})

	select {
	case that.commands <- func() {
		defer close(finished)
		fn()
	}:
	case <-that.stopped:
		return apperror.ErrEngineStopped
	case <-ctx.Done():
		return fmt.Errorf("engine command canceled: %w", ctx.Err())
	}

	select {
	case <-finished:
		return nil
	case <-that.stopped:
		select {
		case <-finished:
			return nil
		default:
			return apperror.ErrEngineStopped
		}
	case <-ctx.Done():
		return fmt.Errorf("engine command canceled: %w", ctx.Err())
	}
}

// post - queues fn on the engine loop without waiting. Dropped once the engine has stopped.
func (that *Engine) post(fn func()) {
	select {
	case that.commands <- fn:
	case <-that.stopped:
	}
}
