package server

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lapster88/briscola/internal/broker"
	"github.com/lapster88/briscola/internal/game"
	"github.com/lapster88/briscola/internal/protocol"
	"github.com/lapster88/briscola/internal/randutil"
)

// ErrSubscriptionClosed is returned by Run when the action feed ends
var ErrSubscriptionClosed = errors.New("action subscription closed")

type supervisedActor struct {
	actor  *Actor
	cancel context.CancelFunc
}

// Supervisor routes actions to one actor per game and replaces actors whose
// heartbeat lapsed.
type Supervisor struct {
	broker  broker.Broker
	clock   quartz.Clock
	logger  zerolog.Logger
	metrics *Metrics
	config  Config
	keys    Keys
	seed    int64

	mu     sync.RWMutex
	actors map[string]*supervisedActor
	base   context.Context
	wg     sync.WaitGroup
}

// NewSupervisor creates a supervisor with no actors
func NewSupervisor(b broker.Broker, clock quartz.Clock, logger zerolog.Logger, metrics *Metrics, config Config) *Supervisor {
	seed := config.Seed
	if seed == 0 {
		seed = randutil.TimeSeed()
	}
	return &Supervisor{
		broker:  b,
		clock:   clock,
		logger:  logger.With().Str("component", "supervisor").Logger(),
		metrics: metrics,
		config:  config,
		keys:    Keys{Prefix: config.KeyPrefix},
		seed:    seed,
		actors:  make(map[string]*supervisedActor),
		base:    context.Background(),
	}
}

// Run subscribes to every game's action channel and audits heartbeats until
// ctx is cancelled. All actors are stopped before it returns.
func (s *Supervisor) Run(ctx context.Context) error {
	sub, err := s.broker.PSubscribe(ctx, s.keys.ActionsPattern())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.keys.ActionsPattern(), err)
	}
	defer sub.Close()

	g, gctx := errgroup.WithContext(ctx)
	s.mu.Lock()
	s.base = gctx
	s.mu.Unlock()

	s.logger.Info().
		Str("pattern", s.keys.ActionsPattern()).
		Dur("audit_interval", s.config.AuditInterval).
		Msg("Supervisor started")

	g.Go(func() error { return s.routeLoop(gctx, sub) })
	g.Go(func() error { return s.auditLoop(gctx) })

	err = g.Wait()
	s.Stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Supervisor) routeLoop(ctx context.Context, sub broker.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Messages():
			if !ok {
				return ErrSubscriptionClosed
			}
			s.Route(ctx, msg.Payload)
		}
	}
}

func (s *Supervisor) auditLoop(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.config.AuditInterval, "supervisor", "audit")
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Audit(ctx)
		}
	}
}

// Route hands a raw action to its game's actor, creating the actor when the
// game has none and replacing it when its goroutine has exited. Malformed
// input is logged and dropped; an action no actor can take is answered with
// a retryable failure.
func (s *Supervisor) Route(ctx context.Context, payload []byte) {
	act, err := protocol.ParseAction(payload)
	if err != nil {
		s.metrics.Malformed.Inc()
		s.logger.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping malformed action")
		return
	}
	if reason := s.deliver(ctx, act); reason != "" {
		s.reject(ctx, act, reason)
	}
}

// deliver queues act under s.mu, so restarts and retirements never race a
// delivery. It returns why the action could not be queued.
func (s *Supervisor) deliver(ctx context.Context, act *protocol.Action) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sa, ok := s.actors[act.GameID]
	var err error
	switch {
	case !ok:
		if sa, err = s.spawn(ctx, act.GameID); err != nil {
			s.logger.Error().Err(err).Str("game_id", act.GameID).Msg("Failed to start actor")
			return "game unavailable"
		}
		s.actors[act.GameID] = sa
		s.metrics.ActiveActors.Set(float64(len(s.actors)))
	case !sa.actor.Alive():
		if sa, err = s.replace(ctx, act.GameID, sa, "stopped"); err != nil {
			return "game unavailable"
		}
	}

	if !sa.actor.Deliver(act) {
		s.metrics.Dropped.Inc()
		s.logger.Warn().
			Str("game_id", act.GameID).
			Str("type", act.Type()).
			Msg("Actor mailbox full, dropping action")
		return "busy"
	}
	return ""
}

// reject answers an action that never reached an engine
func (s *Supervisor) reject(ctx context.Context, act *protocol.Action, reason string) {
	meta := actionMeta(act)
	s.metrics.Actions.WithLabelValues(actionLabel(act.Type()), string(protocol.StatusError)).Inc()
	res := protocol.Failure(meta.ActionID, protocol.CodeInvalidAction, reason, protocol.RecoveryRetry)
	if err := publishEvent(ctx, s.broker, s.keys, act.GameID, res, meta, s.clock.Now(), s.config.ProtocolVersion); err != nil {
		s.logger.Warn().Err(err).Str("game_id", act.GameID).Msg("Failed to publish rejection")
	}
}

// spawn loads the game's snapshot, if any, and starts its actor. Callers
// hold s.mu.
func (s *Supervisor) spawn(ctx context.Context, gameID string) (*supervisedActor, error) {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	actor := NewActor(gameID, g, s.broker, s.clock, s.logger, s.metrics, s.config)
	actx, cancel := context.WithCancel(s.base)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		actor.Run(actx)
	}()
	return &supervisedActor{actor: actor, cancel: cancel}, nil
}

// load rebuilds a game from its snapshot. A missing or unreadable snapshot
// yields a fresh engine; a store failure is returned.
func (s *Supervisor) load(ctx context.Context, gameID string) (*game.Game, error) {
	rng := randutil.ForGame(s.seed, gameID)
	fresh := func() *game.Game {
		return game.New(rng, game.WithMinimumHandValue(s.config.MinimumHandValue))
	}

	data, err := s.broker.Get(ctx, s.keys.State(gameID))
	if errors.Is(err, broker.ErrNotFound) {
		return fresh(), nil
	}
	if err != nil {
		s.metrics.SnapshotErrors.Inc()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snapshot, err := protocol.ParseSnapshot(data)
	if err == nil {
		var g *game.Game
		if g, err = snapshot.Hydrate(rng); err == nil {
			s.logger.Info().Str("game_id", gameID).Stringer("phase", g.Phase()).Msg("Restored game from snapshot")
			return g, nil
		}
	}
	s.metrics.SnapshotErrors.Inc()
	s.logger.Warn().Err(err).Str("game_id", gameID).Msg("Discarding unreadable snapshot")
	return fresh(), nil
}

// Audit runs one supervision round: idle actors are retired, and actors
// that stopped or whose heartbeat expired are replaced from their snapshot.
func (s *Supervisor) Audit(ctx context.Context) {
	s.mu.RLock()
	current := maps.Clone(s.actors)
	s.mu.RUnlock()

	now := s.clock.Now()
	for id, sa := range current {
		if s.config.IdleTimeout > 0 && now.Sub(sa.actor.LastActive()) >= s.config.IdleTimeout {
			s.retire(id, sa)
			continue
		}
		if !sa.actor.Alive() {
			s.restart(ctx, id, sa, "stopped")
			continue
		}

		ttl, err := s.broker.TTL(ctx, s.keys.Heartbeat(id))
		switch {
		case errors.Is(err, broker.ErrNotFound):
			s.restart(ctx, id, sa, "heartbeat")
		case err != nil:
			s.logger.Warn().Err(err).Str("game_id", id).Msg("Heartbeat check failed")
		case ttl != broker.NoExpiry && ttl <= 0:
			s.restart(ctx, id, sa, "heartbeat")
		}
	}
}

func (s *Supervisor) restart(ctx context.Context, gameID string, old *supervisedActor, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actors[gameID] != old {
		return
	}
	_, _ = s.replace(ctx, gameID, old, reason)
}

// replace cancels old and starts a new actor from the latest snapshot. Actions
// still queued for old move to the replacement. A stalled actor is not waited
// for. Callers hold s.mu.
func (s *Supervisor) replace(ctx context.Context, gameID string, old *supervisedActor, reason string) (*supervisedActor, error) {
	old.cancel()
	pending := old.actor.drain()

	sa, err := s.spawn(ctx, gameID)
	if err != nil {
		// The next action for the game starts a new actor.
		delete(s.actors, gameID)
		s.metrics.ActiveActors.Set(float64(len(s.actors)))
		s.logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to restart actor")
		for _, act := range pending {
			s.reject(ctx, act, "game unavailable")
		}
		return nil, err
	}
	s.actors[gameID] = sa
	s.metrics.Restarts.WithLabelValues(reason).Inc()
	s.logger.Warn().Str("game_id", gameID).Str("reason", reason).Int("pending", len(pending)).Msg("Restarted actor")

	for _, act := range pending {
		if !sa.actor.Deliver(act) {
			s.metrics.Dropped.Inc()
			s.reject(ctx, act, "busy")
		}
	}
	return sa, nil
}

// retire forgets an idle actor. An actor that received or still holds an
// action since the audit looked at it is kept.
func (s *Supervisor) retire(gameID string, sa *supervisedActor) {
	s.mu.Lock()
	if s.actors[gameID] != sa ||
		s.clock.Now().Sub(sa.actor.LastActive()) < s.config.IdleTimeout ||
		len(sa.actor.mailbox) > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.actors, gameID)
	s.metrics.ActiveActors.Set(float64(len(s.actors)))
	s.mu.Unlock()

	sa.cancel()
	s.metrics.Retired.Inc()
	s.logger.Info().Str("game_id", gameID).Msg("Retired idle actor")
}

// Actor returns the live actor of a game
func (s *Supervisor) Actor(gameID string) (*Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sa, ok := s.actors[gameID]
	if !ok {
		return nil, false
	}
	return sa.actor, true
}

// Games lists the games that currently have an actor
func (s *Supervisor) Games() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.actors))
	for id := range s.actors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Stop cancels every actor and waits for them to exit
func (s *Supervisor) Stop() {
	s.mu.Lock()
	for id, sa := range s.actors {
		sa.cancel()
		delete(s.actors, id)
	}
	s.metrics.ActiveActors.Set(0)
	s.mu.Unlock()
	s.wg.Wait()
}
