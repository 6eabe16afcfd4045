package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/lapster88/briscola/internal/broker"
	"github.com/lapster88/briscola/internal/deck"
	"github.com/lapster88/briscola/internal/game"
	"github.com/lapster88/briscola/internal/protocol"
)

// recentActionIDs bounds how many applied action ids an actor remembers for
// rejecting redelivered actions
const recentActionIDs = 256

// ActorBackend is what an actor needs from the broker
type ActorBackend interface {
	broker.Publisher
	broker.Store
}

// Actor owns one game engine. All engine access happens on the goroutine
// running Run (or the caller of Handle when Run is not used).
type Actor struct {
	gameID  string
	game    *game.Game
	backend ActorBackend
	clock   quartz.Clock
	logger  zerolog.Logger
	metrics *Metrics
	config  Config
	keys    Keys

	mailbox  chan *protocol.Action
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	seen *lru.Cache[string, struct{}]

	lastHeartbeat time.Time
	lastPersist   time.Time
	lastActive    atomic.Int64
}

// NewActor wraps an engine for gameID
func NewActor(gameID string, g *game.Game, backend ActorBackend, clock quartz.Clock, logger zerolog.Logger, metrics *Metrics, config Config) *Actor {
	a := &Actor{
		gameID:  gameID,
		game:    g,
		backend: backend,
		clock:   clock,
		logger:  logger.With().Str("component", "actor").Str("game_id", gameID).Logger(),
		metrics: metrics,
		config:  config,
		keys:    Keys{Prefix: config.KeyPrefix},
		mailbox: make(chan *protocol.Action, max(config.MailboxSize, 1)),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		seen:    lo.Must(lru.New[string, struct{}](recentActionIDs)),
	}
	a.lastActive.Store(clock.Now().UnixNano())
	return a
}

// GameID returns the id of the game this actor owns
func (a *Actor) GameID() string { return a.gameID }

// Deliver queues an action without blocking. It returns false when the
// mailbox is full or the actor has exited.
func (a *Actor) Deliver(act *protocol.Action) bool {
	a.lastActive.Store(a.clock.Now().UnixNano())
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.mailbox <- act:
		return true
	default:
		return false
	}
}

// drain empties the mailbox without handling anything. Only the supervisor
// calls it, after the actor has been cancelled.
func (a *Actor) drain() []*protocol.Action {
	var acts []*protocol.Action
	for {
		select {
		case act := <-a.mailbox:
			acts = append(acts, act)
		default:
			return acts
		}
	}
}

// LastActive returns when an action was last delivered
func (a *Actor) LastActive() time.Time {
	return time.Unix(0, a.lastActive.Load())
}

// Alive reports whether the Run goroutine is still running
func (a *Actor) Alive() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Done is closed when Run returns
func (a *Actor) Done() <-chan struct{} { return a.done }

// Stop asks Run to return after the action in progress
func (a *Actor) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

// Run processes the mailbox and keeps the heartbeat fresh until ctx is
// cancelled or Stop is called.
func (a *Actor) Run(ctx context.Context) {
	defer close(a.done)

	a.heartbeat(ctx)
	ticker := a.clock.NewTicker(a.config.HeartbeatInterval, "actor", "heartbeat")
	defer ticker.Stop()

	a.logger.Debug().Msg("Actor started")
	for {
		select {
		case <-ctx.Done():
			a.logger.Debug().Msg("Actor cancelled")
			return
		case <-a.stopCh:
			a.logger.Debug().Msg("Actor stopped")
			return
		case <-ticker.C:
			a.heartbeat(ctx)
		case act := <-a.mailbox:
			a.Handle(ctx, act)
		}
	}
}

// heartbeat writes the liveness key at most once per HeartbeatInterval. A
// dealt game's snapshot is rewritten once half its TTL has passed, so reads
// that keep the actor busy never let the snapshot expire under it.
func (a *Actor) heartbeat(ctx context.Context) {
	now := a.clock.Now()
	if !a.lastHeartbeat.IsZero() && now.Sub(a.lastHeartbeat) < a.config.HeartbeatInterval {
		return
	}
	if err := a.backend.Set(ctx, a.keys.Heartbeat(a.gameID), []byte("alive"), a.config.HeartbeatTTL); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to write heartbeat")
		return
	}
	a.lastHeartbeat = now

	if a.game.Phase().Dealt() && now.Sub(a.lastPersist) >= a.config.SnapshotTTL/2 {
		a.persist(ctx)
	}
}

// actionError is a rejection with an explicit code
type actionError struct {
	code     protocol.Code
	recovery protocol.Recovery
	reason   string
}

func (e *actionError) Error() string { return e.reason }

func invalidAction(format string, args ...any) error {
	return &actionError{code: protocol.CodeInvalidAction, recovery: protocol.RecoveryNoop, reason: fmt.Sprintf(format, args...)}
}

func invalidPayload(err error) error {
	return &actionError{code: protocol.CodeInvalidPayload, recovery: protocol.RecoveryRetry, reason: err.Error()}
}

// failure maps an error onto the result codes clients understand
func failure(actionID string, err error) *protocol.ActionResult {
	var (
		aErr    *actionError
		vErr    *game.ValidationError
		notHeld *game.CardNotInHandError
	)
	switch {
	case errors.As(err, &aErr):
		return protocol.Failure(actionID, aErr.code, aErr.reason, aErr.recovery)
	case errors.As(err, &notHeld):
		return protocol.Failure(actionID, protocol.CodeInvalidCard, "Card not in hand", protocol.RecoveryRetry)
	case errors.As(err, &vErr):
		return protocol.Failure(actionID, protocol.CodeInvalidPayload, vErr.Error(), protocol.RecoveryRetry)
	default:
		// StateError, TurnError, LookupError and anything unexpected
		return protocol.Failure(actionID, protocol.CodeInvalidAction, err.Error(), protocol.RecoveryNoop)
	}
}

// actionMeta identifies the events answering act, generating an action id
// when the client sent none
func actionMeta(act *protocol.Action) protocol.Meta {
	id := act.ID()
	if id == "" {
		id = uuid.NewString()
	}
	return protocol.Meta{ActionID: id, PlayerID: act.PlayerID, Role: act.Role}
}

// mutates reports whether an action type changes the engine
func mutates(msgType string) bool {
	switch msgType {
	case protocol.TypeBid, protocol.TypeCallPartnerRank, protocol.TypeCallPartnerSuit,
		protocol.TypePlay, protocol.TypeReorder:
		return true
	default:
		return false
	}
}

// actionLabel keeps the metric label set fixed whatever clients send
func actionLabel(msgType string) string {
	if msgType == protocol.TypeJoin || msgType == protocol.TypeSync || mutates(msgType) {
		return msgType
	}
	return "unknown"
}

// Handle processes one action: exactly one action.result is published,
// plus any broadcasts of a successful action. A mutating action whose id
// was already applied is rejected.
func (a *Actor) Handle(ctx context.Context, act *protocol.Action) {
	a.heartbeat(ctx)

	meta := actionMeta(act)
	actionID := meta.ActionID
	msgType := act.Type()
	replayable := act.ID() != "" && mutates(msgType)
	logger := a.logger.With().Str("action_id", actionID).Str("type", msgType).Logger()

	var (
		msgs []protocol.Message
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Msg("Action handler panicked")
				err = fmt.Errorf("internal error: %v", r)
			}
		}()
		if replayable && a.seen.Contains(actionID) {
			err = invalidAction("action %s was already applied", actionID)
			return
		}
		if err = a.ensureDealt(ctx); err != nil {
			return
		}
		msgs, err = a.dispatch(ctx, act, msgType, actionID)
	}()
	if err == nil && replayable {
		a.seen.Add(actionID, struct{}{})
	}

	status := protocol.StatusOK
	if err != nil {
		status = protocol.StatusError
		logger.Debug().Err(err).Msg("Action rejected")
		msgs = []protocol.Message{failure(actionID, err)}
	}
	a.metrics.Actions.WithLabelValues(actionLabel(msgType), string(status)).Inc()

	for _, msg := range msgs {
		a.publish(ctx, msg, meta)
	}
}

// ensureDealt starts and deals a fresh engine on first use. A restored
// engine is past ready and is left alone.
func (a *Actor) ensureDealt(ctx context.Context) error {
	switch a.game.Phase() {
	case game.PhaseIdle:
		if err := a.game.StartGame(); err != nil {
			return err
		}
		fallthrough
	case game.PhaseReady:
		if err := a.game.DealCards(); err != nil {
			return fmt.Errorf("deal: %w", err)
		}
		a.logger.Info().Msg("Dealt new game")
		a.persist(ctx)
	}
	return nil
}

func (a *Actor) dispatch(ctx context.Context, act *protocol.Action, msgType, actionID string) ([]protocol.Message, error) {
	switch msgType {
	case protocol.TypeJoin, protocol.TypeSync:
		return a.handleSync(act, actionID), nil
	case protocol.TypeBid:
		return a.handleBid(ctx, act, actionID)
	case protocol.TypeCallPartnerRank:
		return a.handleCallRank(ctx, act, actionID)
	case protocol.TypeCallPartnerSuit:
		return a.handleCallSuit(ctx, act, actionID)
	case protocol.TypePlay:
		return a.handlePlay(ctx, act, actionID)
	case protocol.TypeReorder:
		return a.handleReorder(ctx, act, actionID)
	default:
		return nil, invalidAction("%v %q", protocol.ErrUnknownMessageType, msgType)
	}
}

// seat returns the acting player's id; observers and unknown seats may not act
func seat(act *protocol.Action) (int, error) {
	if act.IsObserver() {
		return 0, invalidAction("observers cannot act")
	}
	if act.PlayerID == nil || *act.PlayerID < 0 || *act.PlayerID >= game.NumPlayers {
		return 0, invalidAction("invalid player id")
	}
	return *act.PlayerID, nil
}

func (a *Actor) requirePhase(name string, allowed func(game.Phase) bool) error {
	if !allowed(a.game.Phase()) {
		return invalidAction("Not in %s phase", name)
	}
	return nil
}

func is(p game.Phase) func(game.Phase) bool {
	return func(actual game.Phase) bool { return actual == p }
}

func (a *Actor) handleSync(act *protocol.Action, actionID string) []protocol.Message {
	snapshot := protocol.BuildSnapshot(a.gameID, a.game, act.PlayerID, act.Role)
	return []protocol.Message{
		protocol.OK(actionID, map[string]any{"snapshot": snapshot}),
		snapshot,
	}
}

func (a *Actor) handleBid(ctx context.Context, act *protocol.Action, actionID string) ([]protocol.Message, error) {
	if err := a.requirePhase("bid", is(game.PhaseBid)); err != nil {
		return nil, err
	}
	playerID, err := seat(act)
	if err != nil {
		return nil, err
	}
	payload, err := act.DecodePayload()
	if err != nil {
		return nil, invalidPayload(err)
	}
	if payload.Bid == nil {
		return nil, invalidPayload(errors.New("bid is required"))
	}

	redeals := a.game.Redeals()
	if err := a.game.PlayerBid(playerID, *payload.Bid); err != nil {
		return nil, err
	}
	redealt := a.game.Redeals() != redeals
	a.persist(ctx)

	caller := optionalPlayer(a.game.CallerID())
	highBid := a.game.HighBid()
	effects := map[string]any{
		"state":       a.game.Phase(),
		"winner_id":   caller,
		"winning_bid": highBid,
	}
	if redealt {
		effects["redealt"] = true
		a.logger.Info().Int("redeals", a.game.Redeals()).Msg("Everyone passed, redealt")
	}
	return []protocol.Message{
		protocol.OK(actionID, effects),
		&protocol.PhaseChange{
			MessageType: protocol.TypePhaseChange,
			Phase:       a.game.Phase(),
			CallerID:    caller,
			HighBid:     &highBid,
			Redealt:     redealt,
		},
	}, nil
}

func (a *Actor) handleCallRank(ctx context.Context, act *protocol.Action, actionID string) ([]protocol.Message, error) {
	if err := a.requirePhase("call-partner-rank", is(game.PhaseCallPartnerRank)); err != nil {
		return nil, err
	}
	if err := a.requireCaller(act); err != nil {
		return nil, err
	}
	payload, err := act.DecodePayload()
	if err != nil {
		return nil, invalidPayload(err)
	}
	if payload.PartnerRank == nil {
		return nil, invalidPayload(errors.New("partner_rank is required"))
	}

	if err := a.game.CallPartnerRank(deck.Rank(*payload.PartnerRank)); err != nil {
		return nil, err
	}
	a.persist(ctx)

	rank := int(a.game.PartnerRank())
	return []protocol.Message{
		protocol.OK(actionID, map[string]any{"state": a.game.Phase(), "partner_rank": rank}),
		&protocol.PhaseChange{
			MessageType: protocol.TypePhaseChange,
			Phase:       a.game.Phase(),
			PartnerRank: &rank,
		},
	}, nil
}

func (a *Actor) handleCallSuit(ctx context.Context, act *protocol.Action, actionID string) ([]protocol.Message, error) {
	if err := a.requirePhase("call-partner-suit", is(game.PhaseCallPartnerSuit)); err != nil {
		return nil, err
	}
	if err := a.requireCaller(act); err != nil {
		return nil, err
	}
	payload, err := act.DecodePayload()
	if err != nil {
		return nil, invalidPayload(err)
	}
	suit, err := deck.ParseSuit(payload.PartnerSuit)
	if err != nil {
		return nil, invalidPayload(err)
	}

	trick, err := a.game.CallPartnerSuit(suit)
	if err != nil {
		return nil, err
	}
	a.persist(ctx)

	partner := optionalPlayer(a.game.PartnerID())
	rank := int(a.game.PartnerRank())
	msgs := []protocol.Message{
		protocol.OK(actionID, map[string]any{
			"state":        a.game.Phase(),
			"partner_suit": suit.String(),
			"partner_id":   partner,
		}),
		&protocol.PhaseChange{
			MessageType: protocol.TypePhaseChange,
			Phase:       a.game.Phase(),
			PartnerID:   partner,
			PartnerRank: &rank,
			TrumpSuit:   suit.String(),
		},
	}
	if trick != nil {
		msgs = append(msgs, a.trickWon(trick))
	}
	return msgs, nil
}

func (a *Actor) requireCaller(act *protocol.Action) error {
	playerID, err := seat(act)
	if err != nil {
		return err
	}
	if playerID != a.game.CallerID() {
		return invalidAction("only the caller may name the partner card")
	}
	return nil
}

func (a *Actor) handlePlay(ctx context.Context, act *protocol.Action, actionID string) ([]protocol.Message, error) {
	if err := a.requirePhase("play", game.Phase.Playing); err != nil {
		return nil, err
	}
	playerID, err := seat(act)
	if err != nil {
		return nil, err
	}
	payload, err := act.DecodePayload()
	if err != nil {
		return nil, invalidPayload(err)
	}
	card, err := payload.PlayedCard()
	if err != nil {
		return nil, invalidPayload(err)
	}

	trick, err := a.game.PlayCard(playerID, card)
	if err != nil {
		return nil, err
	}
	a.persist(ctx)

	plays := a.game.CurrentTrick()
	if trick != nil {
		plays = trick.Plays
	}
	msgs := []protocol.Message{
		&protocol.TrickPlayed{
			MessageType:     protocol.TypeTrickPlayed,
			GameID:          a.gameID,
			PlayerID:        playerID,
			Card:            card,
			Trick:           plays,
			CurrentPlayerID: a.game.CurrentPlayerID(),
		},
	}
	if trick != nil {
		msgs = append(msgs, a.trickWon(trick))
	}
	if res, ok := a.game.Result(); ok {
		a.logger.Info().
			Int("caller_id", res.CallerID).
			Int("caller_points", res.CallerPoints).
			Bool("caller_won", res.CallerWon).
			Msg("Game over")
		msgs = append(msgs, &protocol.GameOver{
			MessageType: protocol.TypeGameOver,
			GameID:      a.gameID,
			Result:      res,
			Scores:      a.scores(),
		})
	}
	msgs = append(msgs, protocol.OK(actionID, map[string]any{"state": a.game.Phase()}))
	return msgs, nil
}

func (a *Actor) handleReorder(ctx context.Context, act *protocol.Action, actionID string) ([]protocol.Message, error) {
	if err := a.requirePhase("dealt", game.Phase.Dealt); err != nil {
		return nil, err
	}
	playerID, err := seat(act)
	if err != nil {
		return nil, err
	}
	payload, err := act.DecodePayload()
	if err != nil {
		return nil, invalidPayload(err)
	}

	hand, err := a.game.ReorderHand(playerID, payload.HandOrder())
	if err != nil {
		return nil, err
	}
	a.persist(ctx)

	cards := protocol.HandCards(hand)
	return []protocol.Message{
		&protocol.HandUpdate{
			MessageType: protocol.TypeHandUpdate,
			GameID:      a.gameID,
			PlayerID:    playerID,
			Hand:        cards,
		},
		protocol.OK(actionID, map[string]any{"hand": cards}),
	}, nil
}

func (a *Actor) trickWon(t *game.TrickResult) *protocol.TrickWon {
	return &protocol.TrickWon{
		MessageType:     protocol.TypeTrickWon,
		GameID:          a.gameID,
		Number:          t.Number,
		WinnerID:        t.Winner.PlayerID,
		Card:            t.Winner.Card,
		Points:          t.Points,
		TrickCards:      t.Plays,
		Scores:          a.scores(),
		CurrentPlayerID: a.game.CurrentPlayerID(),
	}
}

func (a *Actor) scores() []protocol.Score {
	scores := make([]protocol.Score, 0, game.NumPlayers)
	for id := range game.NumPlayers {
		p, _ := a.game.Player(id)
		scores = append(scores, protocol.Score{PlayerID: id, Points: p.Points})
	}
	return scores
}

// persist writes the snapshot; failures are logged and counted, the action
// still succeeds.
func (a *Actor) persist(ctx context.Context) {
	data, err := protocol.Marshal(protocol.PersistedSnapshot(a.gameID, a.game))
	if err == nil {
		err = a.backend.Set(ctx, a.keys.State(a.gameID), data, a.config.SnapshotTTL)
	}
	if err != nil {
		a.metrics.SnapshotErrors.Inc()
		a.logger.Error().Err(err).Msg("Failed to persist snapshot")
		return
	}
	a.lastPersist = a.clock.Now()
}

func (a *Actor) publish(ctx context.Context, msg protocol.Message, meta protocol.Meta) {
	err := publishEvent(ctx, a.backend, a.keys, a.gameID, msg, meta, a.clock.Now(), a.config.ProtocolVersion)
	if err != nil {
		a.logger.Warn().Err(err).Str("message_type", msg.Type()).Msg("Failed to publish event")
	}
}

// publishEvent wraps msg in an event envelope on the game's events channel
func publishEvent(ctx context.Context, pub broker.Publisher, keys Keys, gameID string, msg protocol.Message, meta protocol.Meta, now time.Time, version string) error {
	ev, err := protocol.NewEvent(gameID, msg, meta, now, version)
	if err != nil {
		return fmt.Errorf("build event: %w", err)
	}
	data, err := protocol.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return pub.Publish(ctx, keys.Events(gameID), data)
}

func optionalPlayer(id int) *int {
	if id == game.NoPlayer {
		return nil
	}
	return &id
}
