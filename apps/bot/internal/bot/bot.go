package bot

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nerts-lite/apps/bot/internal/codec"
	"nerts-lite/apps/bot/internal/ledger"
	"nerts-lite/apps/bot/internal/transport"
	"nerts-lite/nerts"
	"nerts-lite/nerts/autoplay"
	"nerts-lite/protocol"
)

const (
	defaultSendInterval = 100 * time.Millisecond
	defaultWaitTimeout  = 5 * time.Second
	defaultIdleTimeout  = time.Second
	receiveIdleSleep    = 10 * time.Millisecond
)

type Options struct {
	SelfID   uint64
	ServerID uint64
	Seed     int64

	SendInterval     time.Duration
	WaitTimeout      time.Duration
	IdleTimeout      time.Duration
	BoardLogInterval time.Duration

	// FailFast turns format, classification and invariant errors into a
	// shutdown instead of a dropped tick.
	FailFast bool
}

func (o *Options) applyDefaults() {
	if o.SendInterval <= 0 {
		o.SendInterval = defaultSendInterval
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = defaultWaitTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = defaultIdleTimeout
	}
}

// Publisher receives a spectator view after every applied tick.
type Publisher interface {
	Publish(v codec.View)
}

// Bot is the shared aggregate of the three loops. Everything below mu is
// touched only with mu held.
type Bot struct {
	opts      Options
	transport transport.Transport
	brain     autoplay.Brain
	ledger    ledger.Service
	log       *zap.Logger

	publisherMu sync.RWMutex
	publisher   Publisher

	sendNow chan struct{}

	mu           sync.Mutex
	state        *nerts.GameState
	decoder      *protocol.FrameDecoder
	updated      chan struct{}
	sessionID    string
	recvSeq      uint64
	decisionSeq  uint64
	lastDecision *codec.DecisionView
	lastBoardLog time.Time
}

func New(opts Options, tr transport.Transport, brain autoplay.Brain, led ledger.Service, log *zap.Logger) *Bot {
	opts.applyDefaults()
	if brain == nil {
		brain = autoplay.NewRuleBrain(opts.Seed)
	}
	if led == nil {
		led, _, _ = ledger.NewService(ledger.Options{Mode: ledger.ModeMemory}, nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		opts:      opts,
		transport: tr,
		brain:     brain,
		ledger:    led,
		log:       log.Named("bot"),
		sendNow:   make(chan struct{}, 1),
		state:     nerts.NewGameState(opts.SelfID),
		decoder:   protocol.NewFrameDecoder(),
		updated:   make(chan struct{}),
	}
}

func (b *Bot) SetPublisher(p Publisher) {
	b.publisherMu.Lock()
	b.publisher = p
	b.publisherMu.Unlock()
}

// SessionID is the ledger session opened by Start.
func (b *Bot) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// Start opens the ledger session and asks the server for a key frame and
// for us to be marked ready, as a freshly joined client does.
func (b *Bot) Start(ctx context.Context) error {
	id, err := b.ledger.StartSession(ctx, ledger.Session{
		SelfID:   b.opts.SelfID,
		ServerID: b.opts.ServerID,
		Seed:     b.opts.Seed,
		Brain:    b.brain.Name(),
	})
	if err != nil {
		return fmt.Errorf("start ledger session: %w", err)
	}

	b.mu.Lock()
	b.sessionID = id
	b.state.Intent.SendKeyFrame = true
	b.state.Intent.MakeReady = true
	b.mu.Unlock()
	b.signalSend()

	b.log.Info("session started",
		zap.String("session", id),
		zap.Uint64("self", b.opts.SelfID),
		zap.Uint64("server", b.opts.ServerID),
		zap.String("brain", b.brain.Name()))
	return nil
}

// Run starts the session and drives the receive, send and decide loops until
// ctx is cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.receiveLoop(gctx) })
	g.Go(func() error { return b.sendLoop(gctx) })
	g.Go(func() error { return b.decideLoop(gctx) })

	err := g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// WithState runs fn with the state lock held.
func (b *Bot) WithState(fn func(s *nerts.GameState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.state)
}

// View implements gateway.StateSource.
func (b *Bot) View() codec.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return codec.Snapshot(b.state, b.state.Ticks, b.lastDecision)
}

func (b *Bot) signalSend() {
	select {
	case b.sendNow <- struct{}{}:
	default:
	}
}

// notifyLocked wakes every WaitUntil. Callers hold mu.
func (b *Bot) notifyLocked() {
	close(b.updated)
	b.updated = make(chan struct{})
}

// WaitUntil blocks until pred holds on the state, the timeout expires or ctx
// ends. The predicate is re-checked after every applied tick.
func (b *Bot) WaitUntil(ctx context.Context, pred func(*nerts.GameState) bool, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		b.mu.Lock()
		if pred(b.state) {
			b.mu.Unlock()
			return true
		}
		ch := b.updated
		b.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// waitTick blocks until the next applied tick or the timeout.
func (b *Bot) waitTick(ctx context.Context, timeout time.Duration) {
	b.mu.Lock()
	ch := b.updated
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func encodePayload(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}
