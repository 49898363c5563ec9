package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"nerts-lite/apps/bot/internal/codec"
	"nerts-lite/apps/bot/internal/ledger"
	"nerts-lite/apps/bot/internal/transport"
	"nerts-lite/nerts"
	"nerts-lite/nerts/autoplay"
	"nerts-lite/protocol"
)

func (b *Bot) receiveLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if n, ok := b.transport.Available(transport.ChannelClient); ok && n > len(buf) {
			buf = make([]byte, n)
		}
		peer, n, ok, err := b.transport.Receive(transport.ChannelClient, buf)
		if err != nil {
			if errors.Is(err, io.ErrShortBuffer) {
				continue
			}
			return err
		}
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveIdleSleep):
			}
			continue
		}
		if peer != b.opts.ServerID {
			b.log.Debug("ignoring packet from foreign peer", zap.Uint64("peer", peer), zap.Int("bytes", n))
			continue
		}
		if err := b.HandlePacket(peer, buf[:n]); err != nil {
			return err
		}
	}
}

// HandlePacket runs one inbound payload through the frame decoder, the
// snapshot decoder and the state model. The game state is untouched on every
// error path; the retained frame advances whenever the frame reconstructs. A desync only requests a key frame; other errors are returned
// when FailFast is set and otherwise dropped with a log line.
func (b *Bot) HandlePacket(peer uint64, payload []byte) error {
	b.mu.Lock()
	b.recvSeq++
	seq := b.recvSeq
	sessionID := b.sessionID
	label, view, err := b.applyLocked(payload)
	if err != nil && protocol.IsDesync(err) {
		b.state.Intent.SendKeyFrame = true
	}
	b.mu.Unlock()

	b.ledger.AppendTick(sessionID, ledger.TickItem{
		Seq:        seq,
		Peer:       peer,
		Phase:      label,
		PayloadB64: encodePayload(payload),
	})

	switch {
	case err == nil:
		b.publish(view)
		return nil
	case protocol.IsDesync(err):
		b.log.Warn("frame desync, requesting key frame", zap.Uint64("seq", seq), zap.Error(err))
		b.signalSend()
		return nil
	default:
		b.log.Error("dropping tick", zap.Uint64("seq", seq), zap.String("stage", label), zap.Error(err))
		if b.opts.FailFast && nerts.IsFatal(err) {
			return err
		}
		return nil
	}
}

// applyLocked returns a label for the ledger: the resulting phase on
// success, otherwise the stage that failed.
func (b *Bot) applyLocked(payload []byte) (string, codec.View, error) {
	raw, err := b.decoder.Decode(payload)
	if err != nil {
		if protocol.IsDesync(err) {
			return "desync", codec.View{}, err
		}
		return "frame_error", codec.View{}, err
	}
	// The server diffs its next frame against what it sent, so the base moves
	// even when this tick is rejected below.
	b.decoder.Commit(raw)

	msg, err := protocol.DecodeServerMessage(raw)
	if err != nil {
		return "format_error", codec.View{}, err
	}
	if err := b.state.Update(msg); err != nil {
		return "update_error", codec.View{}, err
	}
	b.notifyLocked()
	return b.state.Phase.String(), codec.Snapshot(b.state, b.state.Ticks, b.lastDecision), nil
}

func (b *Bot) publish(v codec.View) {
	b.publisherMu.RLock()
	p := b.publisher
	b.publisherMu.RUnlock()
	if p != nil {
		p.Publish(v)
	}
}

func (b *Bot) sendLoop(ctx context.Context) error {
	ticker := time.NewTicker(b.opts.SendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.sendNow:
		case <-ticker.C:
		}

		b.mu.Lock()
		msg := b.state.TakeIntent()
		b.mu.Unlock()

		if err := b.transport.Send(ctx, b.opts.ServerID, transport.ChannelServer, msg.Encode()); err != nil {
			if errors.Is(err, transport.ErrTransportClosed) || ctx.Err() != nil {
				return err
			}
			b.log.Warn("send failed", zap.Error(err))
		}
	}
}

func (b *Bot) decideLoop(ctx context.Context) error {
	lastTicks := ^uint64(0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.mu.Lock()
		ticks := b.state.Ticks
		b.mu.Unlock()
		// deciding twice on the same snapshot only repeats the last plan
		if ticks == lastTicks {
			b.waitTick(ctx, b.opts.IdleTimeout)
		}

		b.mu.Lock()
		lastTicks = b.state.Ticks
		b.logBoardLocked()
		plan := b.brain.Decide(b.state)
		b.mu.Unlock()
		b.recordDecision(plan)

		if plan.Kind == autoplay.ActionWaitPlayers {
			b.waitTick(ctx, b.opts.IdleTimeout)
			continue
		}
		b.runPlan(ctx, plan)
	}
}

func (b *Bot) runPlan(ctx context.Context, plan autoplay.Plan) {
	for i, step := range plan.Steps {
		b.mu.Lock()
		step.Intent.Apply(b.state)
		b.mu.Unlock()
		if !step.Intent.Empty() {
			b.signalSend()
		}
		if step.Until == nil {
			continue
		}
		if !b.WaitUntil(ctx, step.Until, b.opts.WaitTimeout) {
			if ctx.Err() == nil {
				b.log.Debug("step timed out, re-evaluating",
					zap.Stringer("kind", plan.Kind), zap.Int("step", i))
			}
			return
		}
	}
}

// recordDecision journals a plan unless it repeats the previous one.
func (b *Bot) recordDecision(plan autoplay.Plan) {
	d := &codec.DecisionView{Kind: plan.Kind.String(), Reason: plan.Reason}

	b.mu.Lock()
	if b.lastDecision != nil && *b.lastDecision == *d {
		b.mu.Unlock()
		return
	}
	b.lastDecision = d
	b.decisionSeq++
	seq := b.decisionSeq
	sessionID := b.sessionID
	b.mu.Unlock()

	b.log.Info("decision", zap.Uint64("seq", seq), zap.Stringer("kind", plan.Kind), zap.String("reason", plan.Reason))
	b.ledger.AppendDecision(sessionID, ledger.DecisionItem{Seq: seq, Kind: d.Kind, Reason: d.Reason})
}

func (b *Bot) logBoardLocked() {
	if b.opts.BoardLogInterval <= 0 || b.state.Phase != nerts.PhasePlay {
		return
	}
	now := time.Now()
	if now.Sub(b.lastBoardLog) < b.opts.BoardLogInterval {
		return
	}
	b.lastBoardLog = now

	var sb strings.Builder
	if err := nerts.Render(&sb, b.state, false); err != nil {
		b.log.Warn("render board failed", zap.Error(err))
		return
	}
	b.log.Info("board", zap.Uint64("tick", b.state.Ticks), zap.String("board", sb.String()))
}
