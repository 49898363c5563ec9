package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// sqlStore holds the queries both SQL backends share. Queries are written
// with '?' placeholders and rebound for postgres.
type sqlStore struct {
	db       *sql.DB
	log      *zap.Logger
	numbered bool
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) bind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *sqlStore) StartSession(ctx context.Context, sess Session) (string, error) {
	if sess.SessionID == "" {
		sess.SessionID = newSessionID()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.bind(`
INSERT INTO bot_sessions (session_id, self_id, server_id, seed, brain, started_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
`), sess.SessionID, int64(sess.SelfID), int64(sess.ServerID), sess.Seed, sess.Brain, sess.StartedAt.UnixMilli())
	if err != nil {
		return "", err
	}
	return sess.SessionID, nil
}

func (s *sqlStore) AppendTick(sessionID string, tick TickItem) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	if tick.CreatedAtMs == 0 {
		tick.CreatedAtMs = time.Now().UTC().UnixMilli()
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.bind(`
INSERT INTO bot_ticks (session_id, seq, peer, phase, payload_b64, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, seq) DO NOTHING
`), sessionID, int64(tick.Seq), int64(tick.Peer), tick.Phase, tick.PayloadB64, tick.CreatedAtMs)
	if err != nil {
		s.log.Warn("append tick failed",
			zap.String("session", sessionID), zap.Uint64("seq", tick.Seq), zap.Error(err))
	}
}

func (s *sqlStore) AppendDecision(sessionID string, d DecisionItem) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	if d.CreatedAtMs == 0 {
		d.CreatedAtMs = time.Now().UTC().UnixMilli()
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.bind(`
INSERT INTO bot_decisions (session_id, seq, kind, reason, created_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (session_id, seq) DO NOTHING
`), sessionID, int64(d.Seq), d.Kind, d.Reason, d.CreatedAtMs)
	if err != nil {
		s.log.Warn("append decision failed",
			zap.String("session", sessionID), zap.Uint64("seq", d.Seq), zap.Error(err))
	}
}

func (s *sqlStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT session_id, self_id, server_id, seed, brain, started_at_ms
FROM bot_sessions
ORDER BY started_at_ms DESC, session_id DESC
LIMIT ?
`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Session, 0, limit)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, sess)
	}
	return items, rows.Err()
}

func (s *sqlStore) GetSession(ctx context.Context, sessionID string) (Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Session{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, s.bind(`
SELECT session_id, self_id, server_id, seed, brain, started_at_ms
FROM bot_sessions
WHERE session_id = ?
`), sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

func (s *sqlStore) GetTicks(ctx context.Context, sessionID string) ([]TickItem, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT seq, peer, phase, payload_b64, created_at_ms
FROM bot_ticks
WHERE session_id = ?
ORDER BY seq ASC
`), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]TickItem, 0, 128)
	for rows.Next() {
		var t TickItem
		var seq, peer int64
		if err := rows.Scan(&seq, &peer, &t.Phase, &t.PayloadB64, &t.CreatedAtMs); err != nil {
			return nil, err
		}
		t.Seq = uint64(seq)
		t.Peer = uint64(peer)
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *sqlStore) GetDecisions(ctx context.Context, sessionID string) ([]DecisionItem, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT seq, kind, reason, created_at_ms
FROM bot_decisions
WHERE session_id = ?
ORDER BY seq ASC
`), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]DecisionItem, 0, 128)
	for rows.Next() {
		var d DecisionItem
		var seq int64
		if err := rows.Scan(&seq, &d.Kind, &d.Reason, &d.CreatedAtMs); err != nil {
			return nil, err
		}
		d.Seq = uint64(seq)
		items = append(items, d)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var selfID, serverID, startedMs int64
	if err := row.Scan(&sess.SessionID, &selfID, &serverID, &sess.Seed, &sess.Brain, &startedMs); err != nil {
		return Session{}, err
	}
	sess.SelfID = uint64(selfID)
	sess.ServerID = uint64(serverID)
	sess.StartedAt = time.UnixMilli(startedMs).UTC()
	return sess, nil
}
