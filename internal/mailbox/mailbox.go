// Package mailbox implements per-agent messaging: send, bounded inbox
// fetch, read/ack tracking, and thread summarization (spec §4.4).
package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/store"
	"github.com/swarmhive/swarmhive/internal/types"
)

// Broadcast is the recipient token that fans a message out to every
// currently-registered agent in the project at send time (spec §4.4).
const Broadcast = "*"

// Mailbox sends and reads messages for one project.
type Mailbox struct {
	db  store.Store
	log *eventlog.EventLog
	nats *NATSPublisher
}

// New builds a Mailbox over db, appending through log.
func New(db store.Store, log *eventlog.EventLog) *Mailbox {
	return &Mailbox{db: db, log: log}
}

// WithNATS attaches an optional broadcast notifier. Returns m for chaining.
func (m *Mailbox) WithNATS(publisher *NATSPublisher) *Mailbox {
	m.nats = publisher
	return m
}

// SendInput is the payload for Send.
type SendInput struct {
	ProjectKey  string
	From        string
	To          []string
	Subject     string
	Body        string
	ThreadID    string
	Importance  types.Importance
	AckRequired bool
}

// Send appends a message_sent event, broadcasting to every registered agent
// when To contains "*" (spec §4.4).
func (m *Mailbox) Send(ctx context.Context, in SendInput) (string, error) {
	if in.From == "" || in.Subject == "" || len(in.To) == 0 {
		return "", errs.New("Mailbox.Send", errs.ErrValidation, "from, subject, and at least one recipient are required")
	}
	importance := in.Importance
	if importance == "" {
		importance = types.ImportanceNormal
	}
	if !importance.Valid() {
		return "", errs.New("Mailbox.Send", errs.ErrValidation, fmt.Sprintf("invalid importance %q", importance))
	}

	recipients, err := m.resolveRecipients(ctx, in.ProjectKey, in.To)
	if err != nil {
		return "", err
	}

	messageID := uuid.NewString()
	now := time.Now()
	_, err = m.log.Append(ctx, in.ProjectKey, types.EventMessageSent, types.MessageSentData{
		MessageID: messageID, FromAgent: in.From, ToAgents: recipients, Subject: in.Subject, Body: in.Body,
		ThreadID: in.ThreadID, Importance: string(importance), AckRequired: in.AckRequired,
		CreatedAtMs: now.UnixMilli(),
	}, "")
	if err != nil {
		return "", errs.Wrap("Mailbox.Send", errs.ErrIO, err)
	}

	for _, r := range in.To {
		if r == Broadcast {
			m.nats.Publish(in.ProjectKey, messageID, in)
			break
		}
	}
	return messageID, nil
}

func (m *Mailbox) resolveRecipients(ctx context.Context, projectKey string, to []string) ([]string, error) {
	broadcast := false
	var direct []string
	for _, r := range to {
		if r == Broadcast {
			broadcast = true
			continue
		}
		direct = append(direct, r)
	}
	if !broadcast {
		return direct, nil
	}

	rows, err := m.db.Query(ctx, `SELECT name FROM agents WHERE project_key = ?`, projectKey)
	if err != nil {
		return nil, errs.Wrap("Mailbox.Send", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var all []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.Wrap("Mailbox.Send", errs.ErrIO, err)
		}
		all = append(all, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("Mailbox.Send", errs.ErrIO, err)
	}
	return all, nil
}

// Header is a lightweight message summary returned by Inbox (spec §4.4:
// bodies absent unless explicitly requested).
type Header struct {
	MessageID   string
	FromAgent   string
	Subject     string
	ThreadID    string
	Importance  types.Importance
	AckRequired bool
	CreatedAt   time.Time
	ReadAt      *time.Time
	AckedAt     *time.Time
}

// InboxOptions narrows Inbox's result set.
type InboxOptions struct {
	Limit         int
	UnreadOnly    bool
	IncludeBodies bool
}

// Body is returned only when IncludeBodies is set.
type Body struct {
	Header
	Body string
}

// Inbox returns at most InboxHardCap headers for agent, newest first. The
// cap cannot be raised by any caller-supplied limit (spec §4.4, §5).
func (m *Mailbox) Inbox(ctx context.Context, projectKey, agent string, opts InboxOptions) ([]Body, error) {
	limit := opts.Limit
	if limit <= 0 || limit > config.InboxHardCap {
		limit = config.GetInboxMaxLimit()
	}

	query := `
		SELECT msg.id, msg.from_agent, msg.subject, msg.body, msg.thread_id, msg.importance,
			msg.ack_required, msg.created_at, mr.read_at, mr.acked_at
		FROM messages msg
		JOIN message_recipients mr ON mr.message_id = msg.id
		WHERE msg.project_key = ? AND mr.agent_name = ?
	`
	args := []interface{}{projectKey, agent}
	if opts.UnreadOnly {
		query += ` AND mr.read_at IS NULL`
	}
	query += ` ORDER BY msg.created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := m.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap("Mailbox.Inbox", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var results []Body
	for rows.Next() {
		var (
			b                    Body
			body, createdAt      string
			importance           string
			readAt, ackedAt      *string
			threadID             *string
		)
		if err := rows.Scan(&b.MessageID, &b.FromAgent, &b.Subject, &body, &threadID, &importance,
			&b.AckRequired, &createdAt, &readAt, &ackedAt); err != nil {
			return nil, errs.Wrap("Mailbox.Inbox", errs.ErrIO, err)
		}
		if threadID != nil {
			b.ThreadID = *threadID
		}
		b.Importance = types.Importance(importance)
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		b.ReadAt = parseTimePtr(readAt)
		b.AckedAt = parseTimePtr(ackedAt)
		if opts.IncludeBodies {
			b.Body = body
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("Mailbox.Inbox", errs.ErrIO, err)
	}
	return results, nil
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

// Read fetches one message's body and marks it read for agent.
func (m *Mailbox) Read(ctx context.Context, projectKey, messageID, agent string) (Body, error) {
	var b Body
	var body, createdAt, importance string
	var readAt, ackedAt, threadID *string
	err := m.db.QueryRow(ctx, `
		SELECT msg.from_agent, msg.subject, msg.body, msg.thread_id, msg.importance,
			msg.ack_required, msg.created_at, mr.read_at, mr.acked_at
		FROM messages msg
		JOIN message_recipients mr ON mr.message_id = msg.id
		WHERE msg.project_key = ? AND msg.id = ? AND mr.agent_name = ?
	`, projectKey, messageID, agent).Scan(&b.FromAgent, &b.Subject, &body, &threadID, &importance,
		&b.AckRequired, &createdAt, &readAt, &ackedAt)
	if err != nil {
		return Body{}, errs.NotFound("Mailbox.Read", "message", messageID)
	}
	b.MessageID = messageID
	if threadID != nil {
		b.ThreadID = *threadID
	}
	b.Body = body
	b.Importance = types.Importance(importance)
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.ReadAt = parseTimePtr(readAt)
	b.AckedAt = parseTimePtr(ackedAt)

	if b.ReadAt == nil {
		if _, err := m.log.Append(ctx, projectKey, types.EventMessageRead, types.MessageReadData{
			MessageID: messageID, AgentName: agent,
		}, ""); err != nil {
			return Body{}, errs.Wrap("Mailbox.Read", errs.ErrIO, err)
		}
	}
	return b, nil
}

// Ack marks a message acknowledged by agent.
func (m *Mailbox) Ack(ctx context.Context, projectKey, messageID, agent string) error {
	var exists int
	if err := m.db.QueryRow(ctx, `
		SELECT COUNT(message_id) FROM message_recipients WHERE message_id = ? AND agent_name = ?
	`, messageID, agent).Scan(&exists); err != nil {
		return errs.Wrap("Mailbox.Ack", errs.ErrIO, err)
	}
	if exists == 0 {
		return errs.NotFound("Mailbox.Ack", "message", messageID)
	}
	_, err := m.log.Append(ctx, projectKey, types.EventMessageAcked, types.MessageAckedData{
		MessageID: messageID, AgentName: agent,
	}, "")
	if err != nil {
		return errs.Wrap("Mailbox.Ack", errs.ErrIO, err)
	}
	return nil
}

// ThreadSummary aggregates a thread without necessarily reading every body.
type ThreadSummary struct {
	ThreadID     string
	MessageCount int
	Participants []string
	LastActivity time.Time
	Prose        string
}

// Summarizer produces a prose summary of a thread's messages, pluggable so
// callers can wire an LLM-backed implementation (spec §4.4 llmMode).
type Summarizer interface {
	Summarize(ctx context.Context, threadID string, bodies []Body) (string, error)
}

// SummarizeThread aggregates thread metadata and, when summarizer is
// non-nil, a prose summary (spec §4.4).
func (m *Mailbox) SummarizeThread(ctx context.Context, projectKey, threadID string, summarizer Summarizer) (ThreadSummary, error) {
	rows, err := m.db.Query(ctx, `
		SELECT msg.id, msg.from_agent, msg.subject, msg.body, msg.importance, msg.ack_required, msg.created_at
		FROM messages msg
		WHERE msg.project_key = ? AND msg.thread_id = ?
		ORDER BY msg.created_at ASC
	`, projectKey, threadID)
	if err != nil {
		return ThreadSummary{}, errs.Wrap("Mailbox.SummarizeThread", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	summary := ThreadSummary{ThreadID: threadID}
	seen := map[string]bool{}
	var bodies []Body
	for rows.Next() {
		var b Body
		var createdAt, importance string
		if err := rows.Scan(&b.MessageID, &b.FromAgent, &b.Subject, &b.Body, &importance, &b.AckRequired, &createdAt); err != nil {
			return ThreadSummary{}, errs.Wrap("Mailbox.SummarizeThread", errs.ErrIO, err)
		}
		b.Importance = types.Importance(importance)
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		b.ThreadID = threadID
		if !seen[b.FromAgent] {
			seen[b.FromAgent] = true
			summary.Participants = append(summary.Participants, b.FromAgent)
		}
		summary.MessageCount++
		if b.CreatedAt.After(summary.LastActivity) {
			summary.LastActivity = b.CreatedAt
		}
		bodies = append(bodies, b)
	}
	if err := rows.Err(); err != nil {
		return ThreadSummary{}, errs.Wrap("Mailbox.SummarizeThread", errs.ErrIO, err)
	}

	if summarizer != nil && len(bodies) > 0 {
		prose, err := summarizer.Summarize(ctx, threadID, bodies)
		if err != nil {
			return ThreadSummary{}, errs.Wrap("Mailbox.SummarizeThread", errs.ErrIO, err)
		}
		summary.Prose = prose
	}
	return summary, nil
}
