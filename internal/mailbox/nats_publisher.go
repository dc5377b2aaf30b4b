package mailbox

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes broadcast sends to a NATS subject for
// out-of-process notification. This is optional infrastructure: the event
// log remains authoritative, and publish failures are logged, never
// propagated (mirrors the teacher's eventbus.Bus.publishToJetStream).
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher wraps an already-connected *nats.Conn. A nil conn makes
// Publish a no-op, so callers can wire it unconditionally.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

type broadcastMessage struct {
	MessageID string   `json:"message_id"`
	From      string   `json:"from_agent"`
	To        []string `json:"to_agents"`
	Subject   string   `json:"subject"`
	ThreadID  string   `json:"thread_id,omitempty"`
}

// Publish fire-and-forgets a broadcast notification to hive.mail.<project>.
func (p *NATSPublisher) Publish(projectKey, messageID string, in SendInput) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(broadcastMessage{
		MessageID: messageID, From: in.From, To: in.To, Subject: in.Subject, ThreadID: in.ThreadID,
	})
	if err != nil {
		log.Printf("mailbox: encode broadcast notification: %v", err)
		return
	}
	subject := fmt.Sprintf("hive.mail.%s", projectKey)
	if err := p.conn.Publish(subject, data); err != nil {
		log.Printf("mailbox: publish to %s: %v", subject, err)
	}
}
