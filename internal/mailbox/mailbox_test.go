package mailbox

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/projector"
	sqlitestore "github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/types"
)

func newTestMailbox(t *testing.T) (*Mailbox, *sqlitestore.SQLiteStore) {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	log := eventlog.New(s, projector.New())
	return New(s, log), s
}

func registerAgent(t *testing.T, s *sqlitestore.SQLiteStore, log *eventlog.EventLog, projectKey, name string) {
	t.Helper()
	_, err := log.Append(context.Background(), projectKey, types.EventAgentRegistered,
		types.AgentRegisteredData{AgentName: name}, "")
	require.NoError(t, err)
}

func TestSend_RequiresRecipient(t *testing.T) {
	m, _ := newTestMailbox(t)
	_, err := m.Send(context.Background(), SendInput{ProjectKey: "p", From: "a", Subject: "s"})
	require.Error(t, err)
}

func TestSend_ThenInbox(t *testing.T) {
	m, s := newTestMailbox(t)
	log := eventlog.New(s, projector.New())
	registerAgent(t, s, log, "p", "worker-2")

	messageID, err := m.Send(context.Background(), SendInput{
		ProjectKey: "p", From: "worker-1", To: []string{"worker-2"}, Subject: "status", Body: "done",
	})
	require.NoError(t, err)
	require.NotEmpty(t, messageID)

	inbox, err := m.Inbox(context.Background(), "p", "worker-2", InboxOptions{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "status", inbox[0].Subject)
	assert.Empty(t, inbox[0].Body, "bodies are absent by default")
}

func TestInbox_NeverExceedsFiveEvenWhenLimitRequestsMore(t *testing.T) {
	m, s := newTestMailbox(t)
	log := eventlog.New(s, projector.New())
	registerAgent(t, s, log, "p", "worker-2")

	for i := 0; i < 8; i++ {
		_, err := m.Send(context.Background(), SendInput{
			ProjectKey: "p", From: "worker-1", To: []string{"worker-2"}, Subject: "s", Body: "b",
		})
		require.NoError(t, err)
	}

	inbox, err := m.Inbox(context.Background(), "p", "worker-2", InboxOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, inbox, 5)
}

func TestBroadcast_FansOutToAllRegisteredAgents(t *testing.T) {
	m, s := newTestMailbox(t)
	log := eventlog.New(s, projector.New())
	registerAgent(t, s, log, "p", "worker-2")
	registerAgent(t, s, log, "p", "worker-3")

	_, err := m.Send(context.Background(), SendInput{
		ProjectKey: "p", From: "worker-1", To: []string{Broadcast}, Subject: "all-hands", Body: "go",
	})
	require.NoError(t, err)

	for _, agent := range []string{"worker-2", "worker-3"} {
		inbox, err := m.Inbox(context.Background(), "p", agent, InboxOptions{})
		require.NoError(t, err)
		require.Len(t, inbox, 1)
	}
}

func TestRead_MarksReadAt(t *testing.T) {
	m, s := newTestMailbox(t)
	log := eventlog.New(s, projector.New())
	registerAgent(t, s, log, "p", "worker-2")

	messageID, err := m.Send(context.Background(), SendInput{
		ProjectKey: "p", From: "worker-1", To: []string{"worker-2"}, Subject: "s", Body: "full body",
	})
	require.NoError(t, err)

	body, err := m.Read(context.Background(), "p", messageID, "worker-2")
	require.NoError(t, err)
	assert.Equal(t, "full body", body.Body)

	inbox, err := m.Inbox(context.Background(), "p", "worker-2", InboxOptions{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func TestAck_RequiresExistingRecipient(t *testing.T) {
	m, _ := newTestMailbox(t)
	err := m.Ack(context.Background(), "p", "nope", "worker-2")
	require.Error(t, err)
}

func TestSummarizeThread_AggregatesWithoutSummarizer(t *testing.T) {
	m, s := newTestMailbox(t)
	log := eventlog.New(s, projector.New())
	registerAgent(t, s, log, "p", "worker-2")

	_, err := m.Send(context.Background(), SendInput{
		ProjectKey: "p", From: "worker-1", To: []string{"worker-2"}, Subject: "s", Body: "b", ThreadID: "t-1",
	})
	require.NoError(t, err)
	_, err = m.Send(context.Background(), SendInput{
		ProjectKey: "p", From: "worker-2", To: []string{"worker-1"}, Subject: "re: s", Body: "b2", ThreadID: "t-1",
	})
	require.NoError(t, err)

	summary, err := m.SummarizeThread(context.Background(), "p", "t-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MessageCount)
	assert.ElementsMatch(t, []string{"worker-1", "worker-2"}, summary.Participants)
	assert.Empty(t, summary.Prose)
}
