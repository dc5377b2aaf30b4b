// Package types defines the shared data model for swarmhive: the event
// envelope and every entity a Projector materializes from it (agents,
// messages, reservations, cells, dependencies, decision traces, memories,
// locks). Storage backends and components all speak this vocabulary, the
// way the teacher's internal/types package anchors the whole tree.
package types

import (
	"encoding/json"
	"time"
)

// EventType is the closed, versioned union of event kinds a project's log
// may contain. Unknown values round-trip as opaque JSON (spec §3, §4.3).
type EventType string

const (
	EventAgentRegistered   EventType = "agent_registered"
	EventAgentActive       EventType = "agent_active"
	EventMessageSent       EventType = "message_sent"
	EventMessageRead       EventType = "message_read"
	EventMessageAcked      EventType = "message_acked"
	EventFileReserved      EventType = "file_reserved"
	EventFileReleased      EventType = "file_released"
	EventCellCreated       EventType = "cell_created"
	EventCellUpdated       EventType = "cell_updated"
	EventCellStatusChanged EventType = "cell_status_changed"
	EventCellClosed        EventType = "cell_closed"
	EventEpicCreated       EventType = "epic_created"
	EventDependencyAdded   EventType = "dependency_added"
	EventDependencyRemoved EventType = "dependency_removed"
	EventSwarmCheckpointed EventType = "swarm_checkpointed"
	EventDecisionRecorded  EventType = "decision_recorded"
	EventMemoryStored      EventType = "memory_stored"
	EventMemoryUpdated     EventType = "memory_updated"
	EventMemoryDeleted     EventType = "memory_deleted"
	EventMemoryValidated   EventType = "memory_validated"
	EventMemoryFound       EventType = "memory_found"
	EventMemoryEntitiesLinked EventType = "memory_entities_linked"
)

// IsDecisionEvent reports whether the type belongs to the decision-trace
// family, mirroring the teacher's EventType.IsDecisionEvent used to route
// decision events to agent-scoped subjects.
func (t EventType) IsDecisionEvent() bool {
	return t == EventDecisionRecorded
}

// Known reports whether t is part of the closed union understood by the
// current Projector. Unknown types are still appended and stored verbatim;
// the projector simply skips them (spec §4.3).
func (t EventType) Known() bool {
	switch t {
	case EventAgentRegistered, EventAgentActive, EventMessageSent, EventMessageRead,
		EventMessageAcked, EventFileReserved, EventFileReleased, EventCellCreated,
		EventCellUpdated, EventCellStatusChanged, EventCellClosed, EventEpicCreated,
		EventDependencyAdded, EventDependencyRemoved, EventSwarmCheckpointed,
		EventDecisionRecorded, EventMemoryStored, EventMemoryUpdated, EventMemoryDeleted,
		EventMemoryValidated, EventMemoryFound, EventMemoryEntitiesLinked:
		return true
	default:
		return false
	}
}

// Event is the atomic unit of state change in a project's log (spec §3).
// Data carries the type-specific payload as raw JSON so the log never needs
// to know every payload shape; the Projector decodes it per type.
type Event struct {
	ID            int64           `json:"id"`
	ProjectKey    string          `json:"project_key"`
	Type          EventType       `json:"type"`
	TimestampMs   int64           `json:"timestamp_ms"`
	Data          json.RawMessage `json:"data"`
	IdempotencyID string          `json:"idempotency_id,omitempty"`
}

// Sequence returns the event's monotonic id, which doubles as its sequence
// number within a project's total order (spec §3).
func (e *Event) Sequence() int64 { return e.ID }

// Time returns the event timestamp as a time.Time in UTC.
func (e *Event) Time() time.Time {
	return time.UnixMilli(e.TimestampMs).UTC()
}

// --- Per-type payloads (spec §6 wire-level schemas) ---

type AgentRegisteredData struct {
	AgentName       string `json:"agent_name"`
	Program         string `json:"program,omitempty"`
	Model           string `json:"model,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
}

type AgentActiveData struct {
	AgentName string `json:"agent_name"`
}

type MessageSentData struct {
	MessageID    string   `json:"message_id"`
	FromAgent    string   `json:"from_agent"`
	ToAgents     []string `json:"to_agents"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	ThreadID     string   `json:"thread_id,omitempty"`
	Importance   string   `json:"importance,omitempty"`
	AckRequired  bool     `json:"ack_required,omitempty"`
	CreatedAtMs  int64    `json:"created_at_ms"`
}

type MessageReadData struct {
	MessageID string `json:"message_id"`
	AgentName string `json:"agent_name"`
}

type MessageAckedData struct {
	MessageID string `json:"message_id"`
	AgentName string `json:"agent_name"`
}

type FileReservedData struct {
	ReservationIDs []string `json:"reservation_ids"`
	AgentName      string   `json:"agent_name"`
	Paths          []string `json:"paths"`
	Exclusive      bool     `json:"exclusive"`
	TTLSeconds     int      `json:"ttl_seconds"`
	ExpiresAtMs    int64    `json:"expires_at"`
	Reason         string   `json:"reason,omitempty"`
}

type FileReleasedData struct {
	AgentName      string   `json:"agent_name"`
	Paths          []string `json:"paths,omitempty"`
	ReservationIDs []string `json:"reservation_ids,omitempty"`
	ReleaseAll     bool     `json:"release_all,omitempty"`
	TargetAgent    string   `json:"target_agent,omitempty"`
	Expired        bool     `json:"expired,omitempty"`
}

type CellCreatedData struct {
	CellID      string `json:"cell_id"`
	Title       string `json:"title"`
	IssueType   string `json:"issue_type"`
	Priority    int    `json:"priority"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

type CellUpdatedData struct {
	CellID string                 `json:"cell_id"`
	Patch  map[string]interface{} `json:"patch"`
}

type CellStatusChangedData struct {
	CellID     string `json:"cell_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
}

type CellClosedData struct {
	CellID string `json:"cell_id"`
	Reason string `json:"reason,omitempty"`
}

type EpicCreatedData struct {
	EpicID       string   `json:"epic_id"`
	Title        string   `json:"title"`
	SubtaskCount int      `json:"subtask_count"`
	SubtaskIDs   []string `json:"subtask_ids"`
}

type DependencyAddedData struct {
	CellID       string `json:"cell_id"`
	DependsOnID  string `json:"depends_on_id"`
	Relationship string `json:"relationship"`
}

type DependencyRemovedData struct {
	CellID       string `json:"cell_id"`
	DependsOnID  string `json:"depends_on_id"`
	Relationship string `json:"relationship"`
}

type SwarmCheckpointedData struct {
	EpicID       string                 `json:"epic_id"`
	BeadID       string                 `json:"bead_id"`
	Strategy     string                 `json:"strategy"`
	Files        []string               `json:"files"`
	Dependencies []int                  `json:"dependencies"`
	Directives   string                 `json:"directives,omitempty"`
	Recovery     map[string]interface{} `json:"recovery,omitempty"`
}

type DecisionRecordedData struct {
	DecisionID   string                 `json:"decision_id"`
	DecisionType string                 `json:"decision_type"`
	AgentName    string                 `json:"agent_name"`
	ProjectKey   string                 `json:"project_key,omitempty"`
	EpicID       string                 `json:"epic_id,omitempty"`
	BeadID       string                 `json:"bead_id,omitempty"`
	Decision     map[string]interface{} `json:"decision"`
	Rationale    string                 `json:"rationale,omitempty"`
	Inputs       map[string]interface{} `json:"inputs_gathered,omitempty"`
	Policy       map[string]interface{} `json:"policy_evaluated,omitempty"`
	Alternatives []map[string]interface{} `json:"alternatives,omitempty"`
	Precedent    []map[string]interface{} `json:"precedent_cited,omitempty"`
	Links        []EntityLinkData       `json:"links,omitempty"`
	QualityScore float64                `json:"quality_score,omitempty"`
}

// EntityLinkData is the payload shape for a link attached to a decision
// event (spec §3 EntityLink).
type EntityLinkData struct {
	ToEntityType string  `json:"to_entity_type"`
	ToEntityID   string  `json:"to_entity_id"`
	LinkType     string  `json:"link_type"`
	Strength     float64 `json:"strength"`
}

type MemoryStoredData struct {
	MemoryID       string   `json:"memory_id"`
	Content        string   `json:"content"`
	ContentPreview string   `json:"content_preview"`
	Tags           []string `json:"tags,omitempty"`
	Collection     string   `json:"collection,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
	DecayTier      string   `json:"decay_tier,omitempty"`
	Embedding      []float32 `json:"embedding,omitempty"`
}

type MemoryUpdatedData struct {
	MemoryID string                 `json:"memory_id"`
	Patch    map[string]interface{} `json:"patch"`
}

type MemoryDeletedData struct {
	MemoryID string `json:"memory_id"`
}

type MemoryValidatedData struct {
	MemoryID string `json:"memory_id"`
}

type MemoryFoundData struct {
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
}

// ExtractedEntity is one SKOS-style entity an Extractor found in a memory's
// content (spec §4.8).
type ExtractedEntity struct {
	PrefLabel string   `json:"pref_label"`
	AltLabels []string `json:"alt_labels,omitempty"`
}

// ExtractedRelation names at most one SKOS edge between the source label and
// a related memory or entity label; exactly one field is normally set.
type ExtractedRelation struct {
	Broader string `json:"broader,omitempty"`
	Narrower string `json:"narrower,omitempty"`
	Related string `json:"related,omitempty"`
}

type MemoryEntitiesLinkedData struct {
	MemoryID  string              `json:"memory_id"`
	Entities  []ExtractedEntity   `json:"entities,omitempty"`
	Relations []ExtractedRelation `json:"relations,omitempty"`
}
