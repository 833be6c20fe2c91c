package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, sampling, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: identity creation, full document replacement.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: key material changes, identity deactivation.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled with shorter retention.
	// Examples: resolutions, history reads, service endpoint changes.
	CategoryOperations EventCategory = "operations"
)

// Event records one successful operation against an identity. The transport
// layer emits exactly one event per completed request; the core service never
// writes audit entries itself.
type Event struct {
	Category  EventCategory  `json:"category"`
	Timestamp time.Time      `json:"timestamp"`
	Principal id.PrincipalID `json:"principal_id,omitzero"`
	// Subject is the DID the operation acted on.
	Subject string `json:"subject"`
	Action  string `json:"action"`
	// Sequence is the version sequence after the operation; reads and
	// deactivation carry zero.
	Sequence  int64  `json:"sequence,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Store persists audit events. The Postgres implementation doubles as the
// transactional outbox the Kafka worker drains.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPrincipal(ctx context.Context, principal id.PrincipalID) ([]Event, error)
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// OutboxEntry is one undelivered event row handed to the outbox worker.
type OutboxEntry struct {
	ID    uuid.UUID
	Event Event
}

type AuditEvent string

const (
	EventIdentityCreated     AuditEvent = "identity_created"
	EventDocumentResolved    AuditEvent = "document_resolved"
	EventHistoryAccessed     AuditEvent = "history_accessed"
	EventDocumentReplaced    AuditEvent = "document_replaced"
	EventMethodAdded         AuditEvent = "verification_method_added"
	EventServiceAdded        AuditEvent = "service_added"
	EventServiceRemoved      AuditEvent = "service_removed"
	EventIdentityDeactivated AuditEvent = "identity_deactivated"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - the shape of an identity changed wholesale
	EventIdentityCreated:  CategoryCompliance,
	EventDocumentReplaced: CategoryCompliance,

	// Security events - key material and identity lifecycle
	EventMethodAdded:         CategorySecurity,
	EventIdentityDeactivated: CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventDocumentResolved: CategoryOperations,
	EventHistoryAccessed:  CategoryOperations,
	EventServiceAdded:     CategoryOperations,
	EventServiceRemoved:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
