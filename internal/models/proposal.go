package models

import "time"

type ProposalStatus string

const (
	ProposalProposed ProposalStatus = "PROPOSED"
	ProposalApplied  ProposalStatus = "APPLIED"
	ProposalRejected ProposalStatus = "REJECTED"
)

// ActionProposal records the lifecycle of an action block emitted by the
// coach inside an assistant message. The payload is kept raw and only
// parsed at approval time. Fingerprint is the SHA-256 of message id plus
// payload; the unique index makes re-interpreting the same message a
// no-op and approval idempotent.
type ActionProposal struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	MessageID   string         `gorm:"column:message_id;type:uuid;index" json:"message_id"`
	Payload     string         `gorm:"column:payload;type:text" json:"payload"`
	Fingerprint string         `gorm:"column:fingerprint;type:text;uniqueIndex" json:"-"`
	Status      ProposalStatus `gorm:"column:status;type:text;index" json:"status"`
	Result      string         `gorm:"column:result;type:text" json:"result,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	ResolvedAt  *time.Time     `gorm:"column:resolved_at;type:timestamptz" json:"resolved_at,omitempty"`
}

func (ActionProposal) TableName() string { return "action_proposals" }
