// Package domain – enumerated values and stage ordering.
//
// The string constants here mirror the CHECK constraints declared on the
// models. Deal stages are ordered; MergeStage implements the monotonic
// advance rule used whenever the reply generator suggests a stage.
package domain

// Tenant lifecycle.
const (
	TenantPending = "pending"
	TenantActive  = "active"
)

// User roles.
const (
	RoleSuperadmin  = "superadmin"
	RoleTenantAdmin = "tenant_admin"
	RoleAgent       = "agent"
)

// OTP kinds.
const (
	OTPKindEmail = "email"
	OTPKindPhone = "phone"
)

// Messaging channels.
const (
	ChannelWhatsApp  = "whatsapp"
	ChannelMessenger = "messenger"
	ChannelInstagram = "instagram"
	ChannelUnknown   = "unknown"
)

// Message directions.
const (
	DirectionIn     = "in"
	DirectionOut    = "out"
	DirectionSystem = "system"
)

// Deal stages, in funnel order.
const (
	StageNew       = "new"
	StageQualified = "qualified"
	StageOrder     = "order"
	StageClosed    = "closed"
)

// Deal statuses.
const (
	DealOpen   = "open"
	DealClosed = "closed"
)

// stageRank orders the sales funnel. Unknown stages rank below "new" so a
// malformed suggestion can never advance a deal.
var stageRank = map[string]int{
	StageNew:       1,
	StageQualified: 2,
	StageOrder:     3,
	StageClosed:    4,
}

// KnownChannel reports whether ch is one of the supported inbound channels.
func KnownChannel(ch string) bool {
	switch ch {
	case ChannelWhatsApp, ChannelMessenger, ChannelInstagram:
		return true
	}
	return false
}

// ValidStage reports whether s is one of the defined deal stages.
func ValidStage(s string) bool {
	_, ok := stageRank[s]
	return ok
}

// StageRank returns the funnel position of s, or 0 when s is not a stage.
func StageRank(s string) int { return stageRank[s] }

// MergeStage applies the monotonic stage policy: the suggestion is taken
// only when it ranks strictly above the current stage. A deal never regresses
// from this signal.
func MergeStage(current, suggested string) string {
	if stageRank[suggested] > stageRank[current] {
		return suggested
	}
	return current
}
