package ledger

import (
	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

const (
	EventConfigInitialized = "ConfigInitialized"
	EventConfigUpdated     = "ConfigUpdated"
	EventFunded            = "Funded"
	EventTreasuryWithdrawn = "TreasuryWithdrawn"
	EventAgentRegistered   = "AgentRegistered"
	EventVouchCreated      = "VouchCreated"
	EventVouchRevoked      = "VouchRevoked"
	EventDisputeOpened     = "DisputeOpened"
	EventDisputeResolved   = "DisputeResolved"
	EventSkillListed       = "SkillListed"
	EventSkillRepriced     = "SkillRepriced"
	EventSkillDelisted     = "SkillDelisted"
	EventSkillPurchased    = "SkillPurchased"
	EventRevenueClaimed    = "RevenueClaimed"
)

type FundedEvent struct {
	Recipient string `json:"recipient"`
	Lamports  uint64 `json:"lamports"`
}

type VouchEvent struct {
	Vouch         *m.Vouch `json:"vouch"`
	VoucheeScore  uint64   `json:"voucheeScore"`
	ReturnedStake uint64   `json:"returnedStake,omitempty"`
}

type DisputeEvent struct {
	Dispute *m.Dispute `json:"dispute"`
	Vouch   *m.Vouch   `json:"vouch"`
}

type PurchaseEvent struct {
	Purchase *m.Purchase     `json:"purchase"`
	Listing  *m.SkillListing `json:"listing"`
	// Distributed is false when the author had no stake behind them and the
	// voucher share went to the treasury.
	Distributed bool `json:"distributed"`
}

type ClaimEvent struct {
	Vouch    string `json:"vouch"`
	Voucher  string `json:"voucher"`
	Lamports uint64 `json:"lamports"`
}
