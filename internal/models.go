package internal

import (
	"math"
	"math/bits"
)

const (
	// DefaultStakeWeight and DefaultVouchWeight are fixed at config initialization.
	DefaultStakeWeight = 1
	DefaultVouchWeight = 100

	MaxMetadataURILen   = 200
	MaxEvidenceURILen   = 200
	MaxSkillURILen      = 256
	MaxSkillNameLen     = 64
	MaxSkillDescLen     = 256
	MaxSkillIDLen       = 32
	MaxSlashPercentage  = 100
	AuthorSharePercent  = 60
	VoucherSharePercent = 100 - AuthorSharePercent
	LamportsPerSOL      = 1_000_000_000
)

type LedgerConfig struct {
	Address         string `json:"address"`
	Authority       string `json:"authority"`
	MinStake        uint64 `json:"minStake"`
	DisputeBond     uint64 `json:"disputeBond"`
	SlashPercentage uint8  `json:"slashPercentage"`
	CooldownPeriod  int64  `json:"cooldownPeriod"`
	StakeWeight     uint64 `json:"stakeWeight"`
	VouchWeight     uint64 `json:"vouchWeight"`
	InitializedAt   int64  `json:"initializedAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

type AgentProfile struct {
	Address              string `json:"address"`
	Authority            string `json:"authority"`
	MetadataURI          string `json:"metadataUri"`
	ReputationScore      uint64 `json:"reputationScore"`
	TotalStakedFor       uint64 `json:"totalStakedFor"`
	TotalVouchesReceived uint32 `json:"totalVouchesReceived"`
	TotalVouchesGiven    uint32 `json:"totalVouchesGiven"`
	DisputesWon          uint32 `json:"disputesWon"`
	DisputesLost         uint32 `json:"disputesLost"`
	RegisteredAt         int64  `json:"registeredAt"`

	// RevenuePerStake is the voucher revenue accumulator, a decimal string of a
	// 256-bit fixed point value scaled by ledger.RevenueScale.
	RevenuePerStake string `json:"revenuePerStake"`
	// RevenuePool holds voucher revenue accrued but not yet claimed.
	RevenuePool uint64 `json:"revenuePool"`
	// RevenueOwed is the part of RevenuePool already settled to vouches.
	RevenueOwed uint64 `json:"revenueOwed"`
}

// Reputation derives the score from live stake and vouch count. It saturates
// instead of wrapping.
func (p *AgentProfile) Reputation(cfg *LedgerConfig) uint64 {
	return satAdd(
		satMul(p.TotalStakedFor, cfg.StakeWeight),
		satMul(uint64(p.TotalVouchesReceived), cfg.VouchWeight),
	)
}

type VouchStatus string

const (
	VouchActive   VouchStatus = "Active"
	VouchRevoked  VouchStatus = "Revoked"
	VouchDisputed VouchStatus = "Disputed"
	VouchSlashed  VouchStatus = "Slashed"
)

// Counted reports whether a vouch in this status contributes to the vouchee's
// stake and vouch count.
func (s VouchStatus) Counted() bool {
	return s == VouchActive || s == VouchDisputed
}

// Terminal reports whether the record may be reset by a fresh vouch.
func (s VouchStatus) Terminal() bool {
	return s == VouchRevoked || s == VouchSlashed
}

type Vouch struct {
	Address     string      `json:"address"`
	Voucher     string      `json:"voucher"`
	Vouchee     string      `json:"vouchee"`
	StakeAmount uint64      `json:"stakeAmount"`
	CreatedAt   int64       `json:"createdAt"`
	Status      VouchStatus `json:"status"`

	CumulativeRevenue uint64 `json:"cumulativeRevenue"`
	UnclaimedRevenue  uint64 `json:"unclaimedRevenue"`
	RevenueDebt       string `json:"revenueDebt"`
	LastPayoutAt      int64  `json:"lastPayoutAt"`
}

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "Open"
	DisputeResolved DisputeStatus = "Resolved"
)

type DisputeRuling string

const (
	RulingSlashVoucher   DisputeRuling = "SlashVoucher"
	RulingDismissDispute DisputeRuling = "DismissDispute"
)

func (r DisputeRuling) Valid() bool {
	return r == RulingSlashVoucher || r == RulingDismissDispute
}

type Dispute struct {
	Address       string        `json:"address"`
	Vouch         string        `json:"vouch"`
	Challenger    string        `json:"challenger"`
	Evidence      string        `json:"evidence"`
	Bond          uint64        `json:"bond"`
	Status        DisputeStatus `json:"status"`
	Ruling        DisputeRuling `json:"ruling,omitempty"`
	SlashedAmount uint64        `json:"slashedAmount"`
	CreatedAt     int64         `json:"createdAt"`
	ResolvedAt    int64         `json:"resolvedAt,omitempty"`
}

type SkillStatus string

const (
	SkillActive   SkillStatus = "Active"
	SkillDelisted SkillStatus = "Delisted"
)

type SkillListing struct {
	Address        string      `json:"address"`
	Author         string      `json:"author"`
	SkillID        string      `json:"skillId"`
	SkillURI       string      `json:"skillUri"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	PriceLamports  uint64      `json:"priceLamports"`
	TotalDownloads uint64      `json:"totalDownloads"`
	TotalRevenue   uint64      `json:"totalRevenue"`
	Status         SkillStatus `json:"status"`
	CreatedAt      int64       `json:"createdAt"`
	UpdatedAt      int64       `json:"updatedAt"`
}

type Purchase struct {
	Address      string `json:"address"`
	Buyer        string `json:"buyer"`
	SkillListing string `json:"skillListing"`
	PricePaid    uint64 `json:"pricePaid"`
	AuthorShare  uint64 `json:"authorShare"`
	VoucherShare uint64 `json:"voucherShare"`
	PurchasedAt  int64  `json:"purchasedAt"`
}

// Balance is the free lamport balance of an identity.
type Balance struct {
	Address  string `json:"address"`
	Owner    string `json:"owner"`
	Lamports uint64 `json:"lamports"`
}

// Treasury collects slashed stake, forfeited bonds and unattributed voucher
// revenue.
type Treasury struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
}

func satAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
