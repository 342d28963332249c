package ledger

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Kind tags an account type. It is both the derivation tag and the composite
// key object type, so every account of a kind can be scanned by prefix.
type Kind string

const (
	KindConfig   Kind = "config"
	KindAgent    Kind = "agent"
	KindVouch    Kind = "vouch"
	KindDispute  Kind = "dispute"
	KindSkill    Kind = "skill"
	KindPurchase Kind = "purchase"
	KindBalance  Kind = "balance"
	KindTreasury Kind = "treasury"
)

var Kinds = []Kind{
	KindConfig, KindAgent, KindVouch, KindDispute,
	KindSkill, KindPurchase, KindBalance, KindTreasury,
}

func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Derive returns the deterministic address of an account: keccak256 over the
// kind tag followed by each seed, every part length-prefixed so that distinct
// seed lists never hash the same input.
func Derive(kind Kind, seeds ...string) string {
	h := sha3.NewLegacyKeccak256()
	var lenbuf [4]byte
	write := func(b []byte) {
		binary.BigEndian.PutUint32(lenbuf[:], uint32(len(b)))
		h.Write(lenbuf[:])
		h.Write(b)
	}
	write([]byte(kind))
	for _, s := range seeds {
		write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func ConfigAddress() string { return Derive(KindConfig) }

func TreasuryAddress() string { return Derive(KindTreasury) }

func AgentAddress(identity string) string { return Derive(KindAgent, identity) }

func BalanceAddress(identity string) string { return Derive(KindBalance, identity) }

// VouchAddress derives from both profile addresses, so there is one record
// per ordered (voucher, vouchee) pair.
func VouchAddress(voucherProfile, voucheeProfile string) string {
	return Derive(KindVouch, voucherProfile, voucheeProfile)
}

func DisputeAddress(vouch string) string { return Derive(KindDispute, vouch) }

func SkillAddress(author, skillID string) string {
	return Derive(KindSkill, author, skillID)
}

func PurchaseAddress(buyer, listing string) string {
	return Derive(KindPurchase, buyer, listing)
}
