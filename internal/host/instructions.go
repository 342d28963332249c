package host

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
	"github.com/dirtybits/agent-reputation-oracle/internal/ledger"
)

type handler func(l *ledger.Ledger, caller string, args json.RawMessage) error

type fundArgs struct {
	Recipient string `json:"recipient"`
	Lamports  uint64 `json:"lamports"`
}

type withdrawArgs struct {
	Lamports uint64 `json:"lamports"`
}

type registerArgs struct {
	MetadataURI string `json:"metadataUri"`
}

type vouchArgs struct {
	Vouchee     string `json:"vouchee"`
	StakeAmount uint64 `json:"stakeAmount"`
}

type vouchRef struct {
	Vouch string `json:"vouch"`
}

type disputeArgs struct {
	Vouch    string `json:"vouch"`
	Evidence string `json:"evidence"`
}

type rulingArgs struct {
	Dispute string          `json:"dispute"`
	Ruling  m.DisputeRuling `json:"ruling"`
}

type listingRef struct {
	Listing string `json:"listing"`
}

type repriceArgs struct {
	Listing       string `json:"listing"`
	PriceLamports uint64 `json:"priceLamports"`
}

var handlers = map[string]handler{
	"initializeConfig": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a ledger.ConfigParams
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.InitializeConfig(caller, a)
	},
	"updateConfig": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a ledger.ConfigParams
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.UpdateConfig(caller, a)
	},
	"fund": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a fundArgs
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.Fund(caller, a.Recipient, a.Lamports)
	},
	"withdrawTreasury": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a withdrawArgs
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.WithdrawTreasury(caller, a.Lamports)
	},
	"registerAgent": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a registerArgs
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.RegisterAgent(caller, a.MetadataURI)
	},
	"vouch": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a vouchArgs
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.CreateVouch(caller, a.Vouchee, a.StakeAmount)
	},
	"revokeVouch": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a vouchRef
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.RevokeVouch(caller, a.Vouch)
	},
	"openDispute": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a disputeArgs
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.OpenDispute(caller, a.Vouch, a.Evidence)
	},
	"resolveDispute": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a rulingArgs
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.ResolveDispute(caller, a.Dispute, a.Ruling)
	},
	"createSkillListing": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a ledger.ListingParams
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.CreateSkillListing(caller, a)
	},
	"updateSkillPrice": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a repriceArgs
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.UpdateSkillPrice(caller, a.Listing, a.PriceLamports)
	},
	"delistSkill": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a listingRef
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.DelistSkill(caller, a.Listing)
	},
	"purchaseSkill": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a listingRef
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.PurchaseSkill(caller, a.Listing)
	},
	"claimRevenue": func(l *ledger.Ledger, caller string, raw json.RawMessage) error {
		var a vouchRef
		if err := decode(raw, &a); err != nil {
			return err
		}
		return l.ClaimRevenue(caller, a.Vouch)
	},
}

// Instructions returns the names Submit accepts, sorted.
func Instructions() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decode rejects unknown fields so a misspelled argument is not silently
// zero.
func decode(raw json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArgs, err.Error())
	}
	return nil
}
