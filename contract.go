package main

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/v2/contractapi"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
	"github.com/dirtybits/agent-reputation-oracle/internal/ledger"
)

// OracleContract exposes the ledger instructions as chaincode transactions.
// The caller of every instruction is the submitting client's identity.
type OracleContract struct {
	contractapi.Contract
}

func caller(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("client identity: %w", err)
	}
	return id, nil
}

// run executes one instruction for the calling client.
func run(ctx contractapi.TransactionContextInterface, fn func(l *ledger.Ledger, caller string) error) error {
	id, err := caller(ctx)
	if err != nil {
		return err
	}
	return fn(ledger.New(ctx.GetStub()), id)
}

func (oc *OracleContract) InitializeConfig(ctx contractapi.TransactionContextInterface,
	minStake uint64, disputeBond uint64, slashPercentage uint8, cooldownPeriod int64) error {
	return run(ctx, func(l *ledger.Ledger, id string) error {
		return l.InitializeConfig(id, ledger.ConfigParams{
			MinStake:        minStake,
			DisputeBond:     disputeBond,
			SlashPercentage: slashPercentage,
			CooldownPeriod:  cooldownPeriod,
		})
	})
}

func (oc *OracleContract) UpdateConfig(ctx contractapi.TransactionContextInterface,
	minStake uint64, disputeBond uint64, slashPercentage uint8, cooldownPeriod int64) error {
	return run(ctx, func(l *ledger.Ledger, id string) error {
		return l.UpdateConfig(id, ledger.ConfigParams{
			MinStake:        minStake,
			DisputeBond:     disputeBond,
			SlashPercentage: slashPercentage,
			CooldownPeriod:  cooldownPeriod,
		})
	})
}

func (oc *OracleContract) Fund(ctx contractapi.TransactionContextInterface, recipient string, lamports uint64) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.Fund(id, recipient, lamports) })
}

func (oc *OracleContract) WithdrawTreasury(ctx contractapi.TransactionContextInterface, lamports uint64) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.WithdrawTreasury(id, lamports) })
}

func (oc *OracleContract) RegisterAgent(ctx contractapi.TransactionContextInterface, metadataURI string) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.RegisterAgent(id, metadataURI) })
}

func (oc *OracleContract) Vouch(ctx contractapi.TransactionContextInterface, vouchee string, stakeAmount uint64) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.CreateVouch(id, vouchee, stakeAmount) })
}

func (oc *OracleContract) RevokeVouch(ctx contractapi.TransactionContextInterface, vouch string) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.RevokeVouch(id, vouch) })
}

func (oc *OracleContract) OpenDispute(ctx contractapi.TransactionContextInterface, vouch string, evidence string) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.OpenDispute(id, vouch, evidence) })
}

// ResolveDispute takes the ruling as SlashVoucher or DismissDispute.
func (oc *OracleContract) ResolveDispute(ctx contractapi.TransactionContextInterface, dispute string, ruling string) error {
	return run(ctx, func(l *ledger.Ledger, id string) error {
		return l.ResolveDispute(id, dispute, m.DisputeRuling(ruling))
	})
}

func (oc *OracleContract) CreateSkillListing(ctx contractapi.TransactionContextInterface,
	skillID string, skillURI string, name string, description string, priceLamports uint64) error {
	return run(ctx, func(l *ledger.Ledger, id string) error {
		return l.CreateSkillListing(id, ledger.ListingParams{
			SkillID:       skillID,
			SkillURI:      skillURI,
			Name:          name,
			Description:   description,
			PriceLamports: priceLamports,
		})
	})
}

func (oc *OracleContract) UpdateSkillPrice(ctx contractapi.TransactionContextInterface, listing string, priceLamports uint64) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.UpdateSkillPrice(id, listing, priceLamports) })
}

func (oc *OracleContract) DelistSkill(ctx contractapi.TransactionContextInterface, listing string) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.DelistSkill(id, listing) })
}

func (oc *OracleContract) PurchaseSkill(ctx contractapi.TransactionContextInterface, listing string) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.PurchaseSkill(id, listing) })
}

func (oc *OracleContract) ClaimRevenue(ctx contractapi.TransactionContextInterface, vouch string) error {
	return run(ctx, func(l *ledger.Ledger, id string) error { return l.ClaimRevenue(id, vouch) })
}

// GetAgent returns the profile registered for identity.
func (oc *OracleContract) GetAgent(ctx contractapi.TransactionContextInterface, identity string) (*m.AgentProfile, error) {
	return ledger.New(ctx.GetStub()).Agent(identity)
}

func (oc *OracleContract) GetReputation(ctx contractapi.TransactionContextInterface, identity string) (uint64, error) {
	p, err := ledger.New(ctx.GetStub()).Agent(identity)
	if err != nil {
		return 0, err
	}
	return p.ReputationScore, nil
}

// ClientIdentity returns the caller's ledger identity, which other agents
// pass as vouchee or recipient.
func (oc *OracleContract) ClientIdentity(ctx contractapi.TransactionContextInterface) (string, error) {
	return caller(ctx)
}

// Derive returns the address of the account of kind with the given seeds.
func (oc *OracleContract) Derive(ctx contractapi.TransactionContextInterface, kind string, seeds []string) (string, error) {
	k, ok := ledger.ParseKind(kind)
	if !ok {
		return "", fmt.Errorf("unknown account kind %q", kind)
	}
	return ledger.Derive(k, seeds...), nil
}

// FetchAccount returns the JSON encoded account of kind at address.
func (oc *OracleContract) FetchAccount(ctx contractapi.TransactionContextInterface, kind string, address string) (string, error) {
	k, ok := ledger.ParseKind(kind)
	if !ok {
		return "", fmt.Errorf("unknown account kind %q", kind)
	}
	raw, err := ledger.New(ctx.GetStub()).Fetch(k, address)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ListAccounts returns a JSON array of the accounts of kind matching every
// filter. filters is a JSON object of field to value, and may be empty.
func (oc *OracleContract) ListAccounts(ctx contractapi.TransactionContextInterface, kind string, filters string) (string, error) {
	k, ok := ledger.ParseKind(kind)
	if !ok {
		return "", fmt.Errorf("unknown account kind %q", kind)
	}
	var fs []ledger.Filter
	if filters != "" {
		var byField map[string]string
		if err := json.Unmarshal([]byte(filters), &byField); err != nil {
			return "", fmt.Errorf("unmarshal filters: %w", err)
		}
		for field, value := range byField {
			fs = append(fs, ledger.Filter{Field: field, Value: value})
		}
	}
	accounts, err := ledger.New(ctx.GetStub()).List(k, fs...)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(accounts)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(out), nil
}
