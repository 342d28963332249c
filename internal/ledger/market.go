package ledger

import (
	"errors"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// ListingParams describe a skill listing at creation.
type ListingParams struct {
	SkillID       string `json:"skillId"`
	SkillURI      string `json:"skillUri"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PriceLamports uint64 `json:"priceLamports"`
}

func (p ListingParams) validate() error {
	switch {
	case p.SkillID == "" || len(p.SkillID) > m.MaxSkillIDLen:
		return ErrInvalidSkillID
	case len(p.SkillURI) > m.MaxSkillURILen:
		return ErrSkillURITooLong
	case len(p.Name) > m.MaxSkillNameLen:
		return ErrNameTooLong
	case len(p.Description) > m.MaxSkillDescLen:
		return ErrDescriptionTooLong
	case p.PriceLamports == 0:
		return ErrPriceMustBePositive
	}
	return nil
}

// CreateSkillListing publishes a skill under the caller's profile.
func (l *Ledger) CreateSkillListing(caller string, p ListingParams) error {
	if _, err := l.Config(); err != nil {
		return err
	}
	if _, err := l.Agent(caller); err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	address := SkillAddress(caller, p.SkillID)
	ok, err := l.exists(KindSkill, address)
	if err != nil {
		return err
	}
	if ok {
		return ErrDuplicateSkillID
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	listing := &m.SkillListing{
		Address:       address,
		Author:        caller,
		SkillID:       p.SkillID,
		SkillURI:      p.SkillURI,
		Name:          p.Name,
		Description:   p.Description,
		PriceLamports: p.PriceLamports,
		Status:        m.SkillActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.store(KindSkill, address, listing); err != nil {
		return err
	}
	return l.emit(EventSkillListed, listing)
}

// PurchaseSkill charges the caller the listing price. The author is paid 60%
// immediately; the remaining 40% accrues to the author's vouchers pro rata to
// stake and is claimed with ClaimRevenue, or goes to the treasury when nobody
// vouches for the author.
func (l *Ledger) PurchaseSkill(caller, listingAddress string) error {
	if _, err := l.Config(); err != nil {
		return err
	}
	listing, err := l.SkillListing(listingAddress)
	if err != nil {
		return err
	}
	if listing.Status != m.SkillActive {
		return ErrListingNotActive
	}
	address := PurchaseAddress(caller, listing.Address)
	ok, err := l.exists(KindPurchase, address)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyPurchased
	}
	price := listing.PriceLamports
	s := l.sheet()
	ok, err = s.covers(caller, price)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}
	author, err := l.Agent(listing.Author)
	if err != nil {
		return err
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	authorShare, pool := splitPrice(price)
	if err := s.debit(caller, price); err != nil {
		return err
	}
	if err := s.credit(listing.Author, authorShare); err != nil {
		return err
	}
	credited, err := accrue(author, pool)
	if err != nil {
		return err
	}
	if err := s.toTreasury(pool - credited); err != nil {
		return err
	}
	distributed := credited > 0

	listing.TotalDownloads++
	listing.TotalRevenue += price
	listing.UpdatedAt = now
	purchase := &m.Purchase{
		Address:      address,
		Buyer:        caller,
		SkillListing: listing.Address,
		PricePaid:    price,
		AuthorShare:  authorShare,
		VoucherShare: pool,
		PurchasedAt:  now,
	}

	if err := l.storeAll(s, nil, author); err != nil {
		return err
	}
	if err := l.store(KindSkill, listing.Address, listing); err != nil {
		return err
	}
	if err := l.store(KindPurchase, address, purchase); err != nil {
		return err
	}
	return l.emit(EventSkillPurchased, PurchaseEvent{Purchase: purchase, Listing: listing, Distributed: distributed})
}

// UpdateSkillPrice changes the price of future purchases. Revenue already
// recorded is unaffected.
func (l *Ledger) UpdateSkillPrice(caller, listingAddress string, priceLamports uint64) error {
	listing, err := l.authorListing(caller, listingAddress)
	if err != nil {
		return err
	}
	if priceLamports == 0 {
		return ErrPriceMustBePositive
	}
	now, err := l.now()
	if err != nil {
		return err
	}
	listing.PriceLamports = priceLamports
	listing.UpdatedAt = now
	if err := l.store(KindSkill, listing.Address, listing); err != nil {
		return err
	}
	return l.emit(EventSkillRepriced, listing)
}

// DelistSkill stops further purchases of a listing. Purchases made earlier
// remain valid.
func (l *Ledger) DelistSkill(caller, listingAddress string) error {
	listing, err := l.authorListing(caller, listingAddress)
	if err != nil {
		return err
	}
	if listing.Status != m.SkillActive {
		return ErrListingNotActive
	}
	now, err := l.now()
	if err != nil {
		return err
	}
	listing.Status = m.SkillDelisted
	listing.UpdatedAt = now
	if err := l.store(KindSkill, listing.Address, listing); err != nil {
		return err
	}
	return l.emit(EventSkillDelisted, listing)
}

func (l *Ledger) authorListing(caller, listingAddress string) (*m.SkillListing, error) {
	if _, err := l.Config(); err != nil {
		return nil, err
	}
	listing, err := l.SkillListing(listingAddress)
	if err != nil {
		return nil, err
	}
	if listing.Author != caller {
		return nil, ErrNotAuthor
	}
	return listing, nil
}

// ClaimRevenue pays the voucher everything the vouch has earned from the
// vouchee's skill sales so far.
func (l *Ledger) ClaimRevenue(caller, vouchAddress string) error {
	if _, err := l.Config(); err != nil {
		return err
	}
	v, err := l.Vouch(vouchAddress)
	if err != nil {
		return err
	}
	voucherProfile, err := l.Agent(caller)
	if errors.Is(err, ErrNotRegistered) {
		return ErrNotVoucher
	}
	if err != nil {
		return err
	}
	if voucherProfile.Address != v.Voucher {
		return ErrNotVoucher
	}
	voucheeProfile, err := l.agentAt(v.Vouchee)
	if err != nil {
		return err
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	if err := settle(v, voucheeProfile, now); err != nil {
		return err
	}
	amount := v.UnclaimedRevenue
	if amount == 0 {
		return ErrNothingToClaim
	}
	if amount > voucheeProfile.RevenuePool {
		return ErrInsufficientFunds
	}
	voucheeProfile.RevenuePool -= amount
	voucheeProfile.RevenueOwed = subU64(voucheeProfile.RevenueOwed, amount)
	v.UnclaimedRevenue = 0

	s := l.sheet()
	if err := s.credit(caller, amount); err != nil {
		return err
	}
	if err := l.storeAll(s, v, voucheeProfile); err != nil {
		return err
	}
	return l.emit(EventRevenueClaimed, ClaimEvent{Vouch: v.Address, Voucher: caller, Lamports: amount})
}
