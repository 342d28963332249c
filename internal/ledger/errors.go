package ledger

// ErrorClass classifies a rejected instruction.
type ErrorClass string

const (
	ClassValidation   ErrorClass = "validation"
	ClassPrecondition ErrorClass = "precondition"
	ClassResource     ErrorClass = "resource"
	ClassNotFound     ErrorClass = "not_found"
)

// Error is a typed instruction failure. Sentinels are compared with
// errors.Is; a failed instruction leaves no writes behind.
type Error struct {
	Code    string
	Class   ErrorClass
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func newError(class ErrorClass, code, msg string) *Error {
	return &Error{Code: code, Class: class, Message: msg}
}

var (
	ErrAlreadyInitialized     = newError(ClassValidation, "AlreadyInitialized", "ledger config already initialized")
	ErrInvalidSlashPercentage = newError(ClassValidation, "InvalidSlashPercentage", "slash percentage must be between 0 and 100")
	ErrInvalidCooldown        = newError(ClassValidation, "InvalidCooldown", "cooldown period must not be negative")
	ErrInvalidAmount          = newError(ClassValidation, "InvalidAmount", "amount must be greater than zero")
	ErrNotAuthority           = newError(ClassValidation, "NotAuthority", "caller is not the config authority")
	ErrAlreadyRegistered      = newError(ClassValidation, "AlreadyRegistered", "agent already registered")
	ErrMetadataURITooLong     = newError(ClassValidation, "MetadataUriTooLong", "metadata URI is too long")
	ErrBelowMinimumStake      = newError(ClassValidation, "BelowMinimumStake", "stake amount is below minimum")
	ErrSelfVouch              = newError(ClassValidation, "SelfVouch", "cannot vouch for yourself")
	ErrAlreadyVouched         = newError(ClassValidation, "AlreadyVouched", "vouch already exists for this pair")
	ErrNotVoucher             = newError(ClassValidation, "NotVoucher", "caller is not the voucher")
	ErrEvidenceURITooLong     = newError(ClassValidation, "EvidenceUriTooLong", "evidence URI is too long")
	ErrInvalidRuling          = newError(ClassValidation, "InvalidRuling", "unknown dispute ruling")
	ErrDuplicateSkillID       = newError(ClassValidation, "DuplicateSkillId", "skill listing already exists for this id")
	ErrInvalidSkillID         = newError(ClassValidation, "InvalidSkillId", "skill id must be non-empty and at most 32 bytes")
	ErrSkillURITooLong        = newError(ClassValidation, "SkillUriTooLong", "skill URI is too long")
	ErrNameTooLong            = newError(ClassValidation, "NameTooLong", "name is too long")
	ErrDescriptionTooLong     = newError(ClassValidation, "DescriptionTooLong", "description is too long")
	ErrPriceMustBePositive    = newError(ClassValidation, "PriceMustBePositive", "price must be greater than zero")
	ErrNotAuthor              = newError(ClassValidation, "NotAuthor", "caller is not the listing author")
	ErrAlreadyPurchased       = newError(ClassValidation, "AlreadyPurchased", "skill already purchased by this buyer")

	ErrConfigNotInitialized = newError(ClassPrecondition, "ConfigNotInitialized", "ledger config not initialized")
	ErrNotRegistered        = newError(ClassPrecondition, "NotRegistered", "agent not registered")
	ErrVoucheeNotRegistered = newError(ClassPrecondition, "VoucheeNotRegistered", "vouchee not registered")
	ErrCooldownActive       = newError(ClassPrecondition, "CooldownActive", "vouch cooldown has not elapsed")
	ErrVouchNotActive       = newError(ClassPrecondition, "VouchNotActive", "vouch is not active")
	ErrDisputeNotOpen       = newError(ClassPrecondition, "DisputeNotOpen", "dispute is not open")
	ErrListingNotActive     = newError(ClassPrecondition, "ListingNotActive", "skill listing is not active")
	ErrNothingToClaim       = newError(ClassPrecondition, "NothingToClaim", "no revenue to claim")

	ErrInsufficientFunds = newError(ClassResource, "InsufficientFunds", "insufficient funds")
	ErrAmountOverflow    = newError(ClassResource, "AmountOverflow", "amount overflows the account balance")

	ErrVouchNotFound    = newError(ClassNotFound, "VouchNotFound", "vouch not found")
	ErrDisputeNotFound  = newError(ClassNotFound, "DisputeNotFound", "dispute not found")
	ErrListingNotFound  = newError(ClassNotFound, "ListingNotFound", "skill listing not found")
	ErrPurchaseNotFound = newError(ClassNotFound, "PurchaseNotFound", "purchase not found")
	ErrAccountNotFound  = newError(ClassNotFound, "AccountNotFound", "account not found")
)
