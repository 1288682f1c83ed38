package contracts

import "errors"

// Revert reasons
const (
	ReasonNotOwner            = "Ownable: caller is not the owner"
	ReasonZeroOwner           = "Ownable: new owner is the zero address"
	ReasonAmountZero          = "Amount must be more than 0"
	ReasonTokenNotAllowed     = "Token is currently no allowed"
	ReasonZeroStakingBalance  = "Staking balance cannot be 0"
	ReasonNoTokensStaked      = "No tokens staked!"
	ReasonPriceFeedNotSet     = "Price feed not set"
	ReasonInvalidPrice        = "Invalid price"
	ReasonOverflow            = "Integer overflow"
	ReasonIndexOutOfRange     = "Index out of range"
	ReasonNoRoundData         = "No data present"
	ReasonExceedsBalance      = "ERC20: transfer amount exceeds balance"
	ReasonInsufficientAllow   = "ERC20: insufficient allowance"
	ReasonTransferToZero      = "ERC20: transfer to the zero address"
	ReasonTransferFromZero    = "ERC20: transfer from the zero address"
	ReasonApproveToZero       = "ERC20: approve to the zero address"
	ReasonMintToZero          = "ERC20: mint to the zero address"
	ReasonIncompatibleAddress = "call to incompatible contract"
)

var (
	// ErrInvalidAmount signals a nil, negative or larger than 256 bit amount
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrWrongContract signals a binding to an address holding another contract type
	ErrWrongContract = errors.New("contract type mismatch")
	// ErrUnknownName signals a contract name the factory cannot build
	ErrUnknownName = errors.New("unknown contract name")
)
