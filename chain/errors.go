package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrVMError is the generic failure signal of a reverted call.
// Every *VMError matches it with errors.Is.
var ErrVMError = errors.New("VirtualMachineError: revert")

var (
	// ErrInvalidSender signals a transaction whose signature does not recover to From
	ErrInvalidSender = errors.New("transaction signature does not match sender")
	// ErrNoSigner signals transact options without a signer
	ErrNoSigner = errors.New("transact options have no signer")
	// ErrUnknownContract signals a call or lookup on an address with no contract
	ErrUnknownContract = errors.New("no contract at address")
	// ErrNoDeployment signals that no contract of a given name was deployed
	ErrNoDeployment = errors.New("contract not deployed")
	// ErrAccountIndex signals an account index outside the dev account range
	ErrAccountIndex = errors.New("account index out of range")
	// ErrChainIDMismatch signals a persisted state saved under another chain id
	ErrChainIDMismatch = errors.New("state chain id mismatch")
	// ErrReadOnly signals a state-changing operation inside a view
	ErrReadOnly = errors.New("state change in read-only call")
)

// VMError is a reverted contract call.
type VMError struct {
	Contract string         // name of the contract that reverted
	Address  common.Address // address of the contract that reverted
	Method   string         // top-level method of the transaction or view
	Reason   string
	err      error
}

func (e *VMError) Error() string {
	if e.Reason == "" {
		return ErrVMError.Error()
	}
	return fmt.Sprintf("%s: %s", ErrVMError.Error(), e.Reason)
}

// Is makes every VMError match ErrVMError
func (e *VMError) Is(target error) bool {
	return target == ErrVMError
}

// Unwrap returns the non-revert error that aborted execution, if any
func (e *VMError) Unwrap() error {
	return e.err
}

// Revert builds a VMError carrying reason
func Revert(reason string) *VMError {
	return &VMError{Reason: reason}
}

// asVMError converts any execution failure into a *VMError
func asVMError(err error) *VMError {
	var vmErr *VMError
	if errors.As(err, &vmErr) {
		return vmErr
	}
	return &VMError{Reason: err.Error(), err: err}
}

// RevertReason returns the revert reason carried by err, or "" when err is not a revert
func RevertReason(err error) string {
	var vmErr *VMError
	if errors.As(err, &vmErr) {
		return vmErr.Reason
	}
	return ""
}
