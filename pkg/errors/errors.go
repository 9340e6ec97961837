// Package airdroperrors defines the tagged errors surfaced by the airdrop core.
//
// Every error carries a Category so callers can decide how to present or retry it
// without matching on message text, and a Code identifying the concrete failure.
package airdroperrors

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Category groups errors by how a caller should react to them.
type Category int

const (
	// Fatal errors stop the run and must not be retried with the same input.
	Fatal Category = iota
	// Transient errors come from the network and are retried internally up to a bound.
	Transient
	// UserRejected errors mean the wallet owner declined a request.
	UserRejected
	// Timeout errors mean a bounded wait elapsed; the underlying action may still complete later.
	Timeout
)

func (c Category) String() string {
	switch c {
	case Fatal:
		return "fatal"
	case Transient:
		return "transient"
	case UserRejected:
		return "user_rejected"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Code identifies a concrete failure.
type Code string

const (
	CodeInvalidInput            Code = "invalid_input"
	CodeAllEndpointsUnavailable Code = "all_endpoints_unavailable"
	CodeWrongNetwork            Code = "wrong_network"
	CodeInvalidToken            Code = "invalid_token"
	CodeAllowanceNotEffective   Code = "allowance_not_effective"
	CodeSignatureTimeout        Code = "signature_timeout"
	CodeConfirmationTimeout     Code = "confirmation_timeout"
	CodeUserRejected            Code = "user_rejected"
	CodeInsufficientFunds       Code = "insufficient_funds"
	CodeTransactionReverted     Code = "transaction_reverted"
	CodeSignerFailure           Code = "signer_failure"
)

// Error is the tagged error type returned across package boundaries.
type Error struct {
	Category Category
	Code     Code
	Message  string
	Err      error
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrInvalidInput            = &Error{Code: CodeInvalidInput}
	ErrAllEndpointsUnavailable = &Error{Code: CodeAllEndpointsUnavailable}
	ErrWrongNetwork            = &Error{Code: CodeWrongNetwork}
	ErrInvalidToken            = &Error{Code: CodeInvalidToken}
	ErrAllowanceNotEffective   = &Error{Code: CodeAllowanceNotEffective}
	ErrSignatureTimeout        = &Error{Code: CodeSignatureTimeout}
	ErrConfirmationTimeout     = &Error{Code: CodeConfirmationTimeout}
	ErrUserRejected            = &Error{Code: CodeUserRejected}
	ErrInsufficientFunds       = &Error{Code: CodeInsufficientFunds}
	ErrTransactionReverted     = &Error{Code: CodeTransactionReverted}
	ErrSignerFailure           = &Error{Code: CodeSignerFailure}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CategoryOf returns the category of the first tagged error in err's chain.
// Untagged errors are Fatal.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return Fatal
}

// CodeOf returns the code of the first tagged error in err's chain, or an empty code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NewInvalidInputError reports malformed caller input.
func NewInvalidInputError(format string, args ...any) *Error {
	return &Error{
		Category: Fatal,
		Code:     CodeInvalidInput,
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewAllEndpointsUnavailableError reports that every configured endpoint failed within one pass.
func NewAllEndpointsUnavailableError(attempts int, lastErr error) *Error {
	return &Error{
		Category: Transient,
		Code:     CodeAllEndpointsUnavailable,
		Message:  fmt.Sprintf("all %d RPC endpoints failed", attempts),
		Err:      lastErr,
	}
}

// NewWrongNetworkError reports that the signer is not on the required chain.
func NewWrongNetworkError(current, required *big.Int, err error) *Error {
	return &Error{
		Category: Fatal,
		Code:     CodeWrongNetwork,
		Message:  fmt.Sprintf("signer is on chain %v, chain %v is required", current, required),
		Err:      err,
	}
}

// NewInvalidTokenError reports a token whose metadata could not be read.
func NewInvalidTokenError(token common.Address, err error) *Error {
	return &Error{
		Category: Fatal,
		Code:     CodeInvalidToken,
		Message: fmt.Sprintf("Invalid token address: %s. Please check if this is a valid ERC20 token on Base network.",
			token.Hex()),
		Err: err,
	}
}

// NewAllowanceNotEffectiveError reports a confirmed approval that did not raise the allowance enough.
func NewAllowanceNotEffectiveError(current, required *big.Int) *Error {
	return &Error{
		Category: Fatal,
		Code:     CodeAllowanceNotEffective,
		Message:  fmt.Sprintf("Insufficient allowance after approval. Current: %v, Required: %v", current, required),
	}
}

// NewSignatureTimeoutError reports a signature request that was not answered in time.
func NewSignatureTimeoutError(method string, after time.Duration) *Error {
	return &Error{
		Category: Timeout,
		Code:     CodeSignatureTimeout,
		Message:  fmt.Sprintf("Transaction request timeout: %s not signed within %s", method, after),
	}
}

// NewConfirmationTimeoutError reports a transaction whose receipt was not observed within the poll bound.
func NewConfirmationTimeoutError(hash common.Hash, attempts int) *Error {
	return &Error{
		Category: Timeout,
		Code:     CodeConfirmationTimeout,
		Message:  fmt.Sprintf("Transaction confirmation timeout: %s not found after %d attempts", hash.Hex(), attempts),
	}
}

// NewUserRejectedError reports a request declined by the wallet owner.
func NewUserRejectedError(err error) *Error {
	return &Error{
		Category: UserRejected,
		Code:     CodeUserRejected,
		Message:  "Transaction cancelled by user",
		Err:      err,
	}
}

// NewInsufficientFundsError reports a signer without enough native balance for gas.
func NewInsufficientFundsError(err error) *Error {
	return &Error{
		Category: Fatal,
		Code:     CodeInsufficientFunds,
		Message:  "Insufficient funds for gas",
		Err:      err,
	}
}

// NewTransactionRevertedError reports a reverted simulation or a mined receipt with failed status.
func NewTransactionRevertedError(hash common.Hash, err error) *Error {
	msg := "transaction reverted"
	if hash != (common.Hash{}) {
		msg = fmt.Sprintf("transaction %s reverted", hash.Hex())
	}
	return &Error{
		Category: Fatal,
		Code:     CodeTransactionReverted,
		Message:  msg,
		Err:      err,
	}
}

// NewSignerFailureError wraps any other signer error.
func NewSignerFailureError(err error) *Error {
	return &Error{
		Category: Fatal,
		Code:     CodeSignerFailure,
		Message:  "signer request failed",
		Err:      err,
	}
}
