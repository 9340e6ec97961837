package airdroperrors

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsTransient reports whether err looks like a network-level failure that another endpoint
// might not have. Contract reverts are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if CodeOf(err) != "" {
		return CategoryOf(err) == Transient
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "execution reverted") ||
		strings.Contains(errStr, "invalid opcode") {
		return false
	}

	// Rate limiting
	if strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "-32005") ||
		strings.Contains(errStr, "rate limit") {
		return true
	}

	// Transport
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "no response") ||
		strings.Contains(errStr, "eof") {
		return true
	}

	// Gateway and node-side hiccups
	if strings.Contains(errStr, "502 bad gateway") ||
		strings.Contains(errStr, "503 service unavailable") ||
		strings.Contains(errStr, "504 gateway") ||
		strings.Contains(errStr, "header not found") ||
		strings.Contains(errStr, "missing trie node") {
		return true
	}

	return false
}

// ClassifySignerError maps an error returned by a wallet or signer into a tagged error.
// Errors that are already tagged are returned unchanged.
func ClassifySignerError(err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "user rejected"),
		strings.Contains(errStr, "user denied"),
		strings.Contains(errStr, "rejected the request"),
		strings.Contains(errStr, "request rejected"),
		strings.Contains(errStr, "4001"):
		return NewUserRejectedError(err)
	case strings.Contains(errStr, "insufficient funds"):
		return NewInsufficientFundsError(err)
	case strings.Contains(errStr, "execution reverted"),
		strings.Contains(errStr, "out of gas"):
		return NewTransactionRevertedError(common.Hash{}, err)
	default:
		return NewSignerFailureError(err)
	}
}
