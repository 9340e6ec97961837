package airdroperrors

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("poll: %w", NewConfirmationTimeoutError(common.HexToHash("0x01"), 30))

	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.NotErrorIs(t, err, ErrSignatureTimeout)
	assert.Equal(t, Timeout, CategoryOf(err))
	assert.Equal(t, CodeConfirmationTimeout, CodeOf(err))
}

func TestCategoryOfUntagged(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Fatal, CategoryOf(errors.New("boom")))
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "invalid token",
			err:  NewInvalidTokenError(common.HexToAddress("0x1111111111111111111111111111111111111111"), nil),
			want: "Invalid token address: 0x1111111111111111111111111111111111111111. Please check if this is a valid ERC20 token on Base network.",
		},
		{
			name: "allowance not effective",
			err:  NewAllowanceNotEffectiveError(big.NewInt(5), big.NewInt(10)),
			want: "Insufficient allowance after approval. Current: 5, Required: 10",
		},
		{
			name: "all endpoints with cause",
			err:  NewAllEndpointsUnavailableError(3, errors.New("429 Too Many Requests")),
			want: "all 3 RPC endpoints failed: 429 Too Many Requests",
		},
		{
			name: "signature timeout",
			err:  NewSignatureTimeoutError("approve", 2*time.Minute),
			want: "Transaction request timeout: approve not signed within 2m0s",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("probe: %w", context.DeadlineExceeded), want: true},
		{name: "rate limited", err: errors.New("429 Too Many Requests: {}"), want: true},
		{name: "limit exceeded code", err: errors.New("json-rpc error -32005 limit exceeded"), want: true},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"), want: true},
		{name: "bad gateway", err: errors.New("502 Bad Gateway: upstream"), want: true},
		{name: "revert", err: errors.New("execution reverted: ERC20: insufficient allowance"), want: false},
		{name: "plain", err: errors.New("abi: cannot unmarshal"), want: false},
		{name: "tagged transient", err: NewAllEndpointsUnavailableError(2, nil), want: true},
		{name: "tagged fatal", err: NewInvalidInputError("bad"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassifySignerError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		want     *Error
		category Category
	}{
		{
			name:     "metamask rejection",
			err:      errors.New("User rejected the request."),
			want:     ErrUserRejected,
			category: UserRejected,
		},
		{
			name:     "eip-1193 code",
			err:      errors.New("code 4001: request rejected"),
			want:     ErrUserRejected,
			category: UserRejected,
		},
		{
			name:     "insufficient funds",
			err:      errors.New("insufficient funds for gas * price + value"),
			want:     ErrInsufficientFunds,
			category: Fatal,
		},
		{
			name:     "revert",
			err:      errors.New("execution reverted: AmountTooLarge"),
			want:     ErrTransactionReverted,
			category: Fatal,
		},
		{
			name:     "other",
			err:      errors.New("keystore locked"),
			want:     ErrSignerFailure,
			category: Fatal,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifySignerError(tt.err)
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.want)
			assert.Equal(t, tt.category, CategoryOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	t.Run("already tagged", func(t *testing.T) {
		t.Parallel()
		in := NewSignatureTimeoutError("approve", time.Second)
		assert.Same(t, in, ClassifySignerError(in))
	})
}
