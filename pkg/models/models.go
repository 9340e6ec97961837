package models

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/speedrun-hq/airdropper/pkg/amount"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
)

// MaxUint40 bounds recipient counts and timestamps stored by the distributor contract.
const MaxUint40 = 1<<40 - 1

// AirdropIntent is one submission request. It is built once per attempt and not mutated.
type AirdropIntent struct {
	Title              string      `json:"title" validate:"required,max=256"`
	TokenAddress       string      `json:"tokenAddress" validate:"required,eth_addr"`
	IsFungible         bool        `json:"isFungible"`
	TotalAmount        string      `json:"totalAmount" validate:"required"`
	RecipientCount     uint64      `json:"recipientCount" validate:"gt=0,max=1099511627775"`
	StartTime          int64       `json:"startTime" validate:"gte=0,max=1099511627775"`
	EndTime            int64       `json:"endTime" validate:"gtfield=StartTime,max=1099511627775"`
	MerkleRoot         common.Hash `json:"merkleRoot"`
	WhitelistContentID string      `json:"whitelistContentId"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the intent's own invariants. Checks needing the chain (token decimals,
// allowance) happen during submission.
func (i AirdropIntent) Validate() error {
	if err := getValidator().Struct(i); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" failed "+fe.Tag())
			}
			return airdroperrors.NewInvalidInputError("invalid airdrop: %s", strings.Join(fields, ", "))
		}
		return airdroperrors.NewInvalidInputError("invalid airdrop: %v", err)
	}

	// decimals are unknown here; 18 is enough to reject zero, negative and malformed amounts
	total, err := amount.ParseUnits(i.TotalAmount, 18)
	if err != nil {
		return err
	}
	if total.Sign() <= 0 {
		return airdroperrors.NewInvalidInputError("total amount must be greater than zero")
	}
	return nil
}

// Token returns the token address.
func (i AirdropIntent) Token() common.Address {
	return common.HexToAddress(i.TokenAddress)
}

// IsPublic reports whether the intent has no whitelist.
func (i AirdropIntent) IsPublic() bool {
	return i.MerkleRoot == (common.Hash{})
}

// Distribution mirrors the on-chain distribution record.
type Distribution struct {
	ID                 uint64         `json:"id"`
	Token              common.Address `json:"token"`
	IsFungible         bool           `json:"isFungible"`
	RecipientCount     uint64         `json:"recipientCount"`
	ClaimedCount       uint64         `json:"claimedCount"`
	AmountPerClaim     *big.Int       `json:"amountPerClaim"`
	StartTime          uint64         `json:"startTime"`
	EndTime            uint64         `json:"endTime"`
	Owner              common.Address `json:"owner"`
	RefundedAt         uint64         `json:"refundedAt"`
	MerkleRoot         common.Hash    `json:"merkleRoot"`
	Title              string         `json:"title"`
	WhitelistContentID string         `json:"whitelistContentId"`
}

// DistributionStatus is the lifecycle phase of a distribution at a point in time.
type DistributionStatus string

const (
	StatusUpcoming DistributionStatus = "upcoming"
	StatusActive   DistributionStatus = "active"
	StatusEnded    DistributionStatus = "ended"
	StatusRefunded DistributionStatus = "refunded"
	StatusClaimed  DistributionStatus = "fully_claimed"
)

// Status returns the phase of d at now.
func (d Distribution) Status(now time.Time) DistributionStatus {
	ts := uint64(now.Unix())
	switch {
	case d.RefundedAt > 0:
		return StatusRefunded
	case d.RecipientCount > 0 && d.ClaimedCount >= d.RecipientCount:
		return StatusClaimed
	case ts < d.StartTime:
		return StatusUpcoming
	case d.EndTime > 0 && ts >= d.EndTime:
		return StatusEnded
	default:
		return StatusActive
	}
}

// IsWhitelistOnly reports whether claims require a Merkle proof.
func (d Distribution) IsWhitelistOnly() bool {
	return d.MerkleRoot != (common.Hash{})
}

// TokenInfo is the metadata read from an ERC20 contract.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}
