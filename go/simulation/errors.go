// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package simulation

import (
	"fmt"

	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

const (
	// ErrUnknownFeeRecipient is reported if interest accrual mints fee shares
	// while the snapshot lacks the fee recipient of the lending market.
	ErrUnknownFeeRecipient = ConstErr("unknown fee recipient")
	ErrZeroAddress         = ConstErr("zero address")
)

// OperationError reports the operation a replay failed at.
type OperationError struct {
	Index int
	Type  OperationType
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s) failed: %v", e.Index, e.Type, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

type InsufficientBalanceError struct {
	Token Address
	User  Address
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance of user %v for token %v", e.User, e.Token)
}

type InsufficientAllowanceError struct {
	Token   Address
	Owner   Address
	Spender Address
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("insufficient allowance of spender %v for token %v of owner %v", e.Spender, e.Token, e.Owner)
}

type InsufficientPermit2AllowanceError struct {
	Token   Address
	Owner   Address
	Spender Address
}

func (e *InsufficientPermit2AllowanceError) Error() string {
	return fmt.Sprintf("insufficient permit2 allowance of spender %v for token %v of owner %v", e.Spender, e.Token, e.Owner)
}

type PermitExpiredOrInvalidNonceError struct {
	Token   Address
	Owner   Address
	Spender Address
}

func (e *PermitExpiredOrInvalidNonceError) Error() string {
	return fmt.Sprintf("expired permit or invalid nonce of owner %v for token %v and spender %v", e.Owner, e.Token, e.Spender)
}

type InsufficientSharesError struct {
	Market blue.MarketId
	User   Address
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of user %v on market %v", e.User, e.Market)
}

type InsufficientLiquidityError struct {
	Market blue.MarketId
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity on market %v", e.Market)
}

type InsufficientCollateralError struct {
	Market blue.MarketId
	User   Address
}

func (e *InsufficientCollateralError) Error() string {
	return fmt.Sprintf("insufficient collateral of user %v on market %v", e.User, e.Market)
}

type HealthyPositionError struct {
	Market   blue.MarketId
	Borrower Address
}

func (e *HealthyPositionError) Error() string {
	return fmt.Sprintf("position of user %v on market %v is healthy", e.Borrower, e.Market)
}

type UnknownOraclePriceError struct {
	Market blue.MarketId
}

func (e *UnknownOraclePriceError) Error() string {
	return fmt.Sprintf("unknown oracle price of market %v", e.Market)
}

// MarketNotEnabledError reports a market that does not exist, or, if Vault
// is set, a market the vault may not allocate to.
type MarketNotEnabledError struct {
	Market blue.MarketId
	Vault  *Address
}

func (e *MarketNotEnabledError) Error() string {
	if e.Vault != nil {
		return fmt.Sprintf("market %v is not enabled on vault %v", e.Market, *e.Vault)
	}
	return fmt.Sprintf("market %v is not enabled", e.Market)
}

type VaultNotEnabledError struct {
	Vault Address
}

func (e *VaultNotEnabledError) Error() string {
	return fmt.Sprintf("vault %v is not enabled", e.Vault)
}

// CapExceededError reports a supply exceeding the cap of a vault market, or,
// if Market is nil, the combined caps of the vault's supply queue.
type CapExceededError struct {
	Vault  Address
	Market *blue.MarketId
}

func (e *CapExceededError) Error() string {
	if e.Market != nil {
		return fmt.Sprintf("supply cap of vault %v exceeded on market %v", e.Vault, *e.Market)
	}
	return fmt.Sprintf("all supply caps of vault %v reached", e.Vault)
}

type InsufficientVaultLiquidityError struct {
	Vault Address
}

func (e *InsufficientVaultLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity in the markets of vault %v", e.Vault)
}

type UnauthorizedError struct {
	Sender Address
	Target Address
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("sender %v is not authorized to act on behalf of %v", e.Sender, e.Target)
}

type InconsistentInputError struct {
	Reason string
}

func (e *InconsistentInputError) Error() string {
	return fmt.Sprintf("inconsistent input: %s", e.Reason)
}

type UnsupportedOperationError struct {
	Type OperationType
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %q", e.Type)
}
