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
	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

// OperationType names an operation kind in its serialized form.
type OperationType string

const (
	TypeErc20Approve   OperationType = "Erc20_Approve"
	TypeErc20Permit2   OperationType = "Erc20_Permit2"
	TypeErc20Transfer  OperationType = "Erc20_Transfer"
	TypeErc20Transfer2 OperationType = "Erc20_Transfer2"

	TypeBlueSupply             OperationType = "Blue_Supply"
	TypeBlueWithdraw           OperationType = "Blue_Withdraw"
	TypeBlueBorrow             OperationType = "Blue_Borrow"
	TypeBlueRepay              OperationType = "Blue_Repay"
	TypeBlueSupplyCollateral   OperationType = "Blue_SupplyCollateral"
	TypeBlueWithdrawCollateral OperationType = "Blue_WithdrawCollateral"
	TypeBlueLiquidate          OperationType = "Blue_Liquidate"
	TypeBlueAccrueInterest     OperationType = "Blue_AccrueInterest"
	TypeBlueSetAuthorization   OperationType = "Blue_SetAuthorization"

	TypeMetaMorphoDeposit    OperationType = "MetaMorpho_Deposit"
	TypeMetaMorphoMint       OperationType = "MetaMorpho_Mint"
	TypeMetaMorphoWithdraw   OperationType = "MetaMorpho_Withdraw"
	TypeMetaMorphoRedeem     OperationType = "MetaMorpho_Redeem"
	TypeMetaMorphoReallocate OperationType = "MetaMorpho_Reallocate"

	TypeBundlerMulticall OperationType = "Bundler_Multicall"
)

// Operation is a single protocol interaction to be replayed. The set of
// operations is closed; all implementations are defined in this package.
type Operation interface {
	Type() OperationType
	// GetSender is the account issuing the call.
	GetSender() Address
	// GetAddress is the contract the call is directed to: a token, the
	// lending market, or a vault.
	GetAddress() Address
	isOperation()
}

// Meta holds the fields common to all operations.
type Meta struct {
	Sender  Address
	Address Address
}

func (m Meta) GetSender() Address  { return m.Sender }
func (m Meta) GetAddress() Address { return m.Address }
func (Meta) isOperation()          {}

func (m *Meta) setMeta(meta Meta) { *m = meta }

////////////////////////////////////////////////////////////
// ERC20

// Erc20Approve sets the allowance of Spender on the sender's tokens.
type Erc20Approve struct {
	Meta    `json:"-"`
	Spender Address `json:"spender"`
	Amount  U256    `json:"amount"`
}

// Erc20Permit2 grants Spender an allowance through the Permit2 contract
// using a signed permit of the sender.
type Erc20Permit2 struct {
	Meta       `json:"-"`
	Spender    Address `json:"spender"`
	Amount     U256    `json:"amount"`
	Expiration uint64  `json:"expiration"`
	Nonce      uint64  `json:"nonce"`
}

// Erc20Transfer moves tokens from From to To. If the sender differs from
// From, the sender's allowance is consumed.
type Erc20Transfer struct {
	Meta   `json:"-"`
	From   Address `json:"from"`
	To     Address `json:"to"`
	Amount U256    `json:"amount"`
}

// Erc20Transfer2 moves tokens from From to To through Permit2, consuming the
// Permit2 allowance of the sender.
type Erc20Transfer2 struct {
	Meta   `json:"-"`
	From   Address `json:"from"`
	To     Address `json:"to"`
	Amount U256    `json:"amount"`
}

func (Erc20Approve) Type() OperationType   { return TypeErc20Approve }
func (Erc20Permit2) Type() OperationType   { return TypeErc20Permit2 }
func (Erc20Transfer) Type() OperationType  { return TypeErc20Transfer }
func (Erc20Transfer2) Type() OperationType { return TypeErc20Transfer2 }

////////////////////////////////////////////////////////////
// Lending market

// Exactly one of Assets and Shares must be non-zero for supply, withdraw,
// borrow, and repay operations.

type BlueSupply struct {
	Meta     `json:"-"`
	Id       blue.MarketId `json:"id"`
	Assets   U256          `json:"assets"`
	Shares   U256          `json:"shares"`
	OnBehalf Address       `json:"onBehalf"`
}

type BlueWithdraw struct {
	Meta     `json:"-"`
	Id       blue.MarketId `json:"id"`
	Assets   U256          `json:"assets"`
	Shares   U256          `json:"shares"`
	OnBehalf Address       `json:"onBehalf"`
	Receiver Address       `json:"receiver"`
}

type BlueBorrow struct {
	Meta     `json:"-"`
	Id       blue.MarketId `json:"id"`
	Assets   U256          `json:"assets"`
	Shares   U256          `json:"shares"`
	OnBehalf Address       `json:"onBehalf"`
	Receiver Address       `json:"receiver"`
}

type BlueRepay struct {
	Meta     `json:"-"`
	Id       blue.MarketId `json:"id"`
	Assets   U256          `json:"assets"`
	Shares   U256          `json:"shares"`
	OnBehalf Address       `json:"onBehalf"`
}

type BlueSupplyCollateral struct {
	Meta     `json:"-"`
	Id       blue.MarketId `json:"id"`
	Assets   U256          `json:"assets"`
	OnBehalf Address       `json:"onBehalf"`
}

type BlueWithdrawCollateral struct {
	Meta     `json:"-"`
	Id       blue.MarketId `json:"id"`
	Assets   U256          `json:"assets"`
	OnBehalf Address       `json:"onBehalf"`
	Receiver Address       `json:"receiver"`
}

// BlueLiquidate repays debt of an unhealthy borrower in exchange for
// collateral. Exactly one of SeizedAssets and RepaidShares must be non-zero.
type BlueLiquidate struct {
	Meta         `json:"-"`
	Id           blue.MarketId `json:"id"`
	Borrower     Address       `json:"borrower"`
	SeizedAssets U256          `json:"seizedAssets"`
	RepaidShares U256          `json:"repaidShares"`
}

// BlueAccrueInterest accrues the interest of a market up to the snapshot's
// block timestamp.
type BlueAccrueInterest struct {
	Meta `json:"-"`
	Id   blue.MarketId `json:"id"`
}

// BlueSetAuthorization (un)authorizes the bundler to manage the sender's
// positions.
type BlueSetAuthorization struct {
	Meta       `json:"-"`
	Authorized bool `json:"authorized"`
}

func (BlueSupply) Type() OperationType             { return TypeBlueSupply }
func (BlueWithdraw) Type() OperationType           { return TypeBlueWithdraw }
func (BlueBorrow) Type() OperationType             { return TypeBlueBorrow }
func (BlueRepay) Type() OperationType              { return TypeBlueRepay }
func (BlueSupplyCollateral) Type() OperationType   { return TypeBlueSupplyCollateral }
func (BlueWithdrawCollateral) Type() OperationType { return TypeBlueWithdrawCollateral }
func (BlueLiquidate) Type() OperationType          { return TypeBlueLiquidate }
func (BlueAccrueInterest) Type() OperationType     { return TypeBlueAccrueInterest }
func (BlueSetAuthorization) Type() OperationType   { return TypeBlueSetAuthorization }

////////////////////////////////////////////////////////////
// Vaults

type MetaMorphoDeposit struct {
	Meta   `json:"-"`
	Assets U256    `json:"assets"`
	Owner  Address `json:"owner"`
}

type MetaMorphoMint struct {
	Meta   `json:"-"`
	Shares U256    `json:"shares"`
	Owner  Address `json:"owner"`
}

type MetaMorphoWithdraw struct {
	Meta     `json:"-"`
	Assets   U256    `json:"assets"`
	Owner    Address `json:"owner"`
	Receiver Address `json:"receiver"`
}

type MetaMorphoRedeem struct {
	Meta     `json:"-"`
	Shares   U256    `json:"shares"`
	Owner    Address `json:"owner"`
	Receiver Address `json:"receiver"`
}

// MarketAllocation is the targeted supply of a vault in a market. A target
// of MaxU256 supplies everything withdrawn so far.
type MarketAllocation struct {
	Id     blue.MarketId `json:"id"`
	Assets U256          `json:"assets"`
}

// MetaMorphoReallocate moves the vault's liquidity between its markets.
type MetaMorphoReallocate struct {
	Meta        `json:"-"`
	Allocations []MarketAllocation `json:"allocations"`
}

func (MetaMorphoDeposit) Type() OperationType    { return TypeMetaMorphoDeposit }
func (MetaMorphoMint) Type() OperationType       { return TypeMetaMorphoMint }
func (MetaMorphoWithdraw) Type() OperationType   { return TypeMetaMorphoWithdraw }
func (MetaMorphoRedeem) Type() OperationType     { return TypeMetaMorphoRedeem }
func (MetaMorphoReallocate) Type() OperationType { return TypeMetaMorphoReallocate }

////////////////////////////////////////////////////////////
// Bundler

// BundlerMulticall applies a batch of operations issued by the bundler. The
// batch is atomic: it either succeeds as a whole or fails without effect.
type BundlerMulticall struct {
	Meta       `json:"-"`
	Operations []Operation `json:"-"`
}

func (BundlerMulticall) Type() OperationType { return TypeBundlerMulticall }
