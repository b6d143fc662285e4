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

func (r *reducer) erc20Approve(op Erc20Approve) error {
	token := op.Address
	holding := r.editor.GetHolding(op.Sender, token)
	r.editor.SetHolding(holding.WithErc20Allowance(op.Spender, op.Amount))
	r.syncVaultAllowance(token, op.Sender, op.Spender, op.Amount)
	return nil
}

func (r *reducer) erc20Permit2(op Erc20Permit2) error {
	token := op.Address
	timestamp := r.editor.Block().Timestamp
	holding := r.editor.GetHolding(op.Sender, token)
	current := holding.Permit2Allowance(op.Spender)
	if op.Nonce != current.Nonce || (op.Expiration != 0 && op.Expiration < timestamp) {
		return &PermitExpiredOrInvalidNonceError{Token: token, Owner: op.Sender, Spender: op.Spender}
	}
	expiration := op.Expiration
	if expiration == 0 {
		expiration = timestamp
	}
	r.editor.SetHolding(holding.WithPermit2Allowance(op.Spender, blue.Permit2Allowance{
		Amount:     op.Amount,
		Expiration: expiration,
		Nonce:      op.Nonce + 1,
	}))
	return nil
}

func (r *reducer) erc20Transfer(op Erc20Transfer) error {
	return r.transfer(op.Address, op.Sender, op.From, op.To, op.Amount)
}

func (r *reducer) erc20Transfer2(op Erc20Transfer2) error {
	token := op.Address
	holding := r.editor.GetHolding(op.From, token)
	allowance := holding.Permit2Allowance(op.Sender)
	if allowance.Expiration < r.editor.Block().Timestamp {
		return &PermitExpiredOrInvalidNonceError{Token: token, Owner: op.From, Spender: op.Sender}
	}
	if allowance.Amount != blue.MaxUint160 {
		remaining, underflow := allowance.Amount.SubUnderflow(op.Amount)
		if underflow {
			return &InsufficientPermit2AllowanceError{Token: token, Owner: op.From, Spender: op.Sender}
		}
		allowance.Amount = remaining
		r.editor.SetHolding(holding.WithPermit2Allowance(op.Sender, allowance))
	}
	return r.transfer(token, r.addresses.Permit2, op.From, op.To, op.Amount)
}

// transfer moves amount tokens from one holding to another. If spender is
// not the owner of the tokens, its allowance is consumed. The balance is
// checked before the allowance, as done by the deployed tokens.
func (r *reducer) transfer(token, spender, from, to Address, amount U256) error {
	fromHolding := r.editor.GetHolding(from, token)
	if fromHolding.Balance.Lt(amount) {
		return &InsufficientBalanceError{Token: token, User: from}
	}
	if spender != from && !r.isPermanentlyApproved(token, from, spender) {
		allowance := fromHolding.Erc20Allowance(spender)
		if allowance != MaxU256() {
			remaining, underflow := allowance.SubUnderflow(amount)
			if underflow {
				return &InsufficientAllowanceError{Token: token, Owner: from, Spender: spender}
			}
			fromHolding = fromHolding.WithErc20Allowance(spender, remaining)
			r.syncVaultAllowance(token, from, spender, remaining)
		}
	}
	r.editor.SetHolding(fromHolding.WithBalance(fromHolding.Balance.Sub(amount)))

	toHolding := r.editor.GetHolding(to, token)
	balance, err := CheckedAdd(toHolding.Balance, amount)
	if err != nil {
		return err
	}
	r.editor.SetHolding(toHolding.WithBalance(balance))
	return nil
}

// mint credits newly created tokens, used for vault shares.
func (r *reducer) mint(token, to Address, amount U256) error {
	holding := r.editor.GetHolding(to, token)
	balance, err := CheckedAdd(holding.Balance, amount)
	if err != nil {
		return err
	}
	r.editor.SetHolding(holding.WithBalance(balance))
	return nil
}

func (r *reducer) burn(token, from Address, amount U256) error {
	holding := r.editor.GetHolding(from, token)
	balance, underflow := holding.Balance.SubUnderflow(amount)
	if underflow {
		return &InsufficientBalanceError{Token: token, User: from}
	}
	r.editor.SetHolding(holding.WithBalance(balance))
	return nil
}

// spendAllowance consumes the allowance of spender on the tokens of owner.
func (r *reducer) spendAllowance(token, owner, spender Address, amount U256) error {
	if owner == spender {
		return nil
	}
	holding := r.editor.GetHolding(owner, token)
	allowance := holding.Erc20Allowance(spender)
	if allowance == MaxU256() {
		return nil
	}
	remaining, underflow := allowance.SubUnderflow(amount)
	if underflow {
		return &InsufficientAllowanceError{Token: token, Owner: owner, Spender: spender}
	}
	r.editor.SetHolding(holding.WithErc20Allowance(spender, remaining))
	return nil
}

// isPermanentlyApproved reports allowances granted for the lifetime of the
// contracts: vaults approve the lending market, and the bundler approves the
// lending market and every vault.
func (r *reducer) isPermanentlyApproved(token, owner, spender Address) bool {
	if spender == r.addresses.Morpho {
		if owner == r.addresses.Bundler {
			return true
		}
		vault, found := r.editor.GetVault(owner)
		return found && vault.Asset == token
	}
	if owner == r.addresses.Bundler {
		vault, found := r.editor.GetVault(spender)
		return found && vault.Asset == token
	}
	return false
}

// syncVaultAllowance mirrors the allowance of a user on the asset of a vault
// into the user's vault record.
func (r *reducer) syncVaultAllowance(token, owner, spender Address, amount U256) {
	vault, found := r.editor.GetVault(spender)
	if !found || vault.Asset != token {
		return
	}
	vaultUser := r.editor.GetVaultUser(spender, owner)
	vaultUser.Allowance = amount
	r.editor.SetVaultUser(vaultUser)
}
