// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package util

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/juztamau5/dispatcher/cmd/genericconf"
)

var ErrWalletOwner = errors.New("wallet does not belong to the concern's user")

// OpenWallet builds the signer for the configured wallet. A private key
// takes precedence over a keystore.
func OpenWallet(description string, walletConfig *genericconf.WalletConfig, chainId *big.Int) (*bind.TransactOpts, error) {
	if walletConfig.PrivateKey != "" {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(walletConfig.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%s wallet: invalid private key: %w", description, err)
		}
		return bind.NewKeyedTransactorWithChainID(privateKey, chainId)
	}
	if walletConfig.Pathname == "" {
		return nil, fmt.Errorf("%s wallet: need a private key or a keystore pathname", description)
	}
	passphrase := walletConfig.Pwd()
	if passphrase == nil {
		return nil, fmt.Errorf("%s wallet: keystore needs a password", description)
	}
	opts, err := transactOptsFromKeystore(walletConfig.Pathname, walletConfig.Account, *passphrase, chainId)
	if err != nil {
		return nil, fmt.Errorf("%s wallet: %w", description, err)
	}
	return opts, nil
}

func transactOptsFromKeystore(keystorePath, accountAddress, passphrase string, chainId *big.Int) (*bind.TransactOpts, error) {
	ks := keystore.NewKeyStore(keystorePath, keystore.StandardScryptN, keystore.StandardScryptP)
	var account accounts.Account
	if accountAddress == "" {
		if len(ks.Accounts()) == 0 {
			return nil, errors.New("keystore empty")
		}
		account = ks.Accounts()[0]
	} else {
		if !common.IsHexAddress(accountAddress) {
			return nil, fmt.Errorf("invalid account address %q", accountAddress)
		}
		var err error
		account, err = ks.Find(accounts.Account{Address: common.HexToAddress(accountAddress)})
		if err != nil {
			return nil, err
		}
	}
	if err := ks.Unlock(account, passphrase); err != nil {
		return nil, err
	}
	return bind.NewKeyStoreTransactorWithChainID(ks, account, chainId)
}

// CheckWalletOwner makes sure transactions are signed as the user whose
// role the dispatcher plays.
func CheckWalletOwner(opts *bind.TransactOpts, user common.Address) error {
	if opts.From != user {
		return fmt.Errorf("%w: wallet %v, user %v", ErrWalletOwner, opts.From, user)
	}
	return nil
}
