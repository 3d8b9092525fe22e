package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrDispatch wraps every signing, broadcast, or confirmation failure.
	ErrDispatch = errors.New("payment: dispatch failed")
	// ErrBadAddress signals a malformed destination address.
	ErrBadAddress = errors.New("payment: invalid destination address")
)

const transferGasLimit = 21000

// Dispatcher sends a native-currency transfer and returns the confirmed
// transaction hash. Implementations never retry: a second broadcast of an
// unconfirmed transfer risks a double payment.
type Dispatcher interface {
	Send(ctx context.Context, secretKeyHex, toAddress string, amountWei *big.Int) (string, error)
}

// ChainDispatcher implements Dispatcher against a JSON-RPC chain node.
type ChainDispatcher struct {
	rpcURL         string
	confirmTimeout time.Duration
}

// NewChainDispatcher creates a dispatcher for the given RPC endpoint.
func NewChainDispatcher(rpcURL string, confirmTimeout time.Duration) *ChainDispatcher {
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	return &ChainDispatcher{rpcURL: rpcURL, confirmTimeout: confirmTimeout}
}

// Send signs and broadcasts a transfer from the key-derived account and waits
// for the transaction to be mined before returning its hash.
func (d *ChainDispatcher) Send(ctx context.Context, secretKeyHex, toAddress string, amountWei *big.Int) (string, error) {
	if !common.IsHexAddress(toAddress) {
		return "", fmt.Errorf("%w: %q", ErrBadAddress, toAddress)
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return "", fmt.Errorf("%w: non-positive amount", ErrDispatch)
	}

	client, err := ethclient.DialContext(ctx, d.rpcURL)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %v", ErrDispatch, d.rpcURL, err)
	}
	defer client.Close()

	key, err := crypto.HexToECDSA(secretKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: parse key: %v", ErrDispatch, err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrDispatch, err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gas price: %v", ErrDispatch, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: chain id: %v", ErrDispatch, err)
	}

	to := common.HexToAddress(toAddress)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amountWei,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %v", ErrDispatch, err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("%w: broadcast: %v", ErrDispatch, err)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, d.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(confirmCtx, client, signed)
	if err != nil {
		return "", fmt.Errorf("%w: confirm %s: %v", ErrDispatch, signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: transaction %s reverted", ErrDispatch, signed.Hash().Hex())
	}

	return signed.Hash().Hex(), nil
}
