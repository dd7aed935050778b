package settlement

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// tokenDecimals is the fixed scale used when converting order amounts to
// on-chain token units.
const tokenDecimals = 18

const erc20ABI = `[{"name":"transferFrom","type":"function","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

// EthClient settles trades by sending an ERC-20 transferFrom signed with
// the service key and waiting for the transaction to be mined.
type EthClient struct {
	client   *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasLimit uint64
	erc20    abi.ABI
	log      *zap.SugaredLogger
}

// DialEth connects to the chain RPC endpoint and prepares the signing key.
// privKeyHex accepts both "0x"-prefixed and bare 64-char hex keys.
func DialEth(ctx context.Context, rpcURL, privKeyHex string, gasLimit uint64, log *zap.SugaredLogger) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	return &EthClient{
		client:   client,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		gasLimit: gasLimit,
		erc20:    parsed,
		log:      log,
	}, nil
}

// Signer returns the address the service signs transactions with. The
// token must have an allowance from each buyer to this address.
func (c *EthClient) Signer() common.Address { return c.from }

// Transfer moves amount of token from buyer to seller on-chain and blocks
// until the transaction is mined or ctx expires.
func (c *EthClient) Transfer(ctx context.Context, from, to common.Address, amount decimal.Decimal, token common.Address) (common.Hash, error) {
	qty := amount.Shift(tokenDecimals).BigInt()

	data, err := c.erc20.Pack("transferFrom", from, to, qty)
	if err != nil {
		return common.Hash{}, &Error{Kind: KindRejected, Reason: "encode transferFrom", Err: err}
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, Wrap(err, "fetch nonce")
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, Wrap(err, "suggest gas price")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &token,
		Value:    new(big.Int),
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, &Error{Kind: KindRejected, Reason: "sign transaction", Err: err}
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, Wrap(err, "broadcast transaction")
	}

	c.log.Infow("settlement_submitted",
		"tx", signed.Hash().Hex(),
		"token", token.Hex(),
		"from", from.Hex(),
		"to", to.Hex(),
		"units", qty.String())

	receipt, err := bind.WaitMined(ctx, c.client, signed)
	if err != nil {
		return common.Hash{}, Wrap(err, "await confirmation")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Hash{}, &Error{Kind: KindRejected, Reason: "transferFrom reverted"}
	}

	return signed.Hash(), nil
}

// Close releases the underlying RPC connection.
func (c *EthClient) Close() {
	c.client.Close()
}

var _ Client = (*EthClient)(nil)
