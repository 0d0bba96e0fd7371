// Package evm implements the client of the mirror contract.
//
// Every cast accepted by the ledger can be forwarded to an Ethereum
// compatible contract so that an external observer can verify the tally
// without trusting the node. The contract exposes castVote, hasVoted,
// getVoteCount, getTotalVotes and isVotingActive, and emits a VoteCast event
// per recorded vote.
//
// The ledger stays authoritative. The mirror is a copy, and the Mirror
// service journals every submission in the registry instead of hiding a
// failure.
package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/votela/votela"
	"github.com/votela/votela/contracts/voting/types"
	"golang.org/x/xerrors"
)

// votingABI describes the mirror contract interface.
const votingABI = `[
  {
    "inputs": [
      {"internalType": "bytes32", "name": "_voterHash", "type": "bytes32"},
      {"internalType": "string", "name": "_partyId", "type": "string"}
    ],
    "name": "castVote",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "_voterHash", "type": "bytes32"}],
    "name": "hasVoted",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "_partyId", "type": "string"}],
    "name": "getVoteCount",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getTotalVotes",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "isVotingActive",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "voterHash", "type": "bytes32"},
      {"indexed": false, "internalType": "string", "name": "partyId", "type": "string"},
      {"indexed": false, "internalType": "uint256", "name": "timestamp", "type": "uint256"}
    ],
    "name": "VoteCast",
    "type": "event"
  }
]`

// Gas policy for a cast: add a buffer to the node's estimate, cap the total,
// and fall back to a flat limit when the estimation fails.
const (
	gasBuffer   = 50000
	gasCap      = 500000
	gasFallback = 200000
)

const (
	defaultReceiptTimeout  = 2 * time.Minute
	defaultReceiptInterval = time.Second
)

// node is the JSON-RPC surface of the chain the client talks to.
type node interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
}

// Receipt reports a cast settled on the chain.
type Receipt struct {
	TxHash      string
	GasUsed     uint64
	BlockNumber uint64
}

// Client binds the mirror contract over a JSON-RPC connection. Transactions
// are signed with the operator key using replay-protected signatures.
type Client struct {
	node     node
	abi      abi.ABI
	contract common.Address
	key      *ecdsa.PrivateKey
	operator common.Address
	signer   gethtypes.Signer
	logger   zerolog.Logger

	timeout  time.Duration
	interval time.Duration
}

// NewClient dials the JSON-RPC endpoint and binds the mirror contract at the
// given address.
func NewClient(rpcURL, contract, keyHex string, chainID int64) (*Client, error) {
	conn, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, xerrors.Errorf("failed to dial '%s': %v", rpcURL, err)
	}

	return makeClient(conn, contract, keyHex, chainID)
}

func makeClient(conn node, contract, keyHex string, chainID int64) (*Client, error) {
	if !common.IsHexAddress(contract) {
		return nil, xerrors.Errorf("invalid contract address '%s'", contract)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, xerrors.Errorf("failed to parse operator key: %v", err)
	}

	contractAbi, err := abi.JSON(strings.NewReader(votingABI))
	if err != nil {
		return nil, xerrors.Errorf("failed to parse abi: %v", err)
	}

	return &Client{
		node:     conn,
		abi:      contractAbi,
		contract: common.HexToAddress(contract),
		key:      key,
		operator: crypto.PubkeyToAddress(key.PublicKey),
		signer:   gethtypes.NewEIP155Signer(big.NewInt(chainID)),
		logger:   votela.Logger.With().Str("service", "evm").Logger(),
		timeout:  defaultReceiptTimeout,
		interval: defaultReceiptInterval,
	}, nil
}

// Address returns the hex address of the mirror contract.
func (c *Client) Address() string {
	return c.contract.Hex()
}

// CastVote submits the cast to the mirror contract and waits for its
// receipt.
func (c *Client) CastVote(ctx context.Context, hash types.VoterHash, party string) (Receipt, error) {
	calldata, err := c.abi.Pack("castVote", [32]byte(hash), party)
	if err != nil {
		return Receipt{}, xerrors.Errorf("failed to pack 'castVote': %v", err)
	}

	msg := ethereum.CallMsg{
		From: c.operator,
		To:   &c.contract,
		Data: calldata,
	}

	gas, err := c.node.EstimateGas(ctx, msg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("gas estimation failed")

		gas = gasFallback
	}

	gas += gasBuffer
	if gas > gasCap {
		gas = gasCap
	}

	gasPrice, err := c.node.SuggestGasPrice(ctx)
	if err != nil {
		return Receipt{}, xerrors.Errorf("failed to fetch gas price: %v", err)
	}

	nonce, err := c.node.PendingNonceAt(ctx, c.operator)
	if err != nil {
		return Receipt{}, xerrors.Errorf("failed to fetch nonce: %v", err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     calldata,
	})

	tx, err = gethtypes.SignTx(tx, c.signer, c.key)
	if err != nil {
		return Receipt{}, xerrors.Errorf("failed to sign transaction: %v", err)
	}

	err = c.node.SendTransaction(ctx, tx)
	if err != nil {
		return Receipt{}, xerrors.Errorf("failed to send transaction: %v", err)
	}

	c.logger.Info().
		Str("tx", tx.Hash().Hex()).
		Str("party", party).
		Msg("cast submitted to the mirror")

	receipt, err := c.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return Receipt{}, err
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return Receipt{}, xerrors.Errorf("transaction %s reverted", tx.Hash().Hex())
	}

	return Receipt{
		TxHash:      tx.Hash().Hex(),
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// waitReceipt polls the node for the receipt of the transaction until the
// client timeout.
func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		receipt, err := c.node.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, xerrors.Errorf("transaction %s is not settled: %v",
				hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
