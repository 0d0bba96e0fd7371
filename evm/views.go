package evm

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/votela/votela/contracts/voting/types"
	"golang.org/x/xerrors"
)

// VoteEvent is a VoteCast event recorded by the mirror contract.
type VoteEvent struct {
	VoterHash types.VoterHash
	Party     string
	Timestamp time.Time
	TxHash    string
	Block     uint64
}

// call runs a read-only method of the contract and unpacks its outputs.
func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	calldata, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, xerrors.Errorf("failed to pack '%s': %v", method, err)
	}

	msg := ethereum.CallMsg{
		From: c.operator,
		To:   &c.contract,
		Data: calldata,
	}

	res, err := c.node.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to call '%s': %v", method, err)
	}

	outputs, err := c.abi.Unpack(method, res)
	if err != nil {
		return nil, xerrors.Errorf("failed to unpack '%s': %v", method, err)
	}

	return outputs, nil
}

// HasVoted returns true when the contract has recorded a cast for the voter
// hash.
func (c *Client) HasVoted(ctx context.Context, hash types.VoterHash) (bool, error) {
	outputs, err := c.call(ctx, "hasVoted", [32]byte(hash))
	if err != nil {
		return false, err
	}

	voted, ok := outputs[0].(bool)
	if !ok {
		return false, xerrors.Errorf("wrong output type '%T'", outputs[0])
	}

	return voted, nil
}

// VoteCount returns the tally of the party on the mirror.
func (c *Client) VoteCount(ctx context.Context, party string) (uint64, error) {
	outputs, err := c.call(ctx, "getVoteCount", party)
	if err != nil {
		return 0, err
	}

	count, ok := outputs[0].(*big.Int)
	if !ok {
		return 0, xerrors.Errorf("wrong output type '%T'", outputs[0])
	}

	return count.Uint64(), nil
}

// TotalVotes returns the number of casts recorded by the mirror.
func (c *Client) TotalVotes(ctx context.Context) (uint64, error) {
	outputs, err := c.call(ctx, "getTotalVotes")
	if err != nil {
		return 0, err
	}

	total, ok := outputs[0].(*big.Int)
	if !ok {
		return 0, xerrors.Errorf("wrong output type '%T'", outputs[0])
	}

	return total.Uint64(), nil
}

// IsVotingActive returns true when the contract accepts casts.
func (c *Client) IsVotingActive(ctx context.Context) (bool, error) {
	outputs, err := c.call(ctx, "isVotingActive")
	if err != nil {
		return false, err
	}

	active, ok := outputs[0].(bool)
	if !ok {
		return false, xerrors.Errorf("wrong output type '%T'", outputs[0])
	}

	return active, nil
}

// FilterVoteCast returns the VoteCast events emitted by the contract from the
// given block.
func (c *Client) FilterVoteCast(ctx context.Context, fromBlock uint64) ([]VoteEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{c.abi.Events["VoteCast"].ID}},
	}

	logs, err := c.node.FilterLogs(ctx, query)
	if err != nil {
		return nil, xerrors.Errorf("failed to filter logs: %v", err)
	}

	events := make([]VoteEvent, 0, len(logs))

	for _, log := range logs {
		if len(log.Topics) < 2 {
			continue
		}

		values, err := c.abi.Unpack("VoteCast", log.Data)
		if err != nil {
			return nil, xerrors.Errorf("failed to unpack event: %v", err)
		}

		party, ok := values[0].(string)
		if !ok {
			return nil, xerrors.Errorf("wrong event type '%T'", values[0])
		}

		stamp, ok := values[1].(*big.Int)
		if !ok {
			return nil, xerrors.Errorf("wrong event type '%T'", values[1])
		}

		events = append(events, VoteEvent{
			VoterHash: types.VoterHash(log.Topics[1]),
			Party:     party,
			Timestamp: time.Unix(stamp.Int64(), 0),
			TxHash:    log.TxHash.Hex(),
			Block:     log.BlockNumber,
		})
	}

	return events, nil
}
