// This file contains the implementation of the records appended to the log
// after each batch of transactions.
//

package single

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"time"

	"github.com/votela/votela/core/validation"
	"github.com/votela/votela/crypto"
	"golang.org/x/xerrors"
)

// Block is a record of a batch of transactions processed by the service. Each
// record points to the digest of the previous one so that the log forms a
// verifiable chain.
type Block struct {
	index uint64
	from  []byte
	when  time.Time
	data  validation.Result
	hash  []byte
}

type blockTemplate struct {
	Block

	hashFactory crypto.HashFactory
}

// BlockOption is the type of options to create a block.
type BlockOption func(*blockTemplate)

// WithIndex is an option to set the block index.
func WithIndex(index uint64) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.index = index
	}
}

// WithFrom is an option to set the digest of the previous block.
func WithFrom(from []byte) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.from = from
	}
}

// WithTimestamp is an option to set the time of the block.
func WithTimestamp(when time.Time) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.when = when
	}
}

// WithHashFactory is an option to set a different hash factory when creating a
// block.
func WithHashFactory(fac crypto.HashFactory) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.hashFactory = fac
	}
}

// NewBlock creates a new block for the validated batch.
func NewBlock(data validation.Result, opts ...BlockOption) (Block, error) {
	tmpl := blockTemplate{
		Block: Block{
			data: data,
		},
		hashFactory: crypto.NewHashFactory(crypto.Sha256),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	h := tmpl.hashFactory.New()
	err := tmpl.Block.Fingerprint(h)
	if err != nil {
		return tmpl.Block, xerrors.Errorf("couldn't fingerprint block: %v", err)
	}

	tmpl.hash = h.Sum(nil)

	return tmpl.Block, nil
}

// GetIndex returns the index of the block.
func (b Block) GetIndex() uint64 {
	return b.index
}

// GetFrom returns the digest of the previous block.
func (b Block) GetFrom() []byte {
	return append([]byte{}, b.from...)
}

// GetHash returns the digest of the block.
func (b Block) GetHash() []byte {
	return append([]byte{}, b.hash...)
}

// GetTimestamp returns the time of the block.
func (b Block) GetTimestamp() time.Time {
	return b.when
}

// GetData returns the validated batch of the block.
func (b Block) GetData() validation.Result {
	return b.data
}

// Fingerprint writes a deterministic binary representation of the block into
// the writer.
func (b Block) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 16)
	binary.LittleEndian.PutUint64(buffer[:8], b.index)
	binary.LittleEndian.PutUint64(buffer[8:], uint64(b.when.UnixNano()))

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write index: %v", err)
	}

	_, err = w.Write(b.from)
	if err != nil {
		return xerrors.Errorf("couldn't write previous digest: %v", err)
	}

	err = b.data.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint data: %v", err)
	}

	return nil
}

// blockJSON is the JSON message of a block.
type blockJSON struct {
	Index     uint64
	From      []byte
	Digest    []byte
	Timestamp time.Time
	Result    json.RawMessage
}

// Serialize returns the block encoded in JSON.
func (b Block) Serialize() ([]byte, error) {
	result, err := b.data.Serialize()
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize result: %v", err)
	}

	data, err := json.Marshal(blockJSON{
		Index:     b.index,
		From:      b.from,
		Digest:    b.hash,
		Timestamp: b.when,
		Result:    result,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return data, nil
}

// BlockFactory is a factory to deserialize blocks.
type BlockFactory struct {
	resFac  validation.ResultFactory
	hashFac crypto.HashFactory
}

// NewBlockFactory creates a new block factory.
func NewBlockFactory(fac validation.ResultFactory) BlockFactory {
	return BlockFactory{
		resFac:  fac,
		hashFac: crypto.NewHashFactory(crypto.Sha256),
	}
}

// BlockOf returns the block from the data if appropriate, otherwise it returns
// an error. The digest of the block is recomputed to detect a corrupted
// record.
func (f BlockFactory) BlockOf(data []byte) (Block, error) {
	m := blockJSON{}
	err := json.Unmarshal(data, &m)
	if err != nil {
		return Block{}, xerrors.Errorf("failed to decode: %v", err)
	}

	result, err := f.resFac.ResultOf(m.Result)
	if err != nil {
		return Block{}, xerrors.Errorf("invalid result: %v", err)
	}

	block, err := NewBlock(result,
		WithIndex(m.Index),
		WithFrom(m.From),
		WithTimestamp(m.Timestamp),
		WithHashFactory(f.hashFac))
	if err != nil {
		return Block{}, xerrors.Errorf("failed to create block: %v", err)
	}

	if !bytes.Equal(block.hash, m.Digest) {
		return Block{}, xerrors.Errorf("digest mismatch: %#x != %#x", block.hash, m.Digest)
	}

	return block, nil
}
