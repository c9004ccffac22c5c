package asset

import (
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// TxContext is the execution context that hands out ids for newly created
// objects. Ids are keccak256(digest || counter), so they are unique per
// context and deterministic for a given digest.
type TxContext struct {
	digest common.Hash

	mu      sync.Mutex
	created uint64
}

// NewTxContext returns a context with a random digest salted with sender.
func NewTxContext(sender string) *TxContext {
	id := uuid.New()
	return NewTxContextWithDigest(crypto.Keccak256Hash(id[:], []byte(sender)))
}

// NewTxContextWithDigest returns a context with a fixed digest, mainly for tests
// and replays that need stable ids.
func NewTxContextWithDigest(digest common.Hash) *TxContext {
	return &TxContext{digest: digest}
}

// Digest returns the context digest.
func (c *TxContext) Digest() common.Hash {
	return c.digest
}

// Created returns how many ids were handed out so far.
func (c *TxContext) Created() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// FreshID derives the next object id.
func (c *TxContext) FreshID() common.Hash {
	c.mu.Lock()
	n := c.created
	c.created++
	c.mu.Unlock()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return crypto.Keccak256Hash(c.digest.Bytes(), buf[:])
}
