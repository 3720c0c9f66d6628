// Package khu implements the KHU colored-coin state-transition engine:
// the deterministic effects of §4 of the specification, composed by the
// block pipeline in pipeline.go, over the keyed stores of §4.8.
//
// In place of the source tree's pattern of globals protected by a
// recursive mutex (§9.1), every mutating operation here is a method on a
// single owned Core value that encapsulates the state lock and every
// persistent store; there is no process-wide mutable state.
package khu

import (
	"sync"
	"sync/atomic"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/logger"
)

var khuLog = logger.Subsystem("KHU")

// Core is the engine. All hooks in §6.1/§6.2 are methods on it.
//
// A single exclusive lock guards all state transitions (§5). It is
// acquired once, at the top of ConnectBlock/DisconnectBlock, and held
// across the whole block; every apply_*/undo_* method below asserts it
// is held via assertLocked rather than acquiring it again, since the
// mutex is not reentrant (the source tree's recursive mutex has no
// direct Go equivalent, and re-entrant locking hides bugs more often
// than it prevents them).
type Core struct {
	stateLock sync.Mutex
	locked    int32 // atomic; 1 while stateLock is held by this Core's owner

	params model.Params

	states      model.StateStore
	khuUtxos    model.KhuUtxoStore
	notes       model.NoteStore
	commitments model.CommitmentStore
	domc        model.DomcStore
	blockUndos  model.BlockUndoStore

	coins       model.CoinsView
	masternodes model.Masternodes
	quorum      model.QuorumSet
	shielded    model.Shielded

	// reorgAnchor/reorgActive track the tip height a disconnect batch
	// started from, so DisconnectBlock can bound the total depth of a
	// run of single-block disconnects against D_FINAL (§4.7, §8.4
	// scenario 5) rather than against latest_finalized_height, which is
	// an independent, unrelated refusal condition. A successful
	// ConnectBlock ends the batch.
	reorgAnchor uint32
	reorgActive bool
}

// New constructs a Core over the given stores and downward collaborators
// (§6.2). It mirrors the teacher's consensusStateManager.New constructor:
// every dependency is injected, never looked up through a global.
func New(
	params model.Params,
	states model.StateStore,
	khuUtxos model.KhuUtxoStore,
	notes model.NoteStore,
	commitments model.CommitmentStore,
	domc model.DomcStore,
	blockUndos model.BlockUndoStore,
	coins model.CoinsView,
	masternodes model.Masternodes,
	quorum model.QuorumSet,
	shielded model.Shielded,
) *Core {
	return &Core{
		params:      params,
		states:      states,
		khuUtxos:    khuUtxos,
		notes:       notes,
		commitments: commitments,
		domc:        domc,
		blockUndos:  blockUndos,
		coins:       coins,
		masternodes: masternodes,
		quorum:      quorum,
		shielded:    shielded,
	}
}

// lock acquires the state lock for the duration of one
// ConnectBlock/DisconnectBlock call.
func (c *Core) lock() {
	c.stateLock.Lock()
	atomic.StoreInt32(&c.locked, 1)
}

// unlock releases the state lock.
func (c *Core) unlock() {
	atomic.StoreInt32(&c.locked, 0)
	c.stateLock.Unlock()
}

// assertLocked panics if called outside a locked ConnectBlock/
// DisconnectBlock, matching the source tree's AssertLockHeld(cs_khu)
// calls at the top of every apply_*/undo_* function.
func (c *Core) assertLocked() {
	if atomic.LoadInt32(&c.locked) == 0 {
		panic("khu: apply_*/undo_* called without the state lock held")
	}
}

// GetCurrentState returns the state recorded at the tip height, or false
// if no state is recorded there, i.e. InitStores has not yet written the
// genesis state (§6.1 get_current_state). It takes neither the state lock
// nor a snapshot: it reads the tip pointer and then the record at that
// height as two separate store reads.
func (c *Core) GetCurrentState() (*model.State, bool, error) {
	height, err := c.states.Tip()
	if err != nil {
		return nil, false, err
	}
	state, err := c.states.Get(height)
	if err != nil {
		return nil, false, err
	}
	return state, state != nil, nil
}

// InitStores prepares the backing stores for first use (§6.1
// init_stores): if wipe is set, or no genesis state has ever been
// written, it persists the zero-valued genesis State at height 0 with
// the scheduled R_max_dynamic/DOMC anchors (§3.2). cacheSize is accepted
// for parity with the source tree's init_stores signature; the concrete
// leveldb handle's own cache is already sized when it is opened, before
// Core exists, so this method has nothing further to do with it.
func (c *Core) InitStores(cacheSize int, wipe bool) error {
	_ = cacheSize

	height, err := c.states.Tip()
	if err != nil {
		return err
	}
	existing, err := c.states.Get(height)
	if err != nil {
		return err
	}
	if existing != nil && !wipe {
		return nil
	}

	genesis := &model.State{
		RAnnual:     model.RDefault,
		RMaxDynamic: model.RMaxDynamicInit,
	}
	InitNextDomcCycle(genesis, 0)

	if err := c.states.Put(0, genesis); err != nil {
		return err
	}
	return c.states.SetTip(0)
}
