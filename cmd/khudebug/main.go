// khudebug is a read-only inspection tool over a KHU engine's persisted
// stores: it opens the leveldb database directly and prints the tip (or
// a historical) state, a single note, or the current DOMC phase, without
// ever constructing a live chain connection (SPEC_FULL §2).
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/AdonisPhusis/khu-core/domain/khu"
	"github.com/AdonisPhusis/khu-core/domain/khu/database"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/blockundostore"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/commitmentstore"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/domcstore"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/khuutxostore"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/notestore"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/statestore"
	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/logger"
)

var (
	stateBucket       = database.MakeBucket([]byte{0x10})
	khuUtxoBucket     = database.MakeBucket([]byte{0x11})
	noteBucket        = database.MakeBucket([]byte{0x12})
	commitmentBucket  = database.MakeBucket([]byte{0x13})
	domcBucket        = database.MakeBucket([]byte{0x14})
	blockUndoBucket   = database.MakeBucket([]byte{0x15})
)

func main() {
	cfg, err := parseConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}
	logger.SetLogLevels(cfg.LogLevel)

	db, err := database.New(cfg.DataDir, cfg.CacheSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %s\n", err)
		os.Exit(1)
	}
	defer db.Close()

	states := statestore.New(db.View(stateBucket))
	khuUtxos := khuutxostore.New(db.View(khuUtxoBucket))
	notes := notestore.New(db.View(noteBucket))
	commitments := commitmentstore.New(db.View(commitmentBucket))
	domc := domcstore.New(db.View(domcBucket))
	blockUndos := blockundostore.New(db.View(blockUndoBucket))

	params := model.Params{V6ActivationHeight: cfg.V6ActivationHeight}
	core := khu.New(params, states, khuUtxos, notes, commitments, domc, blockUndos,
		noopCoinsView{}, noopMasternodes{}, noopQuorumSet{}, noopShielded{})
	if err := core.InitStores(cfg.CacheSize, false); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing stores: %s\n", err)
		os.Exit(1)
	}

	switch {
	case cfg.ShowNote != "":
		showNote(core, cfg.ShowNote)
	case cfg.ShowPhase:
		showPhase(core)
	case cfg.AtHeight != 0:
		showStateAt(core, cfg.AtHeight)
	case cfg.ShowState:
		showTip(core)
	default:
		showTip(core)
	}
}

func showTip(core *khu.Core) {
	state, ok, err := core.GetCurrentState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading tip state: %s\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("no KHU-aware tip recorded yet")
		return
	}
	spew.Dump(state)
}

func showStateAt(core *khu.Core, height uint32) {
	state, err := core.StateAt(height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading state at height %d: %s\n", height, err)
		os.Exit(1)
	}
	if state == nil {
		fmt.Printf("no state recorded at height %d\n", height)
		return
	}
	spew.Dump(state)
}

func showNote(core *khu.Core, cmHex string) {
	raw, err := hex.DecodeString(cmHex)
	if err != nil || len(raw) != 32 {
		fmt.Fprintln(os.Stderr, "--note must be a 32-byte hex commitment")
		os.Exit(1)
	}
	var cm [32]byte
	copy(cm[:], raw)
	note, ok, err := core.NoteByCommitment(cm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading note: %s\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("no note with that commitment")
		return
	}
	spew.Dump(note)
}

func showPhase(core *khu.Core) {
	state, ok, err := core.GetCurrentState()
	if err != nil || !ok {
		fmt.Println("no KHU-aware tip recorded yet")
		return
	}
	info := khu.DomcCycleInfoAt(state, state.Height)
	fmt.Printf("height=%d cycle_start=%d phase=%d\n", state.Height, info.CycleStart, info.Phase)
}

// khudebug never applies transactions, so its collaborators are no-ops:
// every read path it exercises only needs the stores, not these.
type noopCoinsView struct{}

func (noopCoinsView) Get(model.OutPoint) (model.Coin, bool) { return model.Coin{}, false }
func (noopCoinsView) Have(model.OutPoint) bool              { return false }
func (noopCoinsView) Add(model.OutPoint, model.Coin)        {}
func (noopCoinsView) Spend(model.OutPoint) bool              { return false }

type noopMasternodes struct{}

func (noopMasternodes) IsActive([32]byte) bool { return false }

type noopQuorumSet struct{}

func (noopQuorumSet) VerifyAggregate([]byte, []byte, []byte, uint32) bool { return false }

type noopShielded struct{}

func (noopShielded) VerifySpend([]byte, [32]byte, [32]byte, [32]byte, [32]byte) bool { return false }
