package khu

import (
	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/internal/merkle"
)

// The fakes in this file are plain in-memory maps, not leveldb-backed
// stores: they exist to exercise Core's state-transition logic in
// isolation from the datastructures/ package, the same separation of
// concerns the source tree draws between its consensus state manager and
// its on-disk store implementations.

type memStateStore struct {
	states map[uint32]*model.State
	tip    uint32
	hasTip bool
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[uint32]*model.State)}
}

func (m *memStateStore) Get(height uint32) (*model.State, error) { return m.states[height], nil }
func (m *memStateStore) Put(height uint32, state *model.State) error {
	m.states[height] = state
	return nil
}
func (m *memStateStore) Delete(height uint32) error { delete(m.states, height); return nil }
func (m *memStateStore) Tip() (uint32, error)        { return m.tip, nil }
func (m *memStateStore) SetTip(height uint32) error  { m.tip = height; m.hasTip = true; return nil }

type memKhuUtxoStore struct {
	coins map[model.OutPoint]model.KhuCoin
}

func newMemKhuUtxoStore() *memKhuUtxoStore {
	return &memKhuUtxoStore{coins: make(map[model.OutPoint]model.KhuCoin)}
}

func (m *memKhuUtxoStore) Get(op model.OutPoint) (*model.KhuCoin, bool, error) {
	coin, ok := m.coins[op]
	if !ok {
		return nil, false, nil
	}
	coinCopy := coin
	return &coinCopy, true, nil
}
func (m *memKhuUtxoStore) Put(op model.OutPoint, coin *model.KhuCoin) error {
	m.coins[op] = *coin
	return nil
}
func (m *memKhuUtxoStore) Delete(op model.OutPoint) error { delete(m.coins, op); return nil }

type memNoteStore struct {
	notes       map[[32]byte]*model.Note
	nf2cm       map[[32]byte][32]byte
	spentNf     map[[32]byte]bool
	leaves      [][32]byte
	anchorIndex map[[32]byte]int
}

func newMemNoteStore() *memNoteStore {
	s := &memNoteStore{
		notes:       make(map[[32]byte]*model.Note),
		nf2cm:       make(map[[32]byte][32]byte),
		spentNf:     make(map[[32]byte]bool),
		anchorIndex: make(map[[32]byte]int),
	}
	s.anchorIndex[merkle.EmptyRoot()] = 0
	return s
}

func (m *memNoteStore) PutNote(note *model.Note) error {
	n := *note
	m.notes[note.Cm] = &n
	return nil
}
func (m *memNoteStore) GetNote(cm [32]byte) (*model.Note, bool, error) {
	note, ok := m.notes[cm]
	if !ok {
		return nil, false, nil
	}
	n := *note
	return &n, true, nil
}
func (m *memNoteStore) DeleteNote(cm [32]byte) error { delete(m.notes, cm); return nil }

func (m *memNoteStore) NullifierToCm(nullifier [32]byte) ([32]byte, bool, error) {
	cm, ok := m.nf2cm[nullifier]
	return cm, ok, nil
}
func (m *memNoteStore) PutNullifierToCm(nullifier [32]byte, cm [32]byte) error {
	m.nf2cm[nullifier] = cm
	return nil
}
func (m *memNoteStore) DeleteNullifierToCm(nullifier [32]byte) error {
	delete(m.nf2cm, nullifier)
	return nil
}

func (m *memNoteStore) IsNullifierSpent(nullifier [32]byte) (bool, error) {
	return m.spentNf[nullifier], nil
}
func (m *memNoteStore) MarkNullifierSpent(nullifier [32]byte) error {
	m.spentNf[nullifier] = true
	return nil
}
func (m *memNoteStore) UnmarkNullifierSpent(nullifier [32]byte) error {
	delete(m.spentNf, nullifier)
	return nil
}

func (m *memNoteStore) AppendCommitment(cm [32]byte) (anchorBefore [32]byte, anchorAfter [32]byte, err error) {
	anchorBefore = merkle.Root(m.leaves)
	m.leaves = append(m.leaves, cm)
	anchorAfter = merkle.Root(m.leaves)
	m.anchorIndex[anchorAfter] = len(m.leaves)
	return anchorBefore, anchorAfter, nil
}
func (m *memNoteStore) RollbackToAnchor(anchor [32]byte) error {
	count, ok := m.anchorIndex[anchor]
	if !ok {
		return model.FatalStorageError
	}
	m.leaves = m.leaves[:count]
	return nil
}
func (m *memNoteStore) HasAnchor(anchor [32]byte) (bool, error) {
	_, ok := m.anchorIndex[anchor]
	return ok, nil
}

func (m *memNoteStore) Notes() (model.NoteIterator, error) {
	all := make([]*model.Note, 0, len(m.notes))
	for _, n := range m.notes {
		all = append(all, n)
	}
	return &memNoteIterator{notes: all, idx: -1}, nil
}

type memNoteIterator struct {
	notes []*model.Note
	idx   int
}

func (it *memNoteIterator) Next() bool {
	it.idx++
	return it.idx < len(it.notes)
}
func (it *memNoteIterator) Note() *model.Note { return it.notes[it.idx] }
func (it *memNoteIterator) Error() error      { return nil }
func (it *memNoteIterator) Release()          {}

type memCommitmentStore struct {
	commitments map[uint32]*model.StateCommitment
	latest      uint32
}

func newMemCommitmentStore() *memCommitmentStore {
	return &memCommitmentStore{commitments: make(map[uint32]*model.StateCommitment)}
}

func (m *memCommitmentStore) Put(c *model.StateCommitment) error {
	cp := *c
	m.commitments[c.Height] = &cp
	return nil
}
func (m *memCommitmentStore) Get(height uint32) (*model.StateCommitment, bool, error) {
	c, ok := m.commitments[height]
	return c, ok, nil
}
func (m *memCommitmentStore) LatestFinalizedHeight() (uint32, error) { return m.latest, nil }
func (m *memCommitmentStore) SetLatestFinalizedHeight(height uint32) error {
	m.latest = height
	return nil
}

type domcKey struct {
	cycleID  uint32
	identity [32]byte
}

type memDomcStore struct {
	commits map[domcKey]*model.DomcCommit
	reveals map[domcKey]*model.DomcReveal
	undoR   map[uint32]uint32
}

func newMemDomcStore() *memDomcStore {
	return &memDomcStore{
		commits: make(map[domcKey]*model.DomcCommit),
		reveals: make(map[domcKey]*model.DomcReveal),
		undoR:   make(map[uint32]uint32),
	}
}

func (m *memDomcStore) PutCommit(c *model.DomcCommit) error {
	m.commits[domcKey{c.CycleID, c.Identity}] = c
	return nil
}
func (m *memDomcStore) GetCommit(cycleID uint32, identity [32]byte) (*model.DomcCommit, bool, error) {
	c, ok := m.commits[domcKey{cycleID, identity}]
	return c, ok, nil
}
func (m *memDomcStore) DeleteCommit(cycleID uint32, identity [32]byte) error {
	delete(m.commits, domcKey{cycleID, identity})
	return nil
}
func (m *memDomcStore) PutReveal(r *model.DomcReveal) error {
	m.reveals[domcKey{r.CycleID, r.Identity}] = r
	return nil
}
func (m *memDomcStore) GetReveal(cycleID uint32, identity [32]byte) (*model.DomcReveal, bool, error) {
	r, ok := m.reveals[domcKey{cycleID, identity}]
	return r, ok, nil
}
func (m *memDomcStore) DeleteReveal(cycleID uint32, identity [32]byte) error {
	delete(m.reveals, domcKey{cycleID, identity})
	return nil
}
func (m *memDomcStore) Reveals(cycleID uint32) ([]*model.DomcReveal, error) {
	var out []*model.DomcReveal
	for k, r := range m.reveals {
		if k.cycleID == cycleID {
			out = append(out, r)
		}
	}
	return out, nil
}
func (m *memDomcStore) PutUndoRAnnual(height uint32, previous uint32) error {
	m.undoR[height] = previous
	return nil
}
func (m *memDomcStore) GetUndoRAnnual(height uint32) (uint32, bool, error) {
	v, ok := m.undoR[height]
	return v, ok, nil
}
func (m *memDomcStore) DeleteUndoRAnnual(height uint32) error { delete(m.undoR, height); return nil }

type memBlockUndoStore struct {
	undos map[uint32]*model.BlockUndo
}

func newMemBlockUndoStore() *memBlockUndoStore {
	return &memBlockUndoStore{undos: make(map[uint32]*model.BlockUndo)}
}

func (m *memBlockUndoStore) Put(height uint32, undo *model.BlockUndo) error {
	m.undos[height] = undo
	return nil
}
func (m *memBlockUndoStore) Get(height uint32) (*model.BlockUndo, bool, error) {
	u, ok := m.undos[height]
	return u, ok, nil
}
func (m *memBlockUndoStore) Delete(height uint32) error { delete(m.undos, height); return nil }

type stubCoinsView struct{}

func (stubCoinsView) Get(model.OutPoint) (model.Coin, bool) { return model.Coin{}, false }
func (stubCoinsView) Have(model.OutPoint) bool              { return false }
func (stubCoinsView) Add(model.OutPoint, model.Coin)        {}
func (stubCoinsView) Spend(model.OutPoint) bool              { return false }

type stubMasternodes struct{ active bool }

func (s stubMasternodes) IsActive([32]byte) bool { return s.active }

type stubQuorumSet struct{ verifies bool }

func (s stubQuorumSet) VerifyAggregate([]byte, []byte, []byte, uint32) bool { return s.verifies }

type stubShielded struct{ verifies bool }

func (s stubShielded) VerifySpend([]byte, [32]byte, [32]byte, [32]byte, [32]byte) bool {
	return s.verifies
}

// newTestCore wires a Core over the in-memory fakes above, with a
// permissive QuorumSet/Shielded/Masternodes so tests can exercise
// STAKE/UNSTAKE/DOMC paths without standing up real cryptography.
func newTestCore(v6ActivationHeight uint32) (*Core, *memStateStore) {
	states := newMemStateStore()
	core := New(
		model.Params{V6ActivationHeight: v6ActivationHeight},
		states,
		newMemKhuUtxoStore(),
		newMemNoteStore(),
		newMemCommitmentStore(),
		newMemDomcStore(),
		newMemBlockUndoStore(),
		stubCoinsView{},
		stubMasternodes{active: true},
		stubQuorumSet{verifies: true},
		stubShielded{verifies: true},
	)
	if err := core.InitStores(0, false); err != nil {
		panic(err)
	}
	return core, states
}
