package solana

import (
	"sort"

	"github.com/pkg/errors"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single decoded chain instruction.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// LookupTable is a resolved address lookup table: its on-chain account
// key plus the addresses it contains.
type LookupTable struct {
	AccountKey Pubkey
	Addresses  []Pubkey
}

type messageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

type accountEntry struct {
	pubkey     Pubkey
	isSigner   bool
	isWritable bool
	firstSeen  int
}

// accountSet accumulates unique accounts in first-use order, merging
// signer/writable flags across duplicate references.
type accountSet struct {
	entries []*accountEntry
	index   map[Pubkey]*accountEntry
}

func newAccountSet() *accountSet {
	return &accountSet{index: make(map[Pubkey]*accountEntry, 32)}
}

func (s *accountSet) touch(pk Pubkey, signer, writable bool) {
	if e, ok := s.index[pk]; ok {
		e.isSigner = e.isSigner || signer
		e.isWritable = e.isWritable || writable
		return
	}
	e := &accountEntry{pubkey: pk, isSigner: signer, isWritable: writable, firstSeen: len(s.entries)}
	s.entries = append(s.entries, e)
	s.index[pk] = e
}

// partition orders entries into the canonical message layout: writable
// signers, readonly signers, writable non-signers, readonly non-signers,
// each group in first-use order. Entries in skip are excluded.
func (s *accountSet) partition(skip map[Pubkey]struct{}) ([]*accountEntry, messageHeader) {
	kept := make([]*accountEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if _, ok := skip[e.pubkey]; ok {
			continue
		}
		kept = append(kept, e)
	}

	rank := func(e *accountEntry) int {
		switch {
		case e.isSigner && e.isWritable:
			return 0
		case e.isSigner:
			return 1
		case e.isWritable:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ri, rj := rank(kept[i]), rank(kept[j])
		if ri != rj {
			return ri < rj
		}
		return kept[i].firstSeen < kept[j].firstSeen
	})

	var h messageHeader
	for _, e := range kept {
		if e.isSigner {
			h.NumRequiredSignatures++
			if !e.isWritable {
				h.NumReadonlySignedAccounts++
			}
		} else if !e.isWritable {
			h.NumReadonlyUnsignedAccounts++
		}
	}
	return kept, h
}

// CompileLegacyMessage compiles a legacy (pre-versioned) message and
// returns its bytes plus the ordered signer keys.
func CompileLegacyMessage(
	recentBlockhash [32]byte,
	feePayer Pubkey,
	instructions []Instruction,
) ([]byte, []Pubkey, error) {
	set := newAccountSet()
	// Fee payer is always the first writable signer.
	set.touch(feePayer, true, true)
	for _, ix := range instructions {
		set.touch(ix.ProgramID, false, false)
		for _, am := range ix.Accounts {
			set.touch(am.Pubkey, am.IsSigner, am.IsWritable)
		}
	}

	ordered, header := set.partition(nil)
	staticKeys := make([]Pubkey, len(ordered))
	indexOf := make(map[Pubkey]uint8, len(ordered))
	for i, e := range ordered {
		if i > 0xff {
			return nil, nil, errors.New("too many account keys")
		}
		staticKeys[i] = e.pubkey
		indexOf[e.pubkey] = uint8(i)
	}

	out := make([]byte, 0, 512)
	out = append(out, header.NumRequiredSignatures, header.NumReadonlySignedAccounts, header.NumReadonlyUnsignedAccounts)
	out = appendShortVecLen(out, len(staticKeys))
	for _, pk := range staticKeys {
		out = append(out, pk[:]...)
	}
	out = append(out, recentBlockhash[:]...)

	out, err := appendInstructions(out, instructions, indexOf)
	if err != nil {
		return nil, nil, err
	}

	return out, staticKeys[:header.NumRequiredSignatures], nil
}

// CompileV0Message compiles a versioned (v0) message. Static keys cover
// the payer and every unique account not satisfied by a lookup table;
// the rest are referenced through compacted lookup-table indexes.
// Compilation is deterministic for identical inputs.
func CompileV0Message(
	recentBlockhash [32]byte,
	feePayer Pubkey,
	instructions []Instruction,
	tables []LookupTable,
) ([]byte, []Pubkey, error) {
	set := newAccountSet()
	set.touch(feePayer, true, true)

	programIDs := make(map[Pubkey]struct{}, len(instructions))
	for _, ix := range instructions {
		programIDs[ix.ProgramID] = struct{}{}
		set.touch(ix.ProgramID, false, false)
		for _, am := range ix.Accounts {
			set.touch(am.Pubkey, am.IsSigner, am.IsWritable)
		}
	}

	tableKeys := make(map[Pubkey]struct{}, len(tables))
	for _, t := range tables {
		// The table's own account key must stay a static key.
		tableKeys[t.AccountKey] = struct{}{}
		set.touch(t.AccountKey, false, false)
	}

	// First occurrence across tables wins for each address.
	type tableRef struct {
		table int
		index uint8
	}
	assignment := make(map[Pubkey]tableRef, 64)
	for ti, t := range tables {
		if len(t.Addresses) > 256 {
			return nil, nil, errors.Errorf("lookup table %s has %d addresses", t.AccountKey, len(t.Addresses))
		}
		for i, addr := range t.Addresses {
			if _, ok := assignment[addr]; ok {
				continue
			}
			assignment[addr] = tableRef{table: ti, index: uint8(i)}
		}
	}

	// An account moves out of the static list only if it is a plain
	// non-signer that a table can address.
	loadable := make(map[Pubkey]struct{}, len(assignment))
	for _, e := range set.entries {
		if e.isSigner {
			continue
		}
		if _, ok := programIDs[e.pubkey]; ok {
			continue
		}
		if _, ok := tableKeys[e.pubkey]; ok {
			continue
		}
		if _, ok := assignment[e.pubkey]; ok {
			loadable[e.pubkey] = struct{}{}
		}
	}

	ordered, header := set.partition(loadable)
	staticKeys := make([]Pubkey, len(ordered))
	indexOf := make(map[Pubkey]uint8, len(set.entries))
	for i, e := range ordered {
		if i > 0xff {
			return nil, nil, errors.New("too many static account keys")
		}
		staticKeys[i] = e.pubkey
		indexOf[e.pubkey] = uint8(i)
	}

	// Per-table selections, scanned in address order so the index lists
	// come out sorted and the loaded-key order is reproducible.
	type selection struct {
		table      int
		accountKey Pubkey
		writable   []uint8
		readonly   []uint8
	}
	selections := make([]selection, 0, len(tables))
	for ti, t := range tables {
		sel := selection{table: ti, accountKey: t.AccountKey}
		for i, addr := range t.Addresses {
			ref, ok := assignment[addr]
			if !ok || ref.table != ti || ref.index != uint8(i) {
				continue
			}
			if _, ok := loadable[addr]; !ok {
				continue
			}
			if set.index[addr].isWritable {
				sel.writable = append(sel.writable, uint8(i))
			} else {
				sel.readonly = append(sel.readonly, uint8(i))
			}
		}
		if len(sel.writable) == 0 && len(sel.readonly) == 0 {
			continue
		}
		selections = append(selections, sel)
	}

	// The runtime's combined account list appends every table's writable
	// loads first, then every table's readonly loads. Combined indexes
	// must follow that order, never per-table grouping.
	loadedKeys := make([]Pubkey, 0, len(loadable))
	for _, sel := range selections {
		for _, i := range sel.writable {
			loadedKeys = append(loadedKeys, tables[sel.table].Addresses[i])
		}
	}
	for _, sel := range selections {
		for _, i := range sel.readonly {
			loadedKeys = append(loadedKeys, tables[sel.table].Addresses[i])
		}
	}
	for i, pk := range loadedKeys {
		j := len(staticKeys) + i
		if j > 0xff {
			return nil, nil, errors.New("too many account keys (static+loaded)")
		}
		indexOf[pk] = uint8(j)
	}

	// v0 message prefix: 0x80 | version.
	out := make([]byte, 0, 768)
	out = append(out, 0x80)
	out = append(out, header.NumRequiredSignatures, header.NumReadonlySignedAccounts, header.NumReadonlyUnsignedAccounts)
	out = appendShortVecLen(out, len(staticKeys))
	for _, pk := range staticKeys {
		out = append(out, pk[:]...)
	}
	out = append(out, recentBlockhash[:]...)

	out, err := appendInstructions(out, instructions, indexOf)
	if err != nil {
		return nil, nil, err
	}

	out = appendShortVecLen(out, len(selections))
	for _, sel := range selections {
		out = append(out, sel.accountKey[:]...)
		out = appendShortVecLen(out, len(sel.writable))
		out = append(out, sel.writable...)
		out = appendShortVecLen(out, len(sel.readonly))
		out = append(out, sel.readonly...)
	}

	return out, staticKeys[:header.NumRequiredSignatures], nil
}

func appendInstructions(out []byte, instructions []Instruction, indexOf map[Pubkey]uint8) ([]byte, error) {
	out = appendShortVecLen(out, len(instructions))
	for _, ix := range instructions {
		pid, ok := indexOf[ix.ProgramID]
		if !ok {
			return nil, errors.Errorf("program id %s missing from account list", ix.ProgramID)
		}
		out = append(out, pid)
		out = appendShortVecLen(out, len(ix.Accounts))
		for _, am := range ix.Accounts {
			ai, ok := indexOf[am.Pubkey]
			if !ok {
				return nil, errors.Errorf("account %s missing from account list", am.Pubkey)
			}
			out = append(out, ai)
		}
		out = appendShortVecLen(out, len(ix.Data))
		out = append(out, ix.Data...)
	}
	return out, nil
}
