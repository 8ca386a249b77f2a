package state

import (
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// ValidateChain recomputes every block hash and linkage and returns the
// first integrity violation found. The chain is never repaired.
func (s *State) ValidateChain() error {
	if err := database.ValidateChain(s.hash, s.db.CopyBlocks()); err != nil {
		s.evHandler("state: ValidateChain: INTEGRITY: %s", err)
		return err
	}

	return nil
}

// IsChainValid reports whether the chain passes validation.
func (s *State) IsChainValid() bool {
	return s.ValidateChain() == nil
}

// CorruptBlockForDrill changes a sealed block in memory without touching
// storage. It is only meant for drills proving that corruption is detected.
func (s *State) CorruptBlockForDrill(num uint64, fn func(b *database.Block)) error {
	s.evHandler("state: CorruptBlockForDrill: WARNING: blk[%d]", num)

	return s.db.CorruptBlockForDrill(num, fn)
}
