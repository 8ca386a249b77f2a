// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
)

// Genesis represents the genesis file.
type Genesis struct {
	Difficulty       int    `json:"difficulty"`        // How difficult it needs to be to solve the work problem.
	PendingThreshold int    `json:"pending_threshold"` // Pending transactions above this put the ledger in warning.
	Digest           string `json:"digest"`            // Hash function used to seal blocks.
}

// Default returns the settings used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Difficulty:       2,
		PendingThreshold: 100,
		Digest:           signature.DigestSHA256,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. A missing file produces the
// default settings. Fields left at zero in the file keep their defaults.
func Load(path string) (Genesis, error) {
	genesis := Default()
	if path == "" {
		return genesis, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return genesis, nil
		}
		return Genesis{}, err
	}

	var file Genesis
	if err := json.Unmarshal(content, &file); err != nil {
		return Genesis{}, err
	}

	if file.Difficulty != 0 {
		genesis.Difficulty = file.Difficulty
	}
	if file.PendingThreshold != 0 {
		genesis.PendingThreshold = file.PendingThreshold
	}
	if file.Digest != "" {
		genesis.Digest = file.Digest
	}

	if _, err := signature.Digest(genesis.Digest); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
