// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Genesis represents the genesis file: the parameters a chain is started
// with and keeps for its lifetime.
type Genesis struct {
	Date                         time.Time       `json:"date"`                           // When the parameters were published, the genesis block carries its own creation time.
	ChainID                      uint16          `json:"chain_id"`                       // The chain id represents an unique id for this running instance.
	Difficulty                   uint32          `json:"difficulty"`                     // Leading zero hex characters required of the genesis successor.
	BaseReward                   decimal.Decimal `json:"base_reward"`                    // Proof of work reward before any halving.
	HalvingInterval              uint64          `json:"halving_interval"`               // Blocks between halvings of the base reward.
	DifficultyAdjustmentInterval uint64          `json:"difficulty_adjustment_interval"` // Blocks between difficulty retargets.
	TargetBlockTime              time.Duration   `json:"target_block_time"`              // Desired time between blocks.
	PoWWeight                    decimal.Decimal `json:"pow_weight"`                     // Share of the reward from the base.
	PoKWeight                    decimal.Decimal `json:"pok_weight"`                     // Share of the reward from knowledge proofs.
	MaxNonce                     uint64          `json:"max_nonce"`                      // Nonce budget per mine, zero means unbounded.
}

// Default returns the parameters used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:                         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:                      1,
		Difficulty:                   2,
		BaseReward:                   decimal.NewFromInt(50),
		HalvingInterval:              210_000,
		DifficultyAdjustmentInterval: 10,
		TargetBlockTime:              10 * time.Second,
		PoWWeight:                    decimal.RequireFromString("0.3"),
		PoKWeight:                    decimal.RequireFromString("0.7"),
	}
}

// Validate checks the parameters can run a chain.
func (g Genesis) Validate() error {
	switch {
	case g.Difficulty == 0:
		return errors.New("difficulty must be at least 1")
	case g.HalvingInterval == 0:
		return errors.New("halving interval must be greater than zero")
	case g.DifficultyAdjustmentInterval == 0:
		return errors.New("difficulty adjustment interval must be greater than zero")
	case g.TargetBlockTime <= 0:
		return errors.New("target block time must be greater than zero")
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
