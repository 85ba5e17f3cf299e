// Package reward calculates how many tokens a mined block mints. The base
// proof-of-work reward halves on a fixed schedule and verified knowledge
// proofs add a weighted bonus on top.
package reward

import (
	"errors"
	"math"
	"math/big"

	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places of the smallest token unit.
const Places = 2

// maxHalvings is the halving count past which the base reward is zero.
const maxHalvings = 64

// baseValues is the reward table of base values per proof type.
var baseValues = map[knowledge.Type]decimal.Decimal{
	knowledge.TypeCourseCompletion: decimal.NewFromInt(10),
	knowledge.TypeTutorial:         decimal.NewFromInt(15),
	knowledge.TypeDocumentation:    decimal.NewFromInt(12),
	knowledge.TypeCodeContribution: decimal.NewFromInt(25),
	knowledge.TypeBugReport:        decimal.NewFromInt(8),
	knowledge.TypeResearch:         decimal.NewFromInt(30),
	knowledge.TypeMentoring:        decimal.NewFromInt(20),
	knowledge.TypeTranslation:      decimal.NewFromInt(10),
}

// multipliers scale a proof by the difficulty of the work.
var multipliers = map[knowledge.Difficulty]decimal.Decimal{
	knowledge.Beginner:     decimal.NewFromInt(1),
	knowledge.Intermediate: decimal.RequireFromString("1.5"),
	knowledge.Advanced:     decimal.NewFromInt(2),
	knowledge.Expert:       decimal.NewFromInt(3),
}

// BaseValue returns the reward table value for a proof type.
func BaseValue(t knowledge.Type) decimal.Decimal {
	return baseValues[t]
}

// Multiplier returns the difficulty multiplier for a proof.
func Multiplier(d knowledge.Difficulty) decimal.Decimal {
	m, exists := multipliers[d]
	if !exists {
		return decimal.NewFromInt(1)
	}
	return m
}

// =============================================================================

// Config represents the emission parameters.
type Config struct {
	BaseReward      decimal.Decimal
	HalvingInterval uint64
	PoWWeight       decimal.Decimal
	PoKWeight       decimal.Decimal
}

// Calculator computes block rewards. It holds no mutable state.
type Calculator struct {
	cfg Config
}

// New validates the emission parameters and constructs a calculator.
func New(cfg Config) (*Calculator, error) {
	if cfg.HalvingInterval == 0 {
		return nil, errors.New("halving interval must be greater than zero")
	}

	if cfg.BaseReward.IsNegative() {
		return nil, errors.New("base reward can't be negative")
	}

	if cfg.PoWWeight.IsNegative() || cfg.PoKWeight.IsNegative() {
		return nil, errors.New("reward weights can't be negative")
	}

	if !cfg.PoWWeight.Add(cfg.PoKWeight).Equal(decimal.NewFromInt(1)) {
		return nil, errors.New("pow and pok weights must sum to 1")
	}

	return &Calculator{cfg: cfg}, nil
}

// BaseReward returns the unweighted proof-of-work reward for a block at the
// specified height: the configured reward divided by 2 per elapsed halving.
func (c *Calculator) BaseReward(height uint64) decimal.Decimal {
	halvings := height / c.cfg.HalvingInterval
	if halvings >= maxHalvings {
		return decimal.Zero
	}

	divisor := new(big.Int).Lsh(big.NewInt(1), uint(halvings))
	return c.cfg.BaseReward.Div(decimal.NewFromBigInt(divisor, 0))
}

// KnowledgeValue returns the unweighted bonus a single proof earns:
// base value * difficulty multiplier * accuracy^2 * log10(impact+1).
func (c *Calculator) KnowledgeValue(p knowledge.Proof) decimal.Decimal {
	accuracy := decimal.NewFromFloat(p.Accuracy * p.Accuracy)
	reach := decimal.NewFromFloat(math.Log10(float64(p.Impact) + 1))

	return BaseValue(p.Type).
		Mul(Multiplier(p.Difficulty)).
		Mul(accuracy).
		Mul(reach)
}

// Reward returns the amount minted for a block at the specified height. The
// caller must only pass verified proofs.
func (c *Calculator) Reward(height uint64, proofs []knowledge.Proof) decimal.Decimal {
	bonus := decimal.Zero
	for _, p := range proofs {
		bonus = bonus.Add(c.KnowledgeValue(p))
	}

	pok := bonus.Mul(c.cfg.PoKWeight)
	pow := c.BaseReward(height).Mul(c.cfg.PoWWeight)

	return pok.Add(pow).Round(Places)
}
