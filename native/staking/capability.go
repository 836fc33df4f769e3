package staking

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// LiquidityConverter swaps staked principal into a liquid derivative and
// back. Implementations are expected to be 1:1 or near it; the engine treats
// any error as a full abort of the surrounding operation.
type LiquidityConverter interface {
	Convert(amount *big.Int) (*big.Int, error)
	Redeem(derivative *big.Int) (*big.Int, error)
}

// LeverageDesk opens and closes externally managed leveraged positions
// against derivative collateral.
type LeverageDesk interface {
	Open(collateral *big.Int) (string, error)
	Close(handle string) (*big.Int, error)
}

// MemoryConverter is the deterministic in-process converter used by tests
// and by deployments without a live swap venue. Conversion is exactly 1:1.
type MemoryConverter struct {
	outstanding *big.Int
}

func NewMemoryConverter() *MemoryConverter {
	return &MemoryConverter{outstanding: big.NewInt(0)}
}

func (c *MemoryConverter) Convert(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: convert amount", ErrExternalCallFailed)
	}
	c.outstanding = new(big.Int).Add(c.outstanding, amount)
	return new(big.Int).Set(amount), nil
}

func (c *MemoryConverter) Redeem(derivative *big.Int) (*big.Int, error) {
	if derivative == nil || derivative.Sign() <= 0 {
		return nil, fmt.Errorf("%w: redeem amount", ErrExternalCallFailed)
	}
	if c.outstanding.Cmp(derivative) < 0 {
		return nil, fmt.Errorf("%w: redeem exceeds outstanding derivative", ErrExternalCallFailed)
	}
	c.outstanding = new(big.Int).Sub(c.outstanding, derivative)
	return new(big.Int).Set(derivative), nil
}

// Outstanding reports the derivative supply currently issued.
func (c *MemoryConverter) Outstanding() *big.Int {
	return new(big.Int).Set(c.outstanding)
}

// MemoryLeverageDesk tracks open positions in memory and returns the posted
// collateral on close.
type MemoryLeverageDesk struct {
	positions map[string]*big.Int
}

func NewMemoryLeverageDesk() *MemoryLeverageDesk {
	return &MemoryLeverageDesk{positions: make(map[string]*big.Int)}
}

func (d *MemoryLeverageDesk) Open(collateral *big.Int) (string, error) {
	if collateral == nil || collateral.Sign() <= 0 {
		return "", fmt.Errorf("%w: leverage collateral", ErrExternalCallFailed)
	}
	handle := uuid.NewString()
	d.positions[handle] = new(big.Int).Set(collateral)
	return handle, nil
}

func (d *MemoryLeverageDesk) Close(handle string) (*big.Int, error) {
	collateral, ok := d.positions[handle]
	if !ok {
		return nil, fmt.Errorf("%w: unknown leverage position %s", ErrExternalCallFailed, handle)
	}
	delete(d.positions, handle)
	return collateral, nil
}

// OpenPositions reports how many leveraged positions remain open.
func (d *MemoryLeverageDesk) OpenPositions() int {
	return len(d.positions)
}
