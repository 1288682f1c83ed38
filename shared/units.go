package shared

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals of one ether in wei
const EtherDecimals = 18

// ToWei parses a decimal ether amount ("1.5") into wei
func ToWei(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: must not be negative", amount)
	}
	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", amount, EtherDecimals)
	}
	return wei.BigInt(), nil
}

// FromWei converts wei into ether
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// FormatEther renders wei as a decimal ether string without trailing zeros
func FormatEther(wei *big.Int) string {
	return FromWei(wei).String()
}
