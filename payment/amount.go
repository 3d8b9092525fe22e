package payment

import (
	"fmt"
	"math/big"
)

var weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// EthToWei converts a decimal ether amount (e.g. "0.0001") to wei exactly.
// Amounts with a fractional wei component or non-positive values are
// rejected rather than rounded.
func EthToWei(amount string) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("payment: malformed amount %q", amount)
	}
	if rat.Sign() <= 0 {
		return nil, fmt.Errorf("payment: non-positive amount %q", amount)
	}

	rat.Mul(rat, new(big.Rat).SetInt(weiPerEth))
	if !rat.IsInt() {
		return nil, fmt.Errorf("payment: amount %q is below wei precision", amount)
	}
	return new(big.Int).Set(rat.Num()), nil
}
