package metatx

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TransactionRequest is the eth_sendTransaction parameter object.
type TransactionRequest struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *Quantity       `json:"value,omitempty"`
}

// Quantity accepts hex ("0x3e8"), decimal strings ("1000") and JSON numbers.
type Quantity big.Int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}

	var s string
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return errors.Wrap(err, "invalid quantity")
		}
	} else {
		s = raw
	}

	v, err := ParseQuantity(s)
	if err != nil {
		return err
	}

	*q = Quantity(*v)

	return nil
}

func (q *Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

func (q *Quantity) BigInt() *big.Int {
	if q == nil {
		return new(big.Int)
	}

	return new(big.Int).Set((*big.Int)(q))
}

func (q *Quantity) String() string {
	return q.BigInt().String()
}

// ParseQuantity parses a non-negative integer in hex or decimal notation.
func ParseQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return new(big.Int), nil
		}

		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, errors.Errorf("invalid hex quantity %q", s)
		}

		return v, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid quantity %q", s)
	}

	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return nil, errors.Errorf("quantity %q must be a non-negative integer", s)
	}

	return d.BigInt(), nil
}
