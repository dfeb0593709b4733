package sales

import (
	"crypto/rand"
	"math/big"

	pkgerrors "github.com/angelmondragon/sales-backend/pkg/errors"
)

// NumberGenerator produces candidate sale numbers. Uniqueness is enforced by
// the database index; the service retries once on a collision.
type NumberGenerator interface {
	Generate() (int64, error)
}

type randomNumberGenerator struct{}

// NewRandomNumberGenerator returns a generator backed by crypto/rand that
// yields ten-digit numbers.
func NewRandomNumberGenerator() NumberGenerator {
	return randomNumberGenerator{}
}

func (randomNumberGenerator) Generate() (int64, error) {
	span := big.NewInt(MaxSaleNumber - MinSaleNumber + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate sale number")
	}
	return MinSaleNumber + n.Int64(), nil
}
