package bn

// #include "shim.h"
import "C"

// RNGProperty constrains the top bits of a freshly generated random number.
type RNGProperty int

const (
	// MsbMaybeZero allows any value below 2^bits.
	MsbMaybeZero RNGProperty = C.BN_RAND_TOP_ANY
	// MsbOne forces the top bit, so the value has exactly bits bits.
	MsbOne RNGProperty = C.BN_RAND_TOP_ONE
	// TwoMsbOne forces the top two bits, so the product of two such values
	// has exactly 2*bits bits.
	TwoMsbOne RNGProperty = C.BN_RAND_TOP_TWO
)

func bottom(odd bool) C.int {
	if odd {
		return C.BN_RAND_BOTTOM_ODD
	}
	return C.BN_RAND_BOTTOM_ANY
}

// Rand returns a cryptographically strong random number of the given size.
// When odd is set the least significant bit is forced to one.
func Rand(bits int, prop RNGProperty, odd bool) (*BigNum, error) {
	cbits, err := cint("BN_rand_ex", bits, ReasonInvalidLength)
	if err != nil {
		return nil, err
	}
	return freshInCtx("BN_rand_ex", nil, func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_rand_ex(r, cbits, C.int(prop), bottom(odd), 0, ctx) == 1
	})
}

// PseudoRand is Rand without the cryptographic strength requirement. Use it
// only for tests.
func PseudoRand(bits int, prop RNGProperty, odd bool) (*BigNum, error) {
	cbits, err := cint("BN_pseudo_rand", bits, ReasonInvalidLength)
	if err != nil {
		return nil, err
	}
	return fresh("BN_pseudo_rand", nil, func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_pseudo_rand(r, cbits, C.int(prop), bottom(odd)) == 1
	})
}

// RandRange returns a uniformly distributed value in [0, n). n must be
// positive.
func RandRange(n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_rand_range_ex", keep(n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_rand_range_ex(r, n.raw(), 0, ctx) == 1
	})
}

// PseudoRandRange is RandRange without the cryptographic strength
// requirement.
func PseudoRandRange(n *BigNum) (*BigNum, error) {
	return fresh("BN_pseudo_rand_range", keep(n), func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_pseudo_rand_range(r, n.raw()) == 1
	})
}
