// Copyright (C) 2017. See AUTHORS.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bn

// #include "shim.h"
import "C"

// Add returns a + b.
func (a *BigNum) Add(b *BigNum) (*BigNum, error) {
	return fresh("BN_add", keep(a, b), func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_add(r, a.raw(), b.raw()) == 1
	})
}

// Sub returns a - b.
func (a *BigNum) Sub(b *BigNum) (*BigNum, error) {
	return fresh("BN_sub", keep(a, b), func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_sub(r, a.raw(), b.raw()) == 1
	})
}

// Mul returns a * b.
func (a *BigNum) Mul(b *BigNum) (*BigNum, error) {
	return freshInCtx("BN_mul", keep(a, b), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_mul(r, a.raw(), b.raw(), ctx) == 1
	})
}

// Div returns the quotient a / b rounded toward zero. It fails when b is zero.
func (a *BigNum) Div(b *BigNum) (*BigNum, error) {
	return freshInCtx("BN_div", keep(a, b), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_div(r, nil, a.raw(), b.raw(), ctx) == 1
	})
}

// Mod returns the remainder paired with Div; it takes the sign of a.
func (a *BigNum) Mod(b *BigNum) (*BigNum, error) {
	return freshInCtx("BN_div", keep(a, b), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_div(nil, r, a.raw(), b.raw(), ctx) == 1
	})
}

// Sqr returns a².
func (a *BigNum) Sqr() (*BigNum, error) {
	return freshInCtx("BN_sqr", keep(a), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_sqr(r, a.raw(), ctx) == 1
	})
}

// Shl1 returns a * 2.
func (a *BigNum) Shl1() (*BigNum, error) {
	return fresh("BN_lshift1", keep(a), func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_lshift1(r, a.raw()) == 1
	})
}

// Shr1 returns a / 2.
func (a *BigNum) Shr1() (*BigNum, error) {
	return fresh("BN_rshift1", keep(a), func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_rshift1(r, a.raw()) == 1
	})
}

// Shl returns a * 2^k. k must not be negative.
func (a *BigNum) Shl(k int) (*BigNum, error) {
	ck, err := cint("BN_lshift", k, ReasonInvalidShift)
	if err != nil {
		return nil, err
	}
	return fresh("BN_lshift", keep(a), func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_lshift(r, a.raw(), ck) == 1
	})
}

// Shr returns a / 2^k. k must not be negative.
func (a *BigNum) Shr(k int) (*BigNum, error) {
	ck, err := cint("BN_rshift", k, ReasonInvalidShift)
	if err != nil {
		return nil, err
	}
	return fresh("BN_rshift", keep(a), func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_rshift(r, a.raw(), ck) == 1
	})
}

// ModAdd returns (a + b) mod n, in [0, n).
func (a *BigNum) ModAdd(b, n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_mod_add", keep(a, b, n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_mod_add(r, a.raw(), b.raw(), n.raw(), ctx) == 1
	})
}

// ModSub returns (a - b) mod n, in [0, n).
func (a *BigNum) ModSub(b, n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_mod_sub", keep(a, b, n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_mod_sub(r, a.raw(), b.raw(), n.raw(), ctx) == 1
	})
}

// ModMul returns (a * b) mod n, in [0, n).
func (a *BigNum) ModMul(b, n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_mod_mul", keep(a, b, n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_mod_mul(r, a.raw(), b.raw(), n.raw(), ctx) == 1
	})
}

// ModSqr returns a² mod n, in [0, n).
func (a *BigNum) ModSqr(n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_mod_sqr", keep(a, n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_mod_sqr(r, a.raw(), n.raw(), ctx) == 1
	})
}

// Exp returns a^p with no modulus. The result grows with p; keep p small.
func (a *BigNum) Exp(p *BigNum) (*BigNum, error) {
	return freshInCtx("BN_exp", keep(a, p), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_exp(r, a.raw(), p.raw(), ctx) == 1
	})
}

// ModExp returns a^p mod n.
func (a *BigNum) ModExp(p, n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_mod_exp", keep(a, p, n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_mod_exp(r, a.raw(), p.raw(), n.raw(), ctx) == 1
	})
}

// ModInverse returns x with a*x ≡ 1 (mod n). It fails when gcd(a, n) != 1.
func (a *BigNum) ModInverse(n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_mod_inverse", keep(a, n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_mod_inverse(r, a.raw(), n.raw(), ctx) != nil
	})
}

// NNMod returns the non-negative representative of a mod n.
func (a *BigNum) NNMod(n *BigNum) (*BigNum, error) {
	return freshInCtx("BN_nnmod", keep(a, n), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_nnmod(r, a.raw(), n.raw(), ctx) == 1
	})
}

// GCD returns the non-negative greatest common divisor of a and b.
func (a *BigNum) GCD(b *BigNum) (*BigNum, error) {
	return freshInCtx("BN_gcd", keep(a, b), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		return C.BN_gcd(r, a.raw(), b.raw(), ctx) == 1
	})
}
