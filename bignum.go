// Package bn wraps OpenSSL's arbitrary-precision integers (BIGNUM).
//
// Every operation that can fail returns a fresh *BigNum or an *Error holding
// the OpenSSL error queue captured at the failure. Values own their native
// handle exclusively and scrub it when freed; call Free once a value is no
// longer needed; a finalizer is only a safety net. A BigNum must not be
// mutated from two goroutines at once.
package bn

// #include "shim.h"
import "C"
import (
	"errors"
	"runtime"
	"unsafe"
)

var errFreed = errors.New("bn: use of freed BigNum")

type BigNum struct {
	bn *C.BIGNUM
}

// allocBigNum must run on a locked thread with a clear error queue.
func allocBigNum(op string) (*BigNum, error) {
	var raw *C.BIGNUM
	if !injectFault(siteBigNum) {
		raw = C.BN_new()
	}
	if raw == nil {
		return nil, errorFromErrorQueue(op)
	}
	return wrapBigNum(raw), nil
}

func wrapBigNum(raw *C.BIGNUM) *BigNum {
	owned.acquire(unsafe.Pointer(raw), siteBigNum)
	b := &BigNum{bn: raw}
	runtime.SetFinalizer(b, func(b *BigNum) { b.release() })
	return b
}

func (b *BigNum) release() {
	if b.bn != nil {
		owned.release(unsafe.Pointer(b.bn))
		C.BN_clear_free(b.bn)
		b.bn = nil
	}
}

// Free scrubs and releases the underlying bignum. Calling it again, or on a
// nil BigNum, does nothing.
func (b *BigNum) Free() {
	if b == nil {
		return
	}
	b.release()
	runtime.SetFinalizer(b, nil)
}

func (b *BigNum) raw() *C.BIGNUM {
	if b == nil || b.bn == nil {
		panic(errFreed)
	}
	return b.bn
}

// NewBigNum returns a new BigNum valued zero.
func NewBigNum() (*BigNum, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()
	return allocBigNum("BN_new")
}

// NewFromUint64 returns a new BigNum valued n.
func NewFromUint64(n uint64) (*BigNum, error) {
	return fresh("BN_set_word", nil, func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_set_word(r, C.BN_ULONG(n)) == 1
	})
}

// NewFromBytes interprets data as an unsigned big-endian magnitude. Empty
// input yields zero.
func NewFromBytes(data []byte) (*BigNum, error) {
	if len(data) == 0 {
		return NewBigNum()
	}
	return fresh("BN_bin2bn", nil, func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		return C.BN_bin2bn(
			(*C.uchar)(unsafe.Pointer(&data[0])), C.int(len(data)), r,
		) != nil
	})
}

// NewFromDecimal parses a signed decimal string as produced by DecimalString.
// The whole string must be a number.
func NewFromDecimal(s string) (*BigNum, error) {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))

	return fresh("BN_dec2bn", nil, func(r *C.BIGNUM, _ *C.BN_CTX) bool {
		// BN_dec2bn fills a non-NULL *bn in place
		out := r
		n := C.BN_dec2bn(&out, cs)
		return n > 0 && int(n) == len(s)
	})
}

// Bytes returns the magnitude, most significant byte first, without sign.
// Zero gives an empty slice.
func (b *BigNum) Bytes() []byte {
	size := b.NumBytes()
	buf := make([]byte, size)
	if size == 0 {
		return buf
	}
	C.BN_bn2bin(b.raw(), (*C.uchar)(unsafe.Pointer(&buf[0])))
	runtime.KeepAlive(b)
	return buf
}

// DecimalString formats b as canonical signed decimal.
func (b *BigNum) DecimalString() (string, error) {
	defer runtime.KeepAlive(b)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	buf := C.BN_bn2dec(b.raw())
	if buf == nil {
		return "", errorFromErrorQueue("BN_bn2dec")
	}
	defer C.X_OPENSSL_free(unsafe.Pointer(buf))
	return C.GoString(buf), nil
}

// String formats b in decimal. It panics if OpenSSL cannot allocate the
// conversion buffer.
func (b *BigNum) String() string {
	s, err := b.DecimalString()
	if err != nil {
		abort("bn: formatting BigNum: %v", err)
	}
	return s
}

// Uint64 returns b as a machine word when it is non-negative and fits.
func (b *BigNum) Uint64() (uint64, bool) {
	wordBits := int(unsafe.Sizeof(C.BN_ULONG(0))) * 8
	if b.IsNegative() || b.NumBits() > wordBits {
		return 0, false
	}
	v := uint64(C.BN_get_word(b.raw()))
	runtime.KeepAlive(b)
	return v, true
}

// NumBits returns the position of the highest set bit plus one; zero for zero.
func (b *BigNum) NumBits() int {
	n := int(C.BN_num_bits(b.raw()))
	runtime.KeepAlive(b)
	return n
}

// NumBytes returns the length of Bytes.
func (b *BigNum) NumBytes() int {
	n := int(C.X_BN_num_bytes(b.raw()))
	runtime.KeepAlive(b)
	return n
}

func (b *BigNum) IsZero() bool {
	z := C.BN_is_zero(b.raw()) == 1
	runtime.KeepAlive(b)
	return z
}

func (b *BigNum) IsNegative() bool {
	neg := C.BN_is_negative(b.raw()) != 0
	runtime.KeepAlive(b)
	return neg
}

// Sign returns -1, 0 or +1.
func (b *BigNum) Sign() int {
	switch {
	case b.IsZero():
		return 0
	case b.IsNegative():
		return -1
	}
	return 1
}

// Negate flips the sign of b in place. Zero stays non-negative.
func (b *BigNum) Negate() {
	neg := C.int(1)
	if b.IsNegative() {
		neg = 0
	}
	C.BN_set_negative(b.raw(), neg)
	runtime.KeepAlive(b)
}

// Cmp compares a and b as signed integers and returns -1, 0 or +1.
func (a *BigNum) Cmp(b *BigNum) int {
	c := C.BN_cmp(a.raw(), b.raw())
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	return ordering(c)
}

// CmpAbs compares the magnitudes of a and b, ignoring sign.
func (a *BigNum) CmpAbs(b *BigNum) int {
	c := C.BN_ucmp(a.raw(), b.raw())
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	return ordering(c)
}

// ordering folds a C comparison result, which BN_ucmp does not bound to ±1,
// into -1, 0 or +1.
func ordering(c C.int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	}
	return 0
}

// Equal reports numerical equality.
func (a *BigNum) Equal(b *BigNum) bool {
	return a.Cmp(b) == 0
}

// SetBit sets bit i, growing the magnitude when needed.
func (b *BigNum) SetBit(i int) error {
	ci, err := cint("BN_set_bit", i, ReasonInvalidLength)
	if err != nil {
		return err
	}
	return b.mutate("BN_set_bit", func(bn *C.BIGNUM) C.int {
		return C.BN_set_bit(bn, ci)
	})
}

// ClearBit clears bit i. Bits beyond the magnitude are already clear, so
// clearing one changes nothing. A negative i fails.
func (b *BigNum) ClearBit(i int) error {
	ci, err := cint("BN_clear_bit", i, ReasonInvalidLength)
	if err != nil {
		return err
	}
	if i >= 0 && i >= b.NumBits() {
		return nil
	}
	return b.mutate("BN_clear_bit", func(bn *C.BIGNUM) C.int {
		return C.BN_clear_bit(bn, ci)
	})
}

// IsBitSet reports bit i; bits beyond the magnitude and negative i read as
// unset.
func (b *BigNum) IsBitSet(i int) bool {
	if i < 0 || i >= b.NumBits() {
		return false
	}
	set := C.BN_is_bit_set(b.raw(), C.int(i)) == 1
	runtime.KeepAlive(b)
	return set
}

// MaskBits truncates b to its low i bits. It fails when b already has fewer
// than i significant bits.
func (b *BigNum) MaskBits(i int) error {
	ci, err := cint("BN_mask_bits", i, ReasonInvalidLength)
	if err != nil {
		return err
	}
	switch n := b.NumBits(); {
	case i > n:
		return raise("BN_mask_bits", ReasonInvalidLength)
	case i == n:
		// libcrypto rejects a mask ending on the value's last word boundary
		return nil
	}
	return b.mutate("BN_mask_bits", func(bn *C.BIGNUM) C.int {
		return C.BN_mask_bits(bn, ci)
	})
}
