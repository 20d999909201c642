package bn

import (
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failNth arms the allocation hook to fail the nth allocation (counting from
// zero) and returns a counter of the allocations attempted.
func failNth(t *testing.T, n int) *int {
	calls := new(int)
	allocFault = func(allocSite) bool {
		*calls++
		return *calls == n+1
	}
	t.Cleanup(func() { allocFault = nil })
	return calls
}

func TestAllocationFailuresDoNotLeak(t *testing.T) {
	a := fromInt(t, 123456789)
	b := fromInt(t, -987654321)
	n := tracked(t)(NewFromUint64(1000000007))
	e := tracked(t)(NewFromUint64(65537))
	add := tracked(t)(NewFromUint64(12))
	rem := tracked(t)(NewFromUint64(5))

	ops := map[string]func() (*BigNum, error){
		"Add":           func() (*BigNum, error) { return a.Add(b) },
		"Mul":           func() (*BigNum, error) { return a.Mul(b) },
		"Div":           func() (*BigNum, error) { return a.Div(b) },
		"ModExp":        func() (*BigNum, error) { return a.ModExp(e, n) },
		"ModInverse":    func() (*BigNum, error) { return a.ModInverse(n) },
		"NewFromUint64": func() (*BigNum, error) { return NewFromUint64(42) },
		"NewFromBytes":  func() (*BigNum, error) { return NewFromBytes([]byte{1, 2, 3}) },
		"RandRange":     func() (*BigNum, error) { return RandRange(n) },
		"GeneratePrime": func() (*BigNum, error) {
			return GeneratePrimeWithProgress(64, false, add, rem, func(PrimeStage, int) {})
		},
		"IsPrime": func() (*BigNum, error) {
			_, err := n.IsPrime(20)
			return nil, err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			for fail := 0; ; fail++ {
				calls := failNth(t, fail)
				owned.start()
				r, err := op()
				counts := owned.outstanding()
				owned.stop()
				allocFault = nil

				assert.Zero(t, counts[siteScratch], "fault %d: scratch leaked", fail)
				assert.Zero(t, counts[siteCallback], "fault %d: callback leaked", fail)
				switch {
				case err != nil:
					assert.Nil(t, r)
					assert.Zero(t, counts[siteBigNum], "fault %d: bignum leaked", fail)
					var snap *Error
					assert.ErrorAs(t, err, &snap)
				case r != nil:
					assert.Equal(t, 1, counts[siteBigNum], "fault %d", fail)
					assert.True(t, owned.owns(r))
					r.Free()
				default:
					assert.Zero(t, counts[siteBigNum], "fault %d", fail)
				}

				if *calls <= fail {
					// every allocation site has been failed once
					require.NoError(t, err, "no fault fired yet the op failed")
					break
				}
				require.Error(t, err, "fault %d was swallowed", fail)
			}
		})
	}
}

func TestResultIsOwnedByCaller(t *testing.T) {
	a, b := fromInt(t, 99), fromInt(t, 101)
	owned.start()
	defer owned.stop()

	r := tracked(t)(a.ModMul(b, fromInt(t, 7)))
	assert.True(t, owned.owns(r))
	assert.False(t, owned.owns(a))

	counts := owned.outstanding()
	// the modulus was created after tracking started
	assert.Equal(t, 2, counts[siteBigNum])
	assert.Zero(t, counts[siteScratch])
}

func TestCloneFaultPanicsWithoutLeak(t *testing.T) {
	a := fromInt(t, 5)
	failNth(t, 0)
	owned.start()
	defer owned.stop()

	assert.Panics(t, func() { a.Clone() })
	assert.Empty(t, owned.outstanding())
}

func TestPanicInsidePrimitiveUnwinds(t *testing.T) {
	a := fromInt(t, 5)
	dead, err := NewFromUint64(6)
	require.NoError(t, err)
	dead.Free()

	owned.start()
	defer owned.stop()

	assert.PanicsWithValue(t, errFreed, func() { a.Mul(dead) })
	assert.PanicsWithValue(t, errFreed, func() { a.Add(dead) })
	for site, n := range owned.outstanding() {
		assert.Zero(t, n, "%s handles leaked", site)
	}
}

func TestStaleErrorQueueIsDiscarded(t *testing.T) {
	logger, hook := test.NewNullLogger()
	prev := CurrentConfig()
	Configure(Config{Logger: logger})
	t.Cleanup(func() { Configure(prev) })

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// leave an unrelated entry on this thread's queue
	failNth(t, 0)
	require.True(t, injectFault(siteBigNum))
	allocFault = nil

	r := tracked(t)(NewFromUint64(3))
	assert.Equal(t, "3", r.String())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 1, entry.Data["entries"])

	// the stale entry must not leak into the next failure's snapshot
	_, err := r.Div(tracked(t)(NewBigNum()))
	var snap *Error
	require.ErrorAs(t, err, &snap)
	for _, e := range snap.Entries() {
		assert.NotContains(t, e.Reason, "malloc")
	}
}

func TestSecureScratch(t *testing.T) {
	prev := CurrentConfig()
	Configure(Config{SecureScratch: true})
	t.Cleanup(func() { Configure(prev) })

	a, b := fromInt(t, 1<<40), fromInt(t, 3)
	assert.Equal(t, "366503875925", tracked(t)(a.Div(b)).String())
}
