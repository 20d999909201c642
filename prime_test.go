package bn

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafePrimeGeneration(t *testing.T) {
	// rem without add places no constraint on the result
	rem := tracked(t)(NewFromUint64(19029017))
	p := tracked(t)(GeneratePrime(128, true, nil, rem))
	assert.Equal(t, 128, p.NumBits())

	prime, err := p.IsPrime(100)
	require.NoError(t, err)
	assert.True(t, prime)

	prime, err = p.IsPrimeFast(100, true)
	require.NoError(t, err)
	assert.True(t, prime)

	half := tracked(t)(p.Shr1())
	prime, err = half.IsPrime(100)
	require.NoError(t, err)
	assert.True(t, prime, "(p-1)/2 = %s is not prime", half)
}

func TestGeneratePrimeCongruence(t *testing.T) {
	add := tracked(t)(NewFromUint64(12))

	t.Run("add and rem", func(t *testing.T) {
		rem := tracked(t)(NewFromUint64(5))
		p := tracked(t)(GeneratePrime(64, false, add, rem))
		assert.Equal(t, "5", tracked(t)(p.Mod(add)).String())
	})

	t.Run("add only", func(t *testing.T) {
		p := tracked(t)(GeneratePrime(64, false, add, nil))
		assert.Equal(t, "1", tracked(t)(p.Mod(add)).String())
	})
}

func TestGeneratePrimeTooSmall(t *testing.T) {
	p, err := GeneratePrime(1, false, nil, nil)
	assert.Nil(t, p)
	var snap *Error
	require.ErrorAs(t, err, &snap)
	assert.True(t, snap.HasReason(LibBN, ReasonBitsTooSmall), snap.Error())
}

func TestIsPrimeKnownValues(t *testing.T) {
	cases := map[uint64]bool{
		1:          false,
		2:          true,
		3:          true,
		91:         false,
		97:         true,
		561:        false, // Carmichael
		7919:       true,
		1000000007: true,
		1000000008: false,
	}
	for v, want := range cases {
		b := tracked(t)(NewFromUint64(v))
		got, err := b.IsPrime(64)
		require.NoError(t, err)
		assert.Equal(t, want, got, "IsPrime(%d)", v)

		got, err = b.IsPrimeFast(64, false)
		require.NoError(t, err)
		assert.Equal(t, want, got, "IsPrimeFast(%d)", v)
	}
}

func TestPrimeProgressEvents(t *testing.T) {
	seen := make(map[PrimeStage]int)
	p := tracked(t)(GeneratePrimeWithProgress(128, false, nil, nil, func(stage PrimeStage, n int) {
		seen[stage]++
	}))
	assert.Equal(t, 128, p.NumBits())
	assert.Greater(t, seen[PrimeCandidate], 0)
	assert.Greater(t, seen[PrimeTestRound], 0)
}

func TestPrimeProgressPanicAbortsGeneration(t *testing.T) {
	logger, hook := test.NewNullLogger()
	prev := CurrentConfig()
	Configure(Config{Logger: logger})
	t.Cleanup(func() { Configure(prev) })

	owned.start()
	defer owned.stop()

	p, err := GeneratePrimeWithProgress(256, false, nil, nil, func(PrimeStage, int) {
		panic("boom")
	})
	assert.Nil(t, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	var snap *Error
	require.True(t, errors.As(err, &snap))
	assert.Equal(t, "BN_generate_prime_ex2", snap.Op)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Message, "boom")

	for site, n := range owned.outstanding() {
		assert.Zero(t, n, "%s handles leaked", site)
	}
}

func TestPrimeStageString(t *testing.T) {
	assert.Equal(t, "candidate", PrimeCandidate.String())
	assert.Equal(t, "test-round", PrimeTestRound.String())
	assert.Equal(t, "found", PrimeFound.String())
	assert.Equal(t, "stage-7", PrimeStage(7).String())
}

func TestPrimeWideArguments(t *testing.T) {
	p, err := GeneratePrime(wideIndex(t, 64), false, nil, nil)
	assert.Nil(t, p)
	var snap *Error
	require.ErrorAs(t, err, &snap)
	assert.Equal(t, "BN_generate_prime_ex2", snap.Op)
	assert.True(t, snap.HasReason(LibBN, ReasonInvalidLength), snap.Error())

	b := tracked(t)(NewFromUint64(97))
	_, err = b.IsPrime(wideIndex(t, 0))
	require.ErrorAs(t, err, &snap)
	assert.True(t, snap.HasReason(LibBN, ReasonInvalidLength), snap.Error())

	_, err = b.IsPrimeFast(wideIndex(t, 0), true)
	require.ErrorAs(t, err, &snap)
	assert.Equal(t, "BN_is_prime_fasttest_ex", snap.Op)
}
