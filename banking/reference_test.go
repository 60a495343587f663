package banking

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hexToken      = regexp.MustCompile(`^[0-9A-F]{32}$`)
	accountNumber = regexp.MustCompile(`^ACC[0-9]{10}$`)
	cardNumber    = regexp.MustCompile(`^4[0-9]{15}$`)
)

func TestReferenceGenerator_Formats(t *testing.T) {
	g := NewReferenceGenerator()

	txn, err := g.Next(KindTransaction)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(txn, TransactionPrefix))
	assert.Regexp(t, hexToken, strings.TrimPrefix(txn, TransactionPrefix))

	trf, err := g.Next(KindTransfer)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(trf, TransferPrefix))
	assert.Regexp(t, hexToken, strings.TrimPrefix(trf, TransferPrefix))

	acc, err := g.Next(KindAccountNumber)
	require.NoError(t, err)
	assert.Regexp(t, accountNumber, acc)

	card, err := g.Next(KindCardNumber)
	require.NoError(t, err)
	assert.Regexp(t, cardNumber, card)
	assert.True(t, ValidLuhn(card))

	cvv, err := g.CVV()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{3}$`, cvv)

	_, err = g.Next(ReferenceKind("voucher"))
	assert.Error(t, err)
}

func TestReferenceGenerator_NoRepeatsAcrossManyCalls(t *testing.T) {
	g := NewReferenceGenerator()
	const n = 50_000

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ref, err := g.Next(KindTransaction)
		require.NoError(t, err)
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s after %d calls", ref, i)
		seen[ref] = struct{}{}
	}
}

func TestReferenceGenerator_CardNumbersAlwaysPassLuhn(t *testing.T) {
	g := NewReferenceGenerator()
	for i := 0; i < 1000; i++ {
		number, err := g.Next(KindCardNumber)
		require.NoError(t, err)
		require.True(t, ValidLuhn(number), number)
	}
}

func TestReferenceGenerator_BrokenEntropy(t *testing.T) {
	g := &ReferenceGenerator{Random: failingReader{}}

	_, err := g.Next(KindTransaction)
	assert.Error(t, err)
	_, err = g.Next(KindAccountNumber)
	assert.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestValidLuhn(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"4539578763621486", true},
		{"4111111111111111", true},
		{"79927398713", true},
		{"4111111111111112", false},
		{"4111-1111-1111-1111", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidLuhn(tt.number), tt.number)
	}
}

func TestLuhnCheckDigit_CompletesPayload(t *testing.T) {
	assert.Equal(t, 3, luhnCheckDigit("7992739871"))
	assert.Equal(t, 1, luhnCheckDigit("411111111111111"))
}

// =============================================================================
// MINTING WITH COLLISION RETRY
// =============================================================================

func TestMintReference_RetriesOnCollision(t *testing.T) {
	g := NewReferenceGenerator()
	var tried []string

	err := mintReference(g, KindTransfer, func(ref string) error {
		tried = append(tried, ref)
		if len(tried) < 3 {
			return ErrReferenceCollision
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, tried, 3)
	assert.NotEqual(t, tried[0], tried[1], "every attempt gets a fresh token")
	assert.NotEqual(t, tried[1], tried[2])
}

func TestMintReference_GivesUpAfterMaxAttempts(t *testing.T) {
	g := NewReferenceGenerator()
	calls := 0

	err := mintReference(g, KindTransaction, func(string) error {
		calls++
		return ErrReferenceCollision
	})

	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.NotErrorIs(t, err, ErrReferenceCollision)
	assert.Equal(t, MaxReferenceAttempts, calls)
}

func TestMintReference_OtherErrorsStopImmediately(t *testing.T) {
	g := NewReferenceGenerator()
	calls := 0

	err := mintReference(g, KindTransaction, func(string) error {
		calls++
		return ErrAccountInactive
	})

	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.Equal(t, 1, calls)
}
