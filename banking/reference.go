package banking

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// REFERENCE GENERATOR - Collision-resistant tokens with a kind prefix
// =============================================================================

type ReferenceKind string

const (
	KindTransaction   ReferenceKind = "transaction"
	KindTransfer      ReferenceKind = "transfer"
	KindAccountNumber ReferenceKind = "account-number"
	KindCardNumber    ReferenceKind = "card-number"
)

const (
	TransactionPrefix   = "TXN-"
	TransferPrefix      = "TRF-"
	AccountNumberPrefix = "ACC"

	accountNumberDigits = 10
	cardNumberDigits    = 16
	cvvDigits           = 3
)

// MaxReferenceAttempts bounds how many fresh tokens are minted after a store
// reports ErrReferenceCollision.
const MaxReferenceAttempts = 8

// ReferenceGenerator is stateless and safe for concurrent use. Tokens are
// unique with overwhelming probability; the stores' unique constraints turn
// the remaining chance into ErrReferenceCollision, which mintReference
// absorbs.
type ReferenceGenerator struct {
	// Random is the entropy source. Defaults to crypto/rand.
	Random io.Reader
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{Random: rand.Reader}
}

// Next returns a new token of the given kind:
//
//	transaction     TXN-<32 hex>
//	transfer        TRF-<32 hex>
//	account-number  ACC<10 digits>
//	card-number     4<14 digits><Luhn check digit>
func (g *ReferenceGenerator) Next(kind ReferenceKind) (string, error) {
	switch kind {
	case KindTransaction:
		return g.prefixed(TransactionPrefix)
	case KindTransfer:
		return g.prefixed(TransferPrefix)
	case KindAccountNumber:
		digits, err := g.digits(accountNumberDigits)
		if err != nil {
			return "", err
		}
		return AccountNumberPrefix + digits, nil
	case KindCardNumber:
		body, err := g.digits(cardNumberDigits - 2)
		if err != nil {
			return "", err
		}
		payload := "4" + body
		return payload + string(rune('0'+luhnCheckDigit(payload))), nil
	default:
		return "", fmt.Errorf("unknown reference kind %q", kind)
	}
}

// CVV returns a random three-digit card verification value.
func (g *ReferenceGenerator) CVV() (string, error) {
	return g.digits(cvvDigits)
}

func (g *ReferenceGenerator) prefixed(prefix string) (string, error) {
	id, err := uuid.NewRandomFromReader(g.random())
	if err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	return prefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")), nil
}

func (g *ReferenceGenerator) digits(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(g.random(), ten)
		if err != nil {
			return "", fmt.Errorf("generate digits: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

func (g *ReferenceGenerator) random() io.Reader {
	if g == nil || g.Random == nil {
		return rand.Reader
	}
	return g.Random
}

// mintReference calls fn with fresh tokens until fn stops reporting
// ErrReferenceCollision.
func mintReference(g *ReferenceGenerator, kind ReferenceKind, fn func(ref string) error) error {
	for attempt := 0; attempt < MaxReferenceAttempts; attempt++ {
		ref, err := g.Next(kind)
		if err != nil {
			return err
		}
		if err := fn(ref); !errors.Is(err, ErrReferenceCollision) {
			return err
		}
	}
	return fmt.Errorf("%w: no unique %s after %d attempts", ErrTransactionFailed, kind, MaxReferenceAttempts)
}

// =============================================================================
// LUHN
// =============================================================================

// luhnCheckDigit returns the digit that makes payload+digit pass the
// Mod 10 check.
func luhnCheckDigit(payload string) int {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		n := int(payload[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return (10 - sum%10) % 10
}

// ValidLuhn reports whether number passes the Mod 10 check used by card
// networks.
func ValidLuhn(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}
