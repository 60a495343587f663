package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CardValidity is how long a newly issued card stays valid.
const CardValidity = 4 * 365 * 24 * time.Hour

// IssueCardInput describes a card request. CreditLimit applies to CREDIT
// cards only and is forced to zero for DEBIT cards.
type IssueCardInput struct {
	AccountID   AccountID
	Type        CardType
	CreditLimit decimal.Decimal
}

// CardIssuer issues payment cards against existing, active accounts. Cards
// never move money, so issuing one takes no account lock.
type CardIssuer struct {
	Store Store
	Refs  *ReferenceGenerator
	Clock func() time.Time
}

func (c *CardIssuer) Issue(ctx context.Context, in IssueCardInput) (*Card, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidCardType
	}
	if in.CreditLimit.IsNegative() {
		return nil, fmt.Errorf("%w: credit limit %s", ErrInvalidAmount, in.CreditLimit)
	}

	acc, err := c.Store.GetAccount(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, fmt.Errorf("%w: account %d", ErrAccountInactive, acc.ID)
	}

	limit := in.CreditLimit
	if in.Type == CardDebit {
		limit = decimal.Zero
	}

	cvv, err := c.Refs.CVV()
	if err != nil {
		return nil, err
	}

	now := c.now()
	var card *Card
	err = mintReference(c.Refs, KindCardNumber, func(number string) error {
		candidate := &Card{
			AccountID:   acc.ID,
			CardNumber:  number,
			Type:        in.Type,
			Status:      CardActive,
			CreditLimit: limit,
			ExpiresAt:   now.Add(CardValidity),
			CVV:         cvv,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := c.Store.CreateCard(ctx, candidate); err != nil {
			return err
		}
		card = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (c *CardIssuer) List(ctx context.Context, id AccountID) ([]Card, error) {
	if _, err := c.Store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	cards, err := c.Store.ListCards(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list cards for account %d: %w", id, err)
	}
	if cards == nil {
		cards = []Card{}
	}
	return cards, nil
}

func (c *CardIssuer) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock()
}
