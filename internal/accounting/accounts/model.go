package accounts

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// CreateAccountInput groups fields required to open an account.
type CreateAccountInput struct {
	Code           string
	Name           string
	Description    string
	Type           accounting.AccountType
	NormalSide     accounting.NormalSide
	Category       string
	ParentID       *uuid.UUID
	OpeningBalance decimal.Decimal
	// AllowDirectPosting defaults to true, or false for control accounts.
	AllowDirectPosting *bool
	IsControl          bool
	CreatedBy          string
}

// Validate checks the fields that need no ledger lookups.
func (in *CreateAccountInput) Validate() error {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" {
		return shared.InvalidAccount("", "", "code required")
	}
	if in.Name == "" {
		return shared.InvalidAccount("", in.Code, "name required")
	}
	if !in.Type.Valid() {
		return shared.InvalidAccount("", in.Code, "unknown account type "+string(in.Type))
	}
	if in.NormalSide == "" {
		in.NormalSide = in.Type.NormalSide()
	}
	if !in.NormalSide.Valid() {
		return shared.InvalidAccount("", in.Code, "unknown normal side "+string(in.NormalSide))
	}
	if in.NormalSide != in.Type.NormalSide() {
		return shared.InvalidAccount("", in.Code, "normal side "+string(in.NormalSide)+" contradicts type "+string(in.Type))
	}
	return nil
}

func (in CreateAccountInput) allowDirectPosting() bool {
	if in.AllowDirectPosting != nil {
		return *in.AllowDirectPosting
	}
	return !in.IsControl
}
