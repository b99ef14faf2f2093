package accounts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
)

type createAccountRequest struct {
	Code               string          `json:"code" validate:"required,max=32"`
	Name               string          `json:"name" validate:"required,max=200"`
	Description        string          `json:"description"`
	Type               string          `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	NormalSide         string          `json:"normal_side" validate:"omitempty,oneof=DEBIT CREDIT"`
	Category           string          `json:"category"`
	ParentID           *uuid.UUID      `json:"parent_id"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	AllowDirectPosting *bool           `json:"allow_direct_posting"`
	IsControl          bool            `json:"is_control"`
}

func (r createAccountRequest) toInput(actor string) CreateAccountInput {
	return CreateAccountInput{
		Code:               r.Code,
		Name:               r.Name,
		Description:        r.Description,
		Type:               accounting.AccountType(r.Type),
		NormalSide:         accounting.NormalSide(r.NormalSide),
		Category:           r.Category,
		ParentID:           r.ParentID,
		OpeningBalance:     r.OpeningBalance,
		AllowDirectPosting: r.AllowDirectPosting,
		IsControl:          r.IsControl,
		CreatedBy:          actor,
	}
}

type moveRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

type balanceResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	AsOf      string          `json:"as_of,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

type pathResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Path      []string  `json:"path"`
}
