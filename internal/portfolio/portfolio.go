// Package portfolio turns raw investment and account sheet rows into typed
// records and aggregates them into the dashboard's KPI numbers. Cell values
// are strings with no schema behind them, so every numeric field goes
// through defensive decimal coercion.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"habitquest/api/internal/tabular"
)

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Investment struct {
	Date     string          `json:"date"`
	Category string          `json:"category"` // account id reference
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
	Type     string          `json:"type"` // "buy" or "sell"
}

// NormalizeAccounts maps account sheet rows to typed records, preferring the
// account_id column over a generic id.
func NormalizeAccounts(rows []tabular.Row) []Account {
	accounts := make([]Account, 0, len(rows))
	for _, row := range rows {
		id := row["account_id"]
		if id == "" {
			id = row["id"]
		}
		accountType := row["account_type"]
		if accountType == "" {
			accountType = "Unknown"
		}
		accounts = append(accounts, Account{
			ID:   id,
			Name: row["account_name"],
			Type: accountType,
		})
	}
	return accounts
}

// NormalizeInvestments coerces quantity/price/amount, derives a missing
// amount from quantity x price, infers buy/sell from the quantity sign and
// sorts ascending by date.
func NormalizeInvestments(rows []tabular.Row) []Investment {
	investments := make([]Investment, 0, len(rows))
	for _, row := range rows {
		name := row["name"]
		if name == "" {
			name = row["item_name"]
		}
		if name == "" {
			name = "Unknown Item"
		}

		qty := coerce(row["quantity"])
		if qty.IsZero() {
			qty = coerce(row["qty"])
		}
		price := coerce(row["price"])
		amount := coerce(row["amount"])
		if amount.IsZero() {
			amount = qty.Mul(price)
		}

		side := "buy"
		if qty.IsNegative() {
			side = "sell"
		}

		investments = append(investments, Investment{
			Date:     row["date"],
			Category: row["category"],
			Name:     name,
			Quantity: qty,
			Price:    price,
			Amount:   amount,
			Note:     row["note"],
			Type:     side,
		})
	}

	// ISO dates compare correctly as strings.
	sort.SliceStable(investments, func(i, j int) bool {
		return investments[i].Date < investments[j].Date
	})
	return investments
}

type AccountSummary struct {
	AccountID   string          `json:"accountId"`
	AccountName string          `json:"accountName"`
	Invested    decimal.Decimal `json:"invested"`
	Buys        int             `json:"buys"`
	Sells       int             `json:"sells"`
}

type Summary struct {
	TotalInvested decimal.Decimal  `json:"totalInvested"`
	Accounts      []AccountSummary `json:"accounts"`
}

// Summarize nets invested amounts per account. Investments referencing an
// unknown account keep their raw category value as the display name, the
// same availability-over-integrity fallback the mapping resolver uses.
func Summarize(investments []Investment, accounts []Account) Summary {
	nameByID := make(map[string]string, len(accounts))
	for _, account := range accounts {
		nameByID[account.ID] = account.Name
	}

	order := make([]string, 0)
	byAccount := make(map[string]*AccountSummary)
	total := decimal.Zero

	for _, inv := range investments {
		summary, ok := byAccount[inv.Category]
		if !ok {
			name := nameByID[inv.Category]
			if name == "" {
				name = inv.Category
			}
			summary = &AccountSummary{AccountID: inv.Category, AccountName: name}
			byAccount[inv.Category] = summary
			order = append(order, inv.Category)
		}

		summary.Invested = summary.Invested.Add(inv.Amount)
		if inv.Type == "sell" {
			summary.Sells++
		} else {
			summary.Buys++
		}
		total = total.Add(inv.Amount)
	}

	result := Summary{TotalInvested: total, Accounts: make([]AccountSummary, 0, len(order))}
	for _, id := range order {
		result.Accounts = append(result.Accounts, *byAccount[id])
	}
	return result
}

func coerce(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}
