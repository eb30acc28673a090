package app

import (
	"context"
	"errors"
	"net/http"

	"habitquest/api/internal/game"
	"habitquest/api/internal/mapping"
	"habitquest/api/internal/portfolio"
	"habitquest/api/internal/sheets"
	"habitquest/api/internal/tabular"
)

type mappingsRequest struct {
	sheets.Credentials
	ViewID string `json:"viewId"`
}

type MappingsResult struct {
	ViewID  string                       `json:"viewId"`
	Display map[string]map[string]string `json:"display"`
	Options map[string][]tabular.Row     `json:"options"`
}

// LoadMappings resolves every mapping rule declared for the view against
// the caller's spreadsheet and returns the lookup tables plus the dropdown
// option rows.
func (s *Service) LoadMappings(ctx context.Context, creds sheets.Credentials, viewID string) (MappingsResult, error) {
	if err := requireCredentials(creds); err != nil {
		return MappingsResult{}, err
	}
	if viewID == "" {
		return MappingsResult{}, domainError(http.StatusBadRequest, "CONFIG_MISSING", "missing required field: viewId")
	}

	resolver := mapping.NewResolver(&serviceReader{service: s, creds: creds}, nil)
	if err := resolver.Load(ctx, viewID); err != nil {
		return MappingsResult{}, upstream(err)
	}

	result := MappingsResult{
		ViewID:  viewID,
		Display: make(map[string]map[string]string),
		Options: make(map[string][]tabular.Row),
	}
	for _, rule := range resolver.Rules(viewID) {
		result.Display[rule.TargetColumn] = resolver.Lookup(rule.TargetColumn)
		result.Options[rule.TargetColumn] = resolver.Options(rule.TargetColumn)
	}
	return result, nil
}

type summaryRequest struct {
	sheets.Credentials
	InvestmentSheet string `json:"investmentSheet"`
	AccountsSheet   string `json:"accountsSheet"`
}

type SummaryResult struct {
	Summary     portfolio.Summary      `json:"summary"`
	Investments []portfolio.Investment `json:"investments"`
	Accounts    []portfolio.Account    `json:"accounts"`
}

// InvestmentSummary reads the investment and account sheets, normalizes
// both and nets the invested amounts per account.
func (s *Service) InvestmentSummary(ctx context.Context, creds sheets.Credentials, investmentSheet, accountsSheet string) (SummaryResult, error) {
	if investmentSheet == "" {
		investmentSheet = "INVESTMENT"
	}
	if accountsSheet == "" {
		accountsSheet = "ACCOUNTS"
	}

	invResult, err := s.ReadSheet(ctx, creds, investmentSheet, nil)
	if err != nil {
		return SummaryResult{}, err
	}
	accResult, err := s.ReadSheet(ctx, creds, accountsSheet, nil)
	if err != nil {
		return SummaryResult{}, err
	}

	investments := portfolio.NormalizeInvestments(invResult.Data)
	accounts := portfolio.NormalizeAccounts(accResult.Data)
	return SummaryResult{
		Summary:     portfolio.Summarize(investments, accounts),
		Investments: investments,
		Accounts:    accounts,
	}, nil
}

// serviceReader adapts the service to the mapping resolver's Reader,
// binding one caller's credentials.
type serviceReader struct {
	service *Service
	creds   sheets.Credentials
}

func (r *serviceReader) ReadSheet(ctx context.Context, sheetName string, filters tabular.FilterSpec) ([]tabular.Row, error) {
	result, err := r.service.ReadSheet(ctx, r.creds, sheetName, filters)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (s *Service) deleteHabit(ctx context.Context, id string) error {
	if err := s.game.DeleteHabit(ctx, id); err != nil {
		if errors.Is(err, game.ErrNotFound) {
			return domainError(http.StatusNotFound, "ROW_NOT_FOUND", "no habit matches id "+id)
		}
		return domainError(http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}
	return nil
}
