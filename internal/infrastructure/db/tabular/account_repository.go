package tabular

import (
	"context"
	"fmt"
	"strings"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
)

// Users rows: Username | Name | Email | Department | Role | Password | Active.
const (
	userColUsername = iota
	userColName
	userColEmail
	userColDepartment
	userColRole
	userColPassword
	userColActive
)

// AccountRepository reads the workbook's Users sheet.
type AccountRepository struct {
	store rowstore.Store
}

func NewAccountRepository(store rowstore.Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// FindByUsername scans the directory case-insensitively. Rows missing the
// identity columns are rejected rather than matched half-empty.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	t, err := r.store.Open(ctx, usersTable)
	if err != nil {
		return nil, fmt.Errorf("open users: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}

	for i, row := range rows {
		if !strings.EqualFold(cell(row, userColUsername), username) {
			continue
		}
		if cell(row, userColUsername) == "" || cell(row, userColEmail) == "" || cell(row, userColRole) == "" {
			return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, usersTable, i)
		}
		return &domain.Account{
			Username:   cell(row, userColUsername),
			Name:       cell(row, userColName),
			Email:      cell(row, userColEmail),
			Department: cell(row, userColDepartment),
			Role:       strings.ToLower(cell(row, userColRole)),
			Credential: cell(row, userColPassword),
			Active:     rowstore.ParseBool(cell(row, userColActive)),
		}, nil
	}
	return nil, domain.ErrAccountNotFound
}
