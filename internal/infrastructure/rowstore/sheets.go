package rowstore

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// dataRange skips the header row of every table.
const dataRange = "A2:ZZ"

// SheetsStore implements Store over the legacy Google Sheets workbook.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsStore builds a client from a service account key with spreadsheet
// scope and verifies the workbook is reachable.
func NewSheetsStore(ctx context.Context, spreadsheetID, credentialsFile string) (*SheetsStore, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if _, err := svc.Spreadsheets.Get(spreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("sheets open workbook: %w", err)
	}
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Open resolves the sheet's numeric id, which row deletion requires.
func (s *SheetsStore) Open(ctx context.Context, name string) (Table, error) {
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return &sheetsTable{
				svc:           s.svc,
				spreadsheetID: s.spreadsheetID,
				title:         name,
				sheetID:       sh.Properties.SheetId,
			}, nil
		}
	}
	return nil, fmt.Errorf("sheets: table %q not found", name)
}

type sheetsTable struct {
	svc           *sheets.Service
	spreadsheetID string
	title         string
	sheetID       int64
}

func (t *sheetsTable) ReadAll(ctx context.Context) ([][]string, error) {
	return t.ReadRange(ctx, fmt.Sprintf("%s!%s", t.title, dataRange))
}

func (t *sheetsTable) Append(ctx context.Context, row []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toValues(row)}}
	_, err := t.svc.Spreadsheets.Values.
		Append(t.spreadsheetID, t.title+"!A:A", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}

func (t *sheetsTable) WriteRow(ctx context.Context, index int, row []string) error {
	// Data row 0 lives at sheet row 2.
	target := fmt.Sprintf("%s!A%d", t.title, index+2)
	vr := &sheets.ValueRange{Values: [][]interface{}{toValues(row)}}
	_, err := t.svc.Spreadsheets.Values.
		Update(t.spreadsheetID, target, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets write row: %w", err)
	}
	return nil
}

func (t *sheetsTable) DeleteRow(ctx context.Context, index int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    t.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(index) + 1,
					EndIndex:   int64(index) + 2,
				},
			},
		}},
	}
	if _, err := t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets delete row: %w", err)
	}
	return nil
}

func (t *sheetsTable) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, a1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets read: %w", err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		out = append(out, row)
	}
	return out, nil
}

func toValues(row []string) []interface{} {
	vals := make([]interface{}, len(row))
	for i, cell := range row {
		vals[i] = cell
	}
	return vals
}
