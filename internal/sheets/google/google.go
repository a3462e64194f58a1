// Package google implements the sheets ports against the Google Sheets API.
// The spreadsheet is the operator-facing source of truth: one tab with the
// transaction ledger and three reference tabs (categories, accounts and
// payment methods).
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fluxo/internal/core"
	ports "fluxo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	categoriesSheet   string
	accountsSheet     string
	methodsSheet      string
}

// Ensure interface conformance
var (
	_ ports.TransactionWriter  = (*Client)(nil)
	_ ports.TransactionLister  = (*Client)(nil)
	_ ports.ReferenceReader    = (*Client)(nil)
	_ ports.TransactionDeleter = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_SHEET_NAME (default "Lançamentos"),
// GOOGLE_CATEGORIES_SHEET_NAME (default "Categorias"),
// GOOGLE_ACCOUNTS_SHEET_NAME (default "Contas"),
// GOOGLE_METHODS_SHEET_NAME (default "Formas de Pagamento").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	transactions := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if transactions == "" {
		transactions = "Lançamentos"
	}
	categories := strings.TrimSpace(os.Getenv("GOOGLE_CATEGORIES_SHEET_NAME"))
	if categories == "" {
		categories = "Categorias"
	}
	accounts := strings.TrimSpace(os.Getenv("GOOGLE_ACCOUNTS_SHEET_NAME"))
	if accounts == "" {
		accounts = "Contas"
	}
	methods := strings.TrimSpace(os.Getenv("GOOGLE_METHODS_SHEET_NAME"))
	if methods == "" {
		methods = "Formas de Pagamento"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:               svc,
		spreadsheetID:     spreadsheetID,
		transactionsSheet: transactions,
		categoriesSheet:   categories,
		accountsSheet:     accounts,
		methodsSheet:      methods,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Append writes the transaction as a new ledger row and returns its range
// reference.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.transactionsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.transactionsSheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:L%d", c.transactionsSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{transactionRow(tx)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// ListTransactions scans the ledger tab and returns every parseable row.
// Parsing is best-effort: header rows and malformed rows are skipped so a
// single bad cell does not take the whole snapshot down.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:L", c.transactionsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []core.Transaction
	for i, row := range resp.Values {
		tx, ok := parseTransactionRow(toStrings(row))
		if !ok {
			if i > 0 {
				slog.DebugContext(ctx, "Skipping unparseable ledger row", "row", i+1)
			}
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// ListReference reads the three reference tabs in one batch.
func (c *Client) ListReference(ctx context.Context) (core.Reference, error) {
	if c.svc == nil {
		return core.Reference{}, errors.New("sheets service not initialized")
	}

	ranges := []string{
		fmt.Sprintf("%s!A2:C", c.categoriesSheet),
		fmt.Sprintf("%s!A2:C", c.accountsSheet),
		fmt.Sprintf("%s!A2:D", c.methodsSheet),
	}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return core.Reference{}, fmt.Errorf("batch read reference tabs: %w", err)
	}
	if len(resp.ValueRanges) != 3 {
		return core.Reference{}, fmt.Errorf("unexpected reference response: got %d ranges, want 3", len(resp.ValueRanges))
	}

	var ref core.Reference
	for _, row := range resp.ValueRanges[0].Values {
		if cat, ok := parseCategoryRow(toStrings(row)); ok {
			ref.Categories = append(ref.Categories, cat)
		}
	}
	for _, row := range resp.ValueRanges[1].Values {
		if acct, ok := parseAccountRow(toStrings(row)); ok {
			ref.Accounts = append(ref.Accounts, acct)
		}
	}
	for _, row := range resp.ValueRanges[2].Values {
		if m, ok := parsePaymentMethodRow(toStrings(row)); ok {
			ref.PaymentMethods = append(ref.PaymentMethods, m)
		}
	}
	return ref, nil
}

// DeleteTransaction removes the ledger row whose first column matches id.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("empty transaction id")
	}

	rng := fmt.Sprintf("%s!A:A", c.transactionsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	rowIndex := -1
	for i, row := range resp.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			rowIndex = i
			break
		}
	}
	if rowIndex == -1 {
		return fmt.Errorf("%w: %s in sheet %s", ports.ErrNotFound, id, c.transactionsSheet)
	}

	sheetID, err := c.sheetID(ctx, c.transactionsSheet)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", rowIndex+1, c.transactionsSheet, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, name string) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", name)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
