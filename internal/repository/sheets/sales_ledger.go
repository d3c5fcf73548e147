package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/xchicks/internal/config"
	"github.com/mamadbah2/xchicks/internal/domain/models"
)

// SalesLedger mirrors delivered chick sales into a Google spreadsheet, one row per sale.
type SalesLedger struct {
	service       *sheetsapi.Service
	spreadsheetID string
	salesRange    string
	logger        *zap.Logger

	// appendRow is the Sheets append call; tests swap it for an in-memory sheet.
	appendRow func(ctx context.Context, sheetRange string, values []interface{}) error
}

// NewSalesLedger builds a ledger backed by the official Google Sheets API.
func NewSalesLedger(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*SalesLedger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SalesRange == "" {
		return nil, fmt.Errorf("sales range must not be empty")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("initialize sheets client: %w", err)
	}

	l := &SalesLedger{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		salesRange:    cfg.SalesRange,
		logger:        logger,
	}
	l.appendRow = l.appendValues
	return l, nil
}

// appendValues adds values as a new row after the table found in sheetRange.
func (l *SalesLedger) appendValues(ctx context.Context, sheetRange string, values []interface{}) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := l.service.Spreadsheets.Values.Append(l.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}
	return nil
}

// saleRow lays out date, request code, farmer, chicks, amount and recorder.
func saleRow(sale models.Sale, req models.ChickRequest, farmer models.Farmer) []interface{} {
	name := farmer.Name
	if farmer.FarmerID != "" {
		name = farmer.FarmerID + " " + farmer.Name
	}
	return []interface{}{
		sale.CreatedAt.Format("2006-01-02"),
		req.RequestCode,
		name,
		req.Quantity,
		sale.TotalAmount.StringFixed(2),
		sale.RecordedBy,
	}
}

// RecordSale appends the sale to the ledger sheet.
func (l *SalesLedger) RecordSale(ctx context.Context, sale models.Sale, req models.ChickRequest, farmer models.Farmer) error {
	if err := l.appendRow(ctx, l.salesRange, saleRow(sale, req, farmer)); err != nil {
		return err
	}
	l.logger.Debug("sale appended to sheet", zap.String("range", l.salesRange), zap.String("request", req.RequestCode))
	return nil
}
