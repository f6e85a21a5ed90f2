package proposal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

const MaxImportRows = 1000

var requiredColumns = []string{"name", "price", "auction_type", "section_ids"}

// CreateFunc создаёт одно предложение. Импорт не знает, кто именно его создаёт.
type CreateFunc func(ctx context.Context, ownerID uuid.UUID, fields entity.ProposalFields) (*entity.Proposal, error)

type RowResult struct {
	Line       int        `json:"line"`
	ProposalID *uuid.UUID `json:"proposal_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type ImportResult struct {
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Rows    []RowResult `json:"rows"`
	// Aborted означает, что хранилище стало недоступно и оставшиеся строки не обработаны.
	Aborted bool `json:"aborted"`
}

// Importer загружает предложения из CSV построчно. Ошибка в строке не прерывает импорт.
// Файл целиком читается и проверяется до создания первого предложения.
type Importer struct {
	create CreateFunc
}

func NewImporter(create CreateFunc) *Importer {
	return &Importer{create: create}
}

func (i *Importer) Import(ctx context.Context, ownerID uuid.UUID, r io.Reader) (*ImportResult, error) {
	columns, records, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Rows: make([]RowResult, 0, len(records))}
	for idx, record := range records {
		line := idx + 2
		if result.Aborted {
			result.Skipped++
			result.Rows = append(result.Rows, RowResult{Line: line, Error: "не обработана: импорт прерван"})
			continue
		}

		row := RowResult{Line: line}
		fields, err := parseRow(columns, record)
		if err == nil {
			var p *entity.Proposal
			p, err = i.create(ctx, ownerID, fields)
			if err == nil {
				row.ProposalID = &p.ID
			}
		}
		switch {
		case err == nil:
			result.Created++
		case apperror.IsStoreUnavailable(err):
			// Уже созданные строки остаются, клиент видит их в ответе и повторяет только остальные.
			result.Aborted = true
			result.Failed++
			row.Error = errorMessage(err)
		default:
			result.Failed++
			row.Error = errorMessage(err)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// readRecords разбирает весь файл и проверяет заголовок и число строк.
func readRecords(r io.Reader) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, "файл импорта пуст")
		}
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, "не удалось прочитать заголовок CSV")
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, "в CSV нет колонки "+name)
		}
	}

	var records [][]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, fmt.Sprintf("строка %d: некорректный CSV", line))
		}
		if len(records) == MaxImportRows {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("не более %d строк за один импорт", MaxImportRows))
		}
		records = append(records, record)
	}
	return columns, records, nil
}

func parseRow(columns map[string]int, record []string) (entity.ProposalFields, error) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	fields := entity.ProposalFields{
		Name:        get("name"),
		Description: get("description"),
		AuctionType: get("auction_type"),
		Terms:       get("terms"),
	}

	var err error
	if fields.StartDate, err = parseDate(get("start_date")); err != nil {
		return fields, err
	}
	if fields.EndDate, err = parseDate(get("end_date")); err != nil {
		return fields, err
	}
	if fields.Price, err = decimal.NewFromString(get("price")); err != nil {
		return fields, apperror.New(apperror.ErrCodeValidation, "некорректная цена")
	}
	if raw := get("budget"); raw != "" {
		budget, err := decimal.NewFromString(raw)
		if err != nil {
			return fields, apperror.New(apperror.ErrCodeValidation, "некорректный бюджет")
		}
		fields.Budget = &budget
	}
	if raw := get("impressions"); raw != "" {
		if fields.ImpressionsTarget, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return fields, apperror.New(apperror.ErrCodeValidation, "некорректный план показов")
		}
	}
	for _, raw := range strings.Split(get("section_ids"), ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fields, apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор секции: "+raw)
		}
		fields.SectionIDs = append(fields.SectionIDs, id)
	}
	return fields, nil
}

// parseDate принимает RFC 3339 или YYYY-MM-DD. Пустая строка означает, что дата не задана.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperror.New(apperror.ErrCodeValidation, "некорректная дата: "+raw)
}

func errorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
