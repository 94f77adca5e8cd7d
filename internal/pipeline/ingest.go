package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/staging"
	"github.com/tbessa/volumetry/internal/vocab"
)

// extractDateFormat is the Brazilian day-first date layout used by every
// inbound extract.
const extractDateFormat = "02/01/2006"

// Extract column headers. Extracts are semicolon-delimited with one header
// row; header matching is case-insensitive.
const (
	colClient          = "cliente"
	colPatient         = "paciente"
	colStudy           = "exame"
	colModality        = "modalidade"
	colSpecialty       = "especialidade"
	colCategory        = "categoria"
	colPriority        = "prioridade"
	colRealizationDate = "data_realizacao"
	colRealizationTime = "hora_realizacao"
	colReportDate      = "data_laudo"
	colReportTime      = "hora_laudo"
	colValue           = "valor"
)

// requiredColumns is the fixed per-channel header contract. A file missing a
// required column is rejected whole, before any row is staged.
var requiredColumns = map[vocab.SourceType][]string{
	vocab.SourceVolumetry:      {colClient, colPatient, colStudy, colModality, colSpecialty, colRealizationDate, colReportDate},
	vocab.SourceVolumetryRetro: {colClient, colPatient, colStudy, colModality, colSpecialty, colRealizationDate, colReportDate},
	vocab.SourceOnCall:         {colClient, colPatient, colStudy, colModality, colPriority, colRealizationDate},
	vocab.SourceOnCallRetro:    {colClient, colPatient, colStudy, colModality, colPriority, colRealizationDate, colReportDate},
	vocab.SourceManual:         {colClient, colPatient, colStudy, colModality, colRealizationDate},
}

// RowError is one unparseable extract row, recorded as a rejection rather
// than failing the batch.
type RowError struct {
	Line   int
	Reason string
	Raw    json.RawMessage
}

// ParseResult carries the outcome of parsing one extract file.
type ParseResult struct {
	Records []staging.Record
	Errors  []RowError
}

// parseExtract reads a semicolon-delimited extract into staged records. Row
// failures are collected, not fatal; only a malformed header aborts parsing.
func parseExtract(r io.Reader, batchID uuid.UUID, source vocab.SourceType, periodReference string) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ParseResult{}, fmt.Errorf("read extract header: %w", err)
	}

	index, err := headerIndex(header, source)
	if err != nil {
		return ParseResult{}, err
	}

	var result ParseResult
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, RowError{
				Line:   line,
				Reason: fmt.Sprintf("malformed row: %v", err),
			})
			continue
		}

		rec, rowErr := parseRow(row, index, batchID, source, periodReference)
		if rowErr != nil {
			rowErr.Line = line
			rowErr.Raw = rawRow(header, row)
			result.Errors = append(result.Errors, *rowErr)
			continue
		}

		rec.RawRow = rawRow(header, row)
		result.Records = append(result.Records, rec)
	}

	return result, nil
}

func headerIndex(header []string, source vocab.SourceType) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, col := range requiredColumns[source] {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("extract missing required column %q for source %s", col, source)
		}
	}
	return index, nil
}

func parseRow(row []string, index map[string]int, batchID uuid.UUID, source vocab.SourceType, periodReference string) (staging.Record, *RowError) {
	field := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := staging.Record{
		UploadBatchID: batchID,
		Status:        staging.StatusPending,
		Exam: exam.Record{
			ClientName:       field(colClient),
			PatientName:      field(colPatient),
			StudyDescription: field(colStudy),
			Modality:         field(colModality),
			Specialty:        field(colSpecialty),
			Category:         field(colCategory),
			Priority:         field(colPriority),
			RealizationTime:  field(colRealizationTime),
			ReportTime:       field(colReportTime),
			SourceType:       source,
			PeriodReference:  periodReference,
		},
	}

	realization, err := parseExtractDate(field(colRealizationDate))
	if err != nil {
		return rec, &RowError{Reason: fmt.Sprintf("invalid realization date: %v", err)}
	}
	rec.Exam.RealizationDate = realization

	if raw := field(colReportDate); raw != "" {
		report, err := parseExtractDate(raw)
		if err != nil {
			return rec, &RowError{Reason: fmt.Sprintf("invalid report date: %v", err)}
		}
		rec.Exam.ReportDate = report
	}

	if raw := field(colValue); raw != "" {
		cents, err := parseCents(raw)
		if err != nil {
			return rec, &RowError{Reason: fmt.Sprintf("invalid value: %v", err)}
		}
		rec.Exam.UnitValueCents = &cents
	}

	return rec, nil
}

func parseExtractDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return time.Parse(extractDateFormat, raw)
}

// parseCents parses a Brazilian decimal ("1.234,56") into integer cents.
func parseCents(raw string) (int64, error) {
	s := strings.ReplaceAll(raw, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse monetary value %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative monetary value %q", raw)
	}

	return int64(value*100 + 0.5), nil
}

// rawRow preserves the original row keyed by header for rejection payloads.
func rawRow(header, row []string) json.RawMessage {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			m[strings.ToLower(strings.TrimSpace(h))] = row[i]
		}
	}
	payload, _ := json.Marshal(m)
	return payload
}
