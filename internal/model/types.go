// Package model defines shared data structures.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Operation identifies a calculator operation type as the service names it.
type Operation string

// Operation types accepted by the history filter.
const (
	OpSum Operation = "sum"
	OpSub Operation = "sub"
	OpMul Operation = "mul"
	OpDiv Operation = "div"
)

// Operations lists every filterable operation type.
var Operations = []Operation{OpSum, OpSub, OpMul, OpDiv}

// ParseOperation validates a single operation type value.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation type %q (available: sum, sub, mul, div)", s)
}

// ParseOperations parses a comma-separated operation type list. Empty input
// means "no filter" and yields nil.
func ParseOperations(csv string) ([]Operation, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	ops := make([]Operation, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		op, err := ParseOperation(part)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return ops, nil
}

// SortBy selects the history sort field.
type SortBy string

// SortOrder selects the history sort direction.
type SortOrder string

// History sort fields and directions. The service defaults to date/desc.
const (
	SortByDate   SortBy    = "date"
	SortByResult SortBy    = "result"
	SortAsc      SortOrder = "asc"
	SortDesc     SortOrder = "desc"
)

// ParseSortBy validates a sort field value. Empty input yields the default.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.TrimSpace(strings.ToLower(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByResult:
		return SortByResult, nil
	}
	return "", fmt.Errorf("unknown sort field %q (available: date, result)", s)
}

// ParseSortOrder validates a sort direction value. Empty input yields the default.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.TrimSpace(strings.ToLower(s))) {
	case "", SortDesc:
		return SortDesc, nil
	case SortAsc:
		return SortAsc, nil
	}
	return "", fmt.Errorf("unknown sort order %q (available: asc, desc)", s)
}

// CalculationRecord is one persisted calculation as returned by the service.
// Records with the same CalculationID are value-equal regardless of which
// view holds the copy.
type CalculationRecord struct {
	CalculationID string  `json:"calculation_id"`
	Expression    string  `json:"expression"`
	Result        float64 `json:"result"`
	Date          string  `json:"date"`
}

// CalculationStep is one binary sub-operation in a calculation's
// evaluation trace.
type CalculationStep struct {
	A        float64 `json:"a"`
	B        float64 `json:"b"`
	Operator string  `json:"operator"`
	Result   float64 `json:"result"`
	Date     string  `json:"date"`
}

// HistoryFilter parametrizes which records a history query returns and in
// what order. Empty OperationTypes means no operation filter.
type HistoryFilter struct {
	OperationTypes []Operation
	StartDate      *time.Time
	EndDate        *time.Time
	SortBy         SortBy
	SortOrder      SortOrder
}

// FormatNumber renders a result the way the calculator display shows it,
// without a forced exponent or trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
