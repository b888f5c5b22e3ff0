package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregator sums persisted payments for tax reporting. It never writes.
// Hidden payments are counted.
type Aggregator struct {
	store StoreAPI
}

func NewAggregator(store StoreAPI) *Aggregator {
	return &Aggregator{store: store}
}

// MonthWindow returns the first and last day of a calendar month.
func MonthWindow(month, year int) (DateRange, error) {
	if month < 1 || month > 12 {
		return DateRange{}, invalidf("month %d out of range 1-12", month)
	}
	if year < 1 {
		return DateRange{}, invalidf("year %d out of range", year)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: from, To: from.AddDate(0, 1, -1)}, nil
}

// QuarterWindow returns the three-month window of a quarter: Q1 is
// January-March and Q4 October-December.
func QuarterWindow(quarter, year int) (DateRange, error) {
	if quarter < 1 || quarter > 4 {
		return DateRange{}, invalidf("quarter %d out of range 1-4", quarter)
	}
	first, err := MonthWindow((quarter-1)*3+1, year)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{From: first.From, To: first.From.AddDate(0, 3, -1)}, nil
}

// YearToDateWindow runs from January 1 of asOf's year through asOf.
func YearToDateWindow(asOf time.Time) DateRange {
	day := Day(asOf)
	return DateRange{From: time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), To: day}
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (a *Aggregator) MonthlyTotal(ctx context.Context, month, year int, field Field) (decimal.Decimal, error) {
	window, err := MonthWindow(month, year)
	if err != nil {
		return decimal.Zero, err
	}
	return a.sum(ctx, field, window, SumFilter{})
}

func (a *Aggregator) QuarterlyTotal(ctx context.Context, quarter, year int, field Field) (decimal.Decimal, error) {
	window, err := QuarterWindow(quarter, year)
	if err != nil {
		return decimal.Zero, err
	}
	return a.sum(ctx, field, window, SumFilter{})
}

// SelfEmployedGrossPay sums gross pay of payments made to self-employed
// employees within the quarter.
func (a *Aggregator) SelfEmployedGrossPay(ctx context.Context, quarter, year int) (decimal.Decimal, error) {
	window, err := QuarterWindow(quarter, year)
	if err != nil {
		return decimal.Zero, err
	}
	return a.sum(ctx, FieldGrossPay, window, SumFilter{SelfEmployedOnly: true})
}

func (a *Aggregator) YearToDate(ctx context.Context, employeeID string, asOf time.Time, field Field) (decimal.Decimal, error) {
	if employeeID == "" {
		return decimal.Zero, invalidf("employee id is required")
	}
	return a.sum(ctx, field, YearToDateWindow(asOf), SumFilter{EmployeeID: employeeID})
}

// YearToDateTotals returns the eight pay stub totals for an employee.
func (a *Aggregator) YearToDateTotals(ctx context.Context, employeeID string, asOf time.Time) (Amounts, error) {
	var totals Amounts
	targets := map[Field]*decimal.Decimal{
		FieldGrossPay:           &totals.GrossPay,
		FieldHousing:            &totals.Housing,
		FieldHSA:                &totals.HSA,
		FieldSocialSecurityTax:  &totals.SocialSecurityTax,
		FieldMedicareTax:        &totals.MedicareTax,
		FieldSelfEmploymentTax:  &totals.SelfEmploymentTax,
		FieldFederalWithholding: &totals.FederalWithholding,
		FieldNetPay:             &totals.NetPay,
	}
	for _, field := range YearToDateFields {
		value, err := a.YearToDate(ctx, employeeID, asOf, field)
		if err != nil {
			return Amounts{}, err
		}
		*targets[field] = value
	}
	return totals, nil
}

func (a *Aggregator) sum(ctx context.Context, field Field, window DateRange, filter SumFilter) (decimal.Decimal, error) {
	if _, err := field.Column(); err != nil {
		return decimal.Zero, err
	}
	total, err := a.store.SumField(ctx, field, window, filter)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(total), nil
}
