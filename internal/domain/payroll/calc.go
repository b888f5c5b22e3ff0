package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

var divisors = map[PayInterval]int64{
	IntervalWeekly:      52,
	IntervalBiWeekly:    26,
	IntervalSemiMonthly: 24,
	IntervalMonthly:     12,
}

// ParsePayInterval accepts the interval names case-insensitively. An empty
// string means Monthly.
func ParsePayInterval(value string) (PayInterval, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return IntervalMonthly, nil
	}
	for interval := range divisors {
		if strings.EqualFold(string(interval), value) {
			return interval, nil
		}
	}
	return "", invalidf("unknown pay interval %q", value)
}

// Divisor is the number of pay periods per year.
func (i PayInterval) Divisor() (decimal.Decimal, error) {
	interval, err := ParsePayInterval(string(i))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(divisors[interval]), nil
}

// Calculation is a computed payroll payment plus the portions gross pay was
// built from.
type Calculation struct {
	SalaryPortion decimal.Decimal `json:"salaryPortion"`
	HourlyPortion decimal.Decimal `json:"hourlyPortion"`
	Amounts
}

// Calculate prorates a compensation profile over one pay period and derives
// the withholding. It is pure: the same profile and hours always produce the
// same amounts.
func Calculate(profile Profile, hours decimal.Decimal) (Calculation, error) {
	if err := ValidateProfile(profile); err != nil {
		return Calculation{}, err
	}
	if err := ValidateHours(hours); err != nil {
		return Calculation{}, err
	}
	divisor, err := profile.PayInterval.Divisor()
	if err != nil {
		return Calculation{}, err
	}

	salary := profile.Salary.Div(divisor)
	housing := profile.HousingAllowance.Div(divisor)
	hourly := decimal.Zero
	if !profile.HourlyRate.IsZero() && !hours.IsZero() {
		hourly = profile.HourlyRate.Mul(hours)
	}

	calc := Calculation{
		SalaryPortion: Round(salary),
		HourlyPortion: Round(hourly),
	}
	calc.GrossPay = Round(hourly.Add(salary).Add(housing))
	calc.Housing = Round(housing)
	calc.HSA = Round(profile.HSA.Div(divisor))
	calc.FederalWithholding = Round(profile.FederalWithholding.Div(divisor))
	seWithholding := Round(profile.SelfEmploymentWithholding.Div(divisor))

	calc.Amounts = applyTaxes(calc.Amounts, profile.SelfEmployed, seWithholding)
	calc.NetPay = NetPay(calc.Amounts)
	return calc, nil
}

// RefreshTaxes recomputes Social Security and Medicare from operator-entered
// gross pay and HSA. Self-employed amounts carry no Social Security or
// Medicare; the self-employment amount the operator entered is kept. For
// everyone else the self-employment amount is cleared. Net pay is re-derived.
func RefreshTaxes(amounts Amounts, selfEmployed bool) (Amounts, error) {
	if err := ValidateAmounts(amounts); err != nil {
		return Amounts{}, err
	}
	amounts = applyTaxes(roundAmounts(amounts), selfEmployed, Round(amounts.SelfEmploymentTax))
	amounts.NetPay = NetPay(amounts)
	return amounts, nil
}

// RefreshTotals re-derives net pay from the entered amounts without touching
// the taxes.
func RefreshTotals(amounts Amounts) (Amounts, error) {
	if err := ValidateAmounts(amounts); err != nil {
		return Amounts{}, err
	}
	amounts = roundAmounts(amounts)
	amounts.NetPay = NetPay(amounts)
	return amounts, nil
}

// NetPay is gross pay less every withholding.
func NetPay(a Amounts) decimal.Decimal {
	return a.GrossPay.
		Sub(a.HSA).
		Sub(a.SocialSecurityTax).
		Sub(a.MedicareTax).
		Sub(a.SelfEmploymentTax).
		Sub(a.FederalWithholding)
}

func applyTaxes(a Amounts, selfEmployed bool, seWithholding decimal.Decimal) Amounts {
	if selfEmployed {
		a.SocialSecurityTax = decimal.Zero
		a.MedicareTax = decimal.Zero
		a.SelfEmploymentTax = seWithholding
		return a
	}
	taxable := a.GrossPay.Sub(a.HSA)
	a.SocialSecurityTax = Round(taxable.Mul(SocialSecurityTaxRate))
	a.MedicareTax = Round(taxable.Mul(MedicareTaxRate))
	a.SelfEmploymentTax = decimal.Zero
	return a
}

func roundAmounts(a Amounts) Amounts {
	return Amounts{
		GrossPay:           Round(a.GrossPay),
		Housing:            Round(a.Housing),
		HSA:                Round(a.HSA),
		SocialSecurityTax:  Round(a.SocialSecurityTax),
		MedicareTax:        Round(a.MedicareTax),
		SelfEmploymentTax:  Round(a.SelfEmploymentTax),
		FederalWithholding: Round(a.FederalWithholding),
		NetPay:             Round(a.NetPay),
	}
}

func ValidateProfile(p Profile) error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"salary", p.Salary},
		{"hourlyRate", p.HourlyRate},
		{"housingAllowance", p.HousingAllowance},
		{"hsa", p.HSA},
		{"federalWithholding", p.FederalWithholding},
		{"selfEmploymentWithholding", p.SelfEmploymentWithholding},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return invalidf("%s must not be negative", f.name)
		}
	}
	_, err := ParsePayInterval(string(p.PayInterval))
	return err
}

func ValidateDefaults(d PositionDefaults) error {
	fields := []struct {
		name  string
		value decimal.NullDecimal
	}{
		{"salary", d.Salary},
		{"hourlyRate", d.HourlyRate},
		{"housingAllowance", d.HousingAllowance},
		{"hsa", d.HSA},
		{"federalWithholding", d.FederalWithholding},
		{"selfEmploymentWithholding", d.SelfEmploymentWithholding},
	}
	for _, f := range fields {
		if f.value.Valid && f.value.Decimal.IsNegative() {
			return invalidf("%s must not be negative", f.name)
		}
	}
	if d.PayInterval == "" {
		return nil
	}
	_, err := ParsePayInterval(string(d.PayInterval))
	return err
}

// ValidateAmounts rejects negative entered amounts. Net pay is derived and
// is not checked.
func ValidateAmounts(a Amounts) error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"grossPay", a.GrossPay},
		{"housing", a.Housing},
		{"hsa", a.HSA},
		{"socialSecurityTax", a.SocialSecurityTax},
		{"medicareTax", a.MedicareTax},
		{"selfEmploymentTax", a.SelfEmploymentTax},
		{"federalWithholding", a.FederalWithholding},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return invalidf("%s must not be negative", f.name)
		}
	}
	return nil
}

// ValidateHours rejects negative hours and hours finer than cents, which
// would not reproduce the stored gross pay from the stored hours.
func ValidateHours(hours decimal.Decimal) error {
	if hours.IsNegative() {
		return invalidf("hours must not be negative")
	}
	if !hours.Equal(hours.Round(moneyPlaces)) {
		return invalidf("hours allow at most %d decimal places", moneyPlaces)
	}
	return nil
}

// settledSelfEmployed reports which tax branch stored amounts were settled
// under. Amounts carrying no tax follow the employee's current flag.
func settledSelfEmployed(a Amounts, selfEmployed bool) bool {
	switch {
	case !a.SelfEmploymentTax.IsZero():
		return true
	case !a.SocialSecurityTax.IsZero() || !a.MedicareTax.IsZero():
		return false
	default:
		return selfEmployed
	}
}

// checkTaxBranch enforces that self-employed payments carry no Social
// Security or Medicare and that other payments carry no self-employment tax.
func checkTaxBranch(a Amounts, selfEmployed bool) error {
	if selfEmployed {
		if !a.SocialSecurityTax.IsZero() || !a.MedicareTax.IsZero() {
			return invalidf("self-employed payments carry no social security or medicare tax")
		}
		return nil
	}
	if !a.SelfEmploymentTax.IsZero() {
		return invalidf("self-employment tax applies to self-employed employees only")
	}
	return nil
}
