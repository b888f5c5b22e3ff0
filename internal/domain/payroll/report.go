package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyLiability is one month of the 941 deposit table. Social Security and
// Medicare include the employer match.
type MonthlyLiability struct {
	Month          int             `json:"month"`
	Name           string          `json:"name"`
	SocialSecurity decimal.Decimal `json:"socialSecurity"`
	Medicare       decimal.Decimal `json:"medicare"`
	Federal        decimal.Decimal `json:"federal"`
	SelfEmployment decimal.Decimal `json:"selfEmployment"`
	Total          decimal.Decimal `json:"total"`
}

// QuarterlySummary holds the figures a 941 filing asks for.
type QuarterlySummary struct {
	Quarter             int             `json:"quarter"`
	TotalSocialSecurity decimal.Decimal `json:"totalSocialSecurity"`
	TotalMedicare       decimal.Decimal `json:"totalMedicare"`
	TotalFederal        decimal.Decimal `json:"totalFederal"`
	FICAPay             decimal.Decimal `json:"ficaPay"`
	TotalPay            decimal.Decimal `json:"totalPay"`
}

type Form941 struct {
	Year     int                `json:"year"`
	Months   []MonthlyLiability `json:"months"`
	Quarters []QuarterlySummary `json:"quarters"`
}

// MonthlyLiability builds one row of the monthly table.
func (a *Aggregator) MonthlyLiability(ctx context.Context, month, year int) (MonthlyLiability, error) {
	row := MonthlyLiability{Month: month}
	if _, err := MonthWindow(month, year); err != nil {
		return row, err
	}
	row.Name = time.Month(month).String()

	ss, err := a.MonthlyTotal(ctx, month, year, FieldSocialSecurityTax)
	if err != nil {
		return row, err
	}
	medicare, err := a.MonthlyTotal(ctx, month, year, FieldMedicareTax)
	if err != nil {
		return row, err
	}
	if row.Federal, err = a.MonthlyTotal(ctx, month, year, FieldFederalWithholding); err != nil {
		return row, err
	}
	if row.SelfEmployment, err = a.MonthlyTotal(ctx, month, year, FieldSelfEmploymentTax); err != nil {
		return row, err
	}
	row.SocialSecurity = ss.Mul(EmployerMatchFactor)
	row.Medicare = medicare.Mul(EmployerMatchFactor)
	row.Total = row.SocialSecurity.Add(row.Medicare).Add(row.Federal).Add(row.SelfEmployment)
	return row, nil
}

// QuarterlySummary derives the 941 quarter figures: matched Social Security
// and Medicare, federal plus self-employment withholding, and gross pay
// subject to FICA.
func (a *Aggregator) QuarterlySummary(ctx context.Context, quarter, year int) (QuarterlySummary, error) {
	summary := QuarterlySummary{Quarter: quarter}
	ss, err := a.QuarterlyTotal(ctx, quarter, year, FieldSocialSecurityTax)
	if err != nil {
		return summary, err
	}
	medicare, err := a.QuarterlyTotal(ctx, quarter, year, FieldMedicareTax)
	if err != nil {
		return summary, err
	}
	federal, err := a.QuarterlyTotal(ctx, quarter, year, FieldFederalWithholding)
	if err != nil {
		return summary, err
	}
	se, err := a.QuarterlyTotal(ctx, quarter, year, FieldSelfEmploymentTax)
	if err != nil {
		return summary, err
	}
	gross, err := a.QuarterlyTotal(ctx, quarter, year, FieldGrossPay)
	if err != nil {
		return summary, err
	}
	seGross, err := a.SelfEmployedGrossPay(ctx, quarter, year)
	if err != nil {
		return summary, err
	}

	summary.TotalSocialSecurity = ss.Mul(EmployerMatchFactor)
	summary.TotalMedicare = medicare.Mul(EmployerMatchFactor)
	summary.TotalFederal = federal.Add(se)
	summary.FICAPay = gross.Sub(seGross)
	summary.TotalPay = gross
	return summary, nil
}

// Form941 builds the twelve monthly rows and four quarterly rows for a year.
func (a *Aggregator) Form941(ctx context.Context, year int) (Form941, error) {
	form := Form941{Year: year}
	for month := 1; month <= 12; month++ {
		row, err := a.MonthlyLiability(ctx, month, year)
		if err != nil {
			return Form941{}, err
		}
		form.Months = append(form.Months, row)
	}
	for quarter := 1; quarter <= 4; quarter++ {
		summary, err := a.QuarterlySummary(ctx, quarter, year)
		if err != nil {
			return Form941{}, err
		}
		form.Quarters = append(form.Quarters, summary)
	}
	return form, nil
}
