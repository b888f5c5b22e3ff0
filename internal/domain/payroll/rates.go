package payroll

import "github.com/shopspring/decimal"

// Withholding rates applied per check.
var (
	SocialSecurityTaxRate = decimal.RequireFromString("0.062")
	MedicareTaxRate       = decimal.RequireFromString("0.0145")
	// SelfEmploymentTaxRate is a reference value for whoever configures a
	// self-employment withholding amount. It is never multiplied into a payment.
	SelfEmploymentTaxRate = decimal.RequireFromString("0.15")
)

// EmployerMatchFactor doubles an employee-side FICA sum to include the employer share.
var EmployerMatchFactor = decimal.NewFromInt(2)

const moneyPlaces = 2

// Round rounds half away from zero to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}
