package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Field names a summable monetary column of a payment.
type Field string

const (
	FieldGrossPay           Field = "grossPay"
	FieldHousing            Field = "housing"
	FieldHSA                Field = "hsa"
	FieldSocialSecurityTax  Field = "socialSecurityTax"
	FieldMedicareTax        Field = "medicareTax"
	FieldSelfEmploymentTax  Field = "selfEmploymentTax"
	FieldFederalWithholding Field = "federalWithholding"
	FieldNetPay             Field = "netPay"
)

var fieldColumns = map[Field]string{
	FieldGrossPay:           "gross_pay",
	FieldHousing:            "housing",
	FieldHSA:                "hsa",
	FieldSocialSecurityTax:  "social_security_tax",
	FieldMedicareTax:        "medicare_tax",
	FieldSelfEmploymentTax:  "self_employment_tax",
	FieldFederalWithholding: "federal_withholding",
	FieldNetPay:             "net_pay",
}

// YearToDateFields is the order pay stubs list their totals in.
var YearToDateFields = []Field{
	FieldGrossPay,
	FieldHousing,
	FieldHSA,
	FieldSocialSecurityTax,
	FieldMedicareTax,
	FieldFederalWithholding,
	FieldSelfEmploymentTax,
	FieldNetPay,
}

func ParseField(value string) (Field, error) {
	for field := range fieldColumns {
		if strings.EqualFold(string(field), strings.TrimSpace(value)) {
			return field, nil
		}
	}
	return "", invalidf("unknown payment field %q", value)
}

// Column returns the payments column for the field. Only whitelisted fields
// have a column.
func (f Field) Column() (string, error) {
	column, ok := fieldColumns[f]
	if !ok {
		return "", invalidf("unknown payment field %q", string(f))
	}
	return column, nil
}

// Of reads the field from a set of amounts.
func (f Field) Of(a Amounts) decimal.Decimal {
	switch f {
	case FieldGrossPay:
		return a.GrossPay
	case FieldHousing:
		return a.Housing
	case FieldHSA:
		return a.HSA
	case FieldSocialSecurityTax:
		return a.SocialSecurityTax
	case FieldMedicareTax:
		return a.MedicareTax
	case FieldSelfEmploymentTax:
		return a.SelfEmploymentTax
	case FieldFederalWithholding:
		return a.FederalWithholding
	case FieldNetPay:
		return a.NetPay
	}
	return decimal.Zero
}
