package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayInterval string

const (
	IntervalMonthly     PayInterval = "Monthly"
	IntervalSemiMonthly PayInterval = "SemiMonthly"
	IntervalBiWeekly    PayInterval = "BiWeekly"
	IntervalWeekly      PayInterval = "Weekly"
)

type PaymentType string

const (
	PaymentTypePayroll PaymentType = "Payroll"
	PaymentTypeBonus   PaymentType = "Bonus"
)

// Profile is the compensation data the calculator reads from an employee.
type Profile struct {
	Salary                    decimal.Decimal `json:"salary"`
	HourlyRate                decimal.Decimal `json:"hourlyRate"`
	HousingAllowance          decimal.Decimal `json:"housingAllowance"`
	HSA                       decimal.Decimal `json:"hsa"`
	FederalWithholding        decimal.Decimal `json:"federalWithholding"`
	SelfEmploymentWithholding decimal.Decimal `json:"selfEmploymentWithholding"`
	PayInterval               PayInterval     `json:"payInterval"`
	SelfEmployed              bool            `json:"selfEmployed"`
}

// PositionDefaults mirrors the financial fields of a position. Null fields do
// not overwrite an employee's value when the position is assigned.
type PositionDefaults struct {
	Salary                    decimal.NullDecimal `json:"salary"`
	HourlyRate                decimal.NullDecimal `json:"hourlyRate"`
	HousingAllowance          decimal.NullDecimal `json:"housingAllowance"`
	HSA                       decimal.NullDecimal `json:"hsa"`
	FederalWithholding        decimal.NullDecimal `json:"federalWithholding"`
	SelfEmploymentWithholding decimal.NullDecimal `json:"selfEmploymentWithholding"`
	PayInterval               PayInterval         `json:"payInterval,omitempty"`
	SelfEmployed              bool                `json:"selfEmployed"`
}

type Position struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	PositionDefaults
	Hidden bool `json:"hidden"`
}

type Address struct {
	StreetNumber string `json:"streetNumber,omitempty"`
	StreetName   string `json:"streetName,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZIP          string `json:"zip,omitempty"`
	AptBuilding  string `json:"aptBuilding,omitempty"`
	AptRoom      string `json:"aptRoom,omitempty"`
	POBox        string `json:"poBox,omitempty"`
}

type Contact struct {
	PrimaryEmail   string `json:"primaryEmail,omitempty"`
	SecondaryEmail string `json:"secondaryEmail,omitempty"`
	HomePhone      string `json:"homePhone,omitempty"`
	CellPhone      string `json:"cellPhone,omitempty"`
	WorkPhone      string `json:"workPhone,omitempty"`
}

type Employee struct {
	ID            string     `json:"id"`
	Prefix        string     `json:"prefix,omitempty"`
	FirstName     string     `json:"firstName"`
	MiddleName    string     `json:"middleName,omitempty"`
	LastName      string     `json:"lastName"`
	Suffix        string     `json:"suffix,omitempty"`
	PositionID    *string    `json:"positionId,omitempty"`
	Gender        string     `json:"gender,omitempty"`
	MaritalStatus string     `json:"maritalStatus,omitempty"`
	Birthdate     *time.Time `json:"birthdate,omitempty"`
	Address       Address    `json:"address"`
	Contact       Contact    `json:"contact"`
	Profile
	Hidden bool `json:"hidden"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Amounts are the monetary fields of a payment, each rounded to cents.
type Amounts struct {
	GrossPay           decimal.Decimal `json:"grossPay"`
	Housing            decimal.Decimal `json:"housing"`
	HSA                decimal.Decimal `json:"hsa"`
	SocialSecurityTax  decimal.Decimal `json:"socialSecurityTax"`
	MedicareTax        decimal.Decimal `json:"medicareTax"`
	SelfEmploymentTax  decimal.Decimal `json:"selfEmploymentTax"`
	FederalWithholding decimal.Decimal `json:"federalWithholding"`
	NetPay             decimal.Decimal `json:"netPay"`
}

// Payment is one payroll event. Date is a calendar date (UTC midnight) and
// Time a time of day in HH:MM:SS.
type Payment struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	Type       PaymentType     `json:"type"`
	Date       time.Time       `json:"date"`
	Time       string          `json:"time"`
	Hours      decimal.Decimal `json:"hours"`
	Amounts
	Hidden bool `json:"hidden"`
}

// FICA is the combined employee and employer Social Security and Medicare
// amount.
func (a Amounts) FICA() decimal.Decimal {
	return a.SocialSecurityTax.Add(a.MedicareTax).Mul(EmployerMatchFactor)
}

// DateRange is inclusive on both ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

type HiddenFilter string

const (
	HiddenExclude HiddenFilter = "false"
	HiddenOnly    HiddenFilter = "true"
	HiddenAll     HiddenFilter = "all"
)

type PaymentFilter struct {
	EmployeeID string
	Range      DateRange
	Hidden     HiddenFilter
}

type SumFilter struct {
	EmployeeID       string
	SelfEmployedOnly bool
}

// PaymentUpdate carries the fields an operator changed; nil fields are kept.
type PaymentUpdate struct {
	Date               *time.Time
	Time               *string
	Hours              *decimal.Decimal
	GrossPay           *decimal.Decimal
	Housing            *decimal.Decimal
	HSA                *decimal.Decimal
	SocialSecurityTax  *decimal.Decimal
	MedicareTax        *decimal.Decimal
	SelfEmploymentTax  *decimal.Decimal
	FederalWithholding *decimal.Decimal
}
