package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// StoreAPI is the persistence contract the payroll service and aggregator
// run against. Implementations return ErrNotFound for missing rows and wrap
// every other failure with ErrStoreUnavailable.
type StoreAPI interface {
	GetEmployeeProfile(ctx context.Context, employeeID string) (Profile, error)
	GetPositionDefaults(ctx context.Context, positionID string) (PositionDefaults, error)

	ListPositions(ctx context.Context, hidden HiddenFilter) ([]Position, error)
	GetPosition(ctx context.Context, id string) (Position, error)
	CreatePosition(ctx context.Context, position Position) (string, error)
	UpdatePosition(ctx context.Context, position Position) error
	DeletePosition(ctx context.Context, id string) error
	SetPositionHidden(ctx context.Context, id string, hidden bool) error

	ListEmployees(ctx context.Context, hidden HiddenFilter) ([]Employee, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	CreateEmployee(ctx context.Context, employee Employee) (string, error)
	UpdateEmployee(ctx context.Context, employee Employee) error
	DeleteEmployee(ctx context.Context, id string) error
	SetEmployeeHidden(ctx context.Context, id string, hidden bool) error

	ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	GetPayment(ctx context.Context, id string) (Payment, error)
	CreatePayment(ctx context.Context, payment Payment) (string, error)
	UpdatePayment(ctx context.Context, payment Payment) error
	DeletePayment(ctx context.Context, id string) error
	SetPaymentHidden(ctx context.Context, id string, hidden bool) error

	SumField(ctx context.Context, field Field, window DateRange, filter SumFilter) (decimal.Decimal, error)
}
