// Package payrolltest provides an in-memory payroll store for tests of
// packages built on top of the payroll service.
package payrolltest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"openpay/internal/domain/payroll"
)

// MemStore implements payroll.StoreAPI over maps. Set Err to make every call
// fail with it.
type MemStore struct {
	mu        sync.Mutex
	positions map[string]payroll.Position
	employees map[string]payroll.Employee
	payments  map[string]payroll.Payment
	sumCalls  int
	Err       error
}

var _ payroll.StoreAPI = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		positions: map[string]payroll.Position{},
		employees: map[string]payroll.Employee{},
		payments:  map[string]payroll.Payment{},
	}
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", payroll.ErrNotFound, entity, id)
}

func matchesHidden(filter payroll.HiddenFilter, hidden bool) bool {
	switch filter {
	case payroll.HiddenExclude:
		return !hidden
	case payroll.HiddenOnly:
		return hidden
	default:
		return true
	}
}

func inWindow(window payroll.DateRange, date time.Time) bool {
	if !window.From.IsZero() && date.Before(payroll.Day(window.From)) {
		return false
	}
	if !window.To.IsZero() && date.After(payroll.Day(window.To)) {
		return false
	}
	return true
}

func (m *MemStore) GetEmployeeProfile(ctx context.Context, employeeID string) (payroll.Profile, error) {
	e, err := m.GetEmployee(ctx, employeeID)
	return e.Profile, err
}

func (m *MemStore) GetPositionDefaults(ctx context.Context, positionID string) (payroll.PositionDefaults, error) {
	p, err := m.GetPosition(ctx, positionID)
	return p.PositionDefaults, err
}

func (m *MemStore) ListPositions(ctx context.Context, hidden payroll.HiddenFilter) ([]payroll.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []payroll.Position
	for _, p := range m.positions {
		if matchesHidden(hidden, p.Hidden) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) GetPosition(ctx context.Context, id string) (payroll.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return payroll.Position{}, m.Err
	}
	p, ok := m.positions[id]
	if !ok {
		return payroll.Position{}, notFound("position", id)
	}
	return p, nil
}

func (m *MemStore) CreatePosition(ctx context.Context, position payroll.Position) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	position.ID = uuid.NewString()
	m.positions[position.ID] = position
	return position.ID, nil
}

func (m *MemStore) UpdatePosition(ctx context.Context, position payroll.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.positions[position.ID]; !ok {
		return notFound("position", position.ID)
	}
	m.positions[position.ID] = position
	return nil
}

func (m *MemStore) DeletePosition(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.positions[id]; !ok {
		return notFound("position", id)
	}
	for eid, e := range m.employees {
		if e.PositionID != nil && *e.PositionID == id {
			e.PositionID = nil
			m.employees[eid] = e
		}
	}
	delete(m.positions, id)
	return nil
}

func (m *MemStore) SetPositionHidden(ctx context.Context, id string, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p, ok := m.positions[id]
	if !ok {
		return notFound("position", id)
	}
	p.Hidden = hidden
	m.positions[id] = p
	return nil
}

func (m *MemStore) ListEmployees(ctx context.Context, hidden payroll.HiddenFilter) ([]payroll.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []payroll.Employee
	for _, e := range m.employees {
		if matchesHidden(hidden, e.Hidden) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName == out[j].LastName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	return out, nil
}

func (m *MemStore) GetEmployee(ctx context.Context, id string) (payroll.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return payroll.Employee{}, m.Err
	}
	e, ok := m.employees[id]
	if !ok {
		return payroll.Employee{}, notFound("employee", id)
	}
	return e, nil
}

func (m *MemStore) CreateEmployee(ctx context.Context, employee payroll.Employee) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if employee.PositionID != nil {
		if _, ok := m.positions[*employee.PositionID]; !ok {
			return "", notFound("position", *employee.PositionID)
		}
	}
	employee.ID = uuid.NewString()
	m.employees[employee.ID] = employee
	return employee.ID, nil
}

func (m *MemStore) UpdateEmployee(ctx context.Context, employee payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.employees[employee.ID]; !ok {
		return notFound("employee", employee.ID)
	}
	m.employees[employee.ID] = employee
	return nil
}

func (m *MemStore) DeleteEmployee(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.employees[id]; !ok {
		return notFound("employee", id)
	}
	for pid, p := range m.payments {
		if p.EmployeeID == id {
			delete(m.payments, pid)
		}
	}
	delete(m.employees, id)
	return nil
}

func (m *MemStore) SetEmployeeHidden(ctx context.Context, id string, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	e, ok := m.employees[id]
	if !ok {
		return notFound("employee", id)
	}
	e.Hidden = hidden
	m.employees[id] = e
	return nil
}

func (m *MemStore) ListPayments(ctx context.Context, filter payroll.PaymentFilter) ([]payroll.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []payroll.Payment
	for _, p := range m.payments {
		if filter.EmployeeID != "" && p.EmployeeID != filter.EmployeeID {
			continue
		}
		if !matchesHidden(filter.Hidden, p.Hidden) || !inWindow(filter.Range, p.Date) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) GetPayment(ctx context.Context, id string) (payroll.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return payroll.Payment{}, m.Err
	}
	p, ok := m.payments[id]
	if !ok {
		return payroll.Payment{}, notFound("payment", id)
	}
	return p, nil
}

func (m *MemStore) CreatePayment(ctx context.Context, payment payroll.Payment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if _, ok := m.employees[payment.EmployeeID]; !ok {
		return "", notFound("employee", payment.EmployeeID)
	}
	payment.ID = uuid.NewString()
	m.payments[payment.ID] = payment
	return payment.ID, nil
}

func (m *MemStore) UpdatePayment(ctx context.Context, payment payroll.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.payments[payment.ID]; !ok {
		return notFound("payment", payment.ID)
	}
	m.payments[payment.ID] = payment
	return nil
}

func (m *MemStore) DeletePayment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.payments[id]; !ok {
		return notFound("payment", id)
	}
	delete(m.payments, id)
	return nil
}

func (m *MemStore) SetPaymentHidden(ctx context.Context, id string, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p, ok := m.payments[id]
	if !ok {
		return notFound("payment", id)
	}
	p.Hidden = hidden
	m.payments[id] = p
	return nil
}

func (m *MemStore) SumField(ctx context.Context, field payroll.Field, window payroll.DateRange, filter payroll.SumFilter) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sumCalls++
	if m.Err != nil {
		return decimal.Zero, m.Err
	}
	total := decimal.Zero
	for _, p := range m.payments {
		if filter.EmployeeID != "" && p.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.SelfEmployedOnly && !m.employees[p.EmployeeID].SelfEmployed {
			continue
		}
		if !inWindow(window, p.Date) {
			continue
		}
		total = total.Add(field.Of(p.Amounts))
	}
	return total, nil
}

// AddEmployee stores an employee directly, bypassing validation. A blank
// name becomes Pat Doe.
func (m *MemStore) AddEmployee(e payroll.Employee) payroll.Employee {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	if e.FirstName == "" {
		e.FirstName, e.LastName = "Pat", "Doe"
	}
	m.employees[e.ID] = e
	return e
}

// AddPayment stores a payroll payment dated YYYY-MM-DD at noon. It panics on
// a malformed date.
func (m *MemStore) AddPayment(employeeID, date string, amounts payroll.Amounts) payroll.Payment {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := payroll.Payment{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Type:       payroll.PaymentTypePayroll,
		Date:       day,
		Time:       "12:00:00",
		Amounts:    amounts,
	}
	m.payments[p.ID] = p
	return p
}

// Employee returns the stored employee without going through Err.
func (m *MemStore) Employee(id string) (payroll.Employee, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	return e, ok
}

// Payment returns the stored payment without going through Err.
func (m *MemStore) Payment(id string) (payroll.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	return p, ok
}

func (m *MemStore) EmployeeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.employees)
}

func (m *MemStore) PaymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

// SumCalls counts SumField invocations, failed ones included.
func (m *MemStore) SumCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumCalls
}
