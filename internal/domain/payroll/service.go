package payroll

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"openpay/internal/platform/eventbus"
)

const timeOfDayLayout = "15:04:05"

type Service struct {
	store StoreAPI
	agg   *Aggregator
	bus   eventbus.EventBus
	log   *logrus.Logger
	stubs PayStubRenderer
	vault *Archive
	jobs  JobQueue
	now   func() time.Time
}

// JobQueue runs work off the request path.
type JobQueue interface {
	Enqueue(jobType string, run func(context.Context) (any, error))
}

type Option func(*Service)

func WithPayStubRenderer(renderer PayStubRenderer) Option {
	return func(s *Service) { s.stubs = renderer }
}

// WithArchive keeps a copy of every rendered pay stub.
func WithArchive(archive *Archive) Option {
	return func(s *Service) { s.vault = archive }
}

// WithJobs moves pay stub archiving onto the queue.
func WithJobs(queue JobQueue) Option {
	return func(s *Service) { s.jobs = queue }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store StoreAPI, bus eventbus.EventBus, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		agg:   NewAggregator(store),
		bus:   bus,
		log:   log,
		stubs: PDFRenderer{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Aggregator() *Aggregator {
	return s.agg
}

func (s *Service) publish(ctx context.Context, entity Entity, id string, action Action, before, after any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, &EntityChanged{Entity: entity, ID: id, Action: action, Before: before, After: after, At: s.now().UTC()})
}

func (s *Service) ListPositions(ctx context.Context, hidden HiddenFilter) ([]Position, error) {
	return s.store.ListPositions(ctx, hidden)
}

func (s *Service) GetPosition(ctx context.Context, id string) (Position, error) {
	return s.store.GetPosition(ctx, id)
}

func (s *Service) CreatePosition(ctx context.Context, position Position) (Position, error) {
	if err := validatePosition(&position); err != nil {
		return Position{}, err
	}
	id, err := s.store.CreatePosition(ctx, position)
	if err != nil {
		return Position{}, err
	}
	position.ID = id
	s.log.WithField("positionId", id).Info("position created")
	s.publish(ctx, EntityPosition, id, ActionCreated, nil, position)
	return position, nil
}

func (s *Service) UpdatePosition(ctx context.Context, position Position) (Position, error) {
	if err := validatePosition(&position); err != nil {
		return Position{}, err
	}
	before, err := s.store.GetPosition(ctx, position.ID)
	if err != nil {
		return Position{}, err
	}
	position.Hidden = before.Hidden
	if err := s.store.UpdatePosition(ctx, position); err != nil {
		return Position{}, err
	}
	s.publish(ctx, EntityPosition, position.ID, ActionUpdated, before, position)
	return position, nil
}

// DeletePosition removes a position; employees holding it keep their own
// compensation and lose only the link.
func (s *Service) DeletePosition(ctx context.Context, id string) error {
	before, err := s.store.GetPosition(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePosition(ctx, id); err != nil {
		return err
	}
	s.log.WithField("positionId", id).Info("position deleted")
	s.publish(ctx, EntityPosition, id, ActionDeleted, before, nil)
	return nil
}

func (s *Service) HidePosition(ctx context.Context, id string) error {
	return s.setHidden(ctx, EntityPosition, id, true, s.store.SetPositionHidden)
}

func (s *Service) RevealPosition(ctx context.Context, id string) error {
	return s.setHidden(ctx, EntityPosition, id, false, s.store.SetPositionHidden)
}

func (s *Service) ListEmployees(ctx context.Context, hidden HiddenFilter) ([]Employee, error) {
	return s.store.ListEmployees(ctx, hidden)
}

func (s *Service) GetEmployee(ctx context.Context, id string) (Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

// CreateEmployee stores a new employee. With usePositionDefaults the
// assigned position's non-null compensation fields replace the submitted
// ones.
func (s *Service) CreateEmployee(ctx context.Context, employee Employee, usePositionDefaults bool) (Employee, error) {
	if err := validateEmployee(&employee); err != nil {
		return Employee{}, err
	}
	if employee.PositionID != nil {
		defaults, err := s.store.GetPositionDefaults(ctx, *employee.PositionID)
		if err != nil {
			return Employee{}, err
		}
		if usePositionDefaults {
			employee.Profile = ApplyDefaults(employee.Profile, defaults)
		}
	}
	employee.Hidden = false
	id, err := s.store.CreateEmployee(ctx, employee)
	if err != nil {
		return Employee{}, err
	}
	employee.ID = id
	s.log.WithField("employeeId", id).Info("employee created")
	s.publish(ctx, EntityEmployee, id, ActionCreated, nil, employee)
	return employee, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, employee Employee) (Employee, error) {
	if err := validateEmployee(&employee); err != nil {
		return Employee{}, err
	}
	before, err := s.store.GetEmployee(ctx, employee.ID)
	if err != nil {
		return Employee{}, err
	}
	if employee.PositionID != nil {
		if _, err := s.store.GetPosition(ctx, *employee.PositionID); err != nil {
			return Employee{}, err
		}
	}
	employee.Hidden = before.Hidden
	if err := s.store.UpdateEmployee(ctx, employee); err != nil {
		return Employee{}, err
	}
	s.publish(ctx, EntityEmployee, employee.ID, ActionUpdated, before, employee)
	return employee, nil
}

// AssignPosition links the employee to a position and copies the position's
// non-null compensation fields onto the employee.
func (s *Service) AssignPosition(ctx context.Context, employeeID, positionID string) (Employee, error) {
	before, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return Employee{}, err
	}
	defaults, err := s.store.GetPositionDefaults(ctx, positionID)
	if err != nil {
		return Employee{}, err
	}
	after := before
	after.PositionID = &positionID
	after.Profile = ApplyDefaults(before.Profile, defaults)
	if err := s.store.UpdateEmployee(ctx, after); err != nil {
		return Employee{}, err
	}
	s.log.WithFields(logrus.Fields{"employeeId": employeeID, "positionId": positionID}).Info("position assigned")
	s.publish(ctx, EntityEmployee, employeeID, ActionUpdated, before, after)
	return after, nil
}

// DeleteEmployee removes the employee and all of their payments.
func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	before, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.log.WithField("employeeId", id).Info("employee deleted")
	s.publish(ctx, EntityEmployee, id, ActionDeleted, before, nil)
	return nil
}

// HideEmployee hides the employee only; their payments stay visible.
func (s *Service) HideEmployee(ctx context.Context, id string) error {
	return s.setHidden(ctx, EntityEmployee, id, true, s.store.SetEmployeeHidden)
}

func (s *Service) RevealEmployee(ctx context.Context, id string) error {
	return s.setHidden(ctx, EntityEmployee, id, false, s.store.SetEmployeeHidden)
}

func (s *Service) ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	if !filter.Range.From.IsZero() && !filter.Range.To.IsZero() && filter.Range.To.Before(filter.Range.From) {
		return nil, invalidf("date range ends before it starts")
	}
	return s.store.ListPayments(ctx, filter)
}

func (s *Service) GetPayment(ctx context.Context, id string) (Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// Preview computes a payroll payment for the employee without storing it.
func (s *Service) Preview(ctx context.Context, employeeID string, hours decimal.Decimal) (Calculation, error) {
	if err := ValidateHours(hours); err != nil {
		return Calculation{}, err
	}
	profile, err := s.store.GetEmployeeProfile(ctx, employeeID)
	if err != nil {
		return Calculation{}, err
	}
	return Calculate(profile, hours)
}

type PayrollRequest struct {
	EmployeeID string
	Date       time.Time
	Time       string
	Hours      decimal.Decimal
}

// CreatePayroll computes a payroll payment from the employee's current
// compensation and stores it.
func (s *Service) CreatePayroll(ctx context.Context, req PayrollRequest) (Payment, error) {
	date, clock, err := s.paymentMoment(req.Date, req.Time)
	if err != nil {
		return Payment{}, err
	}
	calc, err := s.Preview(ctx, req.EmployeeID, req.Hours)
	if err != nil {
		return Payment{}, err
	}
	payment := Payment{
		EmployeeID: req.EmployeeID,
		Type:       PaymentTypePayroll,
		Date:       date,
		Time:       clock,
		Hours:      req.Hours,
		Amounts:    calc.Amounts,
	}
	return s.createPayment(ctx, payment)
}

type BonusRequest struct {
	EmployeeID   string
	Date         time.Time
	Time         string
	Amounts      Amounts
	RefreshTaxes bool
}

// CreateBonus stores an operator-entered payment. Taxes are recomputed only
// when RefreshTaxes is set; net pay is always derived.
func (s *Service) CreateBonus(ctx context.Context, req BonusRequest) (Payment, error) {
	date, clock, err := s.paymentMoment(req.Date, req.Time)
	if err != nil {
		return Payment{}, err
	}
	if err := ValidateAmounts(req.Amounts); err != nil {
		return Payment{}, err
	}
	profile, err := s.store.GetEmployeeProfile(ctx, req.EmployeeID)
	if err != nil {
		return Payment{}, err
	}
	amounts, err := settle(req.Amounts, profile.SelfEmployed, req.RefreshTaxes)
	if err != nil {
		return Payment{}, err
	}
	payment := Payment{
		EmployeeID: req.EmployeeID,
		Type:       PaymentTypeBonus,
		Date:       date,
		Time:       clock,
		Hours:      decimal.Zero,
		Amounts:    amounts,
	}
	return s.createPayment(ctx, payment)
}

// RefreshTaxes recomputes Social Security and Medicare for operator-entered
// amounts of the given employee without storing anything.
func (s *Service) RefreshTaxes(ctx context.Context, employeeID string, amounts Amounts) (Amounts, error) {
	if err := ValidateAmounts(amounts); err != nil {
		return Amounts{}, err
	}
	profile, err := s.store.GetEmployeeProfile(ctx, employeeID)
	if err != nil {
		return Amounts{}, err
	}
	return RefreshTaxes(amounts, profile.SelfEmployed)
}

func (s *Service) createPayment(ctx context.Context, payment Payment) (Payment, error) {
	id, err := s.store.CreatePayment(ctx, payment)
	if err != nil {
		return Payment{}, err
	}
	payment.ID = id
	s.log.WithFields(logrus.Fields{
		"paymentId":  id,
		"employeeId": payment.EmployeeID,
		"type":       payment.Type,
		"netPay":     payment.NetPay.StringFixed(moneyPlaces),
	}).Info("payment recorded")
	s.publish(ctx, EntityPayment, id, ActionCreated, nil, payment)
	return payment, nil
}

// UpdatePayment applies operator edits. Net pay is re-derived; taxes are
// recomputed only when refreshTaxes is set. Edits keep the tax branch the
// payment was made under, even if the employee has switched since.
func (s *Service) UpdatePayment(ctx context.Context, id string, update PaymentUpdate, refreshTaxes bool) (Payment, error) {
	if err := validateUpdate(update); err != nil {
		return Payment{}, err
	}
	before, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	after := before
	if update.Date != nil {
		after.Date = Day(*update.Date)
	}
	if update.Time != nil {
		clock, err := ParseTimeOfDay(*update.Time)
		if err != nil {
			return Payment{}, err
		}
		after.Time = clock
	}
	setDecimal(&after.Hours, update.Hours)
	setDecimal(&after.GrossPay, update.GrossPay)
	setDecimal(&after.Housing, update.Housing)
	setDecimal(&after.HSA, update.HSA)
	setDecimal(&after.SocialSecurityTax, update.SocialSecurityTax)
	setDecimal(&after.MedicareTax, update.MedicareTax)
	setDecimal(&after.SelfEmploymentTax, update.SelfEmploymentTax)
	setDecimal(&after.FederalWithholding, update.FederalWithholding)

	profile, err := s.store.GetEmployeeProfile(ctx, before.EmployeeID)
	if err != nil {
		return Payment{}, err
	}
	selfEmployed := settledSelfEmployed(before.Amounts, profile.SelfEmployed)
	if after.Amounts, err = settle(after.Amounts, selfEmployed, refreshTaxes); err != nil {
		return Payment{}, err
	}
	if err := s.store.UpdatePayment(ctx, after); err != nil {
		return Payment{}, err
	}
	s.publish(ctx, EntityPayment, id, ActionUpdated, before, after)
	return after, nil
}

func (s *Service) DeletePayment(ctx context.Context, id string) error {
	before, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.log.WithField("paymentId", id).Info("payment deleted")
	s.publish(ctx, EntityPayment, id, ActionDeleted, before, nil)
	return nil
}

func (s *Service) HidePayment(ctx context.Context, id string) error {
	return s.setHidden(ctx, EntityPayment, id, true, s.store.SetPaymentHidden)
}

func (s *Service) RevealPayment(ctx context.Context, id string) error {
	return s.setHidden(ctx, EntityPayment, id, false, s.store.SetPaymentHidden)
}

func (s *Service) setHidden(ctx context.Context, entity Entity, id string, hidden bool, set func(context.Context, string, bool) error) error {
	if err := set(ctx, id, hidden); err != nil {
		return err
	}
	action := ActionRevealed
	if hidden {
		action = ActionHidden
	}
	s.publish(ctx, entity, id, action, nil, nil)
	return nil
}

// paymentMoment defaults a missing date or time to now.
func (s *Service) paymentMoment(date time.Time, clock string) (time.Time, string, error) {
	now := s.now()
	if date.IsZero() {
		date = now
	}
	if strings.TrimSpace(clock) == "" {
		return Day(date), now.Format(timeOfDayLayout), nil
	}
	parsed, err := ParseTimeOfDay(clock)
	if err != nil {
		return time.Time{}, "", err
	}
	return Day(date), parsed, nil
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func ParseTimeOfDay(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{timeOfDayLayout, "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(timeOfDayLayout), nil
		}
	}
	return "", invalidf("malformed time of day %q", value)
}

// ApplyDefaults overlays the non-null position fields on a profile.
func ApplyDefaults(profile Profile, defaults PositionDefaults) Profile {
	overlay := func(dst *decimal.Decimal, src decimal.NullDecimal) {
		if src.Valid {
			*dst = src.Decimal
		}
	}
	overlay(&profile.Salary, defaults.Salary)
	overlay(&profile.HourlyRate, defaults.HourlyRate)
	overlay(&profile.HousingAllowance, defaults.HousingAllowance)
	overlay(&profile.HSA, defaults.HSA)
	overlay(&profile.FederalWithholding, defaults.FederalWithholding)
	overlay(&profile.SelfEmploymentWithholding, defaults.SelfEmploymentWithholding)
	if defaults.PayInterval != "" {
		profile.PayInterval = defaults.PayInterval
	}
	profile.SelfEmployed = defaults.SelfEmployed
	return profile
}

func settle(amounts Amounts, selfEmployed, refreshTaxes bool) (Amounts, error) {
	if refreshTaxes {
		return RefreshTaxes(amounts, selfEmployed)
	}
	amounts, err := RefreshTotals(amounts)
	if err != nil {
		return Amounts{}, err
	}
	if err := checkTaxBranch(amounts, selfEmployed); err != nil {
		return Amounts{}, err
	}
	return amounts, nil
}

func setDecimal(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}

func validatePosition(position *Position) error {
	position.Name = strings.TrimSpace(position.Name)
	if position.Name == "" {
		return invalidf("position name is required")
	}
	if err := ValidateDefaults(position.PositionDefaults); err != nil {
		return err
	}
	interval, err := ParsePayInterval(string(position.PayInterval))
	if err != nil {
		return err
	}
	position.PayInterval = interval
	return nil
}

func validateEmployee(employee *Employee) error {
	employee.FirstName = strings.TrimSpace(employee.FirstName)
	employee.LastName = strings.TrimSpace(employee.LastName)
	if employee.FirstName == "" || employee.LastName == "" {
		return invalidf("first and last name are required")
	}
	if employee.PositionID != nil && strings.TrimSpace(*employee.PositionID) == "" {
		employee.PositionID = nil
	}
	if err := ValidateProfile(employee.Profile); err != nil {
		return err
	}
	interval, err := ParsePayInterval(string(employee.PayInterval))
	if err != nil {
		return err
	}
	employee.PayInterval = interval
	return nil
}

func validateUpdate(u PaymentUpdate) error {
	fields := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"hours", u.Hours},
		{"grossPay", u.GrossPay},
		{"housing", u.Housing},
		{"hsa", u.HSA},
		{"socialSecurityTax", u.SocialSecurityTax},
		{"medicareTax", u.MedicareTax},
		{"selfEmploymentTax", u.SelfEmploymentTax},
		{"federalWithholding", u.FederalWithholding},
	}
	for _, f := range fields {
		if f.value != nil && f.value.IsNegative() {
			return invalidf("%s must not be negative", f.name)
		}
	}
	if u.Hours != nil {
		return ValidateHours(*u.Hours)
	}
	return nil
}
