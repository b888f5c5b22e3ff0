package payroll

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"openpay/internal/platform/querier"
)

const foreignKeyViolation = "23503"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const positionColumns = `id, name, salary, hourly_rate, housing_allowance, hsa,
    federal_withholding, self_employment_withholding, is_self_employed, pay_interval, hidden`

const employeeColumns = `id, prefix, first_name, middle_name, last_name, suffix, position_id::text,
    gender, marital_status, birthdate,
    street_number, street_name, city, state, zip, apt_building, apt_room, po_box,
    primary_email, secondary_email, home_phone, cell_phone, work_phone,
    salary, hourly_rate, housing_allowance, hsa, federal_withholding, self_employment_withholding,
    pay_interval, is_self_employed, hidden`

const paymentColumns = `id, employee_id, payment_type, payment_date, payment_time::text, hours,
    gross_pay, housing, hsa, social_security_tax, medicare_tax, self_employment_tax,
    federal_withholding, net_pay, hidden`

func scanPosition(row rowScanner) (Position, error) {
	var p Position
	err := row.Scan(&p.ID, &p.Name, &p.Salary, &p.HourlyRate, &p.HousingAllowance, &p.HSA,
		&p.FederalWithholding, &p.SelfEmploymentWithholding, &p.SelfEmployed, &p.PayInterval, &p.Hidden)
	return p, err
}

func scanEmployee(row rowScanner) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Prefix, &e.FirstName, &e.MiddleName, &e.LastName, &e.Suffix, &e.PositionID,
		&e.Gender, &e.MaritalStatus, &e.Birthdate,
		&e.Address.StreetNumber, &e.Address.StreetName, &e.Address.City, &e.Address.State, &e.Address.ZIP,
		&e.Address.AptBuilding, &e.Address.AptRoom, &e.Address.POBox,
		&e.Contact.PrimaryEmail, &e.Contact.SecondaryEmail, &e.Contact.HomePhone, &e.Contact.CellPhone, &e.Contact.WorkPhone,
		&e.Salary, &e.HourlyRate, &e.HousingAllowance, &e.HSA, &e.FederalWithholding, &e.SelfEmploymentWithholding,
		&e.PayInterval, &e.SelfEmployed, &e.Hidden)
	return e, err
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.EmployeeID, &p.Type, &p.Date, &p.Time, &p.Hours,
		&p.GrossPay, &p.Housing, &p.HSA, &p.SocialSecurityTax, &p.MedicareTax, &p.SelfEmploymentTax,
		&p.FederalWithholding, &p.NetPay, &p.Hidden)
	return p, err
}

func (s *Store) GetEmployeeProfile(ctx context.Context, employeeID string) (Profile, error) {
	if err := checkID("employee", employeeID); err != nil {
		return Profile{}, err
	}
	var p Profile
	err := s.DB.QueryRow(ctx, `
    SELECT salary, hourly_rate, housing_allowance, hsa, federal_withholding,
           self_employment_withholding, pay_interval, is_self_employed
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&p.Salary, &p.HourlyRate, &p.HousingAllowance, &p.HSA, &p.FederalWithholding,
		&p.SelfEmploymentWithholding, &p.PayInterval, &p.SelfEmployed)
	if err != nil {
		return Profile{}, storeError(err, "employee", employeeID)
	}
	return p, nil
}

func (s *Store) GetPositionDefaults(ctx context.Context, positionID string) (PositionDefaults, error) {
	position, err := s.GetPosition(ctx, positionID)
	if err != nil {
		return PositionDefaults{}, err
	}
	return position.PositionDefaults, nil
}

func (s *Store) ListPositions(ctx context.Context, hidden HiddenFilter) ([]Position, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+positionColumns+`
    FROM positions
    WHERE `+hiddenCondition("hidden", hidden)+`
    ORDER BY name, id
  `)
	if err != nil {
		return nil, storeError(err, "positions", "")
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, storeError(err, "positions", "")
		}
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "positions", "")
	}
	return positions, nil
}

func (s *Store) GetPosition(ctx context.Context, id string) (Position, error) {
	if err := checkID("position", id); err != nil {
		return Position{}, err
	}
	position, err := scanPosition(s.DB.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id))
	if err != nil {
		return Position{}, storeError(err, "position", id)
	}
	return position, nil
}

func (s *Store) CreatePosition(ctx context.Context, position Position) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO positions (name, salary, hourly_rate, housing_allowance, hsa, federal_withholding,
                           self_employment_withholding, is_self_employed, pay_interval, hidden)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, position.Name, position.Salary, position.HourlyRate, position.HousingAllowance, position.HSA,
		position.FederalWithholding, position.SelfEmploymentWithholding, position.SelfEmployed,
		string(position.PayInterval), position.Hidden).Scan(&id)
	if err != nil {
		return "", storeError(err, "position", "")
	}
	return id, nil
}

func (s *Store) UpdatePosition(ctx context.Context, position Position) error {
	if err := checkID("position", position.ID); err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE positions
    SET name = $2, salary = $3, hourly_rate = $4, housing_allowance = $5, hsa = $6,
        federal_withholding = $7, self_employment_withholding = $8, is_self_employed = $9,
        pay_interval = $10, updated_at = now()
    WHERE id = $1
  `, position.ID, position.Name, position.Salary, position.HourlyRate, position.HousingAllowance, position.HSA,
		position.FederalWithholding, position.SelfEmploymentWithholding, position.SelfEmployed,
		string(position.PayInterval))
	return affected(tag, err, "position", position.ID)
}

// DeletePosition removes the position and clears it from every employee that
// held it. Employees are never deleted with their position.
func (s *Store) DeletePosition(ctx context.Context, id string) error {
	if err := checkID("position", id); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE employees SET position_id = NULL, updated_at = now() WHERE position_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
		return affected(tag, err, "position", id)
	})
	return storeError(err, "position", id)
}

func (s *Store) SetPositionHidden(ctx context.Context, id string, hidden bool) error {
	if err := checkID("position", id); err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `UPDATE positions SET hidden = $2, updated_at = now() WHERE id = $1`, id, hidden)
	return affected(tag, err, "position", id)
}

func (s *Store) ListEmployees(ctx context.Context, hidden HiddenFilter) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE `+hiddenCondition("hidden", hidden)+`
    ORDER BY last_name, first_name, id
  `)
	if err != nil {
		return nil, storeError(err, "employees", "")
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, storeError(err, "employees", "")
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "employees", "")
	}
	return employees, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (Employee, error) {
	if err := checkID("employee", id); err != nil {
		return Employee{}, err
	}
	employee, err := scanEmployee(s.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		return Employee{}, storeError(err, "employee", id)
	}
	return employee, nil
}

func employeeArgs(e Employee) []any {
	return []any{
		e.Prefix, e.FirstName, e.MiddleName, e.LastName, e.Suffix, e.PositionID,
		e.Gender, e.MaritalStatus, e.Birthdate,
		e.Address.StreetNumber, e.Address.StreetName, e.Address.City, e.Address.State, e.Address.ZIP,
		e.Address.AptBuilding, e.Address.AptRoom, e.Address.POBox,
		e.Contact.PrimaryEmail, e.Contact.SecondaryEmail, e.Contact.HomePhone, e.Contact.CellPhone, e.Contact.WorkPhone,
		e.Salary, e.HourlyRate, e.HousingAllowance, e.HSA, e.FederalWithholding, e.SelfEmploymentWithholding,
		string(e.PayInterval), e.SelfEmployed,
	}
}

func (s *Store) CreateEmployee(ctx context.Context, employee Employee) (string, error) {
	if employee.PositionID != nil {
		if err := checkID("position", *employee.PositionID); err != nil {
			return "", err
		}
	}
	args := append(employeeArgs(employee), employee.Hidden)
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (prefix, first_name, middle_name, last_name, suffix, position_id,
                           gender, marital_status, birthdate,
                           street_number, street_name, city, state, zip, apt_building, apt_room, po_box,
                           primary_email, secondary_email, home_phone, cell_phone, work_phone,
                           salary, hourly_rate, housing_allowance, hsa, federal_withholding, self_employment_withholding,
                           pay_interval, is_self_employed, hidden)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
            $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31)
    RETURNING id
  `, args...).Scan(&id)
	if err != nil {
		return "", storeError(err, "position", derefString(employee.PositionID))
	}
	return id, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, employee Employee) error {
	if err := checkID("employee", employee.ID); err != nil {
		return err
	}
	if employee.PositionID != nil {
		if err := checkID("position", *employee.PositionID); err != nil {
			return err
		}
	}
	args := append(employeeArgs(employee), employee.ID)
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET prefix = $1, first_name = $2, middle_name = $3, last_name = $4, suffix = $5, position_id = $6,
        gender = $7, marital_status = $8, birthdate = $9,
        street_number = $10, street_name = $11, city = $12, state = $13, zip = $14,
        apt_building = $15, apt_room = $16, po_box = $17,
        primary_email = $18, secondary_email = $19, home_phone = $20, cell_phone = $21, work_phone = $22,
        salary = $23, hourly_rate = $24, housing_allowance = $25, hsa = $26,
        federal_withholding = $27, self_employment_withholding = $28,
        pay_interval = $29, is_self_employed = $30, updated_at = now()
    WHERE id = $31
  `, args...)
	return affected(tag, err, "employee", employee.ID)
}

// DeleteEmployee removes the employee together with every payment made to
// them.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	if err := checkID("employee", id); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE employee_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
		return affected(tag, err, "employee", id)
	})
	return storeError(err, "employee", id)
}

func (s *Store) SetEmployeeHidden(ctx context.Context, id string, hidden bool) error {
	if err := checkID("employee", id); err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `UPDATE employees SET hidden = $2, updated_at = now() WHERE id = $1`, id, hidden)
	return affected(tag, err, "employee", id)
}

// ListPayments returns matching payments newest first.
func (s *Store) ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	conditions := []string{hiddenCondition("hidden", filter.Hidden)}
	var args []any
	if filter.EmployeeID != "" {
		if err := checkID("employee", filter.EmployeeID); err != nil {
			return nil, err
		}
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}
	conditions, args = dateConditions("payment_date", filter.Range, conditions, args)

	rows, err := s.DB.Query(ctx, `
    SELECT `+paymentColumns+`
    FROM payments
    WHERE `+strings.Join(conditions, " AND ")+`
    ORDER BY payment_date DESC, payment_time DESC, id
  `, args...)
	if err != nil {
		return nil, storeError(err, "payments", "")
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, storeError(err, "payments", "")
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "payments", "")
	}
	return payments, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (Payment, error) {
	if err := checkID("payment", id); err != nil {
		return Payment{}, err
	}
	payment, err := scanPayment(s.DB.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return Payment{}, storeError(err, "payment", id)
	}
	return payment, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment Payment) (string, error) {
	if err := checkID("employee", payment.EmployeeID); err != nil {
		return "", err
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payments (employee_id, payment_type, payment_date, payment_time, hours,
                          gross_pay, housing, hsa, social_security_tax, medicare_tax, self_employment_tax,
                          federal_withholding, net_pay, hidden)
    VALUES ($1,$2,$3,$4::time,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    RETURNING id
  `, payment.EmployeeID, string(payment.Type), payment.Date, payment.Time, payment.Hours,
		payment.GrossPay, payment.Housing, payment.HSA, payment.SocialSecurityTax, payment.MedicareTax,
		payment.SelfEmploymentTax, payment.FederalWithholding, payment.NetPay, payment.Hidden).Scan(&id)
	if err != nil {
		return "", storeError(err, "employee", payment.EmployeeID)
	}
	return id, nil
}

func (s *Store) UpdatePayment(ctx context.Context, payment Payment) error {
	if err := checkID("payment", payment.ID); err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE payments
    SET payment_type = $2, payment_date = $3, payment_time = $4::time, hours = $5,
        gross_pay = $6, housing = $7, hsa = $8, social_security_tax = $9, medicare_tax = $10,
        self_employment_tax = $11, federal_withholding = $12, net_pay = $13, updated_at = now()
    WHERE id = $1
  `, payment.ID, string(payment.Type), payment.Date, payment.Time, payment.Hours,
		payment.GrossPay, payment.Housing, payment.HSA, payment.SocialSecurityTax, payment.MedicareTax,
		payment.SelfEmploymentTax, payment.FederalWithholding, payment.NetPay)
	return affected(tag, err, "payment", payment.ID)
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	if err := checkID("payment", id); err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return affected(tag, err, "payment", id)
}

func (s *Store) SetPaymentHidden(ctx context.Context, id string, hidden bool) error {
	if err := checkID("payment", id); err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `UPDATE payments SET hidden = $2, updated_at = now() WHERE id = $1`, id, hidden)
	return affected(tag, err, "payment", id)
}

// SumField totals one whitelisted column over the window. Hidden payments are
// included. An empty match sums to zero.
func (s *Store) SumField(ctx context.Context, field Field, window DateRange, filter SumFilter) (decimal.Decimal, error) {
	column, err := field.Column()
	if err != nil {
		return decimal.Zero, err
	}
	var conditions []string
	var args []any
	conditions, args = dateConditions("p.payment_date", window, conditions, args)
	if filter.EmployeeID != "" {
		if err := checkID("employee", filter.EmployeeID); err != nil {
			return decimal.Zero, err
		}
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, "p.employee_id = $"+strconv.Itoa(len(args)))
	}
	if filter.SelfEmployedOnly {
		conditions = append(conditions, "e.is_self_employed")
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total decimal.Decimal
	err = s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(p.`+column+`), 0)
    FROM payments p
    JOIN employees e ON e.id = p.employee_id
    `+where, args...).Scan(&total)
	if err != nil {
		return decimal.Zero, storeError(err, "payments", "")
	}
	return total, nil
}

func hiddenCondition(column string, filter HiddenFilter) string {
	switch filter {
	case HiddenExclude:
		return column + " = false"
	case HiddenOnly:
		return column + " = true"
	default:
		return "true"
	}
}

func dateConditions(column string, window DateRange, conditions []string, args []any) ([]string, []any) {
	if !window.From.IsZero() {
		args = append(args, Day(window.From))
		conditions = append(conditions, column+" >= $"+strconv.Itoa(len(args)))
	}
	if !window.To.IsZero() {
		args = append(args, Day(window.To))
		conditions = append(conditions, column+" <= $"+strconv.Itoa(len(args)))
	}
	return conditions, args
}

// checkID rejects ids that cannot name a row, so they read as missing rather
// than as a driver failure.
func checkID(entity, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(entity, id)
	}
	return nil
}

func affected(tag pgconn.CommandTag, err error, entity, id string) error {
	if err != nil {
		return storeError(err, entity, id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(entity, id)
	}
	return nil
}

func storeError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return notFound(entity, id)
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
