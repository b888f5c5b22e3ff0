package payroll_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"openpay/internal/domain/payroll"
	"openpay/internal/domain/payroll/payrolltest"
	cryptoutil "openpay/internal/platform/crypto"
	"openpay/internal/platform/eventbus"
)

var fixedNow = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type recordedEvents struct {
	events []*payroll.EntityChanged
}

func newTestService(t *testing.T, opts ...payroll.Option) (*payroll.Service, *payrolltest.MemStore, *recordedEvents) {
	t.Helper()
	store := payrolltest.NewMemStore()
	log := testLogger()
	bus := eventbus.New(log)
	rec := &recordedEvents{}
	bus.Subscribe(func(ctx context.Context, e *payroll.EntityChanged) {
		rec.events = append(rec.events, e)
	})
	opts = append([]payroll.Option{payroll.WithClock(func() time.Time { return fixedNow })}, opts...)
	return payroll.NewService(store, bus, log, opts...), store, rec
}

func (r *recordedEvents) last() *payroll.EntityChanged {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func biweeklyEmployee() payroll.Employee {
	return payroll.Employee{
		FirstName: "Dana",
		LastName:  "Reyes",
		Address:   payroll.Address{StreetNumber: "12", StreetName: "Elm St", City: "Springfield", State: "IL", ZIP: "62701"},
		Profile: payroll.Profile{
			Salary:             dec("52000"),
			HousingAllowance:   dec("2600"),
			FederalWithholding: dec("200"),
			PayInterval:        payroll.IntervalBiWeekly,
		},
	}
}

func TestCreatePayrollComputesAndStoresPayment(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	emp, err := svc.CreateEmployee(ctx, biweeklyEmployee(), false)
	require.NoError(t, err)

	payment, err := svc.CreatePayroll(ctx, payroll.PayrollRequest{EmployeeID: emp.ID})
	require.NoError(t, err)
	require.NotEmpty(t, payment.ID)
	require.Equal(t, payroll.PaymentTypePayroll, payment.Type)
	require.Equal(t, "2024-03-15", payment.Date.Format("2006-01-02"))
	require.Equal(t, "14:30:00", payment.Time)
	requireAmount(t, "1931.66", payment.NetPay)

	stored, ok := store.Payment(payment.ID)
	require.True(t, ok)
	requireAmount(t, "2100.00", stored.GrossPay)

	last := rec.last()
	require.NotNil(t, last)
	require.Equal(t, payroll.EntityPayment, last.Entity)
	require.Equal(t, payroll.ActionCreated, last.Action)
	require.Nil(t, last.Before)
}

func TestCreatePayrollMissingEmployee(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreatePayroll(context.Background(), payroll.PayrollRequest{EmployeeID: "00000000-0000-0000-0000-000000000000"})
	require.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestCreatePayrollRejectsNegativeHoursBeforeStoreAccess(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.Err = payroll.ErrStoreUnavailable
	_, err := svc.CreatePayroll(context.Background(), payroll.PayrollRequest{EmployeeID: "x", Hours: dec("-2")})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestCreatePayrollRejectsMalformedTime(t *testing.T) {
	svc, store, _ := newTestService(t)
	emp := store.AddEmployee(biweeklyEmployee())
	_, err := svc.CreatePayroll(context.Background(), payroll.PayrollRequest{EmployeeID: emp.ID, Time: "noon"})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestStoreUnavailablePropagates(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.Err = payroll.ErrStoreUnavailable
	_, err := svc.Preview(context.Background(), "any", decimal.Zero)
	require.ErrorIs(t, err, payroll.ErrStoreUnavailable)
}

func TestCreateBonusManualMode(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := store.AddEmployee(biweeklyEmployee())

	bonus, err := svc.CreateBonus(ctx, payroll.BonusRequest{
		EmployeeID: emp.ID,
		Amounts:    payroll.Amounts{GrossPay: dec("500"), FederalWithholding: dec("25")},
	})
	require.NoError(t, err)
	require.Equal(t, payroll.PaymentTypeBonus, bonus.Type)
	requireAmount(t, "0", bonus.SocialSecurityTax)
	requireAmount(t, "475.00", bonus.NetPay)

	refreshed, err := svc.CreateBonus(ctx, payroll.BonusRequest{
		EmployeeID:   emp.ID,
		Amounts:      payroll.Amounts{GrossPay: dec("500"), FederalWithholding: dec("25")},
		RefreshTaxes: true,
	})
	require.NoError(t, err)
	requireAmount(t, "31.00", refreshed.SocialSecurityTax)
	requireAmount(t, "7.25", refreshed.MedicareTax)
	requireAmount(t, "436.75", refreshed.NetPay)
}

func TestCreateBonusRejectsWrongTaxBranch(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	staff := store.AddEmployee(biweeklyEmployee())
	contractor := store.AddEmployee(payroll.Employee{FirstName: "Kim", LastName: "Lo", Profile: payroll.Profile{SelfEmployed: true}})

	_, err := svc.CreateBonus(ctx, payroll.BonusRequest{EmployeeID: staff.ID, Amounts: payroll.Amounts{GrossPay: dec("100"), SelfEmploymentTax: dec("15")}})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)

	_, err = svc.CreateBonus(ctx, payroll.BonusRequest{EmployeeID: contractor.ID, Amounts: payroll.Amounts{GrossPay: dec("100"), SocialSecurityTax: dec("6.20")}})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)

	_, err = svc.CreateBonus(ctx, payroll.BonusRequest{EmployeeID: staff.ID, Amounts: payroll.Amounts{GrossPay: dec("-100")}})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
	require.Zero(t, store.PaymentCount())
}

func TestUpdatePaymentRederivesNet(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	emp := store.AddEmployee(biweeklyEmployee())
	payment, err := svc.CreatePayroll(ctx, payroll.PayrollRequest{EmployeeID: emp.ID})
	require.NoError(t, err)

	fed := dec("10")
	updated, err := svc.UpdatePayment(ctx, payment.ID, payroll.PaymentUpdate{FederalWithholding: &fed}, false)
	require.NoError(t, err)
	requireAmount(t, "130.20", updated.SocialSecurityTax)
	requireAmount(t, "1929.35", updated.NetPay)
	require.Equal(t, payroll.ActionUpdated, rec.last().Action)

	gross := dec("1000")
	updated, err = svc.UpdatePayment(ctx, payment.ID, payroll.PaymentUpdate{GrossPay: &gross}, true)
	require.NoError(t, err)
	requireAmount(t, "62.00", updated.SocialSecurityTax)
	requireAmount(t, "14.50", updated.MedicareTax)
	requireAmount(t, "913.50", updated.NetPay)

	negative := dec("-1")
	_, err = svc.UpdatePayment(ctx, payment.ID, payroll.PaymentUpdate{HSA: &negative}, false)
	require.ErrorIs(t, err, payroll.ErrInvalidInput)

	_, err = svc.UpdatePayment(ctx, "missing", payroll.PaymentUpdate{}, false)
	require.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestUpdatePaymentKeepsTaxBranchAfterEmployeeSwitches(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	emp, err := svc.CreateEmployee(ctx, biweeklyEmployee(), false)
	require.NoError(t, err)
	payment, err := svc.CreatePayroll(ctx, payroll.PayrollRequest{EmployeeID: emp.ID})
	require.NoError(t, err)

	emp.SelfEmployed = true
	_, err = svc.UpdateEmployee(ctx, emp)
	require.NoError(t, err)

	moved := day(t, "2024-03-22")
	updated, err := svc.UpdatePayment(ctx, payment.ID, payroll.PaymentUpdate{Date: &moved}, false)
	require.NoError(t, err)
	require.Equal(t, "2024-03-22", updated.Date.Format("2006-01-02"))
	requireAmount(t, "130.20", updated.SocialSecurityTax)
	requireAmount(t, "1931.66", updated.NetPay)

	refreshed, err := svc.UpdatePayment(ctx, payment.ID, payroll.PaymentUpdate{}, true)
	require.NoError(t, err)
	requireAmount(t, "130.20", refreshed.SocialSecurityTax)
	requireAmount(t, "30.45", refreshed.MedicareTax)
	requireAmount(t, "0", refreshed.SelfEmploymentTax)

	seTax := dec("50")
	_, err = svc.UpdatePayment(ctx, payment.ID, payroll.PaymentUpdate{SelfEmploymentTax: &seTax}, false)
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestStoredHoursReproduceGrossPay(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := store.AddEmployee(payroll.Employee{Profile: payroll.Profile{HourlyRate: dec("20"), PayInterval: payroll.IntervalWeekly}})

	_, err := svc.CreatePayroll(ctx, payroll.PayrollRequest{EmployeeID: emp.ID, Hours: dec("10.125")})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
	require.Zero(t, store.PaymentCount())

	payment, err := svc.CreatePayroll(ctx, payroll.PayrollRequest{EmployeeID: emp.ID, Hours: dec("10.13")})
	require.NoError(t, err)
	requireAmount(t, payment.Hours.Mul(dec("20")).String(), payment.GrossPay)

	fine := dec("1.005")
	_, err = svc.UpdatePayment(ctx, payment.ID, payroll.PaymentUpdate{Hours: &fine}, false)
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestDeleteEmployeeCascadesToPayments(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	emp := store.AddEmployee(biweeklyEmployee())
	keep := store.AddEmployee(payroll.Employee{FirstName: "Ola", LastName: "Nye"})
	store.AddPayment(emp.ID, "2024-01-05", payroll.Amounts{GrossPay: dec("1")})
	store.AddPayment(emp.ID, "2024-01-19", payroll.Amounts{GrossPay: dec("1")})
	kept := store.AddPayment(keep.ID, "2024-01-19", payroll.Amounts{GrossPay: dec("1")})

	require.NoError(t, svc.DeleteEmployee(ctx, emp.ID))
	require.Equal(t, 1, store.PaymentCount())
	_, ok := store.Payment(kept.ID)
	require.True(t, ok)
	require.Equal(t, payroll.ActionDeleted, rec.last().Action)
	require.Nil(t, rec.last().After)

	require.ErrorIs(t, svc.DeleteEmployee(ctx, emp.ID), payroll.ErrNotFound)
}

func TestHideEmployeeDoesNotHidePayments(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	emp := store.AddEmployee(biweeklyEmployee())
	p := store.AddPayment(emp.ID, "2024-01-05", payroll.Amounts{GrossPay: dec("1")})

	require.NoError(t, svc.HideEmployee(ctx, emp.ID))
	stored, _ := store.Employee(emp.ID)
	require.True(t, stored.Hidden)
	payment, _ := store.Payment(p.ID)
	require.False(t, payment.Hidden)
	require.Equal(t, payroll.ActionHidden, rec.last().Action)

	visible, err := svc.ListEmployees(ctx, payroll.HiddenExclude)
	require.NoError(t, err)
	require.Empty(t, visible)

	require.NoError(t, svc.RevealEmployee(ctx, emp.ID))
	visible, err = svc.ListEmployees(ctx, payroll.HiddenExclude)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, payroll.ActionRevealed, rec.last().Action)
}

func TestHideAndRevealPayment(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := store.AddEmployee(biweeklyEmployee())
	p := store.AddPayment(emp.ID, "2024-01-05", payroll.Amounts{GrossPay: dec("1")})

	require.NoError(t, svc.HidePayment(ctx, p.ID))
	listed, err := svc.ListPayments(ctx, payroll.PaymentFilter{Hidden: payroll.HiddenExclude})
	require.NoError(t, err)
	require.Empty(t, listed)

	listed, err = svc.ListPayments(ctx, payroll.PaymentFilter{Hidden: payroll.HiddenAll})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, svc.RevealPayment(ctx, p.ID))
	payment, _ := store.Payment(p.ID)
	require.False(t, payment.Hidden)
	require.ErrorIs(t, svc.HidePayment(ctx, "missing"), payroll.ErrNotFound)
}

func TestListPaymentsNewestFirstWithinRange(t *testing.T) {
	svc, store, _ := newTestService(t)
	emp := store.AddEmployee(biweeklyEmployee())
	store.AddPayment(emp.ID, "2024-01-05", payroll.Amounts{})
	store.AddPayment(emp.ID, "2024-02-05", payroll.Amounts{})
	store.AddPayment(emp.ID, "2024-03-05", payroll.Amounts{})

	from := day(t, "2024-01-01")
	to := day(t, "2024-02-05")
	listed, err := svc.ListPayments(context.Background(), payroll.PaymentFilter{EmployeeID: emp.ID, Range: payroll.DateRange{From: from, To: to}})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "2024-02-05", listed[0].Date.Format("2006-01-02"))

	_, err = svc.ListPayments(context.Background(), payroll.PaymentFilter{Range: payroll.DateRange{From: to, To: from}})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestPositionLifecycle(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePosition(ctx, payroll.Position{Name: "  "})
	require.ErrorIs(t, err, payroll.ErrInvalidInput)

	position, err := svc.CreatePosition(ctx, payroll.Position{
		Name: "Pastor",
		PositionDefaults: payroll.PositionDefaults{
			Salary:           decimal.NewNullDecimal(dec("48000")),
			HousingAllowance: decimal.NewNullDecimal(dec("12000")),
			PayInterval:      payroll.IntervalSemiMonthly,
		},
	})
	require.NoError(t, err)
	require.Equal(t, payroll.IntervalSemiMonthly, position.PayInterval)

	emp := store.AddEmployee(payroll.Employee{Profile: payroll.Profile{Salary: dec("1"), HourlyRate: dec("15"), PayInterval: payroll.IntervalWeekly}})
	assigned, err := svc.AssignPosition(ctx, emp.ID, position.ID)
	require.NoError(t, err)
	require.Equal(t, position.ID, *assigned.PositionID)
	requireAmount(t, "48000", assigned.Salary)
	requireAmount(t, "12000", assigned.HousingAllowance)
	requireAmount(t, "15", assigned.HourlyRate)
	require.Equal(t, payroll.IntervalSemiMonthly, assigned.PayInterval)

	require.NoError(t, svc.DeletePosition(ctx, position.ID))
	unlinked, _ := store.Employee(emp.ID)
	require.Nil(t, unlinked.PositionID)
	requireAmount(t, "48000", unlinked.Salary)
	require.Equal(t, 1, store.EmployeeCount())

	_, err = svc.AssignPosition(ctx, emp.ID, position.ID)
	require.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestCreateEmployeeWithPositionDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	position, err := svc.CreatePosition(ctx, payroll.Position{
		Name: "Contractor",
		PositionDefaults: payroll.PositionDefaults{
			SelfEmploymentWithholding: decimal.NewNullDecimal(dec("3000")),
			SelfEmployed:              true,
		},
	})
	require.NoError(t, err)

	input := payroll.Employee{FirstName: "Ari", LastName: "Vale", PositionID: &position.ID, Profile: payroll.Profile{Salary: dec("30000")}}
	emp, err := svc.CreateEmployee(ctx, input, true)
	require.NoError(t, err)
	require.True(t, emp.SelfEmployed)
	requireAmount(t, "30000", emp.Salary)
	requireAmount(t, "3000", emp.SelfEmploymentWithholding)
	require.Equal(t, payroll.IntervalMonthly, emp.PayInterval)

	missing := "00000000-0000-0000-0000-000000000001"
	input.PositionID = &missing
	_, err = svc.CreateEmployee(ctx, input, true)
	require.ErrorIs(t, err, payroll.ErrNotFound)

	_, err = svc.CreateEmployee(ctx, payroll.Employee{FirstName: "No", LastName: "Pay", Profile: payroll.Profile{PayInterval: "Hourly"}}, false)
	require.ErrorIs(t, err, payroll.ErrInvalidInput)
}

type captureRenderer struct {
	stub payroll.PayStub
}

func (c *captureRenderer) Render(w io.Writer, stub payroll.PayStub) error {
	c.stub = stub
	_, err := w.Write([]byte("stub:" + stub.EmployeeName))
	return err
}

func TestRenderPayStubSuppliesYearToDateAndArchives(t *testing.T) {
	dir := t.TempDir()
	renderer := &captureRenderer{}
	svc, store, _ := newTestService(t, payroll.WithPayStubRenderer(renderer), payroll.WithArchive(payroll.NewArchive(dir, nil)))
	ctx := context.Background()
	emp := store.AddEmployee(biweeklyEmployee())
	store.AddPayment(emp.ID, "2024-01-05", payroll.Amounts{GrossPay: dec("2100"), NetPay: dec("1931.66")})
	p := store.AddPayment(emp.ID, "2024-01-19", payroll.Amounts{GrossPay: dec("2100"), NetPay: dec("1931.66")})
	store.AddPayment(emp.ID, "2024-02-02", payroll.Amounts{GrossPay: dec("2100"), NetPay: dec("1931.66")})

	var out bytes.Buffer
	require.NoError(t, svc.RenderPayStub(ctx, p.ID, &out))
	require.Equal(t, "stub:Dana Reyes", out.String())
	require.Equal(t, "01-19-2024", renderer.stub.PaymentDate())
	require.Equal(t, []string{"12 Elm St", "Springfield, IL 62701"}, renderer.stub.Address)
	requireAmount(t, "4200", renderer.stub.YearToDate.GrossPay)
	requireAmount(t, "3863.32", renderer.stub.YearToDate.NetPay)

	archived, err := os.ReadFile(filepath.Join(dir, "paystub-"+p.ID+".pdf"))
	require.NoError(t, err)
	require.Equal(t, "stub:Dana Reyes", string(archived))

	err = svc.RenderPayStub(ctx, "missing", &out)
	require.True(t, errors.Is(err, payroll.ErrNotFound))
}

func TestArchiveSealsWhenKeyConfigured(t *testing.T) {
	crypto, err := cryptoutil.New("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	archive := payroll.NewArchive(t.TempDir(), crypto)

	path, err := archive.Save("abc", []byte("%PDF"))
	require.NoError(t, err)
	require.Equal(t, ".enc", filepath.Ext(path))

	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	opened, err := crypto.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(opened))
}

type queuedJobs struct {
	types []string
	runs  []func(context.Context) (any, error)
}

func (q *queuedJobs) Enqueue(jobType string, run func(context.Context) (any, error)) {
	q.types = append(q.types, jobType)
	q.runs = append(q.runs, run)
}

func TestRenderPayStubQueuesArchiveWhenJobsConfigured(t *testing.T) {
	dir := t.TempDir()
	queue := &queuedJobs{}
	svc, store, _ := newTestService(t, payroll.WithPayStubRenderer(&captureRenderer{}), payroll.WithArchive(payroll.NewArchive(dir, nil)), payroll.WithJobs(queue))
	emp := store.AddEmployee(biweeklyEmployee())
	p := store.AddPayment(emp.ID, "2024-01-19", payroll.Amounts{GrossPay: dec("2100")})

	var out bytes.Buffer
	require.NoError(t, svc.RenderPayStub(context.Background(), p.ID, &out))
	require.Equal(t, []string{payroll.ArchiveJob}, queue.types)

	path := filepath.Join(dir, "paystub-"+p.ID+".pdf")
	_, err := os.Stat(path)
	require.True(t, errors.Is(err, os.ErrNotExist))

	details, err := queue.runs[0](context.Background())
	require.NoError(t, err)
	require.Equal(t, path, details.(map[string]string)["path"])
	archived, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "stub:Dana Reyes", string(archived))
}

func TestArchivePruneRemovesOldStubs(t *testing.T) {
	dir := t.TempDir()
	archive := payroll.NewArchive(dir, nil)
	oldPath, err := archive.Save("old", []byte("%PDF"))
	require.NoError(t, err)
	_, err = archive.Save("new", []byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o600))

	past := fixedNow.Add(-90 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "notes.txt"), past, past))

	removed, err := archive.Prune(fixedNow.Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	_, err = os.Stat(oldPath)
	require.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)

	removed, err = payroll.NewArchive(filepath.Join(dir, "missing"), nil).Prune(fixedNow)
	require.NoError(t, err)
	require.Zero(t, removed)
}
