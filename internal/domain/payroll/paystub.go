package payroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	cryptoutil "openpay/internal/platform/crypto"
)

const (
	stubDateLayout = "01-02-2006"
	currencyCode   = "USD"
	// ArchiveJob is the job type pay stub archiving is queued under.
	ArchiveJob = "paystub_archive"
)

// PayStub is everything a pay stub document shows: the payment, who it was
// paid to and the employee's totals for the year through the payment date.
type PayStub struct {
	EmployeeName string
	Address      []string
	Payment      Payment
	YearToDate   Amounts
}

// PaymentDate formats the payment date the way pay stubs print it.
func (p PayStub) PaymentDate() string {
	return p.Payment.Date.Format(stubDateLayout)
}

type PayStubRenderer interface {
	Render(w io.Writer, stub PayStub) error
}

// AddressLines returns the mailing block for an employee, skipping empty
// lines.
func AddressLines(a Address) []string {
	var lines []string
	street := strings.TrimSpace(strings.Join(nonEmpty(a.StreetNumber, a.StreetName), " "))
	if a.AptBuilding != "" || a.AptRoom != "" {
		street = strings.TrimSpace(street + " " + strings.Join(nonEmpty(a.AptBuilding, a.AptRoom), " "))
	}
	if street != "" {
		lines = append(lines, street)
	}
	if a.POBox != "" {
		lines = append(lines, "PO Box "+a.POBox)
	}
	city := a.City
	if city != "" && (a.State != "" || a.ZIP != "") {
		city += ","
	}
	if last := strings.Join(nonEmpty(city, a.State, a.ZIP), " "); last != "" {
		lines = append(lines, last)
	}
	return lines
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// FormatMoney renders an amount in dollars, e.g. $1,931.66.
func FormatMoney(amount decimal.Decimal) string {
	return money.New(Round(amount).Shift(moneyPlaces).IntPart(), currencyCode).Display()
}

// PDFRenderer draws a one-page pay stub.
type PDFRenderer struct{}

var stubLines = []struct {
	label string
	field Field
}{
	{"Gross Pay", FieldGrossPay},
	{"Housing", FieldHousing},
	{"HSA", FieldHSA},
	{"Social Security", FieldSocialSecurityTax},
	{"Medicare", FieldMedicareTax},
	{"Federal Withholding", FieldFederalWithholding},
	{"Self-Employment", FieldSelfEmploymentTax},
	{"Net Pay", FieldNetPay},
}

func (PDFRenderer) Render(w io.Writer, stub PayStub) error {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Pay Stub")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, stub.EmployeeName)
	pdf.Ln(6)
	for _, line := range stub.Address {
		pdf.Cell(0, 7, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)
	pdf.Cell(0, 7, fmt.Sprintf("Payment Date: %s", stub.PaymentDate()))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(70, 8, "", "B", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, "Current", "B", 0, "R", false, 0, "")
	pdf.CellFormat(50, 8, "Year to Date", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range stubLines {
		pdf.CellFormat(70, 8, line.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, FormatMoney(line.field.Of(stub.Payment.Amounts)), "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 8, FormatMoney(line.field.Of(stub.YearToDate)), "", 1, "R", false, 0, "")
	}
	return pdf.Output(w)
}

// Archive keeps rendered pay stubs on disk, sealed when an encryption key is
// configured.
type Archive struct {
	Dir    string
	Crypto *cryptoutil.Service
}

func NewArchive(dir string, crypto *cryptoutil.Service) *Archive {
	return &Archive{Dir: dir, Crypto: crypto}
}

// Save writes the document and returns its path.
func (a *Archive) Save(paymentID string, document []byte) (string, error) {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(a.Dir, "paystub-"+paymentID+".pdf")
	if a.Crypto != nil && a.Crypto.Configured() {
		sealed, err := a.Crypto.Seal(document)
		if err != nil {
			return "", err
		}
		document = sealed
		path += ".enc"
	}
	if err := os.WriteFile(path, document, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Prune removes archived stubs last written before cutoff and reports how
// many were removed.
func (a *Archive) Prune(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(a.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "paystub-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.Dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// PayStub gathers a payment with its employee and year-to-date totals.
func (s *Service) PayStub(ctx context.Context, paymentID string) (PayStub, error) {
	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return PayStub{}, err
	}
	employee, err := s.store.GetEmployee(ctx, payment.EmployeeID)
	if err != nil {
		return PayStub{}, err
	}
	ytd, err := s.agg.YearToDateTotals(ctx, employee.ID, payment.Date)
	if err != nil {
		return PayStub{}, err
	}
	return PayStub{
		EmployeeName: employee.FullName(),
		Address:      AddressLines(employee.Address),
		Payment:      payment,
		YearToDate:   ytd,
	}, nil
}

// RenderPayStub writes the payment's pay stub to w. A failure to archive the
// copy is logged and does not fail the render.
func (s *Service) RenderPayStub(ctx context.Context, paymentID string, w io.Writer) error {
	stub, err := s.PayStub(ctx, paymentID)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.stubs.Render(&buf, stub); err != nil {
		return fmt.Errorf("render pay stub: %w", err)
	}
	if s.vault != nil {
		document := bytes.Clone(buf.Bytes())
		if s.jobs != nil {
			s.jobs.Enqueue(ArchiveJob, func(context.Context) (any, error) {
				return s.archive(paymentID, document)
			})
		} else {
			_, _ = s.archive(paymentID, document)
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (s *Service) archive(paymentID string, document []byte) (any, error) {
	path, err := s.vault.Save(paymentID, document)
	if err != nil {
		s.log.WithError(err).WithField("paymentId", paymentID).Warn("pay stub archive failed")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"paymentId": paymentID, "path": path}).Info("pay stub archived")
	return map[string]string{"paymentId": paymentID, "path": path}, nil
}
