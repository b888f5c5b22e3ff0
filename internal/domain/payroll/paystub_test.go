package payroll_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"openpay/internal/domain/payroll"
	"openpay/internal/domain/payroll/payrolltest"
)

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$1,931.66", payroll.FormatMoney(dec("1931.66")))
	require.Equal(t, "$0.00", payroll.FormatMoney(dec("0")))
	require.Equal(t, "$7.69", payroll.FormatMoney(dec("7.6923")))
}

func TestAddressLines(t *testing.T) {
	require.Empty(t, payroll.AddressLines(payroll.Address{}))
	require.Equal(t, []string{"PO Box 44", "Dayton, OH"}, payroll.AddressLines(payroll.Address{POBox: "44", City: "Dayton", State: "OH"}))
	require.Equal(t, []string{"9 Oak Rd Bldg 2 Rm 5"}, payroll.AddressLines(payroll.Address{StreetNumber: "9", StreetName: "Oak Rd", AptBuilding: "Bldg 2", AptRoom: "Rm 5"}))
}

func TestPDFRendererWritesDocument(t *testing.T) {
	stub := payroll.PayStub{
		EmployeeName: "Dana Reyes",
		Address:      []string{"12 Elm St", "Springfield, IL 62701"},
		Payment:      payroll.Payment{Amounts: payroll.Amounts{GrossPay: dec("2100"), NetPay: dec("1931.66")}},
		YearToDate:   payroll.Amounts{GrossPay: dec("4200"), NetPay: dec("3863.32")},
	}
	var buf bytes.Buffer
	require.NoError(t, payroll.PDFRenderer{}.Render(&buf, stub))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWriteForm941Workbook(t *testing.T) {
	store := payrolltest.NewMemStore()
	emp := store.AddEmployee(payroll.Employee{})
	store.AddPayment(emp.ID, "2024-01-15", payroll.Amounts{SocialSecurityTax: dec("10"), GrossPay: dec("100")})
	store.AddPayment(emp.ID, "2024-02-15", payroll.Amounts{SocialSecurityTax: dec("10"), GrossPay: dec("100")})
	store.AddPayment(emp.ID, "2024-03-15", payroll.Amounts{SocialSecurityTax: dec("10"), GrossPay: dec("100")})
	form, err := payroll.NewAggregator(store).Form941(t.Context(), 2024)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, payroll.WriteForm941Workbook(&buf, form))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{"Monthly", "Quarterly"}, f.GetSheetList())

	header, err := f.GetCellValue("Monthly", "A1")
	require.NoError(t, err)
	require.Equal(t, "941 Payments", header)
	march, err := f.GetCellValue("Monthly", "A4")
	require.NoError(t, err)
	require.Equal(t, "March", march)

	quarter, err := f.GetCellValue("Quarterly", "A2")
	require.NoError(t, err)
	require.Equal(t, "1st Quarter", quarter)
	totalSS, err := f.GetCellValue("Quarterly", "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "60", totalSS)
}
