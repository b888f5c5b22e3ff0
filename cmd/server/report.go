package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"openpay/internal/domain/payroll"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Tax reports",
	}
	cmd.AddCommand(newQuarterlyCmd())
	return cmd
}

func newQuarterlyCmd() *cobra.Command {
	var (
		year     int
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "quarterly",
		Short: "Print the 941 monthly and quarterly tables for a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			form, err := payroll.NewAggregator(payroll.NewStore(pool)).Form941(cmd.Context(), year)
			if err != nil {
				return err
			}
			if err := printForm941(cmd.OutOrStdout(), form); err != nil {
				return err
			}
			if xlsxPath == "" {
				return nil
			}
			return writeWorkbook(xlsxPath, form)
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Tax year")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the tables to this xlsx file")
	return cmd
}

func printForm941(out io.Writer, form payroll.Form941) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%d\tSS WH\tMedicare WH\tFed WH\tSE WH\tTOTAL\t\n", form.Year)
	for _, m := range form.Months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", m.Name,
			payroll.FormatMoney(m.SocialSecurity),
			payroll.FormatMoney(m.Medicare),
			payroll.FormatMoney(m.Federal),
			payroll.FormatMoney(m.SelfEmployment),
			payroll.FormatMoney(m.Total))
	}
	fmt.Fprintln(tw, "\t\t\t\t\t\t")
	fmt.Fprintln(tw, "Quarter\tTotal SS\tTotal Medicare\tTotal Fed\tFICA Pay\tTotal Pay\t")
	for _, q := range form.Quarters {
		fmt.Fprintf(tw, "Q%d\t%s\t%s\t%s\t%s\t%s\t\n", q.Quarter,
			payroll.FormatMoney(q.TotalSocialSecurity),
			payroll.FormatMoney(q.TotalMedicare),
			payroll.FormatMoney(q.TotalFederal),
			payroll.FormatMoney(q.FICAPay),
			payroll.FormatMoney(q.TotalPay))
	}
	return tw.Flush()
}

func writeWorkbook(path string, form payroll.Form941) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := payroll.WriteForm941Workbook(f, form); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
