package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/badoux/checkmail"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/billed/internal/containers"
	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/bills"
	"github.com/pigeonworks-llc/billed/pkg/db"
)

// lastEmailKey is the journal metadata remembering the last employee.
const lastEmailKey = "last_email"

var (
	email   string
	asHTML  bool
	noInput bool
	receipt string
	newForm views.BillForm
)

// billsCmd represents the bills command.
var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "List and submit bills",
}

var billsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all bills, latest first",
	Long: `List every bill record of the store as the bills page shows them: latest
first, with French dates and status labels. A store failure is printed as the
page would show it.

Example:
  billed bills list --email employee@test.tld
  billed bills list --mock --html > bills.html`,
	Run: runBillsList,
}

var billsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Submit a new bill with a receipt",
	Long: `Submit a new bill. The receipt must be an image.

Without --name or --file an interactive form asks for the fields.

Example:
  billed bills new --email employee@test.tld
  billed bills new --type Transports --name Taxi --date 2022-07-02 \
    --amount 50 --vat 10 --file receipt.jpg`,
	Run: runBillsNew,
}

func init() {
	billsCmd.PersistentFlags().StringVar(&email, "email", "", "employee e-mail (default: the last one used)")

	billsListCmd.Flags().BoolVar(&asHTML, "html", false, "print the rendered bills page")

	f := billsNewCmd.Flags()
	f.StringVar(&newForm.Type, "type", "", "expense type")
	f.StringVar(&newForm.Name, "name", "", "expense name")
	f.StringVar(&newForm.Date, "date", "", "date (YYYY-MM-DD)")
	f.StringVar(&newForm.Amount, "amount", "", "amount including VAT")
	f.StringVar(&newForm.VAT, "vat", "", "VAT amount")
	f.StringVar(&newForm.Pct, "pct", "", "VAT percentage (default 20)")
	f.StringVar(&newForm.Commentary, "commentary", "", "commentary")
	f.StringVar(&receipt, "file", "", "receipt image")
	f.BoolVar(&noInput, "no-input", false, "never prompt; fail on missing fields")

	billsCmd.AddCommand(billsListCmd)
	billsCmd.AddCommand(billsNewCmd)
}

// employeeSession resolves the session from --email or the journal.
func employeeSession(journal *db.Journal) containers.Session {
	address := email
	if address == "" {
		last, err := journal.GetMetadata(lastEmailKey)
		exitOnError(err, "failed to read last e-mail")
		address = last
	}
	if address == "" {
		exitOnError(errors.New("use --email"), "no employee e-mail")
	}
	exitOnError(checkmail.ValidateFormat(address), "invalid e-mail "+address)

	if err := journal.SetMetadata(lastEmailKey, address); err != nil {
		exitOnError(err, "failed to remember e-mail")
	}
	return containers.Session{Type: containers.UserTypeEmployee, Email: address}
}

func runBillsList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	conn, journal := openJournal(cfg)
	defer conn.Close()

	session := employeeSession(journal)
	doc := views.NewDocument()
	c := containers.NewBills(containers.BillsConfig{
		Document: doc,
		Store:    newStore(cfg),
		Session:  session,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Store.Timeout)
	defer cancel()
	exitOnError(c.List(ctx), "failed to render bills")

	if asHTML {
		doc.SetTitle("Mes notes de frais")
		_, err := doc.WriteTo(os.Stdout)
		exitOnError(err, "failed to write page")
		return
	}

	state := c.State()
	if state.Error != "" {
		exitOnError(errors.New(state.Error), "failed to list bills")
	}

	exitOnError(writeBillsTable(os.Stdout, state.Rows), "failed to write bills")
}

// writeBillsTable prints one line per bill, whoever submitted it.
func writeBillsTable(w io.Writer, rows []views.BillRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tEMAIL\tTYPE\tNAME\tAMOUNT\tSTATUS\tRECEIPT")
	for _, row := range rows {
		shown := "-"
		if row.Bill.HasFile() {
			shown = row.Bill.FileName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s €\t%s\t%s\n",
			row.Date(), row.Bill.Email, row.Bill.Type, row.Bill.Name, row.Bill.Amount, row.Status(), shown)
	}
	return tw.Flush()
}

func runBillsNew(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	conn, journal := openJournal(cfg)
	defer conn.Close()

	session := employeeSession(journal)

	if newForm.Name == "" || receipt == "" {
		if noInput {
			exitOnError(errors.New("--name and --file are required with --no-input"), "missing fields")
		}
		exitOnError(promptBill(&newForm, &receipt), "form cancelled")
	}

	file, err := readReceipt(receipt)
	exitOnError(err, "failed to read receipt")

	var navigated string
	c := containers.NewNewBill(containers.NewBillConfig{
		Document: views.NewDocument(),
		Store:    newStore(cfg),
		Navigate: func(p string) { navigated = p },
		Session:  session,
		Journal:  journal,
	})

	exitOnError(c.HandleChangeFile(file), "failed to check receipt")
	if c.State().FileStatus == containers.FileInvalid {
		exitOnError(fmt.Errorf("%s is %s", receipt, file.ContentType), "receipt is not an image")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Store.Timeout)
	defer cancel()
	exitOnError(c.HandleSubmit(ctx, newForm), "bill not submitted")

	state := c.State()
	if navigated != containers.RouteBills || state.Saved == nil {
		exitOnError(errors.New(state.Error), "bill not submitted")
	}

	fmt.Printf("Bill %s submitted: %s, %s € (%s)\n",
		state.Saved.ID, state.Saved.Name, state.Saved.Amount, bills.FormatStatus(state.Saved.Status))
}

// readReceipt reads an image the way a browser file input reports it: the
// type comes from the extension, falling back to the content.
func readReceipt(path string) (bills.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return bills.File{}, err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	return bills.File{Name: filepath.Base(path), ContentType: contentType, Content: content}, nil
}

func promptBill(form *views.BillForm, file *string) error {
	if form.Type == "" {
		form.Type = bills.ExpenseTypes[0]
	}
	if form.Date == "" {
		form.Date = time.Now().Format(bills.DateLayout)
	}
	if form.Pct == "" {
		form.Pct = strconv.Itoa(bills.DefaultPct)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Type de dépense").
				Options(huh.NewOptions(bills.ExpenseTypes...)...).
				Value(&form.Type),
			huh.NewInput().
				Title("Nom de la dépense").
				Placeholder("Vol Paris Londres").
				Value(&form.Name),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Validate(func(s string) error {
					_, err := time.Parse(bills.DateLayout, s)
					return err
				}).
				Value(&form.Date),
			huh.NewInput().
				Title("Montant TTC").
				Placeholder("348").
				Validate(positiveDecimal).
				Value(&form.Amount),
			huh.NewInput().
				Title("TVA").
				Placeholder("70").
				Value(&form.VAT),
			huh.NewInput().
				Title("%").
				Value(&form.Pct),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Commentaire").
				Value(&form.Commentary),
			huh.NewInput().
				Title("Justificatif").
				Description("Chemin d'une image (jpg, png...)").
				Validate(func(s string) error {
					_, err := os.Stat(s)
					return err
				}).
				Value(file),
		),
	).Run()
}

func positiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.New("montant invalide")
	}
	if !d.IsPositive() {
		return errors.New("le montant doit être positif")
	}
	return nil
}
