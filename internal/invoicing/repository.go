package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/moveledger/moveledger/internal/platform/db"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateReference = errors.New("invoice reference already exists")
)

// Repository defines data access for companies, invoices and items.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetCompany(ctx context.Context, id int64) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	CreateCompany(ctx context.Context, c *Company) (int64, error)
	UpdateCompany(ctx context.Context, c *Company) error
	// NextReference locks the company row, increments its counter and
	// returns the formatted reference. Must run inside WithTx so the
	// increment commits or rolls back with the invoice write.
	NextReference(ctx context.Context, companyID int64, issueDate time.Time) (string, error)

	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error)
	CreateInvoice(ctx context.Context, inv *Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	ReplaceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
	DeleteInvoice(ctx context.Context, id int64) error
	// MarkOverdueBefore flips SENT invoices with a due date strictly
	// before cutoff to OVERDUE, returning the number updated.
	MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	CompanyID int64
	Statuses  []InvoiceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const companyColumns = `id, legal_form, business_name, legal_name, abn, acn, gst_registered,
	address, city, state, postal_code, phone, email,
	bank_name, bsb, account_number, invoice_prefix, current_number, created_at, updated_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(
		&c.ID, &c.LegalForm, &c.BusinessName, &c.LegalName, &c.ABN, &c.ACN, &c.GSTRegistered,
		&c.Address, &c.City, &c.State, &c.PostalCode, &c.Phone, &c.Email,
		&c.BankName, &c.BSB, &c.AccountNumber, &c.InvoicePrefix, &c.CurrentNumber,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetCompany(ctx context.Context, id int64) (*Company, error) {
	return scanCompany(r.db.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
}

func (r *repository) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.db.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repository) CreateCompany(ctx context.Context, c *Company) (int64, error) {
	const sql = `
		INSERT INTO companies (legal_form, business_name, legal_name, abn, acn, gst_registered,
			address, city, state, postal_code, phone, email,
			bank_name, bsb, account_number, invoice_prefix, current_number, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, sql,
		c.LegalForm, c.BusinessName, c.LegalName, c.ABN, c.ACN, c.GSTRegistered,
		c.Address, c.City, c.State, c.PostalCode, c.Phone, c.Email,
		c.BankName, c.BSB, c.AccountNumber, c.InvoicePrefix, c.CurrentNumber,
	).Scan(&id)
	return id, err
}

func (r *repository) UpdateCompany(ctx context.Context, c *Company) error {
	const sql = `
		UPDATE companies SET legal_form=$2, business_name=$3, legal_name=$4, abn=$5, acn=$6,
			gst_registered=$7, address=$8, city=$9, state=$10, postal_code=$11, phone=$12,
			email=$13, bank_name=$14, bsb=$15, account_number=$16, invoice_prefix=$17,
			updated_at=now()
		WHERE id=$1`
	tag, err := r.db.Exec(ctx, sql,
		c.ID, c.LegalForm, c.BusinessName, c.LegalName, c.ABN, c.ACN,
		c.GSTRegistered, c.Address, c.City, c.State, c.PostalCode, c.Phone,
		c.Email, c.BankName, c.BSB, c.AccountNumber, c.InvoicePrefix,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextReference serializes reference assignment behind an exclusive row
// lock on the company: contenders queue on FOR UPDATE, so no two invoices
// of the same company can observe the same counter value.
func (r *repository) NextReference(ctx context.Context, companyID int64, issueDate time.Time) (string, error) {
	var prefix string
	var current int
	err := r.db.QueryRow(ctx,
		`SELECT invoice_prefix, current_number FROM companies WHERE id = $1 FOR UPDATE`,
		companyID).Scan(&prefix, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	current++
	if _, err := r.db.Exec(ctx,
		`UPDATE companies SET current_number = $2, updated_at = now() WHERE id = $1`,
		companyID, current); err != nil {
		return "", err
	}

	return FormatReference(prefix, current, issueDate), nil
}

const invoiceColumns = `id, company_id, reference, issue_date, due_date,
	client_type, client_name, client_abn, client_address,
	status, payment_terms, payment_reference, payment_date, notes, retention_date,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var (
		inv       Invoice
		reference *string
		payDate   *time.Time
	)
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &reference, &inv.IssueDate, &inv.DueDate,
		&inv.ClientType, &inv.ClientName, &inv.ClientABN, &inv.ClientAddress,
		&inv.Status, &inv.PaymentTerms, &inv.PaymentReference, &payDate, &inv.Notes,
		&inv.RetentionDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if reference != nil {
		inv.Reference = *reference
	}
	inv.PaymentDate = payDate
	return &inv, nil
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	inv.Items = items[id]
	return inv, nil
}

func (r *repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	sql := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1`
	args := []interface{}{req.CompanyID}
	argPos := 2

	if len(req.Statuses) > 0 {
		statuses := make([]string, len(req.Statuses))
		for i, s := range req.Statuses {
			statuses[i] = string(s)
		}
		sql += fmt.Sprintf(" AND status = ANY($%d)", argPos)
		args = append(args, statuses)
		argPos++
	}
	if req.DateFrom != nil {
		sql += fmt.Sprintf(" AND issue_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		sql += fmt.Sprintf(" AND issue_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}
	sql += " ORDER BY issue_date, reference NULLS LAST, id"
	if req.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, req.Limit)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	var ids []int64
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *repository) loadItems(ctx context.Context, invoiceIDs []int64) (map[int64][]InvoiceItem, error) {
	result := make(map[int64][]InvoiceItem, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return result, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, gst_treatment
		FROM invoice_items WHERE invoice_id = ANY($1) ORDER BY invoice_id, id`, invoiceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it    InvoiceItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &price, &it.GSTTreatment); err != nil {
			return nil, err
		}
		it.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invoicing: bad unit price %q: %w", price, err)
		}
		result[it.InvoiceID] = append(result[it.InvoiceID], it)
	}
	return result, rows.Err()
}

func (r *repository) CreateInvoice(ctx context.Context, inv *Invoice) (int64, error) {
	const sql = `
		INSERT INTO invoices (company_id, reference, issue_date, due_date,
			client_type, client_name, client_abn, client_address,
			status, payment_terms, payment_reference, payment_date, notes, retention_date,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, sql,
		inv.CompanyID, nullable(inv.Reference), inv.IssueDate, inv.DueDate,
		inv.ClientType, inv.ClientName, inv.ClientABN, inv.ClientAddress,
		inv.Status, inv.PaymentTerms, inv.PaymentReference, inv.PaymentDate, inv.Notes,
		inv.RetentionDate,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	inv.ID = id
	if err := r.insertItems(ctx, id, inv.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	const sql = `
		UPDATE invoices SET reference=$2, issue_date=$3, due_date=$4,
			client_type=$5, client_name=$6, client_abn=$7, client_address=$8,
			status=$9, payment_terms=$10, payment_reference=$11, payment_date=$12,
			notes=$13, retention_date=$14, updated_at=now()
		WHERE id=$1`
	tag, err := r.db.Exec(ctx, sql,
		inv.ID, nullable(inv.Reference), inv.IssueDate, inv.DueDate,
		inv.ClientType, inv.ClientName, inv.ClientABN, inv.ClientAddress,
		inv.Status, inv.PaymentTerms, inv.PaymentReference, inv.PaymentDate,
		inv.Notes, inv.RetentionDate,
	)
	if err != nil {
		return mapConstraintErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ReplaceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	return r.insertItems(ctx, invoiceID, items)
}

func (r *repository) insertItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	for i := range items {
		it := &items[i]
		err := r.db.QueryRow(ctx, `
			INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, gst_treatment)
			VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			invoiceID, it.Description, it.Quantity, it.UnitPrice.StringFixed(2), it.GSTTreatment,
		).Scan(&it.ID)
		if err != nil {
			return err
		}
		it.InvoiceID = invoiceID
	}
	return nil
}

func (r *repository) DeleteInvoice(ctx context.Context, id int64) error {
	// invoice_items rows go with it via ON DELETE CASCADE.
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $1, updated_at = now()
		WHERE status = $2 AND due_date < $3`,
		StatusOverdue, StatusSent, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_invoices_reference" {
		return ErrDuplicateReference
	}
	return err
}
