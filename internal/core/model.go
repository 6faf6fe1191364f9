package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountRevenue   AccountType = "revenue"
	AccountExpense   AccountType = "expense"
)

// Fixed chart of accounts used by the ledger projector. Expense accounts are
// derived per category by the RuleEngine.
const (
	AccountReceivable = "Accounts Receivable"
	AccountSales      = "Sales"
	AccountCOGS       = "Cost of Goods Sold"
	AccountInventory  = "Inventory"
	AccountCash       = "Cash / Bank"
	AccountPayable    = "Accounts Payable"
	AccountInterest   = "Interest Expense"
)

type PartyType string

const (
	PartyCustomer PartyType = "CUSTOMER"
	PartySupplier PartyType = "SUPPLIER"
)

type Party struct {
	ID    int       `json:"id"`
	Name  string    `json:"name"`
	Type  PartyType `json:"party_type"`
	GSTIN string    `json:"gstin,omitempty"`
	State string    `json:"state"`
}

type Product struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku"`
	Price            decimal.Decimal `json:"price"`
	Cost             decimal.Decimal `json:"cost"`
	GSTRate          decimal.Decimal `json:"gst_rate"`
	ExpiryAlertDays  int             `json:"expiry_alert_days"`
	LowStockAlertQty int             `json:"low_stock_alert_qty"`
}

// Batch is one purchased lot of a product. Quantity only ever decreases after
// creation; Seq is the FIFO order.
type Batch struct {
	ID          int             `json:"id"`
	Seq         int64           `json:"seq"`
	ProductID   int             `json:"product_id"`
	SupplierID  *int            `json:"supplier_id,omitempty"`
	BatchNumber string          `json:"batch_number"`
	Quantity    int             `json:"quantity"`
	InitialQty  int             `json:"initial_qty"`
	CostPerItem decimal.Decimal `json:"cost_per_item"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	// PayableID is set only on a batch returned from AddPurchaseBatch.
	PayableID int `json:"payable_id,omitempty"`
}

// BatchConsumption is one entry of a FIFO consumption plan.
type BatchConsumption struct {
	BatchID      int             `json:"batch_id"`
	QuantityUsed int             `json:"quantity_used"`
	CostPerItem  decimal.Decimal `json:"cost_per_item"`
}

// CogsResult is the output of FIFO allocation. Oversold is set when the
// requested quantity exceeded available stock; only the allocated units are
// costed but CogsPerItem still divides by the requested quantity.
type CogsResult struct {
	CogsPerItem       decimal.Decimal    `json:"cogs_per_item"`
	CogsTotal         decimal.Decimal    `json:"cogs_total"`
	Plan              []BatchConsumption `json:"plan"`
	QuantityRequested int                `json:"quantity_requested"`
	QuantityAllocated int                `json:"quantity_allocated"`
	Oversold          bool               `json:"oversold"`
}

type SalesInvoice struct {
	ID            int                `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	PartyID       int                `json:"party_id"`
	PartyName     string             `json:"party_name"`
	InvoiceDate   time.Time          `json:"invoice_date"`
	TaxableAmount decimal.Decimal    `json:"taxable_amount"`
	CGST          decimal.Decimal    `json:"cgst"`
	SGST          decimal.Decimal    `json:"sgst"`
	IGST          decimal.Decimal    `json:"igst"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Lines         []SalesInvoiceLine `json:"lines"`
}

// CogsTotal sums the cost of goods sold across all lines.
func (inv SalesInvoice) CogsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range inv.Lines {
		total = total.Add(l.CogsTotal)
	}
	return total
}

type SalesInvoiceLine struct {
	ID           int             `json:"id"`
	InvoiceID    int             `json:"invoice_id"`
	ProductID    int             `json:"product_id"`
	Quantity     int             `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	CogsPerItem  decimal.Decimal `json:"cogs_per_item"`
	CogsTotal    decimal.Decimal `json:"cogs_total"`
}

// Purchase is the accounting view of a batch: the amount owed to the supplier
// when the batch was received.
type Purchase struct {
	BatchID     int             `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	ProductID   int             `json:"product_id"`
	SupplierID  *int            `json:"supplier_id,omitempty"`
	Date        time.Time       `json:"date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type SettlementStatus string

const (
	StatusPending   SettlementStatus = "PENDING"
	StatusCompleted SettlementStatus = "COMPLETED"
)

// Settlement is a receivable (customer owes us) or a payable (we owe a
// supplier). Status is never stored; UpdatedAt is the settlement time once the
// outstanding amount reaches zero.
type Settlement struct {
	ID                int             `json:"id"`
	DocumentID        int             `json:"document_id"`
	Reference         string          `json:"reference"`
	PartyID           int             `json:"party_id"`
	PartyName         string          `json:"party_name"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (s Settlement) Status() SettlementStatus {
	if s.OutstandingAmount.IsPositive() {
		return StatusPending
	}
	return StatusCompleted
}

// SettledBefore reports whether the settlement completed strictly before cutoff.
func (s Settlement) SettledBefore(cutoff time.Time) bool {
	return s.Status() == StatusCompleted && s.UpdatedAt.Before(cutoff)
}

type Expense struct {
	ID              int             `json:"id"`
	Category        string          `json:"category"`
	Title           string          `json:"title"`
	Amount          decimal.Decimal `json:"amount"`
	ExpenseDate     time.Time       `json:"expense_date"`
	PaymentMode     string          `json:"payment_mode"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

type PartyTxnType string

const (
	PartyDebit  PartyTxnType = "DEBIT"
	PartyCredit PartyTxnType = "CREDIT"
)

type PartyTxn struct {
	ID          int             `json:"id"`
	PartyID     int             `json:"party_id"`
	PartyName   string          `json:"party_name"`
	PartyType   PartyType       `json:"party_type"`
	Type        PartyTxnType    `json:"transaction_type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"txn_date"`
}

// Books is an immutable snapshot of raw business events. Every statement is a
// pure function of a Books value and a window or cutoff; functions filter by
// date themselves so a snapshot may cover more than the requested range.
type Books struct {
	Invoices    []SalesInvoice
	Receivables []Settlement
	Purchases   []Purchase
	Payables    []Settlement
	Expenses    []Expense
	PartyTxns   []PartyTxn
	Batches     []Batch
}

// StockCheck compares remaining batch quantity with the quantity derived from
// stock movements for one product.
type StockCheck struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	BatchQty    int    `json:"batch_qty"`
	MovementQty int    `json:"movement_qty"`
}

func (c StockCheck) Consistent() bool { return c.BatchQty == c.MovementQty }
