package app

// PeriodRequest selects a calendar month. Month is 1-based.
type PeriodRequest struct {
	Year  int `json:"year" validate:"min=1900,max=2100"`
	Month int `json:"month" validate:"min=1,max=12"`
}

type PreviewCogsRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"gte=0"`
}

// CreateSaleRequest is the input for recording a sales invoice. Amounts are
// decimal strings; InvoiceDate is YYYY-MM-DD in the reporting timezone and
// defaults to now.
type CreateSaleRequest struct {
	PartyID        int               `json:"party_id" validate:"required,gt=0"`
	InvoiceDate    string            `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	IdempotencyKey string            `json:"idempotency_key" validate:"omitempty,max=100"`
	RejectOversell bool              `json:"reject_oversell"`
	Lines          []SaleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type SaleLineRequest struct {
	ProductID    int    `json:"product_id" validate:"required,gt=0"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	PricePerItem string `json:"price_per_item" validate:"required,numeric"`
	// GSTRate overrides the product rate when set.
	GSTRate string `json:"gst_rate" validate:"omitempty,oneof=0 5 12 18 28"`
}

type AddBatchRequest struct {
	ProductID   int    `json:"product_id" validate:"required,gt=0"`
	SupplierID  int    `json:"supplier_id" validate:"gte=0"`
	BatchNumber string `json:"batch_number" validate:"required,max=64"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	CostPerItem string `json:"cost_per_item" validate:"required,numeric"`
	ExpiryDate  string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	ReceivedAt  string `json:"received_at" validate:"omitempty,datetime=2006-01-02"`
	PaidAmount  string `json:"paid_amount" validate:"omitempty,numeric"`
}

const (
	PaymentReceivable = "receivable"
	PaymentPayable    = "payable"
)

type PaymentRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=receivable payable"`
	ID     int    `json:"id" validate:"required,gt=0"`
	Amount string `json:"amount" validate:"required,numeric"`
	PaidAt string `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

type ExpenseRequest struct {
	Category        string `json:"category" validate:"required,max=100"`
	Title           string `json:"title" validate:"required,max=200"`
	Amount          string `json:"amount" validate:"required,numeric"`
	ExpenseDate     string `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentMode     string `json:"payment_mode" validate:"required,oneof=CASH BANK UPI CARD CHEQUE"`
	ReferenceNumber string `json:"reference_number" validate:"omitempty,max=100"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
}

type InsightsRequest struct {
	Question string `json:"question" validate:"required,max=500"`
}
