package data

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	ClientRole     = Role("client")
	FreelancerRole = Role("freelancer")
	AdminRole      = Role("admin")
)

type OrderStatus string

const (
	NullOrderStatus              = OrderStatus("")
	PendingOrderStatus           = OrderStatus("pending")
	InProgressOrderStatus        = OrderStatus("in-progress")
	SubmittedOrderStatus         = OrderStatus("submitted")
	RevisionRequestedOrderStatus = OrderStatus("revision-requested")
	CompletedOrderStatus         = OrderStatus("completed")
	CancelledOrderStatus         = OrderStatus("cancelled")
)

type PaymentStatus string

const (
	PendingPayment  = PaymentStatus("pending")
	PaidPayment     = PaymentStatus("paid")
	ReleasedPayment = PaymentStatus("released")
	RefundedPayment = PaymentStatus("refunded")
)

type PackageTier string

const (
	BasicTier    = PackageTier("basic")
	StandardTier = PackageTier("standard")
	PremiumTier  = PackageTier("premium")
)

type WithdrawalStatus string

const (
	NullWithdrawalStatus       = WithdrawalStatus("")
	PendingWithdrawalStatus    = WithdrawalStatus("pending")
	ProcessingWithdrawalStatus = WithdrawalStatus("processing")
	CompletedWithdrawalStatus  = WithdrawalStatus("completed")
	RejectedWithdrawalStatus   = WithdrawalStatus("rejected")
)

type User struct {
	ID            uuid.UUID
	Name          string
	Role          Role
	WalletBalance int64
	TotalEarnings int64
}

// PackageDetails is frozen on the order at creation time.
type PackageDetails struct {
	Price        int64    `json:"price"`
	Description  string   `json:"description"`
	DeliveryTime int      `json:"deliveryTime"`
	Features     []string `json:"features"`
	Revisions    int      `json:"revisions"`
}

type Revision struct {
	Message     string    `json:"message"`
	RequestedAt time.Time `json:"requestedAt"`
}

type File struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Order struct {
	CreatedAt          time.Time
	AcceptedAt         *time.Time
	SubmittedAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	PackageDetails     PackageDetails
	Revisions          []Revision
	ClientFiles        []File
	FreelancerFiles    []File
	Requirements       string
	CancellationReason string
	ServiceID          string
	PackageTier        PackageTier
	Status             OrderStatus
	PaymentStatus      PaymentStatus
	EscrowAmount       int64
	PlatformFee        int64
	FreelancerEarnings int64
	RevisionCount      int
	ID                 uuid.UUID
	ClientID           uuid.UUID
	FreelancerID       uuid.UUID
	EscrowReleased     bool
}

type BankDetails struct {
	BankName      string
	AccountNumber string
	AccountName   string
}

type Withdrawal struct {
	CreatedAt   time.Time
	ProcessedAt *time.Time
	ProcessedBy *uuid.UUID
	Bank        BankDetails
	Notes       string
	Status      WithdrawalStatus
	Amount      int64
	ID          uuid.UUID
	UserID      uuid.UUID
}

// OrderFilter narrows order listings. Zero values mean no restriction.
type OrderFilter struct {
	Status OrderStatus
	Limit  int
}

// WithdrawalFilter narrows withdrawal scans. Zero values mean no restriction;
// a zero Limit returns every match.
type WithdrawalFilter struct {
	CreatedBefore time.Time
	Statuses      []WithdrawalStatus
	Limit         int
}
