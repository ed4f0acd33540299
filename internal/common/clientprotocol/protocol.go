package clientprotocol

import "time"

// Amounts are integer minor currency units.

type Party struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

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
	UploadedAt time.Time `json:"uploadedAt,omitempty"`
}

type Order struct {
	ID                 string         `json:"id"`
	Client             Party          `json:"client"`
	Freelancer         Party          `json:"freelancer"`
	ServiceID          string         `json:"serviceId"`
	PackageTier        string         `json:"packageTier"`
	PackageDetails     PackageDetails `json:"packageDetails"`
	Requirements       string         `json:"requirements,omitempty"`
	Status             string         `json:"status"`
	PaymentStatus      string         `json:"paymentStatus"`
	EscrowAmount       int64          `json:"escrowAmount"`
	PlatformFee        int64          `json:"platformFee"`
	FreelancerEarnings int64          `json:"freelancerEarnings"`
	EscrowReleased     bool           `json:"escrowReleased"`
	RevisionCount      int            `json:"revisionCount"`
	Revisions          []Revision     `json:"revisions"`
	ClientFiles        []File         `json:"clientFiles"`
	FreelancerFiles    []File         `json:"freelancerFiles"`
	CancellationReason string         `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	AcceptedAt         *time.Time     `json:"acceptedAt,omitempty"`
	SubmittedAt        *time.Time     `json:"submittedAt,omitempty"`
	CompletedAt        *time.Time     `json:"completedAt,omitempty"`
	CancelledAt        *time.Time     `json:"cancelledAt,omitempty"`
}

type CreateOrderRequest struct {
	ServiceID    string `json:"serviceId"`
	PackageTier  string `json:"packageTier"`
	Requirements string `json:"requirements"`
}

type FilesRequest struct {
	Files []File `json:"files"`
}

type RevisionRequest struct {
	Message string `json:"message"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

type Withdrawal struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Amount      int64       `json:"amount"`
	BankDetails BankDetails `json:"bankDetails"`
	Status      string      `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	ProcessedBy string      `json:"processedBy,omitempty"`
	ProcessedAt *time.Time  `json:"processedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type WithdrawalRequest struct {
	Amount      int64       `json:"amount"`
	BankDetails BankDetails `json:"bankDetails"`
}

type ProcessWithdrawalRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type Wallet struct {
	WalletBalance      int64 `json:"walletBalance"`
	TotalEarnings      int64 `json:"totalEarnings"`
	PendingWithdrawals int64 `json:"pendingWithdrawals"`
	AvailableBalance   int64 `json:"availableBalance"`
}

type SettlementResult struct {
	Processed int `json:"processed"`
}

type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
