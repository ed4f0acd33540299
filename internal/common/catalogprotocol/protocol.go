package catalogprotocol

// Package is one purchasable tier of a service listing as published by the
// catalog. Amounts are in minor currency units.
type Package struct {
	Price        int64    `json:"price" yaml:"price"`
	Description  string   `json:"description" yaml:"description"`
	DeliveryTime int      `json:"deliveryTime" yaml:"delivery_time"`
	Features     []string `json:"features" yaml:"features"`
	Revisions    int      `json:"revisions" yaml:"revisions"`
}

type Service struct {
	ID           string             `json:"id" yaml:"id"`
	FreelancerID string             `json:"freelancerId" yaml:"freelancer_id"`
	Title        string             `json:"title" yaml:"title"`
	Packages     map[string]Package `json:"packages" yaml:"packages"`
	Orders       int                `json:"orders" yaml:"-"`
}
