package model

import "time"

// Provider はサロン事業者の店舗情報を表す。
type Provider struct {
	ID              string
	BusinessName    string
	WebsiteURL      *string
	Description     *string
	Location        *string
	InstagramHandle *string
	CustomDomain    *string
	Subdomain       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BillingCycle はプランの請求周期。
type BillingCycle string

const (
	BillingMonthly   BillingCycle = "monthly"
	BillingBiMonthly BillingCycle = "bi-monthly"
	BillingQuarterly BillingCycle = "quarterly"
)

// Plan は事業者が提供するサブスクリプションプランを表す。
type Plan struct {
	ID             string
	ProviderID     string
	Title          string
	Description    *string
	Price          float64
	BillingCycle   BillingCycle
	VisitFrequency *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SubscriptionStatus は顧客サブスクリプションの状態。
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription は顧客とプランの契約を表す。
type Subscription struct {
	ID              string
	CustomerID      string
	PlanID          string
	ProviderID      string
	Status          SubscriptionStatus
	StartDate       time.Time
	NextBillingDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AppointmentStatus は予約の状態。
type AppointmentStatus string

const (
	AppointmentUpcoming  AppointmentStatus = "upcoming"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment は来店予約を表す。
type Appointment struct {
	ID          string
	CustomerID  string
	ProviderID  string
	Service     *string
	ScheduledAt time.Time
	Status      AppointmentStatus
	CreatedAt   time.Time
}

// Testimonial は顧客レビューを表す。
type Testimonial struct {
	ID         string
	CustomerID string
	ProviderID string
	Rating     int
	Message    *string
	CreatedAt  time.Time
}
