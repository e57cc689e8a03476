package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	SourceSnapshot = "snapshot"
	SourceQuery    = "query"
)

// Record is one booking night joined with the rate published on the day the
// booking was made. Nullable source columns are pointers.
type Record struct {
	FirstName            string     `gorm:"column:first_name" csv:"first_name"`
	LastName             string     `gorm:"column:last_name" csv:"last_name"`
	HotelID              int64      `gorm:"column:hotel_id" csv:"hotel_id"`
	RoomID               int64      `gorm:"column:room_id" csv:"room_id"`
	CreatedDate          time.Time  `gorm:"column:created_date" csv:"created_date"`
	CheckIn              time.Time  `gorm:"column:check_in" csv:"check_in"`
	CheckOut             time.Time  `gorm:"column:check_out" csv:"check_out"`
	CancelDate           *time.Time `gorm:"column:cancel_date" csv:"cancel_date"`
	BookingReference     string     `gorm:"column:booking_reference" csv:"booking_reference"`
	LeadIn               *float64   `gorm:"column:lead_in" csv:"lead_in"`
	BookingChannelName   string     `gorm:"column:booking_channel_name" csv:"booking_channel_name"`
	BookingStatus        string     `gorm:"column:booking_status" csv:"booking_status"`
	Adults               int        `gorm:"column:adults" csv:"adults"`
	RatePlanCode         string     `gorm:"column:rate_plan_code" csv:"rate_plan_code"`
	Nights               int        `gorm:"column:nights" csv:"nights"`
	RoomRevenue          *float64   `gorm:"column:room_revenue" csv:"room_revenue"`
	TotalRevenuePerNight *float64   `gorm:"column:total_revenue_x" csv:"total_revenue_x"`
	ExpectedRate         *float64   `gorm:"column:exp_rate" csv:"exp_rate"`
	TotalRevenueAfterTax *float64   `gorm:"column:total_revenue_after_tax" csv:"total_revenue_after_tax"`
	HotelName            string     `gorm:"column:hotel_name" csv:"hotel_name"`
	RoomName             string     `gorm:"column:room_name" csv:"room_name"`
	RoomCode             string     `gorm:"column:room_code" csv:"room_code"`
	StayDate             time.Time  `gorm:"column:stay_date" csv:"stay_date"`
	RefundableRate       *float64   `gorm:"column:refundable_rate" csv:"refundable_rate"`
	NonRefundableRate    *float64   `gorm:"column:non_refundable_rate" csv:"non_refundable_rate"`
	ReportDate           *time.Time `gorm:"column:report_date" csv:"report_date"`
	AdultCount           *int       `gorm:"column:adultcount" csv:"adultcount"`
}

// Filter narrows the source query.
type Filter struct {
	HotelID         int64
	RateUpdatesFrom time.Time
	BookingsFrom    time.Time
	Channels        []string
	RatePlanCode    string
	Nights          int
}

type AnalyzeRequest struct {
	// Refresh drops the snapshot before running so the source is queried again.
	Refresh bool
}

type HypothesisResult struct {
	Name            string  `json:"name"`
	Factor          float64 `json:"factor"`
	Matches         int     `json:"matches"`
	Mismatches      int     `json:"mismatches"`
	MatchPercentage float64 `json:"match_percentage"`
}

// HypothesisValue is an explained price rounded for display.
type HypothesisValue struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

type MismatchPreview struct {
	BookingReference     string            `json:"booking_reference"`
	RoomRevenue          *float64          `json:"room_revenue"`
	TotalRevenueAfterTax *float64          `json:"total_revenue_after_tax"`
	RefundableRate       *float64          `json:"refundable_rate"`
	Values               []HypothesisValue `json:"values"`
}

type UpgradePreview struct {
	BookingReference     string            `json:"booking_reference"`
	TotalRevenueAfterTax *float64          `json:"total_revenue_after_tax"`
	Values               []HypothesisValue `json:"values"`
}

// Summary is the outcome of classifying one set of records.
type Summary struct {
	TotalRows         int                `json:"total_rows"`
	Hypotheses        []HypothesisResult `json:"hypotheses"`
	UnresolvedCount   int                `json:"unresolved_count"`
	UnresolvedPreview []MismatchPreview  `json:"unresolved_preview"`
	UpgradeCount      int                `json:"upgrade_count"`
	UpgradePreview    []UpgradePreview   `json:"upgrade_preview"`
}

type Report struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	Summary
}

// AnalysisRun is the persisted history entry for one analysis.
type AnalysisRun struct {
	ID         snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Source     string         `gorm:"type:varchar(16);not null" json:"source"`
	RowCount   int            `gorm:"not null" json:"row_count"`
	Unresolved int            `gorm:"not null" json:"unresolved"`
	Upgrades   int            `gorm:"not null" json:"upgrades"`
	Summary    datatypes.JSON `json:"summary"`
	StartedAt  time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt time.Time      `gorm:"not null;index" json:"finished_at"`
}

func (AnalysisRun) TableName() string { return "analysis_runs" }
