package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DashboardConfig carries the analysis knobs that operators tune without a
// redeploy: the source query filters, the discount ladder and the heatmap
// datasets.
type DashboardConfig struct {
	Mismatch MismatchConfig `mapstructure:"mismatch"`
	Heatmap  HeatmapConfig  `mapstructure:"heatmap"`
}

type MismatchConfig struct {
	HotelID          int64              `mapstructure:"hotelId"`
	RateUpdatesFrom  string             `mapstructure:"rateUpdatesFrom"`
	BookingsFrom     string             `mapstructure:"bookingsFrom"`
	RatePlanCode     string             `mapstructure:"ratePlanCode"`
	Nights           int                `mapstructure:"nights"`
	Channels         []string           `mapstructure:"channels"`
	Markup           float64            `mapstructure:"markup"`
	Tolerance        float64            `mapstructure:"tolerance"`
	UpgradeDigit     float64            `mapstructure:"upgradeDigit"`
	UpgradeTolerance float64            `mapstructure:"upgradeTolerance"`
	PreviewRows      int                `mapstructure:"previewRows"`
	Hypotheses       []HypothesisConfig `mapstructure:"hypotheses"`
}

type HypothesisConfig struct {
	Name   string  `mapstructure:"name"`
	Factor float64 `mapstructure:"factor"`
}

type HeatmapConfig struct {
	DefaultStart string          `mapstructure:"defaultStart"`
	DefaultEnd   string          `mapstructure:"defaultEnd"`
	TickCount    int             `mapstructure:"tickCount"`
	MaxRangeDays int             `mapstructure:"maxRangeDays"`
	ColorScales  []string        `mapstructure:"colorScales"`
	Datasets     []DatasetConfig `mapstructure:"datasets"`
}

type DatasetConfig struct {
	Name        string `mapstructure:"name"`
	File        string `mapstructure:"file"`
	ValueColumn string `mapstructure:"valueColumn"`
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Mismatch: MismatchConfig{
			HotelID:         6,
			RateUpdatesFrom: "2022-05-01",
			BookingsFrom:    "2022-01-01",
			RatePlanCode:    "FLRA1",
			Nights:          1,
			Channels: []string{
				"booking.com", "Booking.com", "Booking.Com", "Booking.Com ", "BOOKING.COM",
				"BOOKING.COM ", "booking.com bv", "Booking.com B.V.", "BOOKING.COM BV (EUR NL)",
				"Booking.com Limited", "BOOKING.COM-NOCOMMINBESTCHEQUE", "Booking.com (Old)",
				"Booking.comVCC", "Booking.com VCC", "booking.com (Virtual card",
				"Import/Booking.com", "Worldwide Booking.com - Guestlink",
			},
			Markup:           1.2,
			Tolerance:        1,
			UpgradeDigit:     9,
			UpgradeTolerance: 0.1,
			PreviewRows:      5,
			Hypotheses: []HypothesisConfig{
				{Name: "Genius Level 1", Factor: 0.9},
				{Name: "Genius Level 1 + App Discount", Factor: 0.81},
				{Name: "Genius Level 2", Factor: 0.85},
				{Name: "Genius Level 2 + App Discount", Factor: 0.765},
				{Name: "Genius Level 3", Factor: 0.80},
				{Name: "Genius Level 3 + App Discount", Factor: 0.72},
			},
		},
		Heatmap: HeatmapConfig{
			DefaultStart: "2023-01-01",
			DefaultEnd:   "2024-07-10",
			TickCount:    12,
			MaxRangeDays: 731,
			ColorScales:  []string{"coolwarm", "viridis", "plasma", "inferno", "magma", "YlGnBu", "RdYlBu", "PuRd"},
			Datasets: []DatasetConfig{
				{Name: "Pickup Data", File: "6_pickup.csv", ValueColumn: "total_rooms"},
				{Name: "Forecasted Revenue Data", File: "6_forecast_revenue.csv", ValueColumn: "revenue"},
				{Name: "Full Refundable Rates Data", File: "6_refundable_rates.csv", ValueColumn: "refundable_rate"},
			},
		},
	}
}

type DashboardConfigHolder struct {
	current atomic.Value // holds DashboardConfig
}

// NewStaticDashboardConfigHolder wraps a fixed config. Used by tests and the CLI.
func NewStaticDashboardConfigHolder(cfg DashboardConfig) *DashboardConfigHolder {
	holder := &DashboardConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewDashboardConfigHolder() (*DashboardConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("dashboard")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/rateboard")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RATEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeDashboardConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticDashboardConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeDashboardConfig(v)
		if err != nil {
			log.Printf("[dashboard-config] invalid config ignored: %v", err)
			return
		}
		holder.Store(updated)
		log.Printf("[dashboard-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *DashboardConfigHolder) Get() DashboardConfig {
	return h.current.Load().(DashboardConfig)
}

// Store swaps the active config. Readers see the new value on their next Get.
func (h *DashboardConfigHolder) Store(cfg DashboardConfig) {
	h.current.Store(cfg)
}

func decodeDashboardConfig(v *viper.Viper) (DashboardConfig, error) {
	cfg := DefaultDashboardConfig()
	if v.IsSet("dashboard") {
		if err := v.UnmarshalKey("dashboard", &cfg); err != nil {
			return DashboardConfig{}, err
		}
	}
	if err := ValidateDashboardConfig(cfg); err != nil {
		return DashboardConfig{}, err
	}
	return cfg, nil
}

func ValidateDashboardConfig(cfg DashboardConfig) error {
	m := cfg.Mismatch
	if m.HotelID <= 0 {
		return errors.New("dashboard.mismatch.hotelId must be positive")
	}
	if strings.TrimSpace(m.RatePlanCode) == "" {
		return errors.New("dashboard.mismatch.ratePlanCode cannot be empty")
	}
	if len(m.Channels) == 0 {
		return errors.New("dashboard.mismatch.channels cannot be empty")
	}
	if m.Markup <= 0 {
		return errors.New("dashboard.mismatch.markup must be positive")
	}
	if m.Tolerance < 0 || m.UpgradeTolerance < 0 {
		return errors.New("dashboard.mismatch tolerances cannot be negative")
	}
	if len(m.Hypotheses) == 0 {
		return errors.New("dashboard.mismatch.hypotheses cannot be empty")
	}
	for _, h := range m.Hypotheses {
		if strings.TrimSpace(h.Name) == "" || h.Factor <= 0 {
			return fmt.Errorf("dashboard.mismatch.hypotheses: invalid entry %q", h.Name)
		}
	}

	hm := cfg.Heatmap
	if hm.TickCount < 10 || hm.TickCount > 15 {
		return errors.New("dashboard.heatmap.tickCount must be between 10 and 15")
	}
	if hm.MaxRangeDays <= 0 {
		return errors.New("dashboard.heatmap.maxRangeDays must be positive")
	}
	if len(hm.Datasets) == 0 {
		return errors.New("dashboard.heatmap.datasets cannot be empty")
	}
	for _, ds := range hm.Datasets {
		if strings.TrimSpace(ds.Name) == "" || strings.TrimSpace(ds.File) == "" {
			return errors.New("dashboard.heatmap.datasets: name and file are required")
		}
	}
	return nil
}
