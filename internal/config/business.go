package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// TimeSlot is a named, inclusive range of starting hours used by the
// busiest-times report.
type TimeSlot struct {
	Label    string `yaml:"label"`
	FromHour int    `yaml:"from_hour"`
	ToHour   int    `yaml:"to_hour"`
}

// Contains reports whether hour falls inside the slot (both ends inclusive).
func (s TimeSlot) Contains(hour int) bool { return hour >= s.FromHour && hour <= s.ToHour }

// BusinessConfig holds the restaurant rules that are not secrets and rarely
// change: the member discount, the hours a table can be booked and the
// report buckets.
type BusinessConfig struct {
	MemberDiscount decimal.Decimal `yaml:"-"`
	RawDiscount    string          `yaml:"member_discount"`
	OpeningHour    int             `yaml:"opening_hour"`
	ClosingHour    int             `yaml:"closing_hour"`
	TimeSlots      []TimeSlot      `yaml:"time_slots"`
	PaymentMethod  string          `yaml:"default_payment_method"`
}

// DefaultBusinessConfig mirrors the values the restaurant has always used.
func DefaultBusinessConfig() BusinessConfig {
	return BusinessConfig{
		MemberDiscount: decimal.RequireFromString("0.20"),
		RawDiscount:    "0.20",
		OpeningHour:    0,
		ClosingHour:    24,
		TimeSlots: []TimeSlot{
			{Label: "Morning (8-11)", FromHour: 8, ToHour: 11},
			{Label: "Lunch (12-14)", FromHour: 12, ToHour: 14},
			{Label: "Afternoon (15-17)", FromHour: 15, ToHour: 17},
			{Label: "Evening (18-23)", FromHour: 18, ToHour: 23},
		},
		PaymentMethod: "Credit Card",
	}
}

// LoadBusinessConfig reads the YAML file at path on top of the defaults.
// ${VAR} references are expanded from the environment before parsing.  An
// empty path returns the defaults.
func LoadBusinessConfig(path string) (BusinessConfig, error) {
	cfg := DefaultBusinessConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read business config: %w", err)
	}
	return ParseBusinessConfig(data)
}

// ParseBusinessConfig decodes YAML bytes over the defaults and validates
// the result.
func ParseBusinessConfig(data []byte) (BusinessConfig, error) {
	cfg := DefaultBusinessConfig()
	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return cfg, fmt.Errorf("parse business config: %w", err)
	}
	rate, err := decimal.NewFromString(cfg.RawDiscount)
	if err != nil {
		return cfg, fmt.Errorf("member_discount %q: %w", cfg.RawDiscount, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return cfg, fmt.Errorf("member_discount must be between 0 and 1, got %s", rate)
	}
	cfg.MemberDiscount = rate
	if cfg.OpeningHour < 0 || cfg.ClosingHour > 24 || cfg.OpeningHour >= cfg.ClosingHour {
		return cfg, fmt.Errorf("invalid opening hours %d-%d", cfg.OpeningHour, cfg.ClosingHour)
	}
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = "Credit Card"
	}
	return cfg, nil
}

// SlotFor returns the label of the first slot containing hour, or "" when
// none does.
func (b BusinessConfig) SlotFor(hour int) string {
	for _, s := range b.TimeSlots {
		if s.Contains(hour) {
			return s.Label
		}
	}
	return ""
}
