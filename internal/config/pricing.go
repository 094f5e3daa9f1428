package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// VerificationPrice is the fixed amount a pre-signup verification payment must carry.
type VerificationPrice struct {
	Amount   int64  `mapstructure:"amount"`
	Currency string `mapstructure:"currency"`
}

// Matches reports whether amount and currency equal the expected price exactly.
func (p VerificationPrice) Matches(amount int64, currency string) bool {
	return amount == p.Amount && strings.EqualFold(strings.TrimSpace(currency), p.Currency)
}

type PricingConfig struct {
	Verification    VerificationPrice `mapstructure:"verification"`
	OnboardingPaths map[string]string `mapstructure:"onboardingPaths"`
	RedirectDelay   time.Duration     `mapstructure:"redirectDelay"`
	VerifyTimeout   time.Duration     `mapstructure:"verifyTimeout"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Verification: VerificationPrice{Amount: 100, Currency: "eur"},
		OnboardingPaths: map[string]string{
			"job_seeker": "/onboarding/job-seeker",
			"employer":   "/onboarding/employer",
		},
		RedirectDelay: 3 * time.Second,
		VerifyTimeout: 15 * time.Second,
	}
}

type PricingHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingHolder returns a holder that never reloads.
func NewStaticPricingHolder(cfg PricingConfig) *PricingHolder {
	holder := &PricingHolder{}
	holder.current.Store(normalizePricing(cfg))
	return holder
}

func NewPricingHolder() (*PricingHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/talentgate")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TALENTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.verification.amount", defaults.Verification.Amount)
	v.SetDefault("pricing.verification.currency", defaults.Verification.Currency)
	v.SetDefault("pricing.onboardingPaths", defaults.OnboardingPaths)
	v.SetDefault("pricing.redirectDelay", defaults.RedirectDelay)
	v.SetDefault("pricing.verifyTimeout", defaults.VerifyTimeout)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := readPricing(v)
	if err != nil {
		return nil, err
	}

	holder := &PricingHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readPricing(v)
			if err != nil {
				zap.L().Warn("pricing config reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			zap.L().Info("pricing config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *PricingHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func readPricing(v *viper.Viper) (PricingConfig, error) {
	// Leaf reads so TALENTGATE_PRICING_* env vars override file values.
	cfg := normalizePricing(PricingConfig{
		Verification: VerificationPrice{
			Amount:   v.GetInt64("pricing.verification.amount"),
			Currency: v.GetString("pricing.verification.currency"),
		},
		OnboardingPaths: v.GetStringMapString("pricing.onboardingPaths"),
		RedirectDelay:   v.GetDuration("pricing.redirectDelay"),
		VerifyTimeout:   v.GetDuration("pricing.verifyTimeout"),
	})
	if err := validatePricing(cfg); err != nil {
		return PricingConfig{}, err
	}
	return cfg, nil
}

func normalizePricing(cfg PricingConfig) PricingConfig {
	cfg.Verification.Currency = strings.ToLower(strings.TrimSpace(cfg.Verification.Currency))
	paths := make(map[string]string, len(cfg.OnboardingPaths))
	for role, path := range cfg.OnboardingPaths {
		paths[strings.ToLower(strings.TrimSpace(role))] = strings.TrimSpace(path)
	}
	cfg.OnboardingPaths = paths
	return cfg
}

func validatePricing(cfg PricingConfig) error {
	if cfg.Verification.Amount <= 0 {
		return errors.New("pricing.verification.amount must be positive")
	}
	if cfg.Verification.Currency == "" {
		return errors.New("pricing.verification.currency cannot be empty")
	}
	if cfg.VerifyTimeout <= 0 {
		return errors.New("pricing.verifyTimeout must be positive")
	}
	if cfg.RedirectDelay < 0 {
		return errors.New("pricing.redirectDelay cannot be negative")
	}
	return nil
}
