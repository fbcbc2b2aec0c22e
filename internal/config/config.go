package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"levtrade/internal/fees"
	"levtrade/internal/marketdata"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr      string
	DBDSN         string
	InternalToken string
	Mode          string
	LogFile       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL           string
	NATSSubjectPrefix string

	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	WebSocketOrigin string

	RateLimitRPS   float64
	RateLimitBurst float64

	MaxLivePositions   int
	RestrictedAssets   map[string]struct{}
	FeeTiers           []fees.Tier
	WinningsFee        decimal.Decimal
	FeeWindow          time.Duration
	LiquidationEvery   time.Duration
	LiquidationWorkers int

	QuoteRefreshEvery time.Duration
	QuotesCryptoKey   string
	QuotesStocksKey   string
	MarketHours       marketdata.Hours

	BridgeCost                decimal.Decimal
	WithdrawApprovalThreshold decimal.Decimal
}

func (c Config) Production() bool { return c.Mode == "production" }

func Load() (Config, error) {
	var c Config
	var missing []string
	require := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	c.HTTPAddr = require("HTTP_ADDR")
	c.DBDSN = require("DB_DSN")
	c.RedisAddr = require("REDIS_ADDR")
	c.InternalToken = require("INTERNAL_API_TOKEN")
	c.JWTSecret = require("JWT_SECRET")
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}

	c.Mode = strings.ToLower(getenv("APP_MODE", "development"))
	if c.Mode != "development" && c.Mode != "production" {
		return c, errors.New("invalid APP_MODE: use development or production")
	}
	c.LogFile = os.Getenv("LOG_FILE")
	c.RedisPassword = os.Getenv("REDIS_PASSWORD")
	c.NATSURL = strings.TrimSpace(os.Getenv("NATS_URL"))
	c.NATSSubjectPrefix = getenv("NATS_SUBJECT_PREFIX", "positions")
	c.JWTIssuer = getenv("JWT_ISSUER", "levtrade")
	c.WebSocketOrigin = getenv("WS_ORIGIN", "*")
	c.QuotesCryptoKey = getenv("QUOTES_CRYPTO_KEY", marketdata.DefaultCryptoKey)
	c.QuotesStocksKey = getenv("QUOTES_STOCKS_KEY", marketdata.DefaultStocksKey)

	var err error
	if c.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return c, err
	}
	if c.MaxLivePositions, err = intEnv("MAX_LIVE_POSITIONS", 5); err != nil {
		return c, err
	}
	if c.LiquidationWorkers, err = intEnv("LIQUIDATION_WORKERS", 8); err != nil {
		return c, err
	}
	if c.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 50); err != nil {
		return c, err
	}
	if c.RateLimitBurst, err = floatEnv("RATE_LIMIT_BURST", 100); err != nil {
		return c, err
	}
	if c.JWTTTL, err = durationEnv("JWT_TTL", 15*time.Minute); err != nil {
		return c, err
	}
	if c.FeeWindow, err = durationEnv("FEE_WINDOW", 24*time.Hour); err != nil {
		return c, err
	}
	if c.LiquidationEvery, err = durationEnv("LIQUIDATION_INTERVAL", 5*time.Second); err != nil {
		return c, err
	}
	if c.QuoteRefreshEvery, err = durationEnv("QUOTE_REFRESH_INTERVAL", 2*time.Second); err != nil {
		return c, err
	}
	if c.WinningsFee, err = decimalEnv("WINNINGS_FEE", "0.1"); err != nil {
		return c, err
	}
	if c.WinningsFee.IsNegative() || c.WinningsFee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return c, errors.New("invalid WINNINGS_FEE: must be in [0, 1)")
	}
	if c.BridgeCost, err = decimalEnv("BRIDGE_COST", "0.50"); err != nil {
		return c, err
	}
	if c.WithdrawApprovalThreshold, err = decimalEnv("WITHDRAW_APPROVAL_THRESHOLD", "200"); err != nil {
		return c, err
	}
	if c.FeeTiers, err = fees.ParseTiers(getenv("FEE_TIERS", "5:0.05,20:0.075,100:0.1")); err != nil {
		return c, fmt.Errorf("invalid FEE_TIERS: %w", err)
	}

	c.RestrictedAssets = map[string]struct{}{}
	for _, s := range strings.Split(getenv("RESTRICTED_ASSETS", "LADYS/USD"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			c.RestrictedAssets[s] = struct{}{}
		}
	}

	if c.MarketHours.Open, err = marketdata.ParseTimeOfDay(getenv("MARKET_OPEN_UTC", "13:30")); err != nil {
		return c, fmt.Errorf("invalid MARKET_OPEN_UTC: %w", err)
	}
	if c.MarketHours.Close, err = marketdata.ParseTimeOfDay(getenv("MARKET_CLOSE_UTC", "20:00")); err != nil {
		return c, fmt.Errorf("invalid MARKET_CLOSE_UTC: %w", err)
	}
	if c.MarketHours.Close <= c.MarketHours.Open {
		return c, errors.New("MARKET_CLOSE_UTC must be after MARKET_OPEN_UTC")
	}
	if c.MarketHours.Holidays, err = marketdata.ParseHolidays(os.Getenv("MARKET_HOLIDAYS")); err != nil {
		return c, fmt.Errorf("invalid MARKET_HOLIDAYS: %w", err)
	}
	return c, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func decimalEnv(key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getenv(key, def))
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
