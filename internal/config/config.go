package config

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrGatewayConfig is returned when the mobile-money gateway is invoked
// without the credentials it needs. Callers must fail fast on it instead of
// attempting a gateway call.
var ErrGatewayConfig = errors.New("mpesa gateway configuration incomplete")

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string
	RedisAddr  string

	// PayoutRatePerKg is the flat rate (KES per kg) paid to farmers for
	// processed waste.
	PayoutRatePerKg float64

	Mpesa MpesaConfig
}

// MpesaConfig holds the Daraja credentials for STK push and B2C payouts.
type MpesaConfig struct {
	BaseURL            string
	ConsumerKey        string
	ConsumerSecret     string
	ShortCode          string
	Passkey            string
	InitiatorName      string
	SecurityCredential string
	CallbackURL        string
	ResultURL          string
	TimeoutURL         string

	// Sandbox short-circuits B2C payouts with a synthesized transaction id.
	// It is only ever enabled through this explicit flag, never inferred
	// from credential values.
	Sandbox bool
}

// ValidateSTK checks the credentials required to initiate an STK push.
func (m MpesaConfig) ValidateSTK() error {
	if m.ConsumerKey == "" || m.ConsumerSecret == "" || m.ShortCode == "" || m.Passkey == "" {
		return ErrGatewayConfig
	}
	return nil
}

// ValidateB2C checks the credentials required to initiate a B2C payout.
// Sandbox mode still requires a shortcode so references stay well-formed.
func (m MpesaConfig) ValidateB2C() error {
	if m.Sandbox {
		if m.ShortCode == "" {
			return ErrGatewayConfig
		}
		return nil
	}
	if m.ConsumerKey == "" || m.ConsumerSecret == "" || m.ShortCode == "" ||
		m.InitiatorName == "" || m.SecurityCredential == "" {
		return ErrGatewayConfig
	}
	return nil
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:          os.Getenv("DB_HOST"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBPort:          os.Getenv("DB_PORT"),
		AppPort:         os.Getenv("APP_PORT"),
		AppEnv:          os.Getenv("APP_ENV"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		PayoutRatePerKg: envFloat("PAYOUT_RATE_PER_KG", 10),
		Mpesa: MpesaConfig{
			BaseURL:            envDefault("MPESA_BASE_URL", "https://api.safaricom.co.ke"),
			ConsumerKey:        os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:     os.Getenv("MPESA_CONSUMER_SECRET"),
			ShortCode:          os.Getenv("MPESA_SHORTCODE"),
			Passkey:            os.Getenv("MPESA_PASSKEY"),
			InitiatorName:      os.Getenv("MPESA_INITIATOR_NAME"),
			SecurityCredential: os.Getenv("MPESA_SECURITY_CREDENTIAL"),
			CallbackURL:        os.Getenv("MPESA_CALLBACK_URL"),
			ResultURL:          os.Getenv("MPESA_RESULT_URL"),
			TimeoutURL:         os.Getenv("MPESA_TIMEOUT_URL"),
			Sandbox:            envBool("MPESA_SANDBOX"),
		},
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
