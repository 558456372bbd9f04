package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultEnvironment   = "local"
	defaultOIDCJWKSURL   = "https://www.googleapis.com/oauth2/v3/certs"
	defaultOIDCIssuer    = "https://accounts.google.com"
	defaultSessionIssuer = "swiftbasket-api"
	defaultSessionTTL    = 12 * time.Hour

	defaultOrderTopic = "order-events"

	defaultCurrency = "INR"

	defaultPlatformFee       = 5.0
	defaultPerKmRate         = 10.0
	defaultFreeDistanceKm    = 2.0
	defaultFreeDeliveryAbove = 0.0
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	PubSub    PubSubConfig
	Stripe    StripeConfig
	Routing   RoutingConfig
	Pricing   PricingConfig
	Security  SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig names the topics order events are published to.
type PubSubConfig struct {
	ProjectID  string
	OrderTopic string
}

// StripeConfig collects payment gateway credentials. APIKey may be a
// secret:// reference resolved at load time.
type StripeConfig struct {
	APIKey    string
	AccountID string
	Currency  string
}

// RoutingConfig points at the external distance service. Origin is the store
// location delivery distances are measured from.
type RoutingConfig struct {
	BaseURL   string
	Timeout   time.Duration
	OriginLat float64
	OriginLng float64
}

// PricingConfig carries the fee knobs applied by the cart pricing engine.
type PricingConfig struct {
	PlatformFee       float64
	PerKmRate         float64
	FreeDistanceKm    float64
	FreeDeliveryAbove float64
}

// SecurityConfig groups authentication settings.
type SecurityConfig struct {
	Environment string
	OIDC        OIDCConfig
	Session     SessionConfig
}

// OIDCConfig controls Google-signed token verification for the admin console.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuer   string
}

// SessionConfig controls HS256 session tokens minted for the employee console.
type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = strings.TrimSpace(path)
	}
}

// WithEnvMap injects explicit values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading the process environment (tests).
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver enables secret:// reference resolution during Load.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load builds the Config from dotenv, process environment, and explicit
// overrides, in ascending precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	values, err := environmentValues(options)
	if err != nil {
		return Config{}, err
	}

	get := func(key string) string { return strings.TrimSpace(values[key]) }

	cfg := Config{
		Server: ServerConfig{
			Port:         orDefault(get("API_PORT"), defaultPort),
			ReadTimeout:  durationValue(get("API_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationValue(get("API_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationValue(get("API_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       orDefault(get("FIREBASE_PROJECT_ID"), get("GOOGLE_CLOUD_PROJECT")),
			CredentialsFile: get("FIREBASE_CREDENTIALS_FILE"),
		},
		Firestore: FirestoreConfig{
			ProjectID:    orDefault(get("FIRESTORE_PROJECT_ID"), get("GOOGLE_CLOUD_PROJECT")),
			EmulatorHost: get("FIRESTORE_EMULATOR_HOST"),
		},
		PubSub: PubSubConfig{
			ProjectID:  orDefault(get("PUBSUB_PROJECT_ID"), get("GOOGLE_CLOUD_PROJECT")),
			OrderTopic: orDefault(get("PUBSUB_ORDER_TOPIC"), defaultOrderTopic),
		},
		Stripe: StripeConfig{
			APIKey:    get("STRIPE_API_KEY"),
			AccountID: get("STRIPE_ACCOUNT_ID"),
			Currency:  strings.ToUpper(orDefault(get("STRIPE_CURRENCY"), defaultCurrency)),
		},
		Routing: RoutingConfig{
			BaseURL:   get("ROUTING_BASE_URL"),
			Timeout:   durationValue(get("ROUTING_TIMEOUT"), 5*time.Second),
			OriginLat: floatValue(get("ROUTING_ORIGIN_LAT"), 0),
			OriginLng: floatValue(get("ROUTING_ORIGIN_LNG"), 0),
		},
		Pricing: PricingConfig{
			PlatformFee:       floatValue(get("PRICING_PLATFORM_FEE"), defaultPlatformFee),
			PerKmRate:         floatValue(get("PRICING_PER_KM_RATE"), defaultPerKmRate),
			FreeDistanceKm:    floatValue(get("PRICING_FREE_DISTANCE_KM"), defaultFreeDistanceKm),
			FreeDeliveryAbove: floatValue(get("PRICING_FREE_DELIVERY_ABOVE"), defaultFreeDeliveryAbove),
		},
		Security: SecurityConfig{
			Environment: orDefault(strings.ToLower(get("API_SECURITY_ENVIRONMENT")), defaultEnvironment),
			OIDC: OIDCConfig{
				JWKSURL:  orDefault(get("SECURITY_OIDC_JWKS_URL"), defaultOIDCJWKSURL),
				Audience: get("SECURITY_OIDC_AUDIENCE"),
				Issuer:   orDefault(get("SECURITY_OIDC_ISSUER"), defaultOIDCIssuer),
			},
			Session: SessionConfig{
				Secret: get("SECURITY_SESSION_SECRET"),
				Issuer: orDefault(get("SECURITY_SESSION_ISSUER"), defaultSessionIssuer),
				TTL:    durationValue(get("SECURITY_SESSION_TTL"), defaultSessionTTL),
			},
		},
	}

	if options.secret != nil {
		resolved, err := resolveSecret(ctx, options.secret, cfg.Stripe.APIKey)
		if err != nil {
			return Config{}, err
		}
		cfg.Stripe.APIKey = resolved
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(c.Firestore.ProjectID) == "" && strings.TrimSpace(c.Firestore.EmulatorHost) == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if c.Pricing.PerKmRate < 0 {
		missing = append(missing, "Pricing.PerKmRate")
	}
	if c.Pricing.PlatformFee < 0 {
		missing = append(missing, "Pricing.PlatformFee")
	}
	if c.Pricing.FreeDistanceKm < 0 {
		missing = append(missing, "Pricing.FreeDistanceKm")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func environmentValues(options loaderOptions) (map[string]string, error) {
	values := make(map[string]string)

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	for k, v := range dotEnv {
		values[k] = v
	}

	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
				continue
			}
			values[strings.TrimSpace(parts[0])] = parts[1]
		}
	}

	for k, v := range options.envMap {
		values[k] = v
	}
	return values, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), `"`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", absPath, err)
	}
	return values, nil
}

func resolveSecret(ctx context.Context, resolver SecretResolver, value string) (string, error) {
	if !strings.HasPrefix(value, "secret://") {
		return value, nil
	}
	resolved, err := resolver.ResolveSecret(ctx, value)
	if err != nil {
		return "", fmt.Errorf("config: resolve secret %q: %w", value, err)
	}
	return resolved, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func durationValue(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func floatValue(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return fallback
}
