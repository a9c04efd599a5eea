// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (FLYSPOT_*), configuration
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// covers the framework side (ports, TLS, logging, CORS); everything
// FlySpot needs lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name (default: flyspot-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Public base URL for email links and the OAuth redirect
	BaseURL  string
	SiteName string

	// Object storage: "local", "minio", "s3" or "gcs"
	StorageType      string
	StorageLocalPath string // Local storage root (e.g., "./uploads")
	StorageLocalURL  string // URL prefix the local files are served under
	StoragePublicURL string // Public URL prefix for remote backends

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	S3Region    string
	S3Bucket    string
	S3Endpoint  string // optional, for S3-compatible services
	S3AccessKey string // optional, falls back to the default AWS chain
	S3SecretKey string

	GCSBucket          string
	GCSProjectID       string
	GCSCredentialsFile string

	// Message queue: "none", "memory", "rabbitmq" or "pubsub"
	MQBackend             string
	RabbitMQURL           string
	RabbitMQPrefetch      int
	PubSubProjectID       string
	PubSubCredentialsFile string

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Token lifetimes
	VerifyTokenExpiry time.Duration
	ResetTokenExpiry  time.Duration

	// Upload limits
	MaxImageBytes    int64
	MaxAvatarBytes   int64
	MaxImagesPerSpot int

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Audit logging destinations: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// AdminEmail is promoted to ADMIN at startup when the account exists.
	AdminEmail string
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
