package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type DB struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

type NSQ struct {
	NsqdTCPAddr    string // e.g. nsqd:4150
	LookupHTTPAddr string // e.g. http://nsqlookupd:4161
	ChangesTopic   string // NSQ topic carrying task status changes
	Channel        string // NSQ channel name for the pipeline consumer
}

type Transport struct {
	Kind       string // httpmail or smtp
	MailAPIURL string // base URL of the mail API (httpmail)
	MailAPIKey string // bearer key for the mail API
	SMTPAddr   string // host:port of the SMTP server
	SMTPUser   string
	SMTPPass   string
	From       string // sender address on outbound messages
}

type Pipeline struct {
	DispatchInterval    time.Duration // delivery queue tick
	BackoffUnit         time.Duration // one retry backoff time-unit
	DefaultMaxRetries   int
	SendTimeout         time.Duration // per-recipient send deadline
	HealthCheckInterval time.Duration
	DedupWindow         time.Duration // repeat transitions inside this window are dropped
	DedupPruneInterval  time.Duration
	LogLevel            string // debug, info, warn, error
	LogCapacity         int    // event logger ring size
}

type Ops struct {
	HTTPPort     string // ops API listen address, e.g. :8084
	JWTPublicKey string // PEM public key; empty disables auth
	JWTIssuer    string
	JWTAudience  string
}

type Config struct {
	AppName   string
	BaseURL   string // deep-link base, e.g. https://app.example.com
	DB        DB
	NSQ       NSQ
	Transport Transport
	Pipeline  Pipeline
	Ops       Ops
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func FromEnv() Config {
	return Config{
		AppName: getenv("APP_NAME", "taskpulse"),
		BaseURL: getenv("APP_BASE_URL", "http://localhost:3000"),
		DB: DB{
			User: getenv("DB_USER", "postgres"),
			Pass: getenv("DB_PASS", "postgres"),
			Host: getenv("DB_HOST", "postgres"),
			Port: getenv("DB_PORT", "5432"),
			Name: getenv("DB_NAME", "taskpulse"),
		},
		NSQ: NSQ{
			NsqdTCPAddr:    getenv("NSQD_TCP_ADDR", "nsqd:4150"),
			LookupHTTPAddr: getenv("NSQ_LOOKUP_HTTP_ADDR", "http://nsqlookupd:4161"),
			ChangesTopic:   getenv("NSQ_CHANGES_TOPIC", "task_status_changes"),
			Channel:        getenv("NSQ_CHANNEL", "pipeline"),
		},
		Transport: Transport{
			Kind:       getenv("TRANSPORT_KIND", "httpmail"),
			MailAPIURL: getenv("MAIL_API_URL", "http://mailsink:8085"),
			MailAPIKey: getenv("MAIL_API_KEY", ""),
			SMTPAddr:   getenv("SMTP_ADDR", "localhost:25"),
			SMTPUser:   getenv("SMTP_USER", ""),
			SMTPPass:   getenv("SMTP_PASS", ""),
			From:       getenv("MAIL_FROM", "noreply@taskpulse.dev"),
		},
		Pipeline: Pipeline{
			DispatchInterval:    getenvDuration("DISPATCH_INTERVAL", 5*time.Second),
			BackoffUnit:         getenvDuration("BACKOFF_UNIT", time.Second),
			DefaultMaxRetries:   getenvInt("MAX_RETRIES", 3),
			SendTimeout:         getenvDuration("SEND_TIMEOUT", 15*time.Second),
			HealthCheckInterval: getenvDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),
			DedupWindow:         getenvDuration("DEDUP_WINDOW", 5*time.Minute),
			DedupPruneInterval:  getenvDuration("DEDUP_PRUNE_INTERVAL", 10*time.Minute),
			LogLevel:            getenv("LOG_LEVEL", "info"),
			LogCapacity:         getenvInt("LOG_CAPACITY", 1000),
		},
		Ops: Ops{
			HTTPPort:     getenv("OPS_HTTP_PORT", ":8084"),
			JWTPublicKey: getenv("OPS_JWT_PUBLIC_KEY", ""),
			JWTIssuer:    getenv("OPS_JWT_ISSUER", "taskpulse"),
			JWTAudience:  getenv("OPS_JWT_AUDIENCE", "taskpulse-ops"),
		},
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}
