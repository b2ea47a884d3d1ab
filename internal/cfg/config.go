package cfg

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"go.uber.org/multierr"
)

// Environment variables that override values of the configuration file.
const (
	EnvGithubWebhookSecret = "GITHUB_SECRET"
	EnvSMTPPassword        = "EMAIL_PASSWORD"
	EnvSMTPUser            = "EMAIL_USER"
	EnvRecipient           = "TARGET_EMAIL"
)

type Config struct {
	HTTPListenAddr            string `toml:"http_server_listen_addr" default:"0.0.0.0:8003"`
	HTTPSListenAddr           string `toml:"https_server_listen_addr"`
	HTTPSCertFile             string `toml:"https_ssl_cert_file"`
	HTTPSKeyFile              string `toml:"https_ssl_key_file"`
	HTTPGithubWebhookEndpoint string `toml:"github_webhook_endpoint" default:"/webhook"`
	HTTPMetricsEndpoint       string `toml:"metrics_endpoint" default:"/metrics"`
	GithubWebHookSecret       string `toml:"github_webhook_secret"`
	LogFormat                 string `toml:"log_format" default:"logfmt"`
	LogTimeKey                string `toml:"log_time_key" default:"time_iso8601"`
	LogLevel                  string `toml:"log_level" default:"info"`
	SMTP                      SMTP   `toml:"smtp"`
}

// SMTP configures the relay that notification mails are sent through.
type SMTP struct {
	Host string `toml:"host" default:"mail.privateemail.com"`
	Port int    `toml:"port" default:"587"`
	// User is used for authentication and as sender address.
	User     string `toml:"user" default:"noreply@btcpricetomorrow.com"`
	Password string `toml:"password"`
	// Recipient is the address notifications are sent to.
	Recipient string `toml:"recipient"`
	// Timeout is the maximum duration of a SMTP session, as
	// time.ParseDuration string.
	Timeout string `toml:"timeout" default:"30s"`
	// NotifyTimeout is the maximum duration of delivering one
	// notification, including connecting, authenticating and sending.
	// It must not be shorter than Timeout.
	NotifyTimeout string `toml:"notify_timeout" default:"1m"`
}

// TimeoutDuration returns Timeout as time.Duration.
// If Timeout is invalid, 0 is returned.
func (s *SMTP) TimeoutDuration() time.Duration {
	return parseDuration(s.Timeout)
}

// NotifyTimeoutDuration returns NotifyTimeout as time.Duration.
// If NotifyTimeout is invalid, 0 is returned.
func (s *SMTP) NotifyTimeoutDuration() time.Duration {
	return parseDuration(s.NotifyTimeout)
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}

	return d
}

// Load parses a toml configuration.
// Settings that are missing in the configuration have their default values.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Default returns a configuration that only contains default values.
func Default() *Config {
	config, err := Load(strings.NewReader(""))
	if err != nil {
		panic(fmt.Sprintf("loading default configuration failed: %s", err))
	}

	return config
}

// ApplyEnv overwrites settings with the values of the corresponding
// environment variables that are set to a non-empty value.
// getenv is usually os.Getenv.
func (r *Config) ApplyEnv(getenv func(string) string) {
	overrides := []struct {
		env string
		val *string
	}{
		{env: EnvGithubWebhookSecret, val: &r.GithubWebHookSecret},
		{env: EnvSMTPPassword, val: &r.SMTP.Password},
		{env: EnvSMTPUser, val: &r.SMTP.User},
		{env: EnvRecipient, val: &r.SMTP.Recipient},
	}

	for _, o := range overrides {
		if v := getenv(o.env); v != "" {
			*o.val = v
		}
	}
}

// Validate returns an error if settings are missing or invalid, that are
// required to authenticate webhook requests and send notifications.
func (r *Config) Validate() error {
	var err error

	if r.HTTPListenAddr == "" && r.HTTPSListenAddr == "" {
		err = multierr.Append(err, errors.New("https_server_listen_addr or http_server_listen_addr must be defined, both are unset"))
	}

	if r.HTTPSListenAddr != "" && (r.HTTPSCertFile == "" || r.HTTPSKeyFile == "") {
		err = multierr.Append(err, errors.New("https_ssl_cert_file and https_ssl_key_file must be defined when https_server_listen_addr is set"))
	}

	if !strings.HasPrefix(r.HTTPGithubWebhookEndpoint, "/") {
		err = multierr.Append(err, fmt.Errorf("github_webhook_endpoint %q must start with a '/'", r.HTTPGithubWebhookEndpoint))
	}

	if r.HTTPMetricsEndpoint != "" && r.HTTPMetricsEndpoint == r.HTTPGithubWebhookEndpoint {
		err = multierr.Append(err, errors.New("metrics_endpoint and github_webhook_endpoint must differ"))
	}

	if r.GithubWebHookSecret == "" {
		err = multierr.Append(err, fmt.Errorf("github webhook secret is unset, set github_webhook_secret or %s", EnvGithubWebhookSecret))
	}

	return multierr.Append(err, r.SMTP.validate())
}

func (s *SMTP) validate() error {
	var err error

	if s.Host == "" {
		err = multierr.Append(err, errors.New("smtp host is unset"))
	}

	if s.Port <= 0 || s.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("smtp port %d is invalid", s.Port))
	}

	if _, parseErr := mail.ParseAddress(s.User); parseErr != nil {
		err = multierr.Append(err, fmt.Errorf("smtp user %q is not a valid mail address, set smtp.user or %s: %w", s.User, EnvSMTPUser, parseErr))
	}

	if s.Password == "" {
		err = multierr.Append(err, fmt.Errorf("smtp password is unset, set smtp.password or %s", EnvSMTPPassword))
	}

	if _, parseErr := mail.ParseAddress(s.Recipient); parseErr != nil {
		err = multierr.Append(err, fmt.Errorf("recipient %q is not a valid mail address, set smtp.recipient or %s: %w", s.Recipient, EnvRecipient, parseErr))
	}

	timeout := s.TimeoutDuration()
	if timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("smtp timeout %q is not a positive duration", s.Timeout))
	}

	notifyTimeout := s.NotifyTimeoutDuration()
	if notifyTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("smtp notify_timeout %q is not a positive duration", s.NotifyTimeout))
	} else if timeout > 0 && notifyTimeout < timeout {
		err = multierr.Append(err, fmt.Errorf("smtp notify_timeout %s must not be shorter than smtp timeout %s", notifyTimeout, timeout))
	}

	return err
}
