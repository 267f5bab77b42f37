package threadlink

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viant/afs"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/intakehq/threadlink/callback"
	"github.com/intakehq/threadlink/helpdesk"
	"github.com/intakehq/threadlink/mailer"
	"github.com/intakehq/threadlink/registry"
	"github.com/intakehq/threadlink/resolver"
)

// Options defines options for configuring a threadlink Service.
type Options struct {
	Strategy    string `yaml:"strategy" json:"strategy" short:"s" long:"strategy" description:"resolution strategy" choice:"push" choice:"poll"`
	Addr        string `yaml:"addr" json:"addr" short:"l" long:"addr" description:"listen address"`
	CallbackURI string `yaml:"callbackURI" json:"callbackURI" long:"callback-uri" description:"inbound callback path"`

	// Push strategy timeout.
	TimeoutMs int `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty" long:"timeout-ms" description:"push resolution timeout in ms"`

	// Poll strategy schedule.
	MaxAttempts      int     `yaml:"maxAttempts,omitempty" json:"maxAttempts,omitempty" long:"max-attempts" description:"poll attempts"`
	IntervalMs       int     `yaml:"intervalMs,omitempty" json:"intervalMs,omitempty" long:"interval-ms" description:"poll interval in ms"`
	LookbackWindowMs int     `yaml:"lookbackWindowMs,omitempty" json:"lookbackWindowMs,omitempty" long:"lookback-ms" description:"poll lookback window in ms"`
	PageSize         int     `yaml:"pageSize,omitempty" json:"pageSize,omitempty" long:"page-size" description:"poll listing page size"`
	ListRateLimit    float64 `yaml:"listRateLimit,omitempty" json:"listRateLimit,omitempty" long:"list-rate-limit" description:"listing queries per second, 0 disables"`

	// Callback receiver hardening.
	SigningSecret string `yaml:"signingSecret,omitempty" json:"signingSecret,omitempty" long:"signing-secret" description:"HS256 callback signing secret"`
	RedisAddr     string `yaml:"redisAddr,omitempty" json:"redisAddr,omitempty" long:"redis-addr" description:"redis address for delivery dedup"`

	Helpdesk HelpdeskOptions `yaml:"helpdesk" json:"helpdesk"`
	SMTP     SMTPOptions     `yaml:"smtp,omitempty" json:"smtp,omitempty"`
}

// HelpdeskOptions configures the helpdesk API collaborator.
type HelpdeskOptions struct {
	BaseURL string `yaml:"baseURL" json:"baseURL" short:"u" long:"helpdesk-url" description:"helpdesk API base URL"`
	Token   string `yaml:"token,omitempty" json:"token,omitempty" long:"helpdesk-token" description:"helpdesk API bearer token"`
}

// SMTPOptions configures the outbound mail trigger.
type SMTPOptions struct {
	Addr     string `yaml:"addr,omitempty" json:"addr,omitempty" long:"smtp-addr" description:"smtp relay address"`
	From     string `yaml:"from,omitempty" json:"from,omitempty" long:"smtp-from" description:"smtp sender address"`
	Username string `yaml:"username,omitempty" json:"username,omitempty" long:"smtp-username" description:"smtp username"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" long:"smtp-password" description:"smtp password"`
}

// Init fills defaults for unset fields.
func (o *Options) Init() {
	if o.Strategy == "" {
		o.Strategy = string(resolver.StrategyPush)
	}
	if o.Addr == "" {
		// Default bind only to localhost to reduce exposure of the callback
		// endpoint on development hosts.
		o.Addr = "127.0.0.1:8087"
	}
	if o.CallbackURI == "" {
		o.CallbackURI = "/callbacks/helpdesk"
	}
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 30000
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.IntervalMs <= 0 {
		o.IntervalMs = 3000
	}
	if o.LookbackWindowMs <= 0 {
		o.LookbackWindowMs = int(10 * time.Minute / time.Millisecond)
	}
	if o.PageSize <= 0 {
		o.PageSize = 25
	}
}

// LoadOptions reads an Options document (YAML or JSON) from a file or URL
// supported by afs.
func LoadOptions(ctx context.Context, URL string) (*Options, error) {
	service := afs.New()
	data, err := service.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load options from %q: %w", URL, err)
	}
	options := &Options{}
	if err := yaml.Unmarshal(data, options); err != nil {
		return nil, fmt.Errorf("failed to parse options from %q: %w", URL, err)
	}
	options.Init()
	return options, nil
}

// Service wires the correlation engine with its collaborators: the waiter
// registry, the resolver façade, the helpdesk client, the callback receiver
// and optionally an SMTP trigger.
type Service struct {
	options  *Options
	Registry *registry.Registry
	Resolver *resolver.Service
	Helpdesk *helpdesk.Client
	receiver *callback.Receiver
	mailer   *mailer.SMTP
	dedup    callback.DedupStore
}

// New creates a Service from options.
func New(ctx context.Context, options *Options) (*Service, error) {
	if options == nil {
		options = &Options{}
	}
	options.Init()
	if options.Helpdesk.BaseURL == "" {
		return nil, fmt.Errorf("threadlink: helpdesk base URL is required")
	}

	var helpdeskOptions []helpdesk.Option
	if options.Helpdesk.Token != "" {
		helpdeskOptions = append(helpdeskOptions, helpdesk.WithToken(options.Helpdesk.Token))
	}
	helpdeskClient := helpdesk.New(options.Helpdesk.BaseURL, helpdeskOptions...)

	reg := registry.New()

	pollOptions := []resolver.PollOption{
		resolver.WithMaxAttempts(options.MaxAttempts),
		resolver.WithInterval(time.Duration(options.IntervalMs) * time.Millisecond),
		resolver.WithLookbackWindow(time.Duration(options.LookbackWindowMs) * time.Millisecond),
		resolver.WithPageSize(options.PageSize),
	}
	if options.ListRateLimit > 0 {
		pollOptions = append(pollOptions, resolver.WithRateLimiter(rate.NewLimiter(rate.Limit(options.ListRateLimit), 1)))
	}

	resolverService, err := resolver.NewService(
		resolver.WithStrategy(resolver.Strategy(options.Strategy)),
		resolver.WithPushCorrelator(resolver.NewPushCorrelator(reg)),
		resolver.WithPollResolver(resolver.NewPollResolver(helpdeskClient, pollOptions...)),
		resolver.WithAnnotator(helpdeskClient),
		resolver.WithTimeout(time.Duration(options.TimeoutMs)*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}

	var dedup callback.DedupStore
	if options.RedisAddr != "" {
		dedup = callback.NewRedisDedupStore(redis.NewClient(&redis.Options{Addr: options.RedisAddr}))
	} else {
		dedup = callback.NewMemoryDedupStore()
	}
	receiverOptions := []callback.ReceiverOption{callback.WithDedupStore(dedup)}
	if options.SigningSecret != "" {
		receiverOptions = append(receiverOptions, callback.WithSigningSecret([]byte(options.SigningSecret)))
	}

	ret := &Service{
		options:  options,
		Registry: reg,
		Resolver: resolverService,
		Helpdesk: helpdeskClient,
		receiver: callback.NewReceiver(reg, receiverOptions...),
		dedup:    dedup,
	}
	if options.SMTP.Addr != "" {
		var mailerOptions []mailer.Option
		if options.SMTP.Username != "" {
			host := options.SMTP.Addr
			if idx := strings.IndexByte(host, ':'); idx >= 0 {
				host = host[:idx]
			}
			mailerOptions = append(mailerOptions, mailer.WithAuth(smtp.PlainAuth("", options.SMTP.Username, options.SMTP.Password, host)))
		}
		ret.mailer = mailer.NewSMTP(options.SMTP.Addr, options.SMTP.From, mailerOptions...)
	}
	return ret, nil
}

// Close releases pending waiters and backing stores.
func (s *Service) Close() error {
	s.Registry.Close()
	if s.dedup != nil {
		return s.dedup.Close()
	}
	return nil
}
