// Package promote sequences a full integration promotion between two
// OIC environments: export from source, import into target, patch
// per-environment connection properties, smoke-test connections and
// activate. It is the retry boundary: transient network failures are
// retried with exponential backoff, everything else surfaces directly.
package promote

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	oicpromote "github.com/oicops/oic-promote"
	"github.com/oicops/oic-promote/pkg/assertion"
	"github.com/oicops/oic-promote/pkg/idp"
	"github.com/oicops/oic-promote/pkg/types"
)

// defaultMaxRetries bounds retry attempts for transient failures
const defaultMaxRetries = 2

// Target describes one side of a promotion: how to authenticate to the
// environment and the resource client that talks to it. Each Run mints
// a fresh assertion and access token per target; tokens are never
// shared or cached across runs.
type Target struct {
	Name string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	Identity          *assertion.SigningIdentity
	Subject           string
	Audience          string
	AssertionValidity time.Duration

	Client *oicpromote.Client
}

// Plan lists what one run should promote
type Plan struct {
	Integrations []oicpromote.IntegrationID

	// ConnectionPatches maps target connection id -> property patches
	// to apply after import and before testing.
	ConnectionPatches map[string][]oicpromote.ConnectionProperty

	// Activate controls whether imported integrations are activated.
	// Activation is skipped when any connection test fails.
	Activate bool
}

// Promoter runs promotion plans between a fixed source/target pair
type Promoter struct {
	source *Target
	target *Target

	exchanger  *idp.Exchanger
	maxRetries uint64
	logger     *slog.Logger
}

// Option configures a Promoter
type Option func(*Promoter)

// WithExchanger overrides the token exchanger (used in tests)
func WithExchanger(e *idp.Exchanger) Option {
	return func(p *Promoter) { p.exchanger = e }
}

// WithMaxRetries overrides the bounded retry count for transient
// network failures
func WithMaxRetries(n uint64) Option {
	return func(p *Promoter) { p.maxRetries = n }
}

// WithLogger overrides the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Promoter) { p.logger = l }
}

// New creates a Promoter for one source/target environment pair
func New(source, target *Target, opts ...Option) (*Promoter, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("promote: source and target are required")
	}
	if source.Client == nil || target.Client == nil {
		return nil, fmt.Errorf("promote: source and target resource clients are required")
	}
	if source.Identity == nil || target.Identity == nil {
		return nil, fmt.Errorf("promote: source and target signing identities are required")
	}

	p := &Promoter{
		source:     source,
		target:     target,
		exchanger:  idp.NewExchanger(nil),
		maxRetries: defaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes the plan and returns a report of every step. The
// returned error is non-nil only when the run could not proceed at all
// (authentication failure, cancelled context); per-step failures are
// recorded in the report instead.
func (p *Promoter) Run(ctx context.Context, plan Plan) (*Report, error) {
	report := &Report{
		Source:    p.source.Name,
		Target:    p.target.Name,
		StartedAt: time.Now(),
	}
	log := p.logger.With(
		slog.String("source", p.source.Name),
		slog.String("target", p.target.Name))

	sourceToken, err := p.authenticate(ctx, p.source)
	if err != nil {
		return nil, fmt.Errorf("authentication against source %s failed: %w", p.source.Name, err)
	}
	targetToken, err := p.authenticate(ctx, p.target)
	if err != nil {
		return nil, fmt.Errorf("authentication against target %s failed: %w", p.target.Name, err)
	}

	// Export and import every integration first; property patches,
	// tests and activation follow in that fixed order.
	archives := make(map[string][]byte, len(plan.Integrations))
	for _, id := range plan.Integrations {
		result := IntegrationResult{
			Integration: id.String(),
			Export:      StepSkipped,
			Import:      StepSkipped,
			Activate:    StepSkipped,
		}

		archive, err := retryWithData(ctx, p.maxRetries, func() ([]byte, error) {
			return p.source.Client.ExportIntegration(ctx, sourceToken, id)
		})
		if err != nil {
			log.Error("export failed", slog.String("integration", id.String()), slog.String("error", err.Error()))
			result.Export = StepFailed
			result.Error = err.Error()
			report.Integrations = append(report.Integrations, result)
			continue
		}
		result.Export = StepOK
		result.ArchiveBytes = len(archive)

		if _, err := retryWithData(ctx, p.maxRetries, func() (*oicpromote.ImportReport, error) {
			return p.target.Client.ImportIntegration(ctx, targetToken, archive)
		}); err != nil {
			log.Error("import failed", slog.String("integration", id.String()), slog.String("error", err.Error()))
			result.Import = StepFailed
			result.Error = err.Error()
			report.Integrations = append(report.Integrations, result)
			continue
		}
		result.Import = StepOK
		archives[id.String()] = archive

		log.Info("promoted integration archive",
			slog.String("integration", id.String()),
			slog.Int("bytes", len(archive)))
		report.Integrations = append(report.Integrations, result)
	}

	p.patchConnections(ctx, targetToken, plan, report, log)
	testsPassed := p.testConnections(ctx, targetToken, plan, report, log)

	if plan.Activate {
		p.activate(ctx, targetToken, plan, report, testsPassed, log)
	}

	report.FinishedAt = time.Now()
	report.Succeeded = report.failureCount() == 0
	return report, nil
}

// authenticate builds a fresh assertion for the target and exchanges it
// for a bearer token. Transient network failures are retried.
func (p *Promoter) authenticate(ctx context.Context, t *Target) (*types.AccessToken, error) {
	return retryWithData(ctx, p.maxRetries, func() (*types.AccessToken, error) {
		asrt, err := t.Identity.Build(t.Subject, t.Audience, t.AssertionValidity)
		if err != nil {
			return nil, err
		}
		return p.exchanger.Exchange(ctx, idp.ExchangeConfig{
			TokenURL:     t.TokenURL,
			ClientID:     t.ClientID,
			ClientSecret: t.ClientSecret,
			Scope:        t.Scope,
		}, asrt)
	})
}

func (p *Promoter) patchConnections(ctx context.Context, token *types.AccessToken, plan Plan, report *Report, log *slog.Logger) {
	for _, connID := range sortedKeys(plan.ConnectionPatches) {
		for _, prop := range plan.ConnectionPatches[connID] {
			patch := PropertyPatchResult{
				Connection: connID,
				Group:      prop.PropertyGroup,
				Name:       prop.PropertyName,
			}
			_, err := retryWithData(ctx, p.maxRetries, func() (struct{}, error) {
				return struct{}{}, p.target.Client.UpdateConnectionProperty(ctx, token, connID, prop)
			})
			if err != nil {
				// A failed patch is recorded, not fatal: the report
				// surfaces it and the operator decides.
				log.Error("connection property patch failed",
					slog.String("connection", connID),
					slog.String("property", prop.PropertyName),
					slog.String("error", err.Error()))
				patch.Error = err.Error()
			} else {
				patch.Applied = true
			}
			report.PropertyPatches = append(report.PropertyPatches, patch)
		}
	}
}

func (p *Promoter) testConnections(ctx context.Context, token *types.AccessToken, plan Plan, report *Report, log *slog.Logger) bool {
	allPassed := true
	for _, connID := range sortedKeys(plan.ConnectionPatches) {
		test := ConnectionTestResult{Connection: connID}
		passed, err := retryWithData(ctx, p.maxRetries, func() (bool, error) {
			return p.target.Client.TestConnection(ctx, token, connID)
		})
		if err != nil {
			test.Error = err.Error()
		}
		test.Passed = passed
		if !passed {
			allPassed = false
			log.Warn("connection test failed", slog.String("connection", connID))
		}
		report.ConnectionTests = append(report.ConnectionTests, test)
	}
	return allPassed
}

func (p *Promoter) activate(ctx context.Context, token *types.AccessToken, plan Plan, report *Report, testsPassed bool, log *slog.Logger) {
	for i := range report.Integrations {
		result := &report.Integrations[i]
		if result.Import != StepOK {
			continue
		}
		if !testsPassed {
			// Keep the imported integration inactive rather than
			// activating against connections that do not work.
			log.Warn("skipping activation, connection tests failed",
				slog.String("integration", result.Integration))
			continue
		}

		id, err := parseIntegrationID(result.Integration)
		if err != nil {
			result.Activate = StepFailed
			result.Error = err.Error()
			continue
		}
		_, err = retryWithData(ctx, p.maxRetries, func() (struct{}, error) {
			return struct{}{}, p.target.Client.ActivateIntegration(ctx, token, id)
		})
		if err != nil {
			log.Error("activation failed",
				slog.String("integration", result.Integration),
				slog.String("error", err.Error()))
			result.Activate = StepFailed
			result.Error = err.Error()
			continue
		}
		result.Activate = StepOK
	}
}

// retryWithData retries op with exponential backoff and jitter while it
// fails with a retryable (network) error, up to maxRetries retries.
// Resource-side and client-side failures are returned immediately.
func retryWithData[T any](ctx context.Context, maxRetries uint64, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.RandomizationFactor = 0.5

	return backoff.RetryWithData(func() (T, error) {
		v, err := op()
		if err != nil && !types.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseIntegrationID(s string) (oicpromote.IntegrationID, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			return oicpromote.IntegrationID{Code: s[:i], Version: s[i+1:]}, nil
		}
	}
	return oicpromote.IntegrationID{}, fmt.Errorf("invalid integration id %q, want CODE|VERSION", s)
}
