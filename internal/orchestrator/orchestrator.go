// Package orchestrator fans account work out across a bounded worker
// pool: one task per account, recipients strictly sequential within an
// account, no shared mutable state between workers beyond the port
// allocator.
package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/config"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/gmail"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/history"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/source"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/template"
)

// Automaton is the per-account state machine the orchestrator drives.
// The real implementation is gmail.Account; tests substitute fakes.
type Automaton interface {
	Login(ctx context.Context) error
	SendEmail(ctx context.Context, task gmail.SendTask) error
	LastScreenshot() string
	Close()
}

// Factory builds an automaton bound to a fresh session on the given
// debugging port. Called under worker concurrency; must not share state
// across calls.
type Factory func(cred source.Credential, port int) (Automaton, error)

// ProgressSink receives live run progress, e.g. for the dashboard.
type ProgressSink interface {
	Update(sent, failed int, current string)
}

// Orchestrator coordinates one run over a set of accounts.
type Orchestrator struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *history.Store
	factory Factory
	ports   *PortAllocator
	sink    ProgressSink
}

func New(cfg *config.Config, logger *zap.Logger, store *history.Store, factory Factory) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.Named("orchestrator"),
		store:   store,
		factory: factory,
		ports:   NewPortAllocator(cfg.Browser.BasePort),
	}
}

// AttachProgress mirrors run progress into sink.
func (o *Orchestrator) AttachProgress(sink ProgressSink) { o.sink = sink }

// ProvisionAll logs every account in (bounded concurrency) and tears each
// session down again; the persisted profile keeps the authenticated
// state. Returns one outcome per account, in input order.
func (o *Orchestrator) ProvisionAll(ctx context.Context, creds []source.Credential) []*history.Outcome {
	outcomes := make([]*history.Outcome, len(creds))

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Browser.Parallel)
	for i, cred := range creds {
		g.Go(func() error {
			aut, outcome := o.provision(ctx, cred, history.OpProvision)
			if aut != nil {
				aut.Close()
			}
			outcomes[i] = outcome
			o.record(outcome)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// SendToAll provisions each account and sends the message to every
// recipient serially within that account, then tears the session down. A
// failed provision short-circuits that account's send work only.
func (o *Orchestrator) SendToAll(ctx context.Context, creds []source.Credential, recipients []string, msg *template.Message) []*history.Outcome {
	outcomes := make([]*history.Outcome, len(creds))

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Browser.Parallel)
	for i, cred := range creds {
		g.Go(func() error {
			outcomes[i] = o.sendAccount(ctx, cred, recipients, msg)
			o.record(outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// provision assigns a port, builds the automaton, and runs login. On
// terminal failure the automaton is already closed and nil is returned
// with the failure outcome.
func (o *Orchestrator) provision(ctx context.Context, cred source.Credential, op history.Operation) (Automaton, *history.Outcome) {
	outcome := &history.Outcome{Account: cred.Email, Operation: op}

	port := o.ports.Next()
	aut, err := o.factory(cred, port)
	if err != nil {
		o.logger.Error("cannot start browser session",
			zap.String("account", cred.Email), zap.Int("port", port), zap.Error(err))
		outcome.Status = history.StatusLoginFailed
		outcome.Error = err.Error()
		return nil, outcome
	}

	if err := aut.Login(ctx); err != nil {
		aut.Close()
		outcome.Status = history.StatusLoginFailed
		if errors.Is(err, gmail.ErrAccountDisabled) {
			outcome.Status = history.StatusDisabled
		}
		outcome.Error = err.Error()
		outcome.Screenshot = aut.LastScreenshot()
		return nil, outcome
	}

	outcome.Status = history.StatusProvisioned
	return aut, outcome
}

func (o *Orchestrator) sendAccount(ctx context.Context, cred source.Credential, recipients []string, msg *template.Message) *history.Outcome {
	aut, outcome := o.provision(ctx, cred, history.OpSend)
	if aut == nil {
		return outcome
	}
	defer aut.Close()

	for i, rec := range recipients {
		if o.dailyLimitReached(cred.Email) {
			o.logger.Warn("daily limit reached, skipping remaining recipients",
				zap.String("account", cred.Email), zap.Int("remaining", len(recipients)-i))
			outcome.Skipped = len(recipients) - i
			break
		}

		if err := o.sendOne(ctx, aut, cred, rec, msg); err != nil {
			// Recorded and skipped; the remaining recipients still run.
			outcome.Failed++
			continue
		}
		outcome.Sent++
		o.addDailySent(cred.Email)
		o.progress(outcome, rec)
	}

	outcome.Status = history.StatusCompleted
	if outcome.Sent == 0 && outcome.Failed > 0 {
		outcome.Status = history.StatusSendFailed
		outcome.Screenshot = aut.LastScreenshot()
	}
	return outcome
}

func (o *Orchestrator) sendOne(ctx context.Context, aut Automaton, cred source.Credential, recipient string, msg *template.Message) error {
	body, err := msg.BodyFor(recipient)
	if err != nil {
		o.logger.Error("cannot render body",
			zap.String("account", cred.Email), zap.String("recipient", recipient), zap.Error(err))
		return err
	}
	return aut.SendEmail(ctx, gmail.SendTask{To: recipient, Subject: msg.Subject, Body: body})
}

func (o *Orchestrator) dailyLimitReached(account string) bool {
	if o.cfg.Options.DailyLimit <= 0 || o.store == nil {
		return false
	}
	sent, err := o.store.DailySent(account)
	if err != nil {
		o.logger.Error("cannot read daily count", zap.String("account", account), zap.Error(err))
		return false
	}
	return sent >= o.cfg.Options.DailyLimit
}

func (o *Orchestrator) addDailySent(account string) {
	if o.store == nil {
		return
	}
	if err := o.store.AddDailySent(account, 1); err != nil {
		o.logger.Error("cannot update daily count", zap.String("account", account), zap.Error(err))
	}
}

func (o *Orchestrator) record(outcome *history.Outcome) {
	if outcome == nil {
		return
	}
	o.logger.Info("account finished",
		zap.String("account", outcome.Account),
		zap.String("status", string(outcome.Status)),
		zap.Int("sent", outcome.Sent),
		zap.Int("failed", outcome.Failed))
	if o.store != nil {
		if err := o.store.RecordOutcome(outcome); err != nil {
			o.logger.Error("cannot persist outcome", zap.Error(err))
		}
	}
}

func (o *Orchestrator) progress(outcome *history.Outcome, current string) {
	if o.sink != nil {
		o.sink.Update(outcome.Sent, outcome.Failed, current)
	}
}
