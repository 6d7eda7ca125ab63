package activation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/magicaleks/magickey/internal/config"
	"github.com/magicaleks/magickey/internal/domain"
	"github.com/magicaleks/magickey/internal/impls"
	"github.com/magicaleks/magickey/internal/usecase/fingerprint"
)

// Result describes a finished activation run.
type Result struct {
	RunID    string
	Outcome  domain.ActivationOutcome
	LoginURL string
}

// Service runs the fingerprint to token pipeline. A Service performs at most
// one activation; build one per process.
type Service struct {
	source    impls.IdentifierSource
	sealer    impls.PayloadSealer
	activator impls.Activator
	handoff   impls.Handoff
	static    domain.StaticFields
	loginBase string
	debug     config.DebugConfig
	logger    *slog.Logger

	attempted atomic.Bool
}

func NewService(
	cfg *config.Config,
	source impls.IdentifierSource,
	sealer impls.PayloadSealer,
	activator impls.Activator,
	handoff impls.Handoff,
	logger *slog.Logger,
) *Service {
	return &Service{
		source:    source,
		sealer:    sealer,
		activator: activator,
		handoff:   handoff,
		static:    cfg.StaticFields(),
		loginBase: cfg.LoginBaseURL,
		debug:     cfg.Debug,
		logger:    logger,
	}
}

// Run collects identifiers, assembles and encrypts the fingerprint, submits
// it and hands the login URL over. Encryption failures and non-token
// outcomes end the run; a non-token outcome is returned as
// domain.ErrActivation together with the result.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if !s.attempted.CompareAndSwap(false, true) {
		return nil, domain.ErrAlreadyAttempted
	}

	res := &Result{RunID: uuid.NewString()}
	log := s.logger.With("run_id", res.RunID)

	bundle := s.collect(ctx, log)

	record := fingerprint.Assemble(bundle, s.static)
	if s.debug.Enabled {
		log.Debug("fingerprint assembled", "record", record)
	}

	payload, err := s.sealer.Encrypt(record)
	if err != nil {
		if s.debug.Enabled {
			if plain, cerr := record.Canonical(); cerr == nil {
				log.Debug("fingerprint size", "bytes", len(plain))
			}
		}
		log.Error("encryption failed", "err", err)
		return nil, fmt.Errorf("encrypt fingerprint: %w", err)
	}
	if s.debug.Enabled && s.debug.LogEncryptedData {
		log.Debug("fingerprint encrypted", "chars", len(payload), "payload", string(payload))
	}

	res.Outcome = s.activator.Activate(ctx, payload)
	if !res.Outcome.OK() {
		attrs := []any{"outcome", res.Outcome.Kind.String()}
		if res.Outcome.Err != nil {
			attrs = append(attrs, "err", res.Outcome.Err)
		}
		if s.debug.Enabled && res.Outcome.Raw != "" {
			attrs = append(attrs, "reply", res.Outcome.Raw)
		}
		log.Warn("activation failed", attrs...)
		return res, domain.ErrActivation{Outcome: res.Outcome}
	}

	res.LoginURL = LoginURL(s.loginBase, res.Outcome.Token)
	log.Info("activation succeeded")

	if s.handoff != nil {
		if err := s.handoff.Open(ctx, res.LoginURL); err != nil {
			return res, fmt.Errorf("handoff: %w", err)
		}
	}
	return res, nil
}

func (s *Service) collect(ctx context.Context, log *slog.Logger) domain.IdentifierBundle {
	bundle := domain.IdentifierBundle{
		SystemUUID:  s.source.SystemUUID(ctx),
		MachineGUID: s.source.MachineGUID(ctx),
		DiskSerials: s.source.DiskSerials(ctx),
	}
	bundle.IP, bundle.Proxy = s.source.NetworkIdentity(ctx)

	if s.debug.Enabled && s.debug.LogSystemInfo {
		log.Debug("identifiers collected",
			"system_uuid", bundle.SystemUUID,
			"machine_guid", bundle.MachineGUID,
			"disk_serials", bundle.DiskSerials,
			"ip", bundle.IP,
			"proxy", bundle.Proxy,
		)
	}
	return bundle
}
