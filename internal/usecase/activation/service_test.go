package activation_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicaleks/magickey/internal/config"
	"github.com/magicaleks/magickey/internal/domain"
	activationclient "github.com/magicaleks/magickey/internal/infra/activation"
	"github.com/magicaleks/magickey/internal/infra/sealer"
	"github.com/magicaleks/magickey/internal/usecase/activation"
)

type fakeSource struct {
	bundle domain.IdentifierBundle
}

func (f fakeSource) SystemUUID(context.Context) string     { return f.bundle.SystemUUID }
func (f fakeSource) MachineGUID(context.Context) string    { return f.bundle.MachineGUID }
func (f fakeSource) DiskSerials(context.Context) []string { return f.bundle.DiskSerials }
func (f fakeSource) NetworkIdentity(context.Context) (*domain.IPRecord, *domain.ProxyRecord) {
	return f.bundle.IP, f.bundle.Proxy
}

type fakeSealer struct {
	got domain.FingerprintRecord
	err error
}

func (f *fakeSealer) Encrypt(record domain.FingerprintRecord) (domain.EncryptedPayload, error) {
	f.got = record
	if f.err != nil {
		return "", f.err
	}
	return "sealed", nil
}

type fakeActivator struct {
	calls   atomic.Int32
	outcome domain.ActivationOutcome
}

func (f *fakeActivator) Activate(context.Context, domain.EncryptedPayload) domain.ActivationOutcome {
	f.calls.Add(1)
	return f.outcome
}

type recordingHandoff struct {
	urls []string
	err  error
}

func (h *recordingHandoff) Open(_ context.Context, loginURL string) error {
	h.urls = append(h.urls, loginURL)
	return h.err
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.DCID = "dc-7"
	cfg.Version = "1.4.2"
	cfg.LoginBaseURL = "https://portal.example.com/login"
	cfg.Debug = config.DebugConfig{Enabled: true, LogSystemInfo: true, LogEncryptedData: true}
	return cfg
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestRunSuccess(t *testing.T) {
	source := fakeSource{bundle: domain.IdentifierBundle{
		SystemUUID:  "ABC-1",
		DiskSerials: []string{"SN001"},
	}}
	seal := &fakeSealer{}
	act := &fakeActivator{outcome: domain.TokenOutcome("T 1")}
	handoff := &recordingHandoff{}

	svc := activation.NewService(testConfig(), source, seal, act, handoff, discard())
	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, domain.TokenOutcome("T 1"), res.Outcome)
	assert.Equal(t, "https://portal.example.com/login?token=T+1", res.LoginURL)
	assert.Equal(t, []string{res.LoginURL}, handoff.urls)

	assert.Equal(t, "ABC-1", seal.got.HWID)
	assert.Equal(t, "SN001", seal.got.HWSerial)
	assert.Equal(t, "dc-7", seal.got.DCID)
	assert.Equal(t, "1.4.2", seal.got.Version)
}

func TestRunSecondAttemptRejected(t *testing.T) {
	act := &fakeActivator{outcome: domain.TokenOutcome("T1")}
	svc := activation.NewService(testConfig(), fakeSource{}, &fakeSealer{}, act, nil, discard())

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	res, err := svc.Run(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrAlreadyAttempted)
	assert.EqualValues(t, 1, act.calls.Load())
}

func TestRunEncryptionFailureSkipsActivation(t *testing.T) {
	seal := &fakeSealer{err: domain.ErrEncrypt{Op: "seal", Kind: domain.EncryptPayloadTooLarge}}
	act := &fakeActivator{}
	handoff := &recordingHandoff{}

	svc := activation.NewService(testConfig(), fakeSource{}, seal, act, handoff, discard())
	res, err := svc.Run(context.Background())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)
	assert.Zero(t, act.calls.Load())
	assert.Empty(t, handoff.urls)
}

func TestRunNonTokenOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.ActivationOutcome
	}{
		{name: "transport failure", outcome: domain.TransportFailure(errors.New("connection refused"))},
		{name: "non json reply", outcome: domain.NonJSONReply("<html>")},
		{name: "missing token field", outcome: domain.MissingTokenField(`{"error":"bad"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handoff := &recordingHandoff{}
			act := &fakeActivator{outcome: tt.outcome}
			svc := activation.NewService(testConfig(), fakeSource{}, &fakeSealer{}, act, handoff, discard())

			res, err := svc.Run(context.Background())
			require.Error(t, err)

			var actErr domain.ErrActivation
			require.ErrorAs(t, err, &actErr)
			assert.Equal(t, tt.outcome.Kind, actErr.Outcome.Kind)
			require.NotNil(t, res)
			assert.Empty(t, res.LoginURL)
			assert.Empty(t, handoff.urls)
		})
	}
}

func TestRunHandoffError(t *testing.T) {
	handoff := &recordingHandoff{err: errors.New("closed pipe")}
	act := &fakeActivator{outcome: domain.TokenOutcome("T1")}
	svc := activation.NewService(testConfig(), fakeSource{}, &fakeSealer{}, act, handoff, discard())

	res, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed pipe")
	require.NotNil(t, res)
	assert.Equal(t, "https://portal.example.com/login?token=T1", res.LoginURL)
}

func TestRunEndToEnd(t *testing.T) {
	privPEM, pubPEM, err := sealer.GenerateKeyPair(2048)
	require.NoError(t, err)
	priv, err := sealer.ParsePrivateKey(privPEM)
	require.NoError(t, err)
	pub, err := sealer.ParsePublicKey(pubPEM)
	require.NoError(t, err)

	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := domain.EncryptedPayload(r.URL.Query().Get(activationclient.MessageParam))
		plain, err := sealer.Open(priv, payload, sealer.DefaultHash)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.NoError(t, json.Unmarshal(plain, &received))
		_, _ = w.Write([]byte(`{"randkey":"T1"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ActivationURL = srv.URL + "/activate"
	cfg.LoginBaseURL = "https://site.example/login"

	source := fakeSource{bundle: domain.IdentifierBundle{
		SystemUUID:  "ABC-1",
		DiskSerials: []string{"SN001"},
		IP:          &domain.IPRecord{IP: "1.2.3.4", CheckTimeUTC: "2024-01-01"},
		Proxy:       &domain.ProxyRecord{Country: "US"},
	}}
	handoff := &recordingHandoff{}

	svc := activation.NewService(cfg, source, sealer.New(pub), activationclient.NewClient(cfg, discard()), handoff, discard())
	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://site.example/login?token=T1", res.LoginURL)
	assert.Equal(t, []string{"https://site.example/login?token=T1"}, handoff.urls)
	assert.Equal(t, map[string]string{
		"ip":          "1.2.3.4",
		"hwid":        "ABC-1",
		"hwserial":    "SN001",
		"country":     "US////",
		"machineguid": "",
		"dcid":        "dc-7",
		"regdate":     "2024-01-01",
		"version":     "1.4.2",
	}, received)
}
