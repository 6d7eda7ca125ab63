package httpserver

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magicaleks/magickey/internal/domain"
	"github.com/magicaleks/magickey/internal/infra/activation"
	"github.com/magicaleks/magickey/internal/infra/sealer"
	usecase "github.com/magicaleks/magickey/internal/usecase/activation"
)

// Activation results reported in metrics.
const (
	resultIssued        = "issued"
	resultNoMessage     = "no_message"
	resultUndecryptable = "undecryptable"
	resultInvalid       = "invalid_record"
	resultAccepted      = "accepted"
	resultRejected      = "rejected"
)

// API is the development activation endpoint: it decrypts fingerprints,
// issues single-use tokens and accepts them once on /login.
type API struct {
	key      *rsa.PrivateKey
	tokens   *TokenStore
	metrics  *Metrics
	registry *prometheus.Registry
	logger   *slog.Logger
}

func NewAPI(key *rsa.PrivateKey, tokens *TokenStore, logger *slog.Logger) *API {
	registry := prometheus.NewRegistry()
	return &API{
		key:      key,
		tokens:   tokens,
		metrics:  NewMetrics(registry, tokens),
		registry: registry,
		logger:   logger,
	}
}

func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/ping", a.ping)
	router.GET("/activate", a.activate)
	router.GET("/login", a.login)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
}

func (a *API) ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// activate answers plain text for every failure so that clients see a
// non-JSON reply.
func (a *API) activate(c *gin.Context) {
	message := c.Query(activation.MessageParam)
	if message == "" {
		a.reject(c, resultNoMessage, http.StatusBadRequest, "missing message")
		return
	}

	plain, err := sealer.Open(a.key, domain.EncryptedPayload(message), sealer.DefaultHash)
	if err != nil {
		a.logger.Warn("activate: decrypt failed", "err", err)
		a.reject(c, resultUndecryptable, http.StatusBadRequest, "cannot decrypt message")
		return
	}

	record, err := DecodeRecord(plain)
	if err != nil {
		a.logger.Warn("activate: invalid record", "err", err)
		a.reject(c, resultInvalid, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token := a.tokens.Issue(record)
	a.metrics.activations.WithLabelValues(resultIssued).Inc()
	a.logger.Info("token issued", "hwid", record.HWID, "dcid", record.DCID)

	c.JSON(http.StatusOK, gin.H{activation.TokenField: token})
}

func (a *API) login(c *gin.Context) {
	record, ok := a.tokens.Consume(c.Query(usecase.TokenParam))
	if !ok {
		a.metrics.logins.WithLabelValues(resultRejected).Inc()
		c.String(http.StatusUnauthorized, "invalid or used token")
		return
	}

	a.metrics.logins.WithLabelValues(resultAccepted).Inc()
	c.String(http.StatusOK, "session opened for %s", record.HWID)
}

func (a *API) reject(c *gin.Context, result string, status int, msg string) {
	a.metrics.activations.WithLabelValues(result).Inc()
	c.String(status, msg)
}

// DecodeRecord parses a decrypted fingerprint. The object must carry exactly
// the fingerprint keys, each with a string value.
func DecodeRecord(plain []byte) (domain.FingerprintRecord, error) {
	var fields map[string]any
	if err := json.Unmarshal(plain, &fields); err != nil {
		return domain.FingerprintRecord{}, fmt.Errorf("record is not a JSON object: %w", err)
	}

	keys := domain.FingerprintKeys()
	if len(fields) != len(keys) {
		return domain.FingerprintRecord{}, fmt.Errorf("record has %d keys, want %d", len(fields), len(keys))
	}
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			return domain.FingerprintRecord{}, fmt.Errorf("record lacks key %q", k)
		}
		if _, ok := v.(string); !ok {
			return domain.FingerprintRecord{}, fmt.Errorf("record key %q is not a string", k)
		}
	}

	var record domain.FingerprintRecord
	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&record); err != nil {
		return domain.FingerprintRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
