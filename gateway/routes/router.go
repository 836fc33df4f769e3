package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"yieldhub/crypto"
	"yieldhub/gateway/middleware"
	nativecommon "yieldhub/native/common"
	"yieldhub/native/lending"
	"yieldhub/native/staking"
	"yieldhub/storage"
)

const requestBodyLimit = 1 << 20 // 1 MiB

type Config struct {
	Lending       *lending.Engine
	Staking       *staking.Engine
	Store         *storage.StateStore
	Now           func() time.Time
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
}

// New assembles the HTTP surface over the lending and staking engines. The
// engines are single-writer by design, so every mutating handler runs under
// one lock.
func New(cfg Config) (http.Handler, error) {
	if cfg.Lending == nil || cfg.Staking == nil {
		return nil, fmt.Errorf("routes: both engines are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	api := &apiRoutes{
		lending: cfg.Lending,
		staking: cfg.Staking,
		store:   cfg.Store,
		now:     cfg.Now,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/lending", func(sr chi.Router) {
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware("lending"))
		}
		if cfg.Authenticator != nil {
			sr.Use(cfg.Authenticator.Middleware())
		}
		if obs != nil {
			sr.Use(obs.Middleware("lending"))
		}
		api.mountLending(sr)
	})

	r.Route("/v1/staking", func(sr chi.Router) {
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware("staking"))
		}
		if cfg.Authenticator != nil {
			sr.Use(cfg.Authenticator.Middleware())
		}
		if obs != nil {
			sr.Use(obs.Middleware("staking"))
		}
		api.mountStaking(sr)
	})

	r.Get("/v1/events", api.listEvents)

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}
	return r, nil
}

type apiRoutes struct {
	mu      sync.Mutex
	lending *lending.Engine
	staking *staking.Engine
	store   *storage.StateStore
	now     func() time.Time
}

func (a *apiRoutes) timestamp() uint64 {
	return uint64(a.now().Unix())
}

func (a *apiRoutes) listEvents(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, a.store.Events())
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func decodeRequest(r *http.Request, out interface{}) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, requestBodyLimit))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(data) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func parseAddress(raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid address: %w", err)
	}
	return addr, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("amount is required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		message = strings.TrimSpace(err.Error())
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps engine failures onto HTTP statuses. Every branch is
// a typed sentinel so callers always learn which invariant they tripped.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeError(w, http.StatusInternalServerError, errors.New("unknown failure"))
	case errors.Is(err, lending.ErrInvalidAmount),
		errors.Is(err, lending.ErrInvalidParameter),
		errors.Is(err, staking.ErrInvalidAmount),
		errors.Is(err, staking.ErrInvalidParameter):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, lending.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, lending.ErrMarketNotFound),
		errors.Is(err, lending.ErrReserveNotFound),
		errors.Is(err, lending.ErrNoBorrowFound),
		errors.Is(err, lending.ErrNoDepositFound),
		errors.Is(err, staking.ErrNoStake):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, lending.ErrMarketExists),
		errors.Is(err, lending.ErrReserveExists),
		errors.Is(err, staking.ErrStakeExists):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, lending.ErrInsufficientBalance),
		errors.Is(err, lending.ErrInsufficientCollateral),
		errors.Is(err, lending.ErrInsufficientLiquidity),
		errors.Is(err, lending.ErrNotLiquidatable),
		errors.Is(err, lending.ErrMarketFull),
		errors.Is(err, staking.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, nativecommon.ErrModulePaused),
		errors.Is(err, staking.ErrExternalCallFailed):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
