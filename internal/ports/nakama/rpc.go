package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"blackjack/internal/app"
	"blackjack/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

type startRequest struct {
	Variant string `json:"variant"`
}

type actRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// HistoryResponse is returned by RpcHistory.
type HistoryResponse struct {
	SessionID string                `json:"session_id"`
	Records   []domain.ActionRecord `json:"records"`
}

type rpcFunc = func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// rpcHandlers exposes the session engine over Nakama RPCs.
type rpcHandlers struct {
	svc *app.Service
}

// RegisterRPCs registers the blackjack RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, svc *app.Service) error {
	h := &rpcHandlers{svc: svc}
	for id, fn := range map[string]rpcFunc{
		RpcStart:   h.start,
		RpcAct:     h.act,
		RpcPeek:    h.peek,
		RpcHistory: h.history,
	} {
		if err := initializer.RegisterRpc(id, guard(id, fn)); err != nil {
			return err
		}
	}
	return nil
}

// guard turns a panic inside a handler into an internal error.
func guard(id string, fn rpcFunc) rpcFunc {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (out string, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("%s: recovered from panic: %v", id, r)
				out, err = "", runtime.NewError("Internal error", codeInternal)
			}
		}()
		return fn(ctx, logger, db, nk, payload)
	}
}

func (h *rpcHandlers) start(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req startRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	snap, err := h.svc.Start(ctx, req.Variant)
	if err != nil {
		return "", toRuntimeError(logger, RpcStart, err)
	}
	logger.Debug("%s: started session %s (%s)", RpcStart, snap.SessionID, snap.Variant)
	return encode(logger, RpcStart, snap)
}

func (h *rpcHandlers) act(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req actRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return "", runtime.NewError("session_id required", codeInvalidArgument)
	}
	snap, err := h.svc.Act(ctx, req.SessionID, req.Action)
	if err != nil {
		return "", toRuntimeError(logger, RpcAct, err)
	}
	return encode(logger, RpcAct, snap)
}

func (h *rpcHandlers) peek(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req sessionRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	sum, err := h.svc.Peek(req.SessionID)
	if err != nil {
		return "", toRuntimeError(logger, RpcPeek, err)
	}
	return encode(logger, RpcPeek, sum)
}

func (h *rpcHandlers) history(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req sessionRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	records, err := h.svc.History(req.SessionID)
	if err != nil {
		return "", toRuntimeError(logger, RpcHistory, err)
	}
	return encode(logger, RpcHistory, HistoryResponse{SessionID: req.SessionID, Records: records})
}

// decodePayload accepts an empty payload as an empty request.
func decodePayload(payload string, dst any) error {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	return nil
}

func encode(logger runtime.Logger, id string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("%s: failed to encode response: %v", id, err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(b), nil
}

func toRuntimeError(logger runtime.Logger, id string, err error) error {
	cond := app.ConditionOf(err)
	switch cond {
	case app.ConditionInvalidAction, app.ConditionUnknownVariant:
		return runtime.NewError(cond, codeInvalidArgument)
	case app.ConditionSessionNotFound:
		return runtime.NewError(cond, codeNotFound)
	case app.ConditionSessionFinished, app.ConditionDeckExhausted:
		return runtime.NewError(cond, codeFailedPrecondition)
	case app.ConditionLimitExceeded, app.ConditionStoreFull:
		return runtime.NewError(cond, codeResourceExhausted)
	default:
		logger.Error("%s: %v", id, err)
		return runtime.NewError("Internal error", codeInternal)
	}
}
