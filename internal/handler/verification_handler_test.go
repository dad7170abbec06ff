package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/verification"
)

type mockVerificationService struct {
	startFn    func(ctx context.Context, endUserIP string) (*verification.StartResult, error)
	finalizeFn func(ctx context.Context, nonce string) (*verification.FinalizeResult, error)
}

func (m *mockVerificationService) Start(ctx context.Context, endUserIP string) (*verification.StartResult, error) {
	if m.startFn != nil {
		return m.startFn(ctx, endUserIP)
	}
	return nil, nil
}

func (m *mockVerificationService) Finalize(ctx context.Context, nonce string) (*verification.FinalizeResult, error) {
	if m.finalizeFn != nil {
		return m.finalizeFn(ctx, nonce)
	}
	return nil, nil
}

func TestVerificationHandler_Start_ReturnsOrderInfo(t *testing.T) {
	var gotIP string
	svc := &mockVerificationService{
		startFn: func(ctx context.Context, endUserIP string) (*verification.StartResult, error) {
			gotIP = endUserIP
			return &verification.StartResult{
				OrderRef:       "order-1",
				Nonce:          "nonce-1",
				AutoStartToken: "ast-1",
			}, nil
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/bankid/start", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotIP != "203.0.113.7" {
		t.Errorf("endUserIP = %q, want %q", gotIP, "203.0.113.7")
	}

	var body verification.StartResult
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.OrderRef != "order-1" || body.Nonce != "nonce-1" {
		t.Errorf("body = %+v, want orderRef/nonce set", body)
	}
}

func TestVerificationHandler_Start_ProviderError(t *testing.T) {
	svc := &mockVerificationService{
		startFn: func(ctx context.Context, endUserIP string) (*verification.StartResult, error) {
			return nil, fmt.Errorf("failed to start verification order: %w: unexpected status 503", verification.ErrProvider)
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/bankid/start", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestVerificationHandler_Start_PersistError(t *testing.T) {
	// 永続化の失敗はプロバイダー障害（502）ではなくサーバーエラーとして返す
	svc := &mockVerificationService{
		startFn: func(ctx context.Context, endUserIP string) (*verification.StartResult, error) {
			return nil, errors.New("failed to persist verification order: connection refused")
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/bankid/start", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestVerificationHandler_Finalize_MissingNonce(t *testing.T) {
	h := NewVerificationHandler(&mockVerificationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/bankid/finalize", nil)
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestVerificationHandler_Finalize_Pending(t *testing.T) {
	svc := &mockVerificationService{
		finalizeFn: func(ctx context.Context, nonce string) (*verification.FinalizeResult, error) {
			return &verification.FinalizeResult{Status: model.OrderStatusPending}, nil
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/bankid/finalize?nonce=n1", nil)
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
}

func TestVerificationHandler_Finalize_Complete_IssuesSession(t *testing.T) {
	svc := &mockVerificationService{
		finalizeFn: func(ctx context.Context, nonce string) (*verification.FinalizeResult, error) {
			if nonce != "n1" {
				t.Errorf("nonce = %q, want %q", nonce, "n1")
			}
			return &verification.FinalizeResult{
				Status:  model.OrderStatusComplete,
				Session: &model.Session{ID: "session-abc", UserID: "user-1"},
			}, nil
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/bankid/finalize?nonce=n1", nil)
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cookie := findCookie(resp, middleware.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if cookie.Value != "session-abc" {
		t.Errorf("session cookie = %q, want %q", cookie.Value, "session-abc")
	}
}

func TestVerificationHandler_Finalize_Failed(t *testing.T) {
	svc := &mockVerificationService{
		finalizeFn: func(ctx context.Context, nonce string) (*verification.FinalizeResult, error) {
			return &verification.FinalizeResult{Status: model.OrderStatusFailed}, nil
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/bankid/finalize?nonce=n1", nil)
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestVerificationHandler_Finalize_UnknownNonce(t *testing.T) {
	svc := &mockVerificationService{
		finalizeFn: func(ctx context.Context, nonce string) (*verification.FinalizeResult, error) {
			return nil, verification.ErrOrderNotFound
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/bankid/finalize?nonce=unknown", nil)
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestVerificationHandler_Finalize_RepoError(t *testing.T) {
	// オーダー検索自体の失敗は「照合値が未知」とは区別し、サーバーエラーとして返す
	svc := &mockVerificationService{
		finalizeFn: func(ctx context.Context, nonce string) (*verification.FinalizeResult, error) {
			return nil, fmt.Errorf("failed to find verification order: %v",
				errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))
		},
	}
	h := NewVerificationHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/bankid/finalize?nonce=n1", nil)
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
