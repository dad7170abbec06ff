package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/product"
)

type mockProductService struct {
	createFn func(ctx context.Context, input product.CreateInput) (*model.Product, error)
	getFn    func(ctx context.Context, id string) (*model.Product, error)
	listFn   func(ctx context.Context) ([]*model.Product, error)
	updateFn func(ctx context.Context, id string, callerRole model.Role, input product.UpdateInput) (*model.Product, error)
	deleteFn func(ctx context.Context, id string, callerRole model.Role) error
}

func (m *mockProductService) Create(ctx context.Context, input product.CreateInput) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return &model.Product{}, nil
}

func (m *mockProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Product{}, nil
}

func (m *mockProductService) List(ctx context.Context) ([]*model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockProductService) Update(ctx context.Context, id string, callerRole model.Role, input product.UpdateInput) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, callerRole, input)
	}
	return &model.Product{}, nil
}

func (m *mockProductService) Delete(ctx context.Context, id string, callerRole model.Role) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, callerRole)
	}
	return nil
}

// withURLParam はchiのURLパラメータをリクエストコンテキストに注入する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestProductHandler_List(t *testing.T) {
	svc := &mockProductService{
		listFn: func(ctx context.Context) ([]*model.Product, error) {
			return []*model.Product{
				{ID: "p1", Name: "Kaffe", Price: 12, Flags: model.DefaultProductFlags()},
				{ID: "p2", Name: "Bulle", Price: 20, Flags: model.DefaultProductFlags()},
			}, nil
		},
	}
	h := NewProductHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp []productResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len(resp) = %d, want 2", len(resp))
	}
	if resp[0].Name != "Kaffe" || resp[1].Name != "Bulle" {
		t.Errorf("resp = %+v, want product names", resp)
	}
}

func TestProductHandler_Get_NotFound(t *testing.T) {
	svc := &mockProductService{
		getFn: func(ctx context.Context, id string) (*model.Product, error) {
			return nil, model.NewProductNotFoundError(id)
		},
	}
	h := NewProductHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/missing", nil), "id", "missing")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), "PRODUCT_NOT_FOUND") {
		t.Errorf("body = %q, should contain PRODUCT_NOT_FOUND", w.Body.String())
	}
}

func TestProductHandler_Create(t *testing.T) {
	var gotInput product.CreateInput
	svc := &mockProductService{
		createFn: func(ctx context.Context, input product.CreateInput) (*model.Product, error) {
			gotInput = input
			return &model.Product{ID: "p1", Name: input.Name, Price: input.Price}, nil
		},
	}
	h := NewProductHandler(svc)

	body := strings.NewReader(`{"name":"Kaffe","price":12,"description":"Bryggkaffe"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if gotInput.Name != "Kaffe" || gotInput.Price != 12 {
		t.Errorf("input = %+v, want name/price from body", gotInput)
	}
}

func TestProductHandler_Update_PassesCallerRole(t *testing.T) {
	var gotRole model.Role
	svc := &mockProductService{
		updateFn: func(ctx context.Context, id string, callerRole model.Role, input product.UpdateInput) (*model.Product, error) {
			gotRole = callerRole
			return &model.Product{ID: id}, nil
		},
	}
	h := NewProductHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/products/p1", strings.NewReader(`{"price":15}`)), "id", "p1")
	req = req.WithContext(middleware.ContextWithUser(req.Context(), &model.User{ID: "u1", Role: model.RoleMaintainer}))
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotRole != model.RoleMaintainer {
		t.Errorf("callerRole = %v, want %v", gotRole, model.RoleMaintainer)
	}
}

func TestProductHandler_Update_WithoutUser(t *testing.T) {
	h := NewProductHandler(&mockProductService{})

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/products/p1", strings.NewReader(`{}`)), "id", "p1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestProductHandler_Delete(t *testing.T) {
	var deletedID string
	svc := &mockProductService{
		deleteFn: func(ctx context.Context, id string, callerRole model.Role) error {
			deletedID = id
			return nil
		},
	}
	h := NewProductHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/products/p1", nil), "id", "p1")
	req = req.WithContext(middleware.ContextWithUser(req.Context(), &model.User{ID: "u1", Role: model.RoleAdmin}))
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedID != "p1" {
		t.Errorf("deleted id = %q, want %q", deletedID, "p1")
	}
}

func TestProductHandler_Delete_NotModifiable(t *testing.T) {
	svc := &mockProductService{
		deleteFn: func(ctx context.Context, id string, callerRole model.Role) error {
			return model.NewProductNotModifiableError()
		},
	}
	h := NewProductHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/products/p1", nil), "id", "p1")
	req = req.WithContext(middleware.ContextWithUser(req.Context(), &model.User{ID: "u1", Role: model.RoleMaintainer}))
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
