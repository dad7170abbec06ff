package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/konsfekt/internal/auth"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/security"
)

type mockUserRepo struct {
	findByIDFn      func(ctx context.Context, id string) (*model.User, error)
	updateFn        func(ctx context.Context, user *model.User) error
	updateNameFn    func(ctx context.Context, id, name string) error
	updateBalanceFn func(ctx context.Context, id string, balance float64) error
	deleteByIDFn    func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByGoogleID(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByPersonalNumber(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) HasAny(_ context.Context) (bool, error)        { return true, nil }
func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error { return nil }

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateName(ctx context.Context, id, name string) error {
	if m.updateNameFn != nil {
		return m.updateNameFn(ctx, id, name)
	}
	return nil
}

func (m *mockUserRepo) UpdateBalance(ctx context.Context, id string, balance float64) error {
	if m.updateBalanceFn != nil {
		return m.updateBalanceFn(ctx, id, balance)
	}
	return nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, _ model.Role) ([]*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) FinalizeEmailSwitch(_ context.Context, _, _, _ string) error { return nil }

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockSessionRepo struct {
	deletedUserIDs []string
}

func (m *mockSessionRepo) Create(_ context.Context, _ *model.Session) error { return nil }

func (m *mockSessionRepo) FindByID(_ context.Context, _ string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(_ context.Context, _ string) error { return nil }

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	m.deletedUserIDs = append(m.deletedUserIDs, userID)
	return nil
}

func newTestService(users *mockUserRepo, sessions *mockSessionRepo) *Service {
	return NewService(users, auth.NewSessionManager(sessions, time.Hour), security.NewInputSanitizer())
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	_, err := svc.Get(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}

func TestChangeName_Sanitizes(t *testing.T) {
	var gotName string
	users := &mockUserRepo{
		updateNameFn: func(ctx context.Context, id, name string) error {
			gotName = name
			return nil
		},
	}

	svc := newTestService(users, &mockSessionRepo{})

	if err := svc.ChangeName(context.Background(), "user-1", "<b>Anna</b> "); err != nil {
		t.Fatalf("ChangeName() error = %v", err)
	}
	if gotName != "Anna" {
		t.Errorf("name = %q, want Anna", gotName)
	}
}

func TestChangeName_EmptyAfterSanitize(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	if err := svc.ChangeName(context.Background(), "user-1", "<script></script>"); err == nil {
		t.Error("expected error for name that sanitizes to empty")
	}
}

func TestSetRole(t *testing.T) {
	var updated *model.User
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleUser}, nil
		},
		updateFn: func(ctx context.Context, user *model.User) error {
			updated = user
			return nil
		},
	}

	svc := newTestService(users, &mockSessionRepo{})

	if err := svc.SetRole(context.Background(), "user-1", model.RoleMaintainer); err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}
	if updated == nil || updated.Role != model.RoleMaintainer {
		t.Errorf("updated user = %+v, want maintainer role", updated)
	}
}

func TestSetBalance(t *testing.T) {
	var gotID string
	var gotBalance float64
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Balance: 10}, nil
		},
		updateBalanceFn: func(ctx context.Context, id string, balance float64) error {
			gotID, gotBalance = id, balance
			return nil
		},
	}

	svc := newTestService(users, &mockSessionRepo{})

	if err := svc.SetBalance(context.Background(), "user-1", 250); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
	if gotID != "user-1" || gotBalance != 250 {
		t.Errorf("UpdateBalance(%q, %v), want (user-1, 250)", gotID, gotBalance)
	}
}

func TestSetBalance_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	if err := svc.SetBalance(context.Background(), "missing", 100); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestSetHidden(t *testing.T) {
	var updated *model.User
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		updateFn: func(ctx context.Context, user *model.User) error {
			updated = user
			return nil
		},
	}

	svc := newTestService(users, &mockSessionRepo{})

	if err := svc.SetHidden(context.Background(), "user-1", true); err != nil {
		t.Fatalf("SetHidden() error = %v", err)
	}
	if updated == nil || !updated.Hidden {
		t.Errorf("updated user = %+v, want hidden", updated)
	}
}

func TestWithdraw_KeepsUserRow(t *testing.T) {
	deleted := false
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	sessions := &mockSessionRepo{}

	svc := newTestService(users, sessions)

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if len(sessions.deletedUserIDs) != 1 || sessions.deletedUserIDs[0] != "user-1" {
		t.Errorf("deleted session userIDs = %v, want [user-1]", sessions.deletedUserIDs)
	}
	if deleted {
		t.Error("withdraw must not delete the user row")
	}
}

func TestDelete_InvalidatesSessionsFirst(t *testing.T) {
	deleted := false
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	sessions := &mockSessionRepo{}

	svc := newTestService(users, sessions)

	if err := svc.Delete(context.Background(), "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(sessions.deletedUserIDs) != 1 || sessions.deletedUserIDs[0] != "user-1" {
		t.Errorf("deleted session userIDs = %v, want [user-1]", sessions.deletedUserIDs)
	}
	if !deleted {
		t.Error("user row should be deleted")
	}
}

func TestDelete_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	if err := svc.Delete(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown user")
	}
}
