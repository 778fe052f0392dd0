package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard/api/internal/store"
)

func adminStore() *fakeStore {
	return &fakeStore{
		getMemberRoleFn: func(context.Context, string, string) (string, error) {
			return "admin", nil
		},
	}
}

func TestInviteMemberRejectsExistingMember(t *testing.T) {
	fs := adminStore()
	fs.getUserByEmailFn = func(context.Context, string) (store.User, error) {
		return store.User{ID: "user-2", Email: "taylor@example.com"}, nil
	}
	fs.isMemberFn = func(context.Context, string, string) (bool, error) {
		return true, nil
	}
	svc := newTestService(fs)

	_, err := svc.InviteMember(context.Background(), "ws-1", "admin-1", InviteInput{Email: "taylor@example.com"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestInviteMemberRejectsDuplicatePending(t *testing.T) {
	fs := adminStore()
	fs.getPendingInvitationFn = func(context.Context, string, string) (store.Invitation, error) {
		return store.Invitation{
			ID:        "inv-1",
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil
	}
	svc := newTestService(fs)

	_, err := svc.InviteMember(context.Background(), "ws-1", "admin-1", InviteInput{Email: "new@example.com"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestInviteMemberReplacesExpiredInvitation(t *testing.T) {
	fs := adminStore()
	fs.getPendingInvitationFn = func(context.Context, string, string) (store.Invitation, error) {
		return store.Invitation{
			ID:        "inv-old",
			ExpiresAt: time.Now().Add(-time.Hour),
		}, nil
	}
	var inserted store.Invitation
	fs.insertInvitationFn = func(_ context.Context, invitation store.Invitation) (store.Invitation, error) {
		inserted = invitation
		return invitation, nil
	}
	svc := newTestService(fs)

	invitation, err := svc.InviteMember(context.Background(), "ws-1", "admin-1", InviteInput{Email: "New@Example.com", Role: "member"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inserted.Email != "new@example.com" {
		t.Errorf("expected lowercased email, got %q", inserted.Email)
	}
	if invitation.Token == "" {
		t.Error("expected a token on the new invitation")
	}
	if invitation.DeliveryStatus != store.DeliveryPending {
		t.Errorf("expected pending delivery, got %q", invitation.DeliveryStatus)
	}
}

func TestInviteMemberRequiresAdmin(t *testing.T) {
	fs := &fakeStore{
		getMemberRoleFn: func(context.Context, string, string) (string, error) {
			return "member", nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.InviteMember(context.Background(), "ws-1", "member-1", InviteInput{Email: "new@example.com"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestAcceptInvitationExpired(t *testing.T) {
	fs := &fakeStore{
		getInvitationByTokenFn: func(context.Context, string) (store.Invitation, error) {
			return store.Invitation{
				ID:        "inv-1",
				Email:     "taylor@example.com",
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.AcceptInvitation(context.Background(), "token", "user-1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 410 || domainErr.Code != "EXPIRED" {
		t.Fatalf("expected 410 EXPIRED, got %v", err)
	}
}

func TestAcceptInvitationRequiresMatchingEmail(t *testing.T) {
	fs := &fakeStore{
		getInvitationByTokenFn: func(context.Context, string) (store.Invitation, error) {
			return store.Invitation{
				ID:        "inv-1",
				Email:     "taylor@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			return store.User{ID: id, Email: "someone-else@example.com"}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.AcceptInvitation(context.Background(), "token", "user-1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestAcceptInvitationJoinsWorkspace(t *testing.T) {
	var joined store.WorkspaceMember
	accepted := false
	fs := &fakeStore{
		getInvitationByTokenFn: func(context.Context, string) (store.Invitation, error) {
			return store.Invitation{
				ID:          "inv-1",
				WorkspaceID: "ws-1",
				Email:       "Taylor@Example.com",
				Role:        "member",
				ExpiresAt:   time.Now().Add(time.Hour),
			}, nil
		},
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			return store.User{ID: id, Email: "taylor@example.com"}, nil
		},
		insertMemberFn: func(_ context.Context, member store.WorkspaceMember) error {
			joined = member
			return nil
		},
		markAcceptedFn: func(context.Context, string) error {
			accepted = true
			return nil
		},
	}
	svc := newTestService(fs)

	workspace, err := svc.AcceptInvitation(context.Background(), "token", "user-1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if workspace.ID != "ws-1" {
		t.Errorf("expected workspace ws-1, got %q", workspace.ID)
	}
	if joined.UserID != "user-1" || joined.Role != "member" {
		t.Errorf("unexpected membership: %+v", joined)
	}
	if !accepted {
		t.Error("expected invitation to be marked accepted")
	}
}

func TestAcceptInvitationAlreadyAccepted(t *testing.T) {
	when := time.Now().Add(-time.Hour)
	fs := &fakeStore{
		getInvitationByTokenFn: func(context.Context, string) (store.Invitation, error) {
			return store.Invitation{
				ID:         "inv-1",
				Email:      "taylor@example.com",
				ExpiresAt:  time.Now().Add(time.Hour),
				AcceptedAt: &when,
			}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.AcceptInvitation(context.Background(), "token", "user-1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected 409, got %v", err)
	}
}
