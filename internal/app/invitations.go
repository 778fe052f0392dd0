package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/api/internal/email"
	"taskboard/api/internal/rbac"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

const invitationTTL = 7 * 24 * time.Hour

type InviteInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// InviteMember creates an invitation and mails it if SMTP is configured. The
// invitation exists either way; delivery status records what happened.
func (s *Service) InviteMember(ctx context.Context, workspaceID, actorID string, input InviteInput) (store.Invitation, error) {
	address := strings.ToLower(strings.TrimSpace(input.Email))
	if address == "" || !strings.Contains(address, "@") {
		return store.Invitation{}, validationFailed("A valid email is required", nil)
	}
	role := input.Role
	if role == "" {
		role = string(rbac.RoleMember)
	}
	if role != string(rbac.RoleAdmin) && role != string(rbac.RoleMember) {
		return store.Invitation{}, validationFailed("Role must be admin or member", nil)
	}

	workspace, err := s.workspaceForAdmin(ctx, workspaceID, actorID)
	if err != nil {
		return store.Invitation{}, err
	}

	// Already a member?
	if existing, err := s.store.GetUserByEmail(ctx, address); err == nil {
		member, err := s.store.IsMember(ctx, workspaceID, existing.ID)
		if err != nil {
			return store.Invitation{}, err
		}
		if member {
			return store.Invitation{}, conflict("This user is already a member")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.Invitation{}, err
	}

	// One live invitation per address per workspace. An expired or accepted
	// one is replaced.
	if existing, err := s.store.GetPendingInvitation(ctx, workspaceID, address); err == nil {
		if !existing.IsAccepted() && !existing.IsExpired(s.now()) {
			return store.Invitation{}, conflict("An invitation for this email is already pending")
		}
		if err := s.store.DeleteInvitation(ctx, existing.ID); err != nil {
			return store.Invitation{}, err
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.Invitation{}, err
	}

	invitation, err := s.store.InsertInvitation(ctx, store.Invitation{
		ID:             util.NewID(),
		WorkspaceID:    workspaceID,
		Email:          address,
		Role:           role,
		Token:          util.NewSecret(),
		InvitedBy:      actorID,
		DeliveryStatus: store.DeliveryPending,
		ExpiresAt:      s.now().Add(invitationTTL),
	})
	if err != nil {
		return store.Invitation{}, err
	}
	s.audit(ctx, workspaceID, actorID, "member_invited", "invitation", invitation.ID, map[string]any{"email": address, "role": role})

	if s.mailer != nil && s.mailer.IsConfigured() {
		go s.deliverInvitation(workspace, invitation, actorID)
	}
	return invitation, nil
}

func (s *Service) deliverInvitation(workspace store.Workspace, invitation store.Invitation, actorID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inviterName := "A teammate"
	if inviter, err := s.store.GetUserByID(ctx, actorID); err == nil {
		inviterName = inviter.DisplayName
	}

	err := s.mailer.SendInvitation(invitation.Email, email.InvitationData{
		WorkspaceName: workspace.Name,
		InviterName:   inviterName,
		Role:          invitation.Role,
		AcceptURL:     fmt.Sprintf("%s/invitations/%s", s.cfg.BaseURL, invitation.Token),
		ExpiresInDays: int(invitationTTL.Hours() / 24),
	})
	status := store.DeliverySent
	if err != nil {
		status = store.DeliveryFailed
		s.logger.Warn("send invitation mail", "invitation_id", invitation.ID, "error", err)
	}
	if err := s.store.SetInvitationDelivery(ctx, invitation.ID, status); err != nil {
		s.logger.Warn("update invitation delivery", "invitation_id", invitation.ID, "error", err)
	}
}

func (s *Service) ListInvitations(ctx context.Context, workspaceID, userID string) ([]store.Invitation, error) {
	if _, err := s.workspaceForAdmin(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	return s.store.ListWorkspaceInvitations(ctx, workspaceID)
}

func (s *Service) RevokeInvitation(ctx context.Context, invitationID, userID string) error {
	invitation, err := s.invitationByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if _, err := s.workspaceForAdmin(ctx, invitation.WorkspaceID, userID); err != nil {
		return err
	}
	if invitation.IsAccepted() {
		return conflict("Invitation was already accepted")
	}
	if err := s.store.DeleteInvitation(ctx, invitationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Invitation not found")
		}
		return err
	}
	s.audit(ctx, invitation.WorkspaceID, userID, "invitation_revoked", "invitation", invitationID, nil)
	return nil
}

// ResendInvitation queues another delivery attempt for a live invitation.
func (s *Service) ResendInvitation(ctx context.Context, invitationID, userID string) (store.Invitation, error) {
	invitation, err := s.invitationByID(ctx, invitationID)
	if err != nil {
		return store.Invitation{}, err
	}
	workspace, err := s.workspaceForAdmin(ctx, invitation.WorkspaceID, userID)
	if err != nil {
		return store.Invitation{}, err
	}
	if invitation.IsAccepted() {
		return store.Invitation{}, conflict("Invitation was already accepted")
	}
	if invitation.IsExpired(s.now()) {
		return store.Invitation{}, domainError(410, "EXPIRED", "Invitation has expired", nil)
	}
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return store.Invitation{}, validationFailed("Email delivery is not configured", nil)
	}

	if err := s.store.SetInvitationDelivery(ctx, invitation.ID, store.DeliveryPending); err != nil {
		return store.Invitation{}, err
	}
	invitation.DeliveryStatus = store.DeliveryPending
	go s.deliverInvitation(workspace, invitation, userID)
	return invitation, nil
}

// AcceptInvitation joins the signed-in user to the workspace. The accepting
// account's email must match the invited address.
func (s *Service) AcceptInvitation(ctx context.Context, token, userID string) (store.Workspace, error) {
	invitation, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Workspace{}, notFound("Invitation not found")
		}
		return store.Workspace{}, err
	}
	if invitation.IsAccepted() {
		return store.Workspace{}, conflict("Invitation was already accepted")
	}
	if invitation.IsExpired(s.now()) {
		return store.Workspace{}, domainError(410, "EXPIRED", "Invitation has expired", nil)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return store.Workspace{}, err
	}
	if !strings.EqualFold(user.Email, invitation.Email) {
		return store.Workspace{}, permissionDenied("This invitation was sent to a different email")
	}

	if err := s.store.InsertMember(ctx, store.WorkspaceMember{
		WorkspaceID: invitation.WorkspaceID,
		UserID:      userID,
		Role:        invitation.Role,
	}); err != nil {
		return store.Workspace{}, err
	}
	if err := s.store.MarkInvitationAccepted(ctx, invitation.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return store.Workspace{}, err
	}
	s.audit(ctx, invitation.WorkspaceID, userID, "invitation_accepted", "invitation", invitation.ID, nil)
	return s.store.GetWorkspace(ctx, invitation.WorkspaceID)
}

func (s *Service) invitationByID(ctx context.Context, invitationID string) (store.Invitation, error) {
	invitation, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Invitation{}, notFound("Invitation not found")
		}
		return store.Invitation{}, err
	}
	return invitation, nil
}
