package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskboard/api/internal/rbac"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

const maxNameLength = 200

func (s *Service) CreateWorkspace(ctx context.Context, userID, name string) (store.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return store.Workspace{}, validationFailed("Workspace name must be 1-200 characters", nil)
	}

	workspace, err := s.store.InsertWorkspace(ctx, store.Workspace{
		ID:        util.NewID(),
		Name:      name,
		CreatedBy: userID,
	})
	if err != nil {
		return store.Workspace{}, err
	}
	s.audit(ctx, workspace.ID, userID, "workspace_created", "workspace", workspace.ID, map[string]any{"name": name})
	return workspace, nil
}

func (s *Service) ListWorkspaces(ctx context.Context, userID string) ([]store.Workspace, error) {
	return s.store.ListUserWorkspaces(ctx, userID)
}

type WorkspaceDetail struct {
	Workspace store.Workspace
	Members   []store.WorkspaceMember
	Labels    []store.Label
	Role      string
}

func (s *Service) GetWorkspace(ctx context.Context, workspaceID, userID string) (WorkspaceDetail, error) {
	workspace, role, err := s.workspaceForMember(ctx, workspaceID, userID)
	if err != nil {
		return WorkspaceDetail{}, err
	}
	members, err := s.store.ListMembers(ctx, workspaceID)
	if err != nil {
		return WorkspaceDetail{}, err
	}
	labels, err := s.store.ListWorkspaceLabels(ctx, workspaceID)
	if err != nil {
		return WorkspaceDetail{}, err
	}
	return WorkspaceDetail{Workspace: workspace, Members: members, Labels: labels, Role: role}, nil
}

func (s *Service) RenameWorkspace(ctx context.Context, workspaceID, userID, name string) (store.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return store.Workspace{}, validationFailed("Workspace name must be 1-200 characters", nil)
	}
	if _, err := s.workspaceForAdmin(ctx, workspaceID, userID); err != nil {
		return store.Workspace{}, err
	}
	if err := s.store.RenameWorkspace(ctx, workspaceID, name); err != nil {
		return store.Workspace{}, err
	}
	s.audit(ctx, workspaceID, userID, "workspace_renamed", "workspace", workspaceID, map[string]any{"name": name})
	return s.store.GetWorkspace(ctx, workspaceID)
}

func (s *Service) DeleteWorkspace(ctx context.Context, workspaceID, userID string) error {
	if _, err := s.workspaceForAdmin(ctx, workspaceID, userID); err != nil {
		return err
	}
	return s.store.DeleteWorkspace(ctx, workspaceID)
}

func (s *Service) ChangeMemberRole(ctx context.Context, workspaceID, actorID, memberID, role string) error {
	if _, err := s.workspaceForAdmin(ctx, workspaceID, actorID); err != nil {
		return err
	}
	if role != string(rbac.RoleAdmin) && role != string(rbac.RoleMember) {
		return validationFailed("Role must be admin or member", nil)
	}

	// Demoting the last admin would orphan the workspace.
	if role == string(rbac.RoleMember) {
		current, err := s.store.GetMemberRole(ctx, workspaceID, memberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("Member not found")
			}
			return err
		}
		if current == string(rbac.RoleAdmin) {
			admins, err := s.store.AdminCount(ctx, workspaceID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return validationFailed("A workspace must keep at least one admin", nil)
			}
		}
	}

	updated, err := s.store.UpdateMemberRole(ctx, workspaceID, memberID, role)
	if err != nil {
		return err
	}
	if !updated {
		return notFound("Member not found")
	}
	s.audit(ctx, workspaceID, actorID, "member_role_changed", "user", memberID, map[string]any{"role": role})
	return nil
}

// RemoveMember removes a member; members may remove themselves (leave).
func (s *Service) RemoveMember(ctx context.Context, workspaceID, actorID, memberID string) error {
	if actorID != memberID {
		if _, err := s.workspaceForAdmin(ctx, workspaceID, actorID); err != nil {
			return err
		}
	} else {
		if _, _, err := s.workspaceForMember(ctx, workspaceID, actorID); err != nil {
			return err
		}
	}

	role, err := s.store.GetMemberRole(ctx, workspaceID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Member not found")
		}
		return err
	}
	if role == string(rbac.RoleAdmin) {
		admins, err := s.store.AdminCount(ctx, workspaceID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return validationFailed("A workspace must keep at least one admin", nil)
		}
	}

	removed, err := s.store.RemoveMember(ctx, workspaceID, memberID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("Member not found")
	}
	s.audit(ctx, workspaceID, actorID, "member_removed", "user", memberID, nil)
	return nil
}

func (s *Service) ListAuditLog(ctx context.Context, workspaceID, userID string, limit int) ([]store.AuditLogEntry, error) {
	if _, err := s.workspaceForAdmin(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListAuditLog(ctx, workspaceID, limit)
}

func (s *Service) workspaceForMember(ctx context.Context, workspaceID, userID string) (store.Workspace, string, error) {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Workspace{}, "", notFound("Workspace not found")
		}
		return store.Workspace{}, "", err
	}
	role, err := s.store.GetMemberRole(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Workspace{}, "", permissionDenied("Not a member of this workspace")
		}
		return store.Workspace{}, "", err
	}
	return workspace, role, nil
}

func (s *Service) workspaceForAdmin(ctx context.Context, workspaceID, userID string) (store.Workspace, error) {
	workspace, role, err := s.workspaceForMember(ctx, workspaceID, userID)
	if err != nil {
		return store.Workspace{}, err
	}
	if !rbac.Can(rbac.Normalize(role), rbac.ActionManageWorkspace) {
		return store.Workspace{}, permissionDenied("Admin access required")
	}
	return workspace, nil
}

// audit records a workspace audit entry; failures are logged, never surfaced.
func (s *Service) audit(ctx context.Context, workspaceID, actorID, action, targetType, targetID string, detail map[string]any) {
	if detail == nil {
		detail = map[string]any{}
	}
	err := s.store.InsertAuditLog(ctx, store.AuditLogEntry{
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Detail:      detail,
	})
	if err != nil {
		s.logger.Warn("write audit log", "action", action, "error", err)
	}
}
