package app

import (
	"fmt"

	"taskboard/api/internal/store"
)

// Response shaping for the JSON API. Store models stay tag-free; the wire
// format is owned here.

func workspacePayload(workspace store.Workspace) map[string]any {
	return map[string]any{
		"id":        workspace.ID,
		"name":      workspace.Name,
		"createdBy": workspace.CreatedBy,
		"createdAt": workspace.CreatedAt,
		"updatedAt": workspace.UpdatedAt,
	}
}

func memberPayload(member store.WorkspaceMember) map[string]any {
	return map[string]any{
		"userId":      member.UserID,
		"role":        member.Role,
		"joinedAt":    member.JoinedAt,
		"email":       member.Email,
		"displayName": member.DisplayName,
		"avatarUrl":   member.AvatarURL,
	}
}

func boardPayload(board store.Board) map[string]any {
	columns := board.Columns
	if columns == nil {
		columns = []store.BoardColumn{}
	}
	return map[string]any{
		"id":          board.ID,
		"workspaceId": board.WorkspaceID,
		"name":        board.Name,
		"columns":     columns,
		"archived":    board.Archived,
		"createdAt":   board.CreatedAt,
		"updatedAt":   board.UpdatedAt,
	}
}

func cardPayload(card store.Card) map[string]any {
	labels := make([]map[string]any, 0, len(card.Labels))
	for _, label := range card.Labels {
		labels = append(labels, labelPayload(label))
	}
	assignees := make([]map[string]any, 0, len(card.Assignees))
	for _, user := range card.Assignees {
		assignees = append(assignees, userPayload(user))
	}
	return map[string]any{
		"id":          card.ID,
		"boardId":     card.BoardID,
		"columnId":    card.ColumnID,
		"title":       card.Title,
		"description": card.Description,
		"priority":    card.Priority,
		"storyPoints": card.StoryPoints,
		"dueDate":     card.DueDate,
		"position":    card.Position,
		"createdBy":   card.CreatedBy,
		"createdAt":   card.CreatedAt,
		"updatedAt":   card.UpdatedAt,
		"labels":      labels,
		"assignees":   assignees,
	}
}

func userPayload(user store.User) map[string]any {
	return map[string]any{
		"id":          user.ID,
		"email":       user.Email,
		"displayName": user.DisplayName,
		"avatarUrl":   user.AvatarURL,
	}
}

func labelPayload(label store.Label) map[string]any {
	return map[string]any{
		"id":          label.ID,
		"workspaceId": label.WorkspaceID,
		"name":        label.Name,
		"color":       label.Color,
	}
}

func commentPayload(comment store.CardComment) map[string]any {
	mentions := comment.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return map[string]any{
		"id":        comment.ID,
		"cardId":    comment.CardID,
		"userId":    comment.UserID,
		"text":      comment.Text,
		"mentions":  mentions,
		"createdAt": comment.CreatedAt,
		"updatedAt": comment.UpdatedAt,
		"deleted":   comment.DeletedAt != nil,
	}
}

func activityPayload(activity store.CardActivity) map[string]any {
	metadata := activity.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return map[string]any{
		"id":          activity.ID,
		"cardId":      activity.CardID,
		"userId":      activity.UserID,
		"action":      activity.Action,
		"metadata":    metadata,
		"description": describeActivity(activity),
		"createdAt":   activity.CreatedAt,
	}
}

// describeActivity renders an activity as a short past-tense phrase for
// feeds.
func describeActivity(activity store.CardActivity) string {
	str := func(key string) string {
		value, _ := activity.Metadata[key].(string)
		return value
	}
	switch activity.Action {
	case store.ActionCreated:
		return fmt.Sprintf("created this card in %s", str("column_name"))
	case store.ActionMoved:
		return fmt.Sprintf("moved this card from %s to %s", str("from_column_name"), str("to_column_name"))
	case store.ActionTitleChanged:
		return fmt.Sprintf("renamed this card to %q", str("to"))
	case store.ActionDescriptionUpdated:
		return "updated the description"
	case store.ActionPriorityChanged:
		return fmt.Sprintf("changed priority from %s to %s", str("from"), str("to"))
	case store.ActionDueDateSet:
		return fmt.Sprintf("set the due date to %s", str("due_date"))
	case store.ActionDueDateCleared:
		return "cleared the due date"
	case store.ActionAssigned:
		return "assigned a member"
	case store.ActionUnassigned:
		return "unassigned a member"
	case store.ActionLabelAdded:
		return fmt.Sprintf("added the %s label", str("label_name"))
	case store.ActionLabelRemoved:
		return "removed a label"
	case store.ActionCommented:
		return "commented"
	case store.ActionAttachmentAdded:
		return fmt.Sprintf("attached %s", str("file_name"))
	case store.ActionAttachmentRemoved:
		return fmt.Sprintf("removed attachment %s", str("file_name"))
	}
	return activity.Action
}

func attachmentPayload(attachment store.CardAttachment) map[string]any {
	return map[string]any{
		"id":          attachment.ID,
		"cardId":      attachment.CardID,
		"fileName":    attachment.FileName,
		"size":        attachment.Size,
		"contentType": attachment.ContentType,
		"uploadedBy":  attachment.UploadedBy,
		"createdAt":   attachment.CreatedAt,
	}
}

func invitationPayload(invitation store.Invitation) map[string]any {
	return map[string]any{
		"id":             invitation.ID,
		"workspaceId":    invitation.WorkspaceID,
		"email":          invitation.Email,
		"role":           invitation.Role,
		"invitedBy":      invitation.InvitedBy,
		"deliveryStatus": invitation.DeliveryStatus,
		"createdAt":      invitation.CreatedAt,
		"expiresAt":      invitation.ExpiresAt,
		"acceptedAt":     invitation.AcceptedAt,
	}
}

func notificationPayload(notification store.Notification) map[string]any {
	return map[string]any{
		"id":        notification.ID,
		"type":      notification.Type,
		"cardId":    notification.CardID,
		"commentId": notification.CommentID,
		"title":     notification.Title,
		"message":   notification.Message,
		"read":      notification.ReadAt != nil,
		"createdAt": notification.CreatedAt,
	}
}

func auditPayload(entry store.AuditLogEntry) map[string]any {
	return map[string]any{
		"id":         entry.ID,
		"actorId":    entry.ActorID,
		"action":     entry.Action,
		"targetType": entry.TargetType,
		"targetId":   entry.TargetID,
		"detail":     entry.Detail,
		"createdAt":  entry.CreatedAt,
	}
}
