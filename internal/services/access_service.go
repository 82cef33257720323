package services

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

// DeriveRoles computes the interacting user's roles from current data.
// Roles are never stored: a student is whoever holds an enrollment, an
// editor is whoever holds a granted access request, and root membership
// comes from configuration. Revoking access therefore needs no cleanup.
func DeriveRoles(store *repository.Store, user *models.User, rootIDs []int64) ([]models.Role, error) {
	roles := []models.Role{models.RoleUser}

	enrollments, err := store.Enrollments.UserEnrollments(user.ID)
	if err != nil {
		return nil, err
	}
	if len(enrollments) > 0 {
		roles = append(roles, models.RoleStudent)
	}

	granted, err := store.Enrollments.CountGranted(user.ID)
	if err != nil {
		return nil, err
	}
	if granted > 0 {
		roles = append(roles, models.RoleEditor)
	}

	for _, id := range rootIDs {
		if user.TelegramID == id {
			roles = append(roles, models.RoleEditor, models.RoleRoot)
			break
		}
	}
	return roles, nil
}

// HasRole reports whether roles contains role.
func HasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CommandsFor builds the command menu matching a user's roles, in the
// user's language.
func CommandsFor(roles []models.Role, lang string) []tgbotapi.BotCommand {
	ar := lang == models.LangAR
	cmd := func(name, en, arDesc string) tgbotapi.BotCommand {
		if ar {
			return tgbotapi.BotCommand{Command: name, Description: arDesc}
		}
		return tgbotapi.BotCommand{Command: name, Description: en}
	}

	commands := []tgbotapi.BotCommand{
		cmd("courses", "Course materials", "ملفات المواد"),
		cmd("enrollments", "Manage your enrollments", "إدارة التسجيلات"),
		cmd("settings", "Language and notifications", "اللغة والإشعارات"),
		cmd("help", "How to use the bot", "كيفية الاستخدام"),
	}
	if HasRole(roles, models.RoleEditor) {
		commands = append(commands,
			cmd("editor", "Publish and manage materials", "نشر وإدارة الملفات"),
			cmd("updatematerials", "Jump to your latest courses", "الانتقال إلى أحدث موادك"),
		)
	}
	if HasRole(roles, models.RoleRoot) {
		commands = append(commands,
			cmd("requests", "Review access requests", "مراجعة طلبات الوصول"),
			cmd("contentmanagement", "Manage the catalog", "إدارة الدليل"),
			cmd("users", "List known users", "عرض المستخدمين"),
			cmd("broadcast", "Send an announcement", "إرسال إعلان"),
		)
	}
	return commands
}
