package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, surname, first_name, COALESCE(middle_name, ''), password_hash, role,
	external_chat_id, is_active, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Surname, &u.FirstName, &u.MiddleName, &u.PasswordHash, &u.Role,
		&u.ExternalChatID, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// CreateUser — вставка пользователя с уже посчитанным хешем пароля.
func CreateUser(ctx context.Context, q Querier, u models.NewUser, passwordHash string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO users (surname, first_name, middle_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, strings.TrimSpace(u.Surname), strings.TrimSpace(u.FirstName), nullable(u.MiddleName), passwordHash, string(u.Role)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db.CreateUser: %w", err)
	}
	return id, nil
}

func GetUser(ctx context.Context, q Querier, id int64) (*models.User, error) {
	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, notFound(err)
}

// LockUser — как GetUser, но с блокировкой строки до конца транзакции.
func LockUser(ctx context.Context, tx pgx.Tx, id int64) (*models.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	return u, notFound(err)
}

func GetUserByChatID(ctx context.Context, q Querier, chatID int64) (*models.User, error) {
	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_chat_id = $1`, chatID))
	return u, notFound(err)
}

// ActiveUsersBySurname — фамилии не уникальны, поэтому кандидатов может быть несколько.
func ActiveUsersBySurname(ctx context.Context, q Querier, surname string) ([]models.User, error) {
	rows, err := q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE surname = $1 AND is_active
		ORDER BY id
	`, strings.TrimSpace(surname))
	if err != nil {
		return nil, fmt.Errorf("db.ActiveUsersBySurname: %w", err)
	}
	return collectUsers(rows)
}

// ListUsers — все пользователи роли role (пустая роль — все), по ФИО.
func ListUsers(ctx context.Context, q Querier, role models.Role) ([]models.User, error) {
	rows, err := q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY surname, first_name, id
	`, string(role))
	if err != nil {
		return nil, fmt.Errorf("db.ListUsers: %w", err)
	}
	return collectUsers(rows)
}

func AdminExists(ctx context.Context, q Querier) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE role = 'admin')`).Scan(&exists)
	return exists, err
}

// SetDriverActive — только для водителей; false, если такого водителя нет.
func SetDriverActive(ctx context.Context, q Querier, id int64, active bool) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1 AND role = 'driver'`, id, active)
	if err != nil {
		return false, fmt.Errorf("db.SetDriverActive: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetDriverPassword — смена хеша; администраторов этот путь не касается.
func SetDriverPassword(ctx context.Context, q Querier, id int64, passwordHash string) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1 AND role = 'driver'`, id, passwordHash)
	if err != nil {
		return false, fmt.Errorf("db.SetDriverPassword: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// LinkChat привязывает чат, только если пользователь ещё не привязан к другому.
// Чужой чат даёт unique violation.
func LinkChat(ctx context.Context, q Querier, userID, chatID int64) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE users SET external_chat_id = $2
		WHERE id = $1 AND (external_chat_id IS NULL OR external_chat_id = $2)
	`, userID, chatID)
	if err != nil {
		return false, fmt.Errorf("db.LinkChat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseChat отвязывает чат от всех, кроме keepUserID.
func ReleaseChat(ctx context.Context, q Querier, chatID, keepUserID int64) error {
	_, err := q.Exec(ctx, `
		UPDATE users SET external_chat_id = NULL
		WHERE external_chat_id = $1 AND id <> $2
	`, chatID, keepUserID)
	if err != nil {
		return fmt.Errorf("db.ReleaseChat: %w", err)
	}
	return nil
}

// SetChat — принудительная перепривязка.
func SetChat(ctx context.Context, q Querier, userID, chatID int64) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE users SET external_chat_id = $2 WHERE id = $1`, userID, chatID)
	if err != nil {
		return false, fmt.Errorf("db.SetChat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func DeleteUser(ctx context.Context, q Querier, id int64) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM users WHERE id = $1 AND role <> 'admin'`, id)
	if err != nil {
		return false, fmt.Errorf("db.DeleteUser: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
