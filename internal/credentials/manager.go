package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/observability"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Manager struct {
	pool    *pgxpool.Pool
	log     *zap.Logger
	timeout time.Duration
}

func NewManager(pool *pgxpool.Pool, log *zap.Logger, dbTimeout time.Duration) *Manager {
	return &Manager{pool: pool, log: log.Named("credentials"), timeout: dbTimeout}
}

// CreatedUser — id нового пользователя и пароль, показываемый один раз.
type CreatedUser struct {
	ID       int64  `json:"id"`
	Password string `json:"password"`
}

func (m *Manager) fail(ctx context.Context, op string, err error, fields ...zap.Field) result.Result {
	observability.Report(ctx, m.log, op, err, fields...)
	return result.Internal("")
}

// Reset — новый случайный пароль водителю. Для администраторов и
// несуществующих id возвращает not_found без изменений.
func (m *Manager) Reset(ctx context.Context, userID int64) result.Of[string] {
	const op = "credentials.Reset"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	password, err := GeneratePassword()
	if err != nil {
		return result.Fail[string](m.fail(ctx, op, err))
	}
	hash, err := Hash(password)
	if err != nil {
		return result.Fail[string](m.fail(ctx, op, err))
	}
	ok, err := db.SetDriverPassword(ctx, m.pool, userID, hash)
	if err != nil {
		return result.Fail[string](m.fail(ctx, op, err, zap.Int64("user_id", userID)))
	}
	if !ok {
		return result.Fail[string](result.NotFound("водитель %d не найден", userID))
	}
	m.log.Info("password reset", zap.Int64("user_id", userID))
	return result.Value(password, "пароль сброшен")
}

// Change — новый пароль водителю, не короче MinPasswordLength.
func (m *Manager) Change(ctx context.Context, userID int64, newPassword string) result.Result {
	const op = "credentials.Change"
	if !validPassword(newPassword) {
		return result.Validation("пароль должен быть не короче %d символов", MinPasswordLength)
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	hash, err := Hash(newPassword)
	if err != nil {
		return m.fail(ctx, op, err)
	}
	ok, err := db.SetDriverPassword(ctx, m.pool, userID, hash)
	if err != nil {
		return m.fail(ctx, op, err, zap.Int64("user_id", userID))
	}
	if !ok {
		return result.NotFound("водитель %d не найден", userID)
	}
	return result.Success("пароль изменён")
}

// Authenticate — активный пользователь с такой фамилией и паролем.
// Фамилии не уникальны, поэтому проверяются все совпадения.
func (m *Manager) Authenticate(ctx context.Context, surname, password string) result.Of[*models.User] {
	const op = "credentials.Authenticate"
	surname = strings.TrimSpace(surname)
	if surname == "" || password == "" {
		return result.Fail[*models.User](result.Validation("укажите фамилию и пароль"))
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	users, err := db.ActiveUsersBySurname(ctx, m.pool, surname)
	if err != nil {
		return result.Fail[*models.User](m.fail(ctx, op, err))
	}
	for i := range users {
		if Verify(password, users[i].PasswordHash) {
			return result.Value(&users[i], "")
		}
	}
	return result.Fail[*models.User](result.NotFound("неверная фамилия или пароль"))
}

// LinkExternalChat привязывает чат к пользователю. Уже существующая привязка
// неизменна: другой чат у пользователя или чат у другого пользователя дают conflict.
func (m *Manager) LinkExternalChat(ctx context.Context, userID, chatID int64) result.Result {
	const op = "credentials.LinkExternalChat"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	ok, err := db.LinkChat(ctx, m.pool, userID, chatID)
	if db.IsUniqueViolation(err) {
		return result.Conflict("этот чат уже привязан к другому пользователю")
	}
	if err != nil {
		return m.fail(ctx, op, err, zap.Int64("user_id", userID))
	}
	if ok {
		return result.Success("чат привязан")
	}
	if _, err := db.GetUser(ctx, m.pool, userID); errors.Is(err, db.ErrNotFound) {
		return result.NotFound("пользователь %d не найден", userID)
	} else if err != nil {
		return m.fail(ctx, op, err, zap.Int64("user_id", userID))
	}
	return result.Conflict("пользователь уже привязан к другому чату")
}

// RelinkExternalChat — явная перепривязка: чат снимается с прежнего владельца.
func (m *Manager) RelinkExternalChat(ctx context.Context, userID, chatID int64) result.Result {
	const op = "credentials.RelinkExternalChat"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	found := false
	err := db.InTx(ctx, m.pool, func(tx pgx.Tx) error {
		if err := db.ReleaseChat(ctx, tx, chatID, userID); err != nil {
			return err
		}
		ok, err := db.SetChat(ctx, tx, userID, chatID)
		found = ok
		return err
	})
	if err != nil {
		return m.fail(ctx, op, err, zap.Int64("user_id", userID))
	}
	if !found {
		return result.NotFound("пользователь %d не найден", userID)
	}
	m.log.Info("chat relinked", zap.Int64("user_id", userID), zap.Int64("chat_id", chatID))
	return result.Success("чат перепривязан")
}

// UserByChat — пользователь, привязанный к чату.
func (m *Manager) UserByChat(ctx context.Context, chatID int64) result.Of[*models.User] {
	const op = "credentials.UserByChat"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	u, err := db.GetUserByChatID(ctx, m.pool, chatID)
	if errors.Is(err, db.ErrNotFound) {
		return result.Fail[*models.User](result.NotFound("чат не привязан"))
	}
	if err != nil {
		return result.Fail[*models.User](m.fail(ctx, op, err))
	}
	return result.Value(u, "")
}

// CreateUser — новый водитель или администратор. Без пароля генерируется случайный.
func (m *Manager) CreateUser(ctx context.Context, u models.NewUser) result.Of[CreatedUser] {
	const op = "credentials.CreateUser"
	if strings.TrimSpace(u.Surname) == "" || strings.TrimSpace(u.FirstName) == "" {
		return result.Fail[CreatedUser](result.Validation("фамилия и имя обязательны"))
	}
	if u.Role == "" {
		u.Role = models.Driver
	}
	if !u.Role.Valid() {
		return result.Fail[CreatedUser](result.Validation("неизвестная роль %q", u.Role))
	}
	if u.Password == "" {
		p, err := GeneratePassword()
		if err != nil {
			return result.Fail[CreatedUser](m.fail(ctx, op, err))
		}
		u.Password = p
	} else if !validPassword(u.Password) {
		return result.Fail[CreatedUser](result.Validation("пароль должен быть не короче %d символов", MinPasswordLength))
	}
	hash, err := Hash(u.Password)
	if err != nil {
		return result.Fail[CreatedUser](m.fail(ctx, op, err))
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()
	id, err := db.CreateUser(ctx, m.pool, u, hash)
	if err != nil {
		return result.Fail[CreatedUser](m.fail(ctx, op, err))
	}
	m.log.Info("user created", zap.Int64("user_id", id), zap.String("role", string(u.Role)))
	return result.Value(CreatedUser{ID: id, Password: u.Password}, "пользователь создан")
}

// EnsureAdmin создаёт администратора, если в базе нет ни одного.
// Value — пароль нового администратора; пусто, если создавать не пришлось.
func (m *Manager) EnsureAdmin(ctx context.Context, surname, password string) result.Of[string] {
	const op = "credentials.EnsureAdmin"
	qctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	exists, err := db.AdminExists(qctx, m.pool)
	cancel()
	if err != nil {
		return result.Fail[string](m.fail(ctx, op, err))
	}
	if exists {
		return result.Value("", "администратор уже есть")
	}
	res := m.CreateUser(ctx, models.NewUser{
		Surname:   surname,
		FirstName: "Администратор",
		Role:      models.Admin,
		Password:  password,
	})
	if !res.OK() {
		return result.Fail[string](res.Result)
	}
	return result.Value(res.Value.Password, "администратор создан")
}
