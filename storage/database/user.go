package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"classtrack/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID       int            `db:"user_id"`
	Username string         `db:"username"`
	Password string         `db:"password"`
	Role     string         `db:"role"`
	RollNo   sql.NullString `db:"roll_no"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:       r.ID,
		Username: r.Username,
		Password: r.Password,
		Role:     r.Role,
		RollNo:   r.RollNo.String,
	}
}

const selectUserSQL = `SELECT user_id, username, password, role, roll_no FROM users`

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return user.ErrUsernameExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	rollNo := sql.NullString{String: usr.RollNo, Valid: usr.RollNo != ""}
	err := repo.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password, role, roll_no)
		 VALUES ($1, $2, $3, $4)
		 RETURNING user_id`,
		usr.Username, usr.Password, usr.Role, rollNo).Scan(&usr.ID)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	// usernames match case-insensitively; student logins reuse the roll number
	err := repo.db.GetContext(ctx, &row, selectUserSQL+` WHERE LOWER(username) = LOWER($1)`, username)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user by username")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByRollNo(ctx context.Context, rollNo string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, selectUserSQL+` WHERE roll_no = $1`, rollNo)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user by roll number")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, selectUserSQL+` ORDER BY user_id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) SetUserPassword(ctx context.Context, username, password string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE users SET password = $1 WHERE LOWER(username) = LOWER($2)`, password, username)
	if err != nil {
		return errors.Wrap(err, "setting user password")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) EnsureStudentLogin(ctx context.Context, rollNo, password string) (bool, error) {
	// targetless ON CONFLICT also covers the LOWER(username) index, so a
	// case-variant of an existing login is a skip, not a second account
	res, err := repo.db.ExecContext(ctx,
		`INSERT INTO users (username, password, role, roll_no)
		 VALUES ($1, $2, $3, $1)
		 ON CONFLICT DO NOTHING`,
		rollNo, password, user.RoleStudent)
	if err != nil {
		return false, errors.Wrap(err, "creating student login")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "creating student login")
	}
	return count > 0, nil
}
