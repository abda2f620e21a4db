package dummydb

import (
	"context"
	"sort"
	"strings"

	"classtrack/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// usernames match case-insensitively; student logins reuse the roll number
func (repo *userRepository) findByUsername(username string) (user.User, bool) {
	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Username, username) {
			return usr, true
		}
	}
	return user.User{}, false
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.findByUsername(username); ok {
		return user.ErrUsernameExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.findByUsername(usr.Username); ok {
		return user.User{}, user.ErrUsernameExists
	}
	repo.db.userPK++
	usr.ID = repo.db.userPK
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.findByUsername(username); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByRollNo(_ context.Context, rollNo string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.query() {
		if usr.RollNo == rollNo && usr.RollNo != "" {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryAllUsers(_ context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) SetUserPassword(_ context.Context, username, password string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, usr := range repo.db.users {
		if strings.EqualFold(usr.Username, username) {
			repo.db.users[id].Password = password
			return nil
		}
	}
	return user.ErrNotFound
}

func (repo *userRepository) EnsureStudentLogin(_ context.Context, rollNo, password string) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.findByUsername(rollNo); ok {
		return false, nil
	}
	repo.db.userPK++
	usr := user.User{
		ID:       repo.db.userPK,
		Username: rollNo,
		Password: password,
		Role:     user.RoleStudent,
		RollNo:   rollNo,
	}
	repo.db.users[usr.ID] = &usr
	return true, nil
}
