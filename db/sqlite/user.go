package sqlite

import (
	"database/sql"
	"fmt"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
)

// === User 操作 ===

// CreateUser 创建用户
func (s *SQLiteDB) CreateUser(user *dbinit.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_active, tenant_id)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, user.Username, user.Email, user.PasswordHash,
		user.IsActive, user.TenantID)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id

	return nil
}

// GetUser 获取用户
func (s *SQLiteDB) GetUser(id int64) (*dbinit.User, error) {
	user := &dbinit.User{}
	query := `SELECT * FROM users WHERE id = ?`
	err := s.db.QueryRow(query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.TenantID, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

// GetUserByUsername 通过用户名获取用户
func (s *SQLiteDB) GetUserByUsername(username string) (*dbinit.User, error) {
	user := &dbinit.User{}
	query := `SELECT * FROM users WHERE username = ?`
	err := s.db.QueryRow(query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.TenantID, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

// UpdateUserPassword 更新用户密码
func (s *SQLiteDB) UpdateUserPassword(id int64, passwordHash string) error {
	result, err := s.db.Exec(`UPDATE users SET password_hash=? WHERE id=?`, passwordHash, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}
