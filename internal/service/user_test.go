package service

import (
	"testing"
)

func TestUserRegisterAndAuthenticate(t *testing.T) {
	m := newTestManager(t)
	users := NewUserService(m)

	user, err := users.Register("admin", "admin@example.com", "s3cret", "default")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("用户ID未回填")
	}
	if user.PasswordHash == "s3cret" {
		t.Error("密码未哈希")
	}

	// 重复用户名
	if _, err := users.Register("admin", "other@example.com", "pw", "default"); err == nil {
		t.Error("重复用户名Register应返回错误")
	}

	// 正确密码
	got, err := users.Authenticate("admin", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.Username != "admin" {
		t.Errorf("Username = %q, want admin", got.Username)
	}

	// 错误密码
	if _, err := users.Authenticate("admin", "wrong"); err == nil {
		t.Error("错误密码Authenticate应返回错误")
	}

	// 不存在的用户
	if _, err := users.Authenticate("ghost", "s3cret"); err == nil {
		t.Error("不存在用户Authenticate应返回错误")
	}
}

func TestUserChangePassword(t *testing.T) {
	m := newTestManager(t)
	users := NewUserService(m)

	user, err := users.Register("ops", "ops@example.com", "old-pass", "default")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := users.ChangePassword(user.ID, "wrong", "new-pass"); err == nil {
		t.Error("旧密码错误时ChangePassword应返回错误")
	}

	if err := users.ChangePassword(user.ID, "old-pass", "new-pass"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := users.Authenticate("ops", "new-pass"); err != nil {
		t.Errorf("新密码Authenticate失败: %v", err)
	}
	if _, err := users.Authenticate("ops", "old-pass"); err == nil {
		t.Error("旧密码仍可登录")
	}
}
