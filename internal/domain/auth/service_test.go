package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pingline/pingline-api/internal/domain/user"
	"github.com/pingline/pingline-api/internal/pkg/jwt"
	"github.com/pingline/pingline-api/internal/pkg/upload"
)

type stubUserRepo struct {
	byEmail map[string]*user.User
	byID    map[uuid.UUID]*user.User

	created    *user.User
	updatedPic string
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: make(map[string]*user.User),
		byID:    make(map[uuid.UUID]*user.User),
	}
}

func (s *stubUserRepo) add(u *user.User) {
	s.byEmail[u.Email] = u
	s.byID[u.ID] = u
}

func (s *stubUserRepo) Create(_ context.Context, u *user.User) error {
	s.created = u
	s.add(u)
	return nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return s.byID[id], nil
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return s.byEmail[email], nil
}

func (s *stubUserRepo) SearchByEmail(_ context.Context, _ string, _ uuid.UUID) (*user.User, error) {
	return nil, nil
}

func (s *stubUserRepo) UpdateProfilePic(_ context.Context, _ uuid.UUID, profilePic string) error {
	s.updatedPic = profilePic
	return nil
}

type stubUploader struct {
	url string
	err error
}

func (s *stubUploader) Upload(_ context.Context, _ uuid.UUID, _ string, _ upload.Kind) (string, error) {
	return s.url, s.err
}

func newTestService(repo *stubUserRepo) Service {
	jwtService := jwt.NewService("test-secret", time.Minute, time.Hour)
	return NewService(repo, jwtService, nil, &stubUploader{url: "https://cdn.example.com/avatar.jpg"})
}

func TestSignup(t *testing.T) {
	t.Run("creates user and issues tokens", func(t *testing.T) {
		repo := newStubUserRepo()
		svc := newTestService(repo)

		resp, err := svc.Signup(context.Background(), &SignupRequest{
			FullName: "Alice Example",
			Email:    "Alice@Example.com",
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("Signup() error = %v", err)
		}
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			t.Error("expected a token pair")
		}
		if repo.created == nil {
			t.Fatal("user was not persisted")
		}
		if repo.created.Email != "alice@example.com" {
			t.Errorf("email = %q, want lowercased", repo.created.Email)
		}
		if repo.created.PasswordHash == "s3cret-pass" {
			t.Error("password must be hashed")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newStubUserRepo()
		repo.add(&user.User{ID: uuid.New(), Email: "alice@example.com"})
		svc := newTestService(repo)

		_, err := svc.Signup(context.Background(), &SignupRequest{
			FullName: "Alice",
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		})
		if err != ErrEmailAlreadyExists {
			t.Fatalf("error = %v, want ErrEmailAlreadyExists", err)
		}
	})
}

func TestLogin(t *testing.T) {
	signupAndLogin := func(t *testing.T) (Service, *stubUserRepo) {
		t.Helper()
		repo := newStubUserRepo()
		svc := newTestService(repo)
		if _, err := svc.Signup(context.Background(), &SignupRequest{
			FullName: "Alice",
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		}); err != nil {
			t.Fatalf("Signup() error = %v", err)
		}
		return svc, repo
	}

	t.Run("valid credentials", func(t *testing.T) {
		svc, _ := signupAndLogin(t)

		resp, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if resp.User == nil || resp.User.Email != "alice@example.com" {
			t.Error("expected user profile in response")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := signupAndLogin(t)

		if _, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong",
		}); err != ErrInvalidCredentials {
			t.Fatalf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := newTestService(newStubUserRepo())

		if _, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "nobody@example.com",
			Password: "whatever",
		}); err != ErrInvalidCredentials {
			t.Fatalf("error = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestRefresh(t *testing.T) {
	t.Run("valid refresh token issues a new pair", func(t *testing.T) {
		repo := newStubUserRepo()
		svc := newTestService(repo)

		signup, err := svc.Signup(context.Background(), &SignupRequest{
			FullName: "Alice",
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("Signup() error = %v", err)
		}

		resp, err := svc.Refresh(context.Background(), signup.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			t.Error("expected a new token pair")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := newTestService(newStubUserRepo())
		if _, err := svc.Refresh(context.Background(), "not-a-token"); err != ErrInvalidRefreshToken {
			t.Fatalf("error = %v, want ErrInvalidRefreshToken", err)
		}
	})
}

func TestUpdateProfilePic(t *testing.T) {
	repo := newStubUserRepo()
	alice := &user.User{ID: uuid.New(), FullName: "Alice", Email: "alice@example.com"}
	repo.add(alice)
	svc := newTestService(repo)

	profile, err := svc.UpdateProfilePic(context.Background(), alice.ID, "aGVsbG8=")
	if err != nil {
		t.Fatalf("UpdateProfilePic() error = %v", err)
	}
	if profile.ProfilePic != "https://cdn.example.com/avatar.jpg" {
		t.Errorf("profile pic = %q", profile.ProfilePic)
	}
	if repo.updatedPic != profile.ProfilePic {
		t.Error("profile pic was not persisted")
	}
}

func TestMe(t *testing.T) {
	repo := newStubUserRepo()
	alice := &user.User{ID: uuid.New(), FullName: "Alice", Email: "alice@example.com"}
	repo.add(alice)
	svc := newTestService(repo)

	profile, err := svc.Me(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if profile.ID != alice.ID {
		t.Error("wrong profile returned")
	}

	if _, err := svc.Me(context.Background(), uuid.New()); err != ErrUserNotFound {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}
