package auth_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/auth"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Service Suite")
}

type mockUserRepository struct {
	users map[string]*auth.User
}

func (m *mockUserRepository) GetByEmail(email string) (*auth.User, error) {
	return m.users[email], nil
}

func (m *mockUserRepository) GetByID(userID int64) (*auth.User, error) {
	for _, user := range m.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return nil, nil
}

var _ = Describe("AuthService", func() {
	var (
		service  *auth.Service
		userRepo *mockUserRepository
		tokenGen *auth.JWTTokenGenerator
	)

	const password = "operator-password-1"

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())

		userRepo = &mockUserRepository{users: map[string]*auth.User{
			"operator@bozor.uz": {
				ID:           1,
				Email:        "operator@bozor.uz",
				Name:         "Cash Operator",
				PasswordHash: string(hash),
				IsActive:     true,
			},
			"former@bozor.uz": {
				ID:           2,
				Email:        "former@bozor.uz",
				PasswordHash: string(hash),
				IsActive:     false,
			},
		}}
		tokenGen = auth.NewJWTTokenGenerator("test-session-secret-at-least-32-chars", time.Hour)
		service = auth.NewService(userRepo, tokenGen, bcrypt.MinCost, logger)
	})

	Describe("Authenticate", func() {
		Context("when credentials are valid", func() {
			It("should issue a session token", func() {
				response, err := service.Authenticate(auth.LoginDTO{
					Email:    "operator@bozor.uz",
					Password: password,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(response.Token).ToNot(BeEmpty())
				Expect(response.ExpiresAt).To(BeTemporally(">", time.Now()))
				Expect(response.User.ID).To(Equal(int64(1)))

				claims, err := service.ValidateAccessToken(response.Token)
				Expect(err).ToNot(HaveOccurred())
				Expect(claims.UserID).To(Equal(int64(1)))
				Expect(claims.Email).To(Equal("operator@bozor.uz"))
			})
		})

		Context("when the password is wrong", func() {
			It("should reject with invalid credentials", func() {
				_, err := service.Authenticate(auth.LoginDTO{
					Email:    "operator@bozor.uz",
					Password: "wrong",
				})

				Expect(err).To(Equal(internal.ErrInvalidCredentials))
			})
		})

		Context("when the email is unknown", func() {
			It("should reject with the same invalid credentials error", func() {
				_, err := service.Authenticate(auth.LoginDTO{
					Email:    "nobody@bozor.uz",
					Password: password,
				})

				Expect(err).To(Equal(internal.ErrInvalidCredentials))
			})
		})

		Context("when the account is inactive", func() {
			It("should reject even with the right password", func() {
				_, err := service.Authenticate(auth.LoginDTO{
					Email:    "former@bozor.uz",
					Password: password,
				})

				Expect(err).To(Equal(internal.ErrUserInactive))
			})
		})

		Context("when the request is malformed", func() {
			It("should fail validation before touching the repository", func() {
				_, err := service.Authenticate(auth.LoginDTO{Email: "not-an-email", Password: password})

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			})
		})
	})

	Describe("ValidateAccessToken", func() {
		Context("when the token is garbage", func() {
			It("should reject it", func() {
				_, err := service.ValidateAccessToken("not-a-token")

				Expect(err).To(Equal(internal.ErrInvalidToken))
			})
		})

		Context("when the token is expired", func() {
			It("should report expiry", func() {
				expiredGen := auth.NewJWTTokenGenerator("test-session-secret-at-least-32-chars", time.Nanosecond)
				token, _, err := expiredGen.Generate(userRepo.users["operator@bozor.uz"])
				Expect(err).ToNot(HaveOccurred())

				time.Sleep(10 * time.Millisecond)
				_, err = service.ValidateAccessToken(token)

				Expect(err).To(Equal(internal.ErrTokenExpired))
			})
		})

		Context("when the token is signed with another secret", func() {
			It("should reject it", func() {
				otherGen := auth.NewJWTTokenGenerator("another-session-secret-of-32-chars!!", time.Hour)
				token, _, err := otherGen.Generate(userRepo.users["operator@bozor.uz"])
				Expect(err).ToNot(HaveOccurred())

				_, err = service.ValidateAccessToken(token)

				Expect(err).To(Equal(internal.ErrInvalidToken))
			})
		})
	})
})
