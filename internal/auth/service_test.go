package auth_test

import (
	"errors"
	"strconv"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/user"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

// Mock user repository for testing
type mockAuthRepo struct {
	passwordHash string
	userID       int64
	user         *auth.User
	lookupErr    error
	loadErr      error
}

func (m *mockAuthRepo) GetPasswordForEmail(email string) (string, string, error) {
	if m.lookupErr != nil {
		return "", "", m.lookupErr
	}
	return m.passwordHash, strconv.FormatInt(m.userID, 10), nil
}

func (m *mockAuthRepo) GetUserWithPermissions(userID int64) (*auth.User, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.user, nil
}

var _ = Describe("AuthService", func() {
	var (
		service *auth.Service
		repo    *mockAuthRepo
	)

	const password = "correct horse battery staple"

	BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())

		repo = &mockAuthRepo{
			passwordHash: string(hash),
			userID:       7,
			user: &auth.User{
				ID:          7,
				Email:       "emp@acme.test",
				Role:        user.RoleEmployee,
				CompanyID:   1,
				Permissions: user.PermissionsForRole(user.RoleEmployee),
			},
		}

		tokenGen := auth.NewJWTTokenGenerator(
			"test-access-secret-0123456789abcdef",
			"test-refresh-secret-0123456789abcdef",
			15*time.Minute,
			7*24*time.Hour,
		)
		service = auth.NewService(repo, tokenGen, bcrypt.MinCost)
	})

	Describe("Authenticate", func() {
		It("returns a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "emp@acme.test", Password: password})

			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())
			Expect(tokens.RefreshToken).ToNot(BeEmpty())
			Expect(tokens.AccessToken).ToNot(Equal(tokens.RefreshToken))
		})

		It("rejects a wrong password", func() {
			_, err := service.Authenticate(auth.LoginDTO{Email: "emp@acme.test", Password: "nope"})

			Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(BeTrue())
		})

		It("rejects an unknown email without leaking the reason", func() {
			repo.lookupErr = errors.New("sql: no rows in result set")

			_, err := service.Authenticate(auth.LoginDTO{Email: "ghost@acme.test", Password: password})

			Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(BeTrue())
		})

		It("rejects an inactive user", func() {
			repo.loadErr = internal.ErrUserNotFound

			_, err := service.Authenticate(auth.LoginDTO{Email: "emp@acme.test", Password: password})

			Expect(errors.Is(err, internal.ErrUserInactive)).To(BeTrue())
		})

		It("rejects a missing email up front", func() {
			_, err := service.Authenticate(auth.LoginDTO{Password: password})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("token validation", func() {
		It("round-trips claims through an access token", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "emp@acme.test", Password: password})
			Expect(err).ToNot(HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal("7"))
			Expect(claims.Email).To(Equal("emp@acme.test"))
			Expect(claims.Role).To(Equal(user.RoleEmployee))
		})

		It("rejects garbage tokens", func() {
			_, err := service.ValidateAccessToken("not.a.token")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RefreshTokens", func() {
		It("issues a fresh pair from a valid refresh token", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "emp@acme.test", Password: password})
			Expect(err).ToNot(HaveOccurred())

			refreshed, err := service.RefreshTokens(tokens.RefreshToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(refreshed.AccessToken).ToNot(BeEmpty())
			Expect(refreshed.RefreshToken).ToNot(BeEmpty())
		})

		It("rejects an invalid refresh token", func() {
			_, err := service.RefreshTokens("bogus")

			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("User", func() {
	It("derives manager checks from permissions", func() {
		manager := &auth.User{Permissions: user.PermissionsForRole(user.RoleManager)}
		employee := &auth.User{Permissions: user.PermissionsForRole(user.RoleEmployee)}

		Expect(manager.IsManager()).To(BeTrue())
		Expect(employee.IsManager()).To(BeFalse())
	})

	It("grants finance the reimbursement permission", func() {
		finance := &auth.User{Permissions: user.PermissionsForRole(user.RoleFinance)}

		Expect(finance.IsFinance()).To(BeTrue())
		Expect(finance.HasPermission("mark_reimbursed")).To(BeTrue())
	})
})
