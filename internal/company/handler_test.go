package company_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/company"
	"github.com/expensehub/expensehub/internal/user"
)

// Mock company service for handler tests
type mockCompanyService struct {
	created       *company.Company
	createErr     error
	deactivatedID int64
}

func (m *mockCompanyService) CreateCompany(dto company.CreateCompanyDTO) (*company.Company, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = &company.Company{ID: 1, Name: dto.Name, Country: dto.Country, Currency: dto.Currency, IsActive: true}
	return m.created, nil
}

func (m *mockCompanyService) GetCompany(id int64) (*company.Company, error) {
	return nil, internal.ErrCompanyNotFound
}

func (m *mockCompanyService) UpdateSettings(id int64, dto company.UpdateSettingsDTO) (*company.Company, error) {
	return nil, internal.ErrCompanyNotFound
}

func (m *mockCompanyService) DeactivateCompany(id int64) error {
	m.deactivatedID = id
	return nil
}

// Mock user service for handler tests
type mockUserService struct {
	created   *user.User
	createErr error
	lastDTO   user.CreateUserDTO
}

func (m *mockUserService) CreateUser(companyID int64, dto user.CreateUserDTO) (*user.User, error) {
	m.lastDTO = dto
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = &user.User{ID: 7, CompanyID: companyID, Email: dto.Email, Name: dto.Name, Role: dto.Role, IsActive: true}
	return m.created, nil
}

var _ = Describe("CompanyHandler", func() {
	var (
		handler   *company.Handler
		companies *mockCompanyService
		users     *mockUserService
	)

	BeforeEach(func() {
		companies = &mockCompanyService{}
		users = &mockUserService{}
		handler = company.NewHandler(companies, users)
	})

	register := func(body interface{}) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		Expect(err).ToNot(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)
		return rec
	}

	Describe("Register", func() {
		validBody := func() company.RegisterDTO {
			return company.RegisterDTO{
				Company: company.CreateCompanyDTO{Name: "Acme", Country: "US", Currency: "USD"},
				Admin:   user.CreateUserDTO{Email: "ceo@acme.test", Name: "Casey", Password: "s3cretpass"},
			}
		}

		It("creates the company and its first admin", func() {
			rec := register(validBody())

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(companies.created).ToNot(BeNil())
			Expect(users.created.CompanyID).To(Equal(companies.created.ID))
			Expect(users.lastDTO.Role).To(Equal(user.RoleAdmin))
			Expect(users.lastDTO.ManagerID).To(BeNil())

			var resp map[string]json.RawMessage
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKey("company"))
			Expect(resp).To(HaveKey("admin"))
		})

		It("forces the admin role even when the payload asks for another", func() {
			body := validBody()
			body.Admin.Role = user.RoleEmployee

			rec := register(body)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(users.lastDTO.Role).To(Equal(user.RoleAdmin))
		})

		It("rejects an incomplete signup before touching storage", func() {
			body := validBody()
			body.Admin.Password = "short"

			rec := register(body)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(companies.created).To(BeNil())
		})

		It("deactivates the fresh company when the admin cannot be created", func() {
			users.createErr = internal.NewConflictError("email already in use", internal.ErrCodeValidationFailed)

			rec := register(validBody())

			Expect(rec.Code).ToNot(Equal(http.StatusCreated))
			Expect(companies.deactivatedID).To(Equal(int64(1)))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("{")))
			rec := httptest.NewRecorder()

			handler.Register(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
