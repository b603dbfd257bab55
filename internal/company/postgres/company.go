package postgres

import (
	"time"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/company"
	"gorm.io/gorm"
)

// CompanyRepository implements the company.Repository interface using GORM
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) company.Repository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(c *company.Company) error {
	return r.db.Create(c).Error
}

func (r *CompanyRepository) GetByID(id int64) (*company.Company, error) {
	var c company.Company
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrCompanyNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) Update(c *company.Company) error {
	c.UpdatedAt = time.Now()
	return r.db.Save(c).Error
}
