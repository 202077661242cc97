package customers

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/domain"
)

// Service implements customer onboarding and lookups on top of the repository.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new customer service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "customers").Logger(),
	}
}

// Create validates and creates a new customer account. New accounts start with
// zero balances; money enters the system only through check deposits.
func (s *Service) Create(c domain.Customer) (*domain.Customer, error) {
	c.Username = strings.TrimSpace(c.Username)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)

	if c.Username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if c.FirstName == "" || c.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", domain.ErrInvalidInput)
	}

	c.Cash = 0
	c.CashToBeChecked = 0
	c.CashToBeDeposited = 0

	if err := s.repo.Create(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID returns a customer by id.
func (s *Service) GetByID(id int64) (*domain.Customer, error) {
	return s.repo.GetByID(id)
}

// List returns all customers.
func (s *Service) List() ([]domain.Customer, error) {
	return s.repo.List()
}
