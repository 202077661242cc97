package funds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/domain"
)

// Service implements fund admin and lookups.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new fund service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "funds").Logger(),
	}
}

// Create validates and creates a new fund. Name and symbol must be non-empty
// and unique; anything that would produce a constraint error is pre-checked so
// the caller gets a typed error.
func (s *Service) Create(name, symbol, comment string) (*domain.Fund, error) {
	name = strings.TrimSpace(name)
	symbol = strings.TrimSpace(symbol)
	comment = strings.TrimSpace(comment)

	if name == "" {
		return nil, fmt.Errorf("%w: fund name is required", domain.ErrInvalidInput)
	}
	if symbol == "" {
		return nil, fmt.Errorf("%w: fund symbol is required", domain.ErrInvalidInput)
	}

	if _, err := s.repo.GetByName(name); err == nil {
		return nil, domain.ErrFundNameTaken
	} else if !errors.Is(err, domain.ErrFundNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetBySymbol(symbol); err == nil {
		return nil, domain.ErrFundSymbolTaken
	} else if !errors.Is(err, domain.ErrFundNotFound) {
		return nil, err
	}

	fund := &domain.Fund{Name: name, Symbol: symbol, Comment: comment}
	if err := s.repo.Create(fund); err != nil {
		return nil, err
	}
	return fund, nil
}

// GetByID returns a fund by id.
func (s *Service) GetByID(id int64) (*domain.Fund, error) {
	return s.repo.GetByID(id)
}

// List returns all funds.
func (s *Service) List() ([]domain.Fund, error) {
	return s.repo.List()
}

// Search returns funds matching the keyword by name or symbol.
func (s *Service) Search(keyword string) ([]domain.Fund, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: search keyword is required", domain.ErrInvalidInput)
	}
	return s.repo.Search(keyword)
}

// PriceHistory returns a fund's published price history.
// Returns domain.ErrFundNotFound for an unknown fund.
func (s *Service) PriceHistory(fundID int64) ([]domain.FundPriceHistory, error) {
	if _, err := s.repo.GetByID(fundID); err != nil {
		return nil, err
	}
	return s.repo.PriceHistory(fundID)
}
