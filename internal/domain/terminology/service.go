package terminology

import (
	"context"
	"fmt"
	"strings"
)

// Service provides terminology search and lookup.
type Service struct {
	icd10 ICD10Repository
	cpt   CPTRepository
}

// NewService creates a new terminology service.
func NewService(icd10 ICD10Repository, cpt CPTRepository) *Service {
	return &Service{icd10: icd10, cpt: cpt}
}

// ICD10 exposes the repository for adapters that need raw access.
func (s *Service) ICD10() ICD10Repository { return s.icd10 }

// CPT exposes the repository for adapters that need raw access.
func (s *Service) CPT() CPTRepository { return s.cpt }

// SearchICD10 searches ICD-10-CM codes by code prefix or description.
func (s *Service) SearchICD10(ctx context.Context, query string, limit int) ([]*ICD10Code, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.icd10.Search(ctx, query, limit)
}

// LookupICD10 looks up a single ICD-10 code. Codes are matched upper-case.
func (s *Service) LookupICD10(ctx context.Context, code string) (*ICD10Code, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.icd10.GetByCode(ctx, code)
}

// SearchCPT searches CPT codes by code prefix, description or category.
func (s *Service) SearchCPT(ctx context.Context, query string, limit int) ([]*CPTCode, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.cpt.Search(ctx, query, limit)
}

// LookupCPT looks up a single CPT code.
func (s *Service) LookupCPT(ctx context.Context, code string) (*CPTCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.cpt.GetByCode(ctx, code)
}
