package terminology

import "context"

// ICD10Repository provides access to ICD-10-CM reference codes.
type ICD10Repository interface {
	Search(ctx context.Context, query string, limit int) ([]*ICD10Code, error)
	GetByCode(ctx context.Context, code string) (*ICD10Code, error)
}

// CPTRepository provides access to CPT procedure codes.
type CPTRepository interface {
	Search(ctx context.Context, query string, limit int) ([]*CPTCode, error)
	GetByCode(ctx context.Context, code string) (*CPTCode, error)
}
