package db

import "context"

const maxPerPage = 100

// PagingParams define os parâmetros básicos de entrada
type PagingParams struct {
	Page    int
	PerPage int
}

func (p PagingParams) Offset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.Limit()
}

func (p PagingParams) Limit() int {
	if p.PerPage < 1 {
		p.PerPage = 10
	}
	return min(p.PerPage, maxPerPage)
}

// PagedResult encapsula os dados e os metadados da página
type PagedResult[T any] struct {
	Items       []T `json:"items"`
	TotalItems  int `json:"total_items"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

func (p PagedResult[T]) TotalPages() int {
	if p.PerPage == 0 {
		return 0
	}
	return (p.TotalItems + p.PerPage - 1) / p.PerPage
}

// ListFaceVerificationsPage devolve uma página do histórico de verificações do usuário.
func (q *Queries) ListFaceVerificationsPage(ctx context.Context, userID int64, params PagingParams) (PagedResult[FaceVerification], error) {
	total, err := q.CountFaceVerificationsByUser(ctx, userID)
	if err != nil {
		return PagedResult[FaceVerification]{}, err
	}

	items, err := q.ListFaceVerificationsByUser(ctx, ListFaceVerificationsByUserParams{
		UserID: userID,
		Limit:  int64(params.Limit()),
		Offset: int64(params.Offset()),
	})
	if err != nil {
		return PagedResult[FaceVerification]{}, err
	}
	if items == nil {
		items = []FaceVerification{}
	}

	page := max(params.Page, 1)
	return PagedResult[FaceVerification]{
		Items:       items,
		TotalItems:  int(total),
		CurrentPage: page,
		PerPage:     params.Limit(),
	}, nil
}
