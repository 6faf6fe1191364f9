package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DocumentService issues gapless document numbers.
type DocumentService interface {
	// NextNumberTx reserves the next number for prefix and year inside the
	// caller's transaction. A rolled-back transaction releases the number, so
	// committed documents never leave gaps.
	NextNumberTx(ctx context.Context, tx pgx.Tx, prefix string, year int) (string, error)
}

type documentService struct{}

func NewDocumentService() DocumentService {
	return &documentService{}
}

func (s *documentService) NextNumberTx(ctx context.Context, tx pgx.Tx, prefix string, year int) (string, error) {
	key := fmt.Sprintf("%s-%d", prefix, year)

	// The upsert takes a row lock on the sequence, serializing concurrent issuers.
	var last int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (prefix, last_number)
		VALUES ($1, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, key).Scan(&last)
	if err != nil {
		return "", storeErr("generate document number", err)
	}
	return fmt.Sprintf("%s-%05d", key, last), nil
}
