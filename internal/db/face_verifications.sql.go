package db

import (
	"context"
)

const createFaceVerification = `-- name: CreateFaceVerification :one
INSERT INTO face_verifications (user_id, verified, distance, threshold, profile, failure_reason)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, user_id, verified, distance, threshold, profile, failure_reason, created_at
`

type CreateFaceVerificationParams struct {
	UserID        int64
	Verified      bool
	Distance      float64
	Threshold     float64
	Profile       string
	FailureReason string
}

func (q *Queries) CreateFaceVerification(ctx context.Context, arg CreateFaceVerificationParams) (FaceVerification, error) {
	row := q.db.QueryRowContext(ctx, createFaceVerification,
		arg.UserID,
		arg.Verified,
		arg.Distance,
		arg.Threshold,
		arg.Profile,
		arg.FailureReason,
	)
	var i FaceVerification
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Verified,
		&i.Distance,
		&i.Threshold,
		&i.Profile,
		&i.FailureReason,
		&i.CreatedAt,
	)
	return i, err
}

const listFaceVerificationsByUser = `-- name: ListFaceVerificationsByUser :many
SELECT id, user_id, verified, distance, threshold, profile, failure_reason, created_at FROM face_verifications
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

type ListFaceVerificationsByUserParams struct {
	UserID int64
	Limit  int64
	Offset int64
}

func (q *Queries) ListFaceVerificationsByUser(ctx context.Context, arg ListFaceVerificationsByUserParams) ([]FaceVerification, error) {
	rows, err := q.db.QueryContext(ctx, listFaceVerificationsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FaceVerification
	for rows.Next() {
		var i FaceVerification
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Verified,
			&i.Distance,
			&i.Threshold,
			&i.Profile,
			&i.FailureReason,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countFaceVerificationsByUser = `-- name: CountFaceVerificationsByUser :one
SELECT COUNT(*) FROM face_verifications
WHERE user_id = ?
`

func (q *Queries) CountFaceVerificationsByUser(ctx context.Context, userID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countFaceVerificationsByUser, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
