package db

import (
	"context"
	"database/sql"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, password_hash, role_id, image_path)
VALUES (?, ?, ?, ?, ?)
RETURNING id, username, email, password_hash, role_id, image_path, created_at
`

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	RoleID       string
	ImagePath    sql.NullString
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.Email,
		arg.PasswordHash,
		arg.RoleID,
		arg.ImagePath,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.RoleID,
		&i.ImagePath,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, username, email, password_hash, role_id, image_path, created_at FROM users
WHERE id = ? LIMIT 1
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.RoleID,
		&i.ImagePath,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, email, password_hash, role_id, image_path, created_at FROM users
WHERE username = ? LIMIT 1
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.RoleID,
		&i.ImagePath,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByEmailAndUsername = `-- name: GetUserByEmailAndUsername :one
SELECT id, username, email, password_hash, role_id, image_path, created_at FROM users
WHERE email = ? AND username = ? LIMIT 1
`

type GetUserByEmailAndUsernameParams struct {
	Email    string
	Username string
}

func (q *Queries) GetUserByEmailAndUsername(ctx context.Context, arg GetUserByEmailAndUsernameParams) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmailAndUsername, arg.Email, arg.Username)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.RoleID,
		&i.ImagePath,
		&i.CreatedAt,
	)
	return i, err
}

const getReferenceImagePath = `-- name: GetReferenceImagePath :one
SELECT image_path FROM users
WHERE username = ? LIMIT 1
`

func (q *Queries) GetReferenceImagePath(ctx context.Context, username string) (sql.NullString, error) {
	row := q.db.QueryRowContext(ctx, getReferenceImagePath, username)
	var image_path sql.NullString
	err := row.Scan(&image_path)
	return image_path, err
}

const countUsers = `-- name: CountUsers :one
SELECT COUNT(*) FROM users
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUsersByUsernameOrEmail = `-- name: CountUsersByUsernameOrEmail :one
SELECT COUNT(*) FROM users
WHERE username = ? OR email = ?
`

type CountUsersByUsernameOrEmailParams struct {
	Username string
	Email    string
}

func (q *Queries) CountUsersByUsernameOrEmail(ctx context.Context, arg CountUsersByUsernameOrEmailParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsersByUsernameOrEmail, arg.Username, arg.Email)
	var count int64
	err := row.Scan(&count)
	return count, err
}
