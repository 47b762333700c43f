package pgvector

import "errors"

var (
	// ErrConnectionStringRequired indicates an empty connection string.
	ErrConnectionStringRequired = errors.New("postgres connection string is required")

	// ErrInvalidTableName indicates a table name that is not a plain SQL identifier.
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrExtensionMissing indicates the vector extension is not installed.
	ErrExtensionMissing = errors.New("pgvector extension not installed - run: CREATE EXTENSION vector")
)
