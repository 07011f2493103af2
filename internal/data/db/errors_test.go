package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{fmt.Errorf("create quiz: %w", &pgconn.PgError{Code: "23505"}), true},
		{&pgconn.PgError{Code: "23503"}, false},
		{errors.New("UNIQUE constraint failed: quizzes.content_id, quizzes.version"), true},
		{errors.New("connection refused"), false},
	}
	for i, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("case %d (%v): got %v want %v", i, tc.err, got, tc.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure should retry")
	}
	if !IsRetryable(fmt.Errorf("tx: %w", context.DeadlineExceeded)) {
		t.Fatalf("deadline should retry")
	}
	if IsRetryable(&pgconn.PgError{Code: "23505"}) || IsRetryable(nil) {
		t.Fatalf("unique violation is not retryable")
	}
}
