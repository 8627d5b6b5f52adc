package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), ErrNotFound},
		{"check violation", &pq.Error{Code: "23514"}, ErrValidationRejected},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrValidationRejected},
		{"invalid text representation", &pq.Error{Code: "22P02"}, ErrValidationRejected},
		{"connection failure", &pq.Error{Code: "08006"}, ErrBackendUnavailable},
		{"plain error", errors.New("dial tcp: connection refused"), ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, Classify(nil))
}

func TestClassify_AlreadyClassified(t *testing.T) {
	err := fmt.Errorf("%w: product x", ErrNotFound)

	assert.Same(t, err, Classify(err))
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "products_changes", ChannelName(TableProducts))
	assert.True(t, KnownTable("orders"))
	assert.False(t, KnownTable("users"))
}
