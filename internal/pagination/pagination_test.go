package pagination

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cursor  LogCursor
		wantErr bool
	}{
		{
			name:    "valid cursor",
			cursor:  LogCursor{BeforeID: 42},
			wantErr: false,
		},
		{
			name:    "invalid cursor missing required field",
			cursor:  LogCursor{},
			wantErr: true,
		},
		{
			name:    "invalid cursor negative id",
			cursor:  LogCursor{BeforeID: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tkn, err := ToToken(tt.cursor)
			if tt.wantErr {
				var tokenErr TokenError
				require.ErrorAs(t, err, &tokenErr)
				assert.Empty(t, tkn)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, tkn)
			}
		})
	}
}

func TestFromToken(t *testing.T) {
	t.Parallel()

	valid := LogCursor{BeforeID: 7}
	validToken, err := ToToken(valid)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			name:    "valid token",
			token:   validToken,
			wantErr: false,
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
		{
			name:    "invalid base64",
			token:   "not-valid-base64!!!",
			wantErr: true,
		},
		{
			name:    "valid base64 invalid json",
			token:   tokenEncoding.EncodeToString([]byte("not json")),
			wantErr: true,
		},
		{
			name:    "valid json fails validation",
			token:   tokenEncoding.EncodeToString([]byte(`{"b":0}`)),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out LogCursor
			err := FromToken(tt.token, &out)
			if tt.wantErr {
				var tokenErr TokenError
				require.ErrorAs(t, err, &tokenErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, valid, out)
			}
		})
	}
}

func TestTokenErrorMessage(t *testing.T) {
	t.Parallel()

	err := TokenError{cause: errors.New("underlying cause")}
	assert.Equal(t, "invalid pagination token", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "underlying cause")
}
