package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "meldish/pkg/domain-errors"
)

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "sturdy1pass", wantErr: false},
		{name: "too short", password: "ab1", wantErr: true},
		{name: "no digit", password: "lettersonly", wantErr: true},
		{name: "no letter", password: "12345678", wantErr: true},
		{name: "exactly eight with both", password: "abcdefg1", wantErr: false},
		{name: "unicode letters count", password: "ぱすわーど12345", wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicy(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager()

	digest, err := m.Hash("sturdy1pass")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "sturdy1pass", digest)

	ok, err := m.Verify("sturdy1pass", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Verify("wrong1pass", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerHashRejectsWeakPassword(t *testing.T) {
	m := NewManager()

	_, err := m.Hash("short1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestManagerVerifyEmptyDigestNeverMatches(t *testing.T) {
	m := NewManager()

	ok, err := m.Verify("sturdy1pass", "")
	require.NoError(t, err)
	assert.False(t, ok)
}
