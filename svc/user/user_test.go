package user_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/brokerpad/pkg/subscription"
	"github.com/dmitrymomot/brokerpad/svc/user"
)

func TestNormalizeMobile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "bare ten digits", in: "9876543210", want: "919876543210"},
		{name: "already prefixed", in: "919876543210", want: "919876543210"},
		{name: "too short", in: "98765", wantErr: user.ErrInvalidMobile},
		{name: "letters", in: "98765abcde", wantErr: user.ErrInvalidMobile},
		{name: "wrong prefix", in: "449876543210", wantErr: user.ErrInvalidMobile},
		{name: "empty", in: "", wantErr: user.ErrInvalidMobile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := user.NormalizeMobile(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := user.HashPassword("s3cr3t-pass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cr3t-pass", hash)

	u := user.New("Asha Verma", "919876543210", hash, time.Now())
	assert.NoError(t, u.CheckPassword("s3cr3t-pass"))
	assert.ErrorIs(t, u.CheckPassword("wrong-pass"), user.ErrInvalidCredentials)
}

func TestHashPasswordRejectsShort(t *testing.T) {
	t.Parallel()

	_, err := user.HashPassword("short")
	assert.ErrorIs(t, err, user.ErrPasswordTooShort)
}

func TestNewUserDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	u := user.New("Asha Verma", "919876543210", "hash", now)

	require.NotEmpty(t, u.ID)
	assert.Equal(t, now, u.RegisteredAt)
	assert.False(t, u.Record.Active)
	assert.Equal(t, subscription.StatusInactive, u.Record.Status)
	assert.Nil(t, u.Record.Expiry)
	assert.False(t, u.Record.HasUsedTrial)
	assert.False(t, u.Record.ValidAt(now))
}
