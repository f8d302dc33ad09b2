package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/internal/pkg/errs"
)

func TestValidators(t *testing.T) {
	t.Run("email", func(t *testing.T) {
		assert.Nil(t, Email("a@b.com"))
		for _, bad := range []string{"", "a@b", "a b@c.com", "@b.com", "a@@b.com"} {
			err := Email(bad)
			require.NotNil(t, err, bad)
			assert.Equal(t, errs.ErrInvalidEmail, err.Code)
		}
	})

	t.Run("nickname", func(t *testing.T) {
		for _, ok := range []string{"anra1", "하루칼로리", "abc!", "abcdefghijkl"} {
			assert.Nil(t, Nickname(ok), ok)
		}
		for _, bad := range []string{"abc", "abcdefghijklm", "with space", "dash-ed", ""} {
			err := Nickname(bad)
			require.NotNil(t, err, bad)
			assert.Equal(t, errs.ErrInvalidNickname, err.Code)
		}
	})

	t.Run("password", func(t *testing.T) {
		for _, ok := range []string{"Abc1!", "PASSWORD1#", "aB3@"} {
			assert.Nil(t, Password(ok), ok)
		}
		for _, bad := range []string{"Ab1", "abcd1!", "ABCDEF!", "Abcdef1", "Abc1!?", "Abc1!한", "Aa1!aaaaaaaaaaaaaaaaa"} {
			err := Password(bad)
			require.NotNil(t, err, bad)
			assert.Equal(t, errs.ErrInvalidPassword, err.Code)
		}
	})

	t.Run("activity level", func(t *testing.T) {
		assert.Nil(t, ActivityLevel(""))
		assert.Nil(t, ActivityLevel(ActivityModerate))
		assert.NotNil(t, ActivityLevel("EXTREME"))
	})
}
