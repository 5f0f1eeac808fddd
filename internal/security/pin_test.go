package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	cases := []struct {
		name     string
		supplied string
		stored   string
		want     error
	}{
		{"match", "1234", "1234", nil},
		{"mismatch", "1235", "1234", ErrPinMismatch},
		{"leading zero match", "0007", "0007", nil},
		{"too short", "123", "123", ErrInvalidPinFormat},
		{"too long", "12345", "1234", ErrInvalidPinFormat},
		{"letters", "12a4", "12a4", ErrInvalidPinFormat},
		{"empty", "", "", ErrInvalidPinFormat},
		{"whitespace", " 1234", "1234", ErrInvalidPinFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(tc.supplied, tc.stored)
			if tc.want == nil {
				assert.NoError(t, err)
				assert.True(t, Matches(tc.supplied, tc.stored))
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, Matches(tc.supplied, tc.stored))
		})
	}
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat("0000"))
	assert.True(t, ValidFormat("9999"))
	assert.False(t, ValidFormat("１２３４"))
	assert.False(t, ValidFormat("-123"))
}
