package users

import (
	"strings"
	"testing"

	"levtrade/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddressChecksums(t *testing.T) {
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		got, err := NormalizeAddress(strings.ToLower(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = NormalizeAddress(want)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNormalizeAddressRejects(t *testing.T) {
	for _, bad := range []string{
		"",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA",
		"0xZZAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	} {
		_, err := NormalizeAddress(bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
}
