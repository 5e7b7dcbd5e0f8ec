package authd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	got, err := ValidateUsername("Alice_99")
	require.NoError(t, err)
	assert.Equal(t, "alice_99", got, "usernames canonicalize to lowercase")

	for _, bad := range []string{"ab", "al ice", "alice!", "álice", "", "a@b"} {
		_, err := ValidateUsername(bad)
		assert.Error(t, err, "username %q", bad)
	}
}

func TestValidateName(t *testing.T) {
	for _, good := range []string{"Alice", "José", "O'Brien-Núñez", "Mary Ann", "J. R."} {
		got, err := ValidateName("  " + good + "  ")
		require.NoError(t, err, "name %q", good)
		assert.Equal(t, good, got)
	}

	for _, bad := range []string{"", "   ", "Robert; DROP TABLE", "a<b>", "x1"} {
		_, err := ValidateName(bad)
		assert.Error(t, err, "name %q", bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Sup3r$ecret!"))

	cases := map[string]string{
		"too short":  "Ab1!",
		"no upper":   "sup3r$ecret!",
		"no lower":   "SUP3R$ECRET!",
		"no digit":   "Super$ecret!",
		"no symbol":  "Sup3rSecret1",
		"has space":  "Sup3r $ecret!",
		"shell meta": "Sup3r$ecret|",
	}
	for name, pass := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidatePassword(pass))
		})
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "e***@gmail.com", MaskEmail("example@gmail.com"))
	assert.Equal(t, "a***@x.com", MaskEmail("abcdefgh@x.com"))
	// Too short to mask, and non-addresses, pass through.
	assert.Equal(t, "a@x.com", MaskEmail("a@x.com"))
	assert.Equal(t, "not-an-email", MaskEmail("not-an-email"))
}
