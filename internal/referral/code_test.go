package referral

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)
	require.NoError(t, err)
	require.Len(t, code, 8)
	for _, r := range code {
		require.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected symbol %q", r)
	}
}

func TestGenerateCodeAvoidsLookAlikes(t *testing.T) {
	for _, banned := range "0OIL1" {
		require.False(t, strings.ContainsRune(codeAlphabet, banned))
	}
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "ABC234XY", NormalizeCode("ABC234XY"))
	require.Equal(t, "ABC234XY", NormalizeCode("abc234xy"))
	require.Equal(t, "ABC234XY", NormalizeCode("REF_ABC234XY"))
	require.Equal(t, "ABC234XY", NormalizeCode("ref_abc234xy"))
	require.Equal(t, "ABC234XY", NormalizeCode("  ABC234XY "))
}
