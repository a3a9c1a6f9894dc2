package jwtsign

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func signingString(token string) string {
	return token[:strings.LastIndex(token, ".")]
}

func signature(t *testing.T, token string) []byte {
	sig, err := base64.RawURLEncoding.DecodeString(token[strings.LastIndex(token, ".")+1:])
	require.NoError(t, err)
	return sig
}
