package publisher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-thermo-serial/reading"
)

func mustParse(t *testing.T) reading.Reading {
	t.Helper()
	r, err := reading.Parse(sample)
	require.NoError(t, err)
	return r
}
