package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/app"
	_ "github.com/udms-pro/udms/testing"
)

func TestServeSkipsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NoError(t, serve(t.Context()))
}
