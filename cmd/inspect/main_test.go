package main

import (
	"bytes"
	"im-bridge/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	var out bytes.Buffer
	render(&out, []domain.Cluster{
		{Name: "sunny", CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Groups: []domain.Group{domain.NewQQGroup("1001"), domain.NewQQGroup("1002")}},
		{Name: "rainy"},
	}, false)

	text := out.String()
	require.Contains(t, text, "sunny")
	require.Contains(t, text, "2026-03-01 10:00:00")
	require.Contains(t, text, "qq:1001 qq:1002")
	require.Contains(t, text, "rainy")
}
