package svcmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "0m"},
		{90 * time.Minute, "1h 30m"},
		{25 * time.Hour, "1d 1h"},
		{12 * time.Minute, "12m"},
		{59 * time.Minute, "59m"},
		{60 * time.Minute, "1h 0m"},
		{24 * time.Hour, "1d 0h"},
		{49*time.Hour + 30*time.Minute, "2d 1h"},
		{0, "0m"},
		{-5 * time.Second, "0m"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, FormatUptime(c.d), "FormatUptime(%v)", c.d)
	}
}
