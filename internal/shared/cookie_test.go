package shared

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCookieRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := SignCookie("s3cret", "hunter2", now)

	v, ok := VerifyCookie("s3cret", c, CookieMaxAge, now.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, "hunter2", v)
}

func TestCookieRejected(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := SignCookie("s3cret", "hunter2", now)

	_, ok := VerifyCookie("other", c, CookieMaxAge, now)
	assert.False(t, ok, "wrong secret")

	_, ok = VerifyCookie("s3cret", c, CookieMaxAge, now.Add(CookieMaxAge+time.Second))
	assert.False(t, ok, "expired")

	parts := strings.Split(c, "|")
	forged := SignCookie("s3cret", "admin", now)
	_, ok = VerifyCookie("s3cret", strings.Split(forged, "|")[0]+"|"+parts[1]+"|"+parts[2], CookieMaxAge, now)
	assert.False(t, ok, "value swapped")

	_, ok = VerifyCookie("s3cret", "garbage", CookieMaxAge, now)
	assert.False(t, ok)
}
