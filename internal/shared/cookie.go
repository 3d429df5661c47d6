package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// CookieMaxAge is how long a login stays valid.
const CookieMaxAge = 900 * 24 * time.Hour

// signature covers: value + timestamp
func cookieMAC(secret, value, ts string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(value + "\n" + ts))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// SignCookie returns "<b64 value>|<unix ts>|<mac>".
func SignCookie(secret, value string, now time.Time) string {
	v := base64.RawURLEncoding.EncodeToString([]byte(value))
	ts := strconv.FormatInt(now.Unix(), 10)
	return v + "|" + ts + "|" + cookieMAC(secret, v, ts)
}

// VerifyCookie returns the signed value if the cookie is authentic and younger
// than maxAge.
func VerifyCookie(secret, cookie string, maxAge time.Duration, now time.Time) (string, bool) {
	parts := strings.Split(cookie, "|")
	if len(parts) != 3 {
		return "", false
	}
	v, ts, mac := parts[0], parts[1], parts[2]
	if !hmac.Equal([]byte(mac), []byte(cookieMAC(secret, v, ts))) {
		return "", false
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", false
	}
	if now.Sub(time.Unix(sec, 0)) > maxAge {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return "", false
	}
	return string(raw), true
}
