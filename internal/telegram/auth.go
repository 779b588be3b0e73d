// Package telegram validates Telegram WebApp init data.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"blindbox/internal/errs"
)

const (
	maxAge  = time.Hour
	maxSkew = 5 * time.Minute
)

var ErrInvalidInitData = errs.New("invalid telegram init data")

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// ValidateInitData verifies the init_data HMAC and checks that auth_date is
// recent, then returns the embedded user.
func ValidateInitData(initData, botToken string, now time.Time) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidInitData)
	}

	provided, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(provided) == 0 {
		return nil, errs.Wrap(ErrInvalidInitData, "missing hash")
	}
	values.Del("hash")

	if !hmac.Equal(Sign(values, botToken), provided) {
		return nil, errs.Wrap(ErrInvalidInitData, "hash mismatch")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, errs.Wrap(ErrInvalidInitData, "bad auth_date")
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > maxAge || age < -maxSkew {
		return nil, errs.Wrap(ErrInvalidInitData, "auth_date out of range")
	}

	return parseUser(values)
}

// ParseUnsigned extracts the user without verifying the hash. Dev mode only.
func ParseUnsigned(initData string) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidInitData)
	}
	return parseUser(values)
}

func parseUser(values url.Values) (*WebAppUser, error) {
	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, errs.Wrap(ErrInvalidInitData, "bad user")
	}
	return &user, nil
}

// Sign computes the init_data hash over values (without the hash field).
func Sign(values url.Values, botToken string) []byte {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(pairs, "\n")))
	return h.Sum(nil)
}
