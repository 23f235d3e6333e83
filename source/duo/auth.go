package duo

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Authorizer decorates an outgoing Admin API request with credentials.
type Authorizer interface {
	Authorize(req *http.Request, params url.Values) error
}

// HMACSigner signs requests with an integration key / secret key pair.
type HMACSigner struct {
	IKey string
	SKey string
	Now  func() time.Time
}

func (s HMACSigner) Authorize(req *http.Request, params url.Values) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	date := now().UTC().Format(time.RFC1123Z)
	canon := strings.Join([]string{
		date,
		strings.ToUpper(req.Method),
		strings.ToLower(req.URL.Host),
		req.URL.Path,
		canonParams(params),
	}, "\n")

	mac := hmac.New(sha1.New, []byte(s.SKey))
	mac.Write([]byte(canon))
	req.Header.Set("Date", date)
	req.SetBasicAuth(s.IKey, hex.EncodeToString(mac.Sum(nil)))
	return nil
}

// canonParams is url.Values.Encode with %20 instead of '+' for spaces.
func canonParams(params url.Values) string {
	return strings.ReplaceAll(params.Encode(), "+", "%20")
}
