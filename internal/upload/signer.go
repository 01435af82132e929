package upload

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an issued upload URL stays valid.
const DefaultTTL = 5 * time.Minute

// Signer issues time-limited presigned PUT URLs for the file store. The
// store front end verifies the same HMAC before accepting the upload.
type Signer struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

type PresignedUpload struct {
	URL       string    `json:"upload_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSigner(baseURL string, secret []byte) *Signer {
	return &Signer{
		baseURL: baseURL,
		secret:  secret,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
}

// SignPut issues a presigned PUT URL for one file owned by userId. The
// object key embeds a fresh uuid so repeated uploads of the same file name
// never collide.
func (s *Signer) SignPut(userId, fileName, contentType string) (PresignedUpload, error) {
	if userId == "" || fileName == "" || contentType == "" {
		return PresignedUpload{}, fmt.Errorf("userId, fileName and contentType are required")
	}

	key := fmt.Sprintf("%s/%s-%s", userId, uuid.NewString(), fileName)
	expiresAt := s.now().UTC().Add(s.ttl)

	q := url.Values{}
	q.Set("content_type", contentType)
	q.Set("expires", strconv.FormatInt(expiresAt.Unix(), 10))
	q.Set("signature", s.sign("PUT", key, contentType, expiresAt.Unix()))

	return PresignedUpload{
		URL:       fmt.Sprintf("%s/%s?%s", s.baseURL, key, q.Encode()),
		Key:       key,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify reports whether a signature matches and has not expired.
func (s *Signer) Verify(method, key, contentType, signature string, expires int64) bool {
	if s.now().UTC().Unix() > expires {
		return false
	}

	want := s.sign(method, key, contentType, expires)
	return hmac.Equal([]byte(want), []byte(signature))
}

func (s *Signer) sign(method, key, contentType string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%d", method, key, contentType, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
