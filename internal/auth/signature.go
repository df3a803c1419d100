package auth

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// SignatureScheme computes and checks the signature a client submits
// with credentialed requests. The account's shared secret never
// crosses the wire; only the derived signature does.
type SignatureScheme interface {
	Sign(account, secret string, timestamp int64) string
	Verify(account, secret string, timestamp int64, submitted string) bool
}

// Scheme names accepted by NewSignatureScheme.
const (
	SchemeLegacy = "legacy"
	SchemeHMAC   = "hmac"
)

// NewSignatureScheme returns the scheme registered under name.
func NewSignatureScheme(name string) (SignatureScheme, error) {
	switch name {
	case SchemeLegacy:
		return LegacyScheme{}, nil
	case SchemeHMAC:
		return HMACScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown signature scheme: %q", name)
	}
}

// LegacyScheme is the wire-compatible scheme existing clients use:
// concatenate account + secret + decimal timestamp, sort the
// characters by code point ascending, and take the lower-case hex MD5
// of the sorted string. Weak (unkeyed MD5), kept only for
// interoperability; replay protection lives in the request window.
type LegacyScheme struct{}

func (LegacyScheme) Sign(account, secret string, timestamp int64) string {
	payload := []rune(account + secret + strconv.FormatInt(timestamp, 10))
	sort.Slice(payload, func(i, j int) bool { return payload[i] < payload[j] })

	sum := md5.Sum([]byte(string(payload)))
	return hex.EncodeToString(sum[:])
}

func (s LegacyScheme) Verify(account, secret string, timestamp int64, submitted string) bool {
	expected := s.Sign(account, secret, timestamp)
	return hmac.Equal([]byte(expected), []byte(submitted))
}

// HMACScheme is the protocol-v2 replacement: HMAC-SHA256 keyed with
// the account secret over "account:timestamp", lower-case hex.
// Enabling it is a breaking protocol revision; clients must opt in.
type HMACScheme struct{}

func (HMACScheme) Sign(account, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(account + ":" + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s HMACScheme) Verify(account, secret string, timestamp int64, submitted string) bool {
	expected := s.Sign(account, secret, timestamp)
	return hmac.Equal([]byte(expected), []byte(submitted))
}
