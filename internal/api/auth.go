package api

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// TimestampWindow is the maximum age of a signed request before it is rejected.
const TimestampWindow = 5 * time.Minute

const (
	HeaderIdentity  = "X-Agent-Identity"
	HeaderTimestamp = "X-Agent-Timestamp"
	HeaderSignature = "X-Agent-Signature"
)

// IdentityFromPublicKey returns the ledger identity of a key: its full
// public key in lowercase hex.
func IdentityFromPublicKey(pub ed25519.PublicKey) string {
	return hex.EncodeToString(pub)
}

// SignRequest adds the identity, timestamp and signature headers to an
// outgoing request. The signature covers:
//
//	method + path + timestamp + body
func SignRequest(req *http.Request, privKey ed25519.PrivateKey, body []byte, now time.Time) {
	ts := strconv.FormatInt(now.Unix(), 10)

	req.Header.Set(HeaderIdentity, IdentityFromPublicKey(privKey.Public().(ed25519.PublicKey)))
	req.Header.Set(HeaderTimestamp, ts)

	msg := req.Method + req.URL.Path + ts + string(body)
	sig := ed25519.Sign(privKey, []byte(msg))
	req.Header.Set(HeaderSignature, hex.EncodeToString(sig))
}

// VerifyRequest checks the timestamp is within TimestampWindow of now and the
// signature is valid for the claimed identity. It returns that identity.
func VerifyRequest(req *http.Request, body []byte, now time.Time) (string, error) {
	identity := req.Header.Get(HeaderIdentity)
	tsStr := req.Header.Get(HeaderTimestamp)
	sigHex := req.Header.Get(HeaderSignature)

	if identity == "" {
		return "", fmt.Errorf("missing %s header", HeaderIdentity)
	}
	if tsStr == "" {
		return "", fmt.Errorf("missing %s header", HeaderTimestamp)
	}
	if sigHex == "" {
		return "", fmt.Errorf("missing %s header", HeaderSignature)
	}

	pub, err := hex.DecodeString(identity)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid identity: want %d hex-encoded bytes", ed25519.PublicKeySize)
	}

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp: %w", err)
	}

	diff := math.Abs(float64(now.Unix() - ts))
	if diff > TimestampWindow.Seconds() {
		return "", fmt.Errorf("timestamp expired: %.0fs drift exceeds %v window", diff, TimestampWindow)
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return "", fmt.Errorf("invalid signature hex: %w", err)
	}

	msg := req.Method + req.URL.Path + tsStr + string(body)
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(msg), sig) {
		return "", fmt.Errorf("ed25519 signature verification failed")
	}
	return identity, nil
}

// ReplayCacheSize bounds how many request signatures are remembered. It should
// exceed the number of signed requests accepted within one TimestampWindow.
const ReplayCacheSize = 1 << 16

var ErrReplayed = errors.New("signed request already submitted")

// replayGuard remembers the signatures of accepted requests so that a request
// can be submitted once. Requests older than TimestampWindow are already
// refused by VerifyRequest.
type replayGuard struct {
	seen *lru.Cache
}

func newReplayGuard(size int) (*replayGuard, error) {
	seen, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &replayGuard{seen: seen}, nil
}

// admit records the signature of a verified request. It returns ErrReplayed
// if the signature was seen before.
func (g *replayGuard) admit(req *http.Request) error {
	sig := strings.ToLower(req.Header.Get(HeaderSignature))
	if seen, _ := g.seen.ContainsOrAdd(sig, struct{}{}); seen {
		return ErrReplayed
	}
	return nil
}
