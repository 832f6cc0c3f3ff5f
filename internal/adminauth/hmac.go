// Package adminauth verifies HMAC-SHA256 signed admin requests (§6).
// Canonical string format: METHOD|normalizedPath|sortedQueryString|timestamp|userId|bodyHash.
// Must match the upstream proxy's signer exactly. Grounded on
// original_source/services/api/middleware/admin_hmac.py.
package adminauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"iaros/itinerary_core/internal/apperr"
)

// ReplayWindow bounds how far a request timestamp may drift from server
// time before it is rejected as expired or replayed.
const ReplayWindow = 30 * time.Second

var (
	multiSlashPattern = regexp.MustCompile(`/+`)

	errPathTraversal = errors.New("path traversal detected")
)

// NormalizePath lowercases the path, collapses repeated slashes, strips a
// trailing slash (except for root), and rejects ".." segments.
func NormalizePath(path string) (string, error) {
	normalized := strings.ToLower(path)
	normalized = multiSlashPattern.ReplaceAllString(normalized, "/")
	if len(normalized) > 1 && strings.HasSuffix(normalized, "/") {
		normalized = normalized[:len(normalized)-1]
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", errPathTraversal
		}
	}
	return normalized, nil
}

// SortQueryString sorts "&"-delimited query parameters alphabetically so
// the canonical string is independent of the client's param ordering.
func SortQueryString(queryString string) string {
	if queryString == "" {
		return ""
	}
	var params []string
	for _, p := range strings.Split(queryString, "&") {
		if p != "" {
			params = append(params, p)
		}
	}
	sort.Strings(params)
	return strings.Join(params, "&")
}

// ComputeBodyHash returns the SHA-256 hex digest of the raw request body.
func ComputeBodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Request carries everything VerifyRequest needs to check a signature,
// decoupled from any particular HTTP framework.
type Request struct {
	Method          string
	Path            string
	RawQuery        string
	Body            []byte
	Signature       string
	TimestampHeader string
	UserID          string
	BodyHashHeader  string
}

// VerifyRequest checks the HMAC signature, replay window, and body hash
// on an admin request and returns the verified actor user ID. now is
// injected so callers (and tests) control the replay-window check.
func VerifyRequest(secret string, req Request, now time.Time) (string, error) {
	if secret == "" {
		return "", apperr.Upstream("admin_hmac_unconfigured", "admin HMAC secret not configured", nil)
	}
	if req.Signature == "" || req.TimestampHeader == "" || req.UserID == "" || req.BodyHashHeader == "" {
		return "", apperr.Authn("admin_hmac_missing_headers", "missing required HMAC headers")
	}

	timestamp, err := parseTimestamp(req.TimestampHeader)
	if err != nil {
		return "", apperr.Authn("admin_hmac_bad_timestamp", "invalid timestamp format")
	}

	delta := now.Unix() - timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > int64(ReplayWindow.Seconds()) {
		return "", apperr.Authn("admin_hmac_expired", "request timestamp expired")
	}

	computedBodyHash := ComputeBodyHash(req.Body)
	if !hmac.Equal([]byte(computedBodyHash), []byte(req.BodyHashHeader)) {
		return "", apperr.Authn("admin_hmac_body_mismatch", "body hash mismatch")
	}

	normalizedPath, err := NormalizePath(req.Path)
	if err != nil {
		return "", apperr.Input("admin_hmac_path_traversal", "path traversal detected")
	}
	sortedQuery := SortQueryString(req.RawQuery)

	canonical := strings.Join([]string{
		req.Method, normalizedPath, sortedQuery, req.TimestampHeader, req.UserID, computedBodyHash,
	}, "|")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expectedSignature), []byte(req.Signature)) {
		return "", apperr.Authn("admin_hmac_invalid_signature", "invalid signature")
	}

	return req.UserID, nil
}

func parseTimestamp(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
