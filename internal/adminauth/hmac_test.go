package adminauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	got, err := NormalizePath("/Admin//Trips/123/")
	require.NoError(t, err)
	require.Equal(t, "/admin/trips/123", got)
}

func TestNormalizePath_RootUnchanged(t *testing.T) {
	got, err := NormalizePath("/")
	require.NoError(t, err)
	require.Equal(t, "/", got)
}

func TestNormalizePath_RejectsTraversal(t *testing.T) {
	_, err := NormalizePath("/admin/../etc/passwd")
	require.Error(t, err)
}

func TestSortQueryString(t *testing.T) {
	require.Equal(t, "a=1&b=2", SortQueryString("b=2&a=1"))
	require.Equal(t, "", SortQueryString(""))
}

func TestComputeBodyHash(t *testing.T) {
	sum := sha256.Sum256([]byte("hello"))
	require.Equal(t, hex.EncodeToString(sum[:]), ComputeBodyHash([]byte("hello")))
}

func sign(secret, method, path, query, timestamp, userID, bodyHash string) string {
	canonical := method + "|" + path + "|" + query + "|" + timestamp + "|" + userID + "|" + bodyHash
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyRequest_ValidSignature(t *testing.T) {
	secret := "shared-secret"
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	timestamp := now.Unix()
	body := []byte(`{"foo":"bar"}`)
	bodyHash := ComputeBodyHash(body)
	timestampStr := timeToStr(timestamp)

	req := Request{
		Method:          "POST",
		Path:            "/admin/trips",
		RawQuery:        "",
		Body:            body,
		TimestampHeader: timestampStr,
		UserID:          "user-1",
		BodyHashHeader:  bodyHash,
	}
	req.Signature = sign(secret, req.Method, "/admin/trips", "", timestampStr, "user-1", bodyHash)

	actor, err := VerifyRequest(secret, req, now)
	require.NoError(t, err)
	require.Equal(t, "user-1", actor)
}

func TestVerifyRequest_ExpiredTimestampRejected(t *testing.T) {
	secret := "shared-secret"
	issuedAt := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	checkedAt := issuedAt.Add(60 * time.Second)
	body := []byte(`{}`)
	bodyHash := ComputeBodyHash(body)
	timestampStr := timeToStr(issuedAt.Unix())

	req := Request{
		Method: "GET", Path: "/admin/trips", Body: body,
		TimestampHeader: timestampStr, UserID: "user-1", BodyHashHeader: bodyHash,
	}
	req.Signature = sign(secret, req.Method, "/admin/trips", "", timestampStr, "user-1", bodyHash)

	_, err := VerifyRequest(secret, req, checkedAt)
	require.Error(t, err)
}

func TestVerifyRequest_BadSignatureRejected(t *testing.T) {
	secret := "shared-secret"
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	body := []byte(`{}`)
	bodyHash := ComputeBodyHash(body)

	req := Request{
		Method: "GET", Path: "/admin/trips", Body: body,
		TimestampHeader: timeToStr(now.Unix()), UserID: "user-1",
		BodyHashHeader: bodyHash, Signature: "deadbeef",
	}

	_, err := VerifyRequest(secret, req, now)
	require.Error(t, err)
}

func TestVerifyRequest_MissingSecretRejected(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	req := Request{
		Method: "GET", Path: "/admin/trips", TimestampHeader: timeToStr(now.Unix()),
		UserID: "user-1", BodyHashHeader: ComputeBodyHash(nil), Signature: "anything",
	}
	_, err := VerifyRequest("", req, now)
	require.Error(t, err)
}

func timeToStr(unix int64) string {
	return strconv.FormatInt(unix, 10)
}
