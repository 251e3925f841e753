package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/okian/sitelog/internal/domain/record"
)

type tokenKey struct {
	DomainSession string `json:"ds" dynamodbav:"domain_session"`
	Timestamp     int64  `json:"ts" dynamodbav:"timestamp"`
}

func encodeToken(k record.Key) string {
	b, _ := json.Marshal(tokenKey{DomainSession: k.DomainSession, Timestamp: k.Timestamp})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeToken(tok string) (record.Key, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return record.Key{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var k tokenKey
	if err := json.Unmarshal(b, &k); err != nil {
		return record.Key{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return record.Key{DomainSession: k.DomainSession, Timestamp: k.Timestamp}, nil
}

func keyLess(a, b record.Key) bool {
	if a.DomainSession != b.DomainSession {
		return a.DomainSession < b.DomainSession
	}
	return a.Timestamp < b.Timestamp
}
