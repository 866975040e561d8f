package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	headerPrefix = "St-"
)

func (c controller) MustHeader(r *http.Request, key string) (string, error) {
	value := r.Header.Get(headerPrefix + key)
	if value == "" {
		return "", fmt.Errorf("%s was not provided", key)
	}

	return value, nil
}

func (c controller) getBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("bearer token was not provided")
	}

	return token, nil
}

// generateTimeBasedId returns a UUIDv7, which sorts by creation time.
func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
