// Package service contains the business rules of the API.
//
// Handlers parse HTTP and call services with plain values; services validate
// input, enforce item-level permissions and talk to storage through the
// repository interfaces. Nothing here knows about HTTP. Errors are apperror
// values that handlers translate to status codes.
package service

import (
	"time"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/policy"
)

// Clock returns the current time. Services take one so tests can pin the
// date that year checks and pub_date stamps depend on.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time { return time.Now().UTC() }

// Page is one page of a list result plus the total number of matches.
type Page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// authorize applies an item-level rule to a mutating request. An anonymous
// caller gets Unauthorized; an authenticated one that fails the rule gets
// Forbidden.
func authorize(p policy.Permission, user *model.User, obj policy.Owned) error {
	if user == nil {
		return apperror.Unauthorized("Authentication credentials were not provided.")
	}
	if !p.HasObjectPermission(user, policy.Write, obj) {
		return apperror.Forbidden("You do not have permission to perform this action.")
	}
	return nil
}
