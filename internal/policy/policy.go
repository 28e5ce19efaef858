// Package policy holds the access rules that gate every API operation.
//
// A rule is a pure function of the requesting user (nil when anonymous), the
// access class of the HTTP method, and for item-level checks the target
// entity. Rules keep no state and perform no I/O.
package policy

import (
	"net/http"

	"github.com/sakif/yamdb/internal/model"
)

// Access classifies an HTTP method as read-only or mutating.
type Access int

const (
	Read Access = iota
	Write
)

// AccessFor maps an HTTP method to its access class. GET, HEAD and OPTIONS
// are safe; everything else mutates.
func AccessFor(method string) Access {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Read
	}
	return Write
}

// Owned is implemented by entities that have an author.
type Owned interface {
	Owner() int64
}

// Permission is evaluated once per request at collection level and, for
// requests that target a single entity, again at item level.
type Permission interface {
	HasPermission(user *model.User, access Access) bool
	HasObjectPermission(user *model.User, access Access, obj Owned) bool
}

var (
	_ Permission = AdminOnly{}
	_ Permission = AdminOrReadOnly{}
	_ Permission = AdminModeratorAuthorOrReadOnly{}
)

// AdminOnly allows admins and superusers, whatever the method.
type AdminOnly struct{}

func (AdminOnly) HasPermission(user *model.User, _ Access) bool {
	return isAdminOrSuperuser(user)
}

func (AdminOnly) HasObjectPermission(user *model.User, _ Access, _ Owned) bool {
	return isAdminOrSuperuser(user)
}

// AdminOrReadOnly lets anyone read and only admins write.
type AdminOrReadOnly struct{}

func (AdminOrReadOnly) HasPermission(user *model.User, access Access) bool {
	if access == Read {
		return true
	}
	return user != nil && user.IsAdmin()
}

func (p AdminOrReadOnly) HasObjectPermission(user *model.User, access Access, _ Owned) bool {
	return p.HasPermission(user, access)
}

// AdminModeratorAuthorOrReadOnly lets anyone read and any authenticated user
// create. Changing an existing entity needs its author, a moderator or an
// admin.
type AdminModeratorAuthorOrReadOnly struct{}

func (AdminModeratorAuthorOrReadOnly) HasPermission(user *model.User, access Access) bool {
	return access == Read || user != nil
}

func (AdminModeratorAuthorOrReadOnly) HasObjectPermission(user *model.User, access Access, obj Owned) bool {
	if access == Read {
		return true
	}
	if user == nil {
		return false
	}
	return obj.Owner() == user.ID || user.IsModerator() || user.IsAdmin()
}

func isAdminOrSuperuser(user *model.User) bool {
	return user != nil && (user.IsAdmin() || user.IsSuperuser)
}
