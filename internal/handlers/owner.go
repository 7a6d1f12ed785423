package handlers

import (
	"net/http"
	"strings"

	domain "github.com/threadline-shop/api/internal/domain"
)

// Upstream identity headers. Authentication happens in front of this service;
// these headers are only trusted because the edge strips them from client
// traffic and sets them itself.
const (
	headerUserID      = "X-User-Id"
	headerAnonymousID = "X-Anonymous-Id"
)

// ownerFromRequest resolves the cart owner from the upstream identity
// headers, preferring an authenticated user over an anonymous session.
func ownerFromRequest(r *http.Request) (domain.Owner, bool) {
	if userID := strings.TrimSpace(r.Header.Get(headerUserID)); userID != "" {
		return domain.Owner{Kind: domain.OwnerKindUser, ID: userID}, true
	}
	if anonID := strings.TrimSpace(r.Header.Get(headerAnonymousID)); anonID != "" {
		return domain.Owner{Kind: domain.OwnerKindAnonymous, ID: anonID}, true
	}
	return domain.Owner{}, false
}
