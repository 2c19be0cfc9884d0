package anylist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrIdentityUnresolved is returned when no resolver could determine the
// acting user id. Writes must not proceed without one.
var ErrIdentityUnresolved = errors.New("unable to resolve user id: set ANYLIST_USER_ID or add an item to a list")

// tokenIdentityClaims are checked in order; the first non-empty string wins.
var tokenIdentityClaims = []string{"userId", "sub", "uid"}

type resolveInput struct {
	account  *Account
	override string
	backend  Backend
}

// identityResolver reports the user id it found, or ok=false to defer to
// the next resolver. A non-nil error aborts resolution.
type identityResolver func(ctx context.Context, in resolveInput) (uid string, ok bool, err error)

var identityResolvers = []identityResolver{
	identityFromAccount,
	identityFromOverride,
	identityFromAccessToken,
	identityFromListItems,
	identityFromRecentItems,
}

func resolveIdentity(ctx context.Context, in resolveInput) (string, error) {
	for _, resolve := range identityResolvers {
		uid, ok, err := resolve(ctx, in)
		if err != nil {
			return "", err
		}
		if ok {
			return uid, nil
		}
	}
	return "", ErrIdentityUnresolved
}

func identityFromAccount(_ context.Context, in resolveInput) (string, bool, error) {
	if in.account == nil || in.account.UserID == "" {
		return "", false, nil
	}
	return in.account.UserID, true, nil
}

func identityFromOverride(_ context.Context, in resolveInput) (string, bool, error) {
	return in.override, in.override != "", nil
}

func identityFromAccessToken(_ context.Context, in resolveInput) (string, bool, error) {
	if in.account == nil {
		return "", false, nil
	}
	uid, ok := decodeTokenIdentity(in.account.AccessToken)
	return uid, ok, nil
}

// decodeTokenIdentity reads the user id from the payload segment of a
// JWT-shaped token without verifying it. Malformed tokens yield ok=false.
func decodeTokenIdentity(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	payload, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return "", false
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", false
	}
	for _, name := range tokenIdentityClaims {
		if v, ok := claims[name].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func identityFromListItems(ctx context.Context, in resolveInput) (string, bool, error) {
	lists, err := in.backend.Lists(ctx)
	if err != nil {
		return "", false, err
	}
	for _, l := range lists {
		if uid, ok := firstOwner(l.Items); ok {
			return uid, true, nil
		}
	}
	return "", false, nil
}

func identityFromRecentItems(ctx context.Context, in resolveInput) (string, bool, error) {
	recent, err := in.backend.RecentItems(ctx)
	if err != nil {
		return "", false, err
	}
	for _, items := range recent {
		if uid, ok := firstOwner(items); ok {
			return uid, true, nil
		}
	}
	return "", false, nil
}

func firstOwner(items []*Item) (string, bool) {
	for _, it := range items {
		if it != nil && it.OwnerID != "" {
			return it.OwnerID, true
		}
	}
	return "", false
}
