// Package route partitions the URL path space into access-policy classes.
// Everything here is pure and safe for concurrent use.
package route

import (
	"fmt"
	"strings"
)

type Class int

const (
	Other Class = iota
	Public
	Protected
	AuthOnly
)

func (c Class) String() string {
	switch c {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth_only"
	default:
		return "other"
	}
}

const (
	LoginPath     = "/auth/login"
	RegisterPath  = "/auth/register"
	LogoutPath    = "/auth/logout"
	DashboardPath = "/dashboard"
	CheckoutPath  = "/payments/checkout"
	PaidPath      = "/payments/paid"

	// CheckoutStarterURL is where identities without a plan are sent.
	CheckoutStarterURL = CheckoutPath + "?plan=starter"
)

// Declared order is match order.
var (
	publicPrefixes    = []string{"/auth", "/static", "/"}
	protectedPrefixes = []string{"/dashboard", "/items", "/payments"}
	authOnlyPaths     = []string{LoginPath, RegisterPath}
	planExemptPrefix  = []string{CheckoutPath, PaidPath}
)

// Classify maps a request path to its class. Login and register pages are
// reported as AuthOnly even though they also sit under the public /auth area.
func Classify(path string) Class {
	for _, p := range authOnlyPaths {
		if path == p {
			return AuthOnly
		}
	}

	if matchesAny(path, publicPrefixes) {
		return Public
	}

	if matchesAny(path, protectedPrefixes) {
		return Protected
	}

	return Other
}

func IsPublic(path string) bool {
	return matchesAny(path, publicPrefixes)
}

func IsProtected(path string) bool {
	return matchesAny(path, protectedPrefixes)
}

func IsAuthOnly(path string) bool {
	return Classify(path) == AuthOnly
}

// ShouldBlockPlanAccess is false inside the payment funnel so an identity
// without a usable plan can still buy one.
func ShouldBlockPlanAccess(path string) bool {
	for _, prefix := range planExemptPrefix {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	return true
}

func IsLogout(path string) bool {
	return strings.HasPrefix(path, LogoutPath)
}

// HasSegmentPrefix reports whether path equals prefix or continues it with a
// new path segment.
func HasSegmentPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if HasSegmentPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// Validate reports prefixes that are both public and protected. An overlap is
// a configuration defect, never something to resolve at request time.
func Validate() error {
	for _, public := range publicPrefixes {
		for _, protected := range protectedPrefixes {
			if HasSegmentPrefix(protected, public) {
				return fmt.Errorf("route %q is shadowed by public prefix %q", protected, public)
			}
			if HasSegmentPrefix(public, protected) {
				return fmt.Errorf("public route %q lies inside protected prefix %q", public, protected)
			}
		}
	}

	return nil
}
