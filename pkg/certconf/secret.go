package certconf

import (
	"regexp"
	"unicode"

	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"golang.org/x/crypto/bcrypt"
)

// Rule describes the length and character-class requirements parsed from a
// CertConf's ak_rule/sk_rule string. The rule grammar is a small set of
// flags rather than a regex DSL, matching how cert-confs are actually
// authored (min/max length, which classes are required).
type Rule struct {
	MinLen       int
	MaxLen       int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
	RequireSpecial bool
}

var specialCharPattern = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)

// Validate checks candidate against the rule's length and character-class
// requirements.
func (r Rule) Validate(candidate string) error {
	if len(candidate) < r.MinLen || (r.MaxLen > 0 && len(candidate) > r.MaxLen) {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "length must be between %d and %d characters", r.MinLen, r.MaxLen)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r2 := range candidate {
		switch {
		case unicode.IsUpper(r2):
			hasUpper = true
		case unicode.IsLower(r2):
			hasLower = true
		case unicode.IsDigit(r2):
			hasDigit = true
		}
	}
	if r.RequireUpper && !hasUpper {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "must contain an uppercase letter")
	}
	if r.RequireLower && !hasLower {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "must contain a lowercase letter")
	}
	if r.RequireDigit && !hasDigit {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "must contain a digit")
	}
	if r.RequireSpecial && !specialCharPattern.MatchString(candidate) {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "must contain a special character")
	}
	return nil
}

// HashSecret salts and hashes an SK with bcrypt, distinct from the plain
// sha256 lookup hash pkg/token uses for bearer tokens — a credential secret
// needs a slow, salted hash; a token lookup needs a fast, deterministic one.
func HashSecret(sk string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(sk), bcrypt.DefaultCost)
	if err != nil {
		return "", iamerrors.Wrap(iamerrors.ErrInternal, "hash secret failed")
	}
	return string(hashed), nil
}

// VerifySecret compares a candidate SK against its stored bcrypt hash.
func VerifySecret(candidate, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}
