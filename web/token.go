package web

import (
	"crypto/rand"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/votela/votela"
	"github.com/votela/votela/contracts/voting/types"
	"golang.org/x/xerrors"
)

// GrantValidity bounds the life of a cast grant. The voter has that long
// between the code verification and the ballot.
const GrantValidity = 10 * time.Minute

// DefaultAdminValidity is the validity of an operator token when the caller
// does not pick one.
const DefaultAdminValidity = 12 * time.Hour

const tokenIssuer = "votela"

// TokenIssuer mints and verifies the signed bearer tokens of the API. Cast
// grants bind a voter hash, operator tokens carry the admin role.
type TokenIssuer struct {
	secret []byte
	clock  func() time.Time
}

// NewTokenIssuer creates a token issuer from the shared secret. An empty
// secret draws a random one, which means every token dies with the process.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	raw := []byte(secret)

	if len(raw) == 0 {
		raw = make([]byte, 32)

		_, err := rand.Read(raw)
		if err != nil {
			return nil, xerrors.Errorf("failed to generate secret: %v", err)
		}

		votela.Logger.Warn().
			Msg("no token secret configured, tokens will not survive a restart")
	}

	return &TokenIssuer{
		secret: raw,
		clock:  time.Now,
	}, nil
}

type castClaims struct {
	jwt.RegisteredClaims

	Hash string `json:"hash"`
}

type adminClaims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// CastGrant returns a token that allows one ballot for the voter hash.
func (t *TokenIssuer) CastGrant(hash types.VoterHash) (string, error) {
	now := t.clock()

	claims := castClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "cast",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(GrantValidity)),
		},
		Hash: hash.String(),
	}

	grant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", xerrors.Errorf("failed to sign grant: %v", err)
	}

	return grant, nil
}

// VerifyCastGrant checks the grant and returns the voter hash it binds.
func (t *TokenIssuer) VerifyCastGrant(grant string) (types.VoterHash, error) {
	claims := &castClaims{}

	_, err := jwt.ParseWithClaims(grant, claims, t.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.clock))
	if err != nil {
		return types.VoterHash{}, xerrors.Errorf("invalid grant: %v", err)
	}

	hash, err := types.ParseVoterHash(claims.Hash)
	if err != nil {
		return types.VoterHash{}, xerrors.Errorf("invalid grant: %v", err)
	}

	return hash, nil
}

// AdminToken returns a bearer token for the operator endpoints.
func (t *TokenIssuer) AdminToken(subject string, validity time.Duration) (string, error) {
	if validity <= 0 {
		validity = DefaultAdminValidity
	}

	now := t.clock()

	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Role: "admin",
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", xerrors.Errorf("failed to sign token: %v", err)
	}

	return token, nil
}

// VerifyAdmin checks the operator token and returns its subject.
func (t *TokenIssuer) VerifyAdmin(token string) (string, error) {
	claims := &adminClaims{}

	_, err := jwt.ParseWithClaims(token, claims, t.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.clock))
	if err != nil {
		return "", xerrors.Errorf("invalid token: %v", err)
	}

	if claims.Role != "admin" {
		return "", xerrors.New("not an operator token")
	}

	return claims.Subject, nil
}

func (t *TokenIssuer) keyFunc(*jwt.Token) (interface{}, error) {
	return t.secret, nil
}
