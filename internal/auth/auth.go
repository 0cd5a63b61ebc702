package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	kindID     = "id"
	kindCustom = "custom"
)

var (
	// ErrInvalidToken токен не прошел проверку
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoIdentity в контексте нет установленной личности
	ErrNoIdentity = errors.New("no identity in context")
)

// Claims набор claims токенов notedb
type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer выпускает и проверяет токены личности (HS256)
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer создает выпускающего токены
func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth secret cannot be empty")
	}
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// SignInAnonymously заводит нового анонимного пользователя и выдает ему id-токен
func (i *Issuer) SignInAnonymously() (uid string, idToken string, err error) {
	uid = uuid.NewString()
	idToken, err = i.sign(uid, kindID, i.ttl)
	if err != nil {
		return "", "", err
	}
	return uid, idToken, nil
}

// SignInWithCustomToken обменивает custom-токен на id-токен того же пользователя
func (i *Issuer) SignInWithCustomToken(customToken string) (uid string, idToken string, err error) {
	uid, err = i.verify(customToken, kindCustom)
	if err != nil {
		return "", "", err
	}
	idToken, err = i.sign(uid, kindID, i.ttl)
	if err != nil {
		return "", "", err
	}
	return uid, idToken, nil
}

// MintCustomToken выпускает custom-токен для заданного uid (административная операция)
func (i *Issuer) MintCustomToken(uid string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", errors.New("uid cannot be empty")
	}
	return i.sign(uid, kindCustom, ttl)
}

// Verify проверяет id-токен и возвращает uid
func (i *Issuer) Verify(idToken string) (string, error) {
	return i.verify(idToken, kindID)
}

func (i *Issuer) sign(uid, kind string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (i *Issuer) verify(tokenString, kind string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return "", fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Kind)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

type uidKey struct{}

// WithUID кладет uid в контекст запроса
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, uidKey{}, uid)
}

// UIDFromContext достает uid, установленный интерцептором авторизации
func UIDFromContext(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(uidKey{}).(string)
	if !ok || uid == "" {
		return "", ErrNoIdentity
	}
	return uid, nil
}
