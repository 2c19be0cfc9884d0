package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/store"
)

const signingKeySetting = "token_signing_key"

// DefaultListName is the list created for a newly provisioned household.
const DefaultListName = "Groceries"

// Login verifies the credentials and issues an access token. The first
// login for an unknown email provisions the account.
func (d *DB) Login(ctx context.Context, creds anylist.Credentials) (*anylist.Account, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, store.ErrInvalidCredentials
	}

	var id, hash string
	err := d.q.QueryRowContext(ctx,
		`SELECT id, password_hash FROM accounts WHERE email = ?`, creds.Email,
	).Scan(&id, &hash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err = d.provision(ctx, creds)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("get account: %w", err)
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)); err != nil {
			return nil, store.ErrInvalidCredentials
		}
	}

	token, err := d.issueToken(id, creds.Email)
	if err != nil {
		return nil, err
	}
	return &anylist.Account{Email: creds.Email, AccessToken: token, UserID: id}, nil
}

// Resume validates a previously issued access token.
func (d *DB) Resume(ctx context.Context, token string) (*anylist.Account, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return d.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(d.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidCredentials, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, store.ErrInvalidCredentials
	}

	var email string
	err = d.q.QueryRowContext(ctx, `SELECT email FROM accounts WHERE id = ?`, sub).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &anylist.Account{Email: email, AccessToken: token, UserID: sub}, nil
}

func (d *DB) provision(ctx context.Context, creds anylist.Credentials) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	id := uuid.NewString()
	now := formatTime(d.now())

	err = d.withTx(ctx, func(q queryable) error {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			id, creds.Email, string(hash), now,
		); err != nil {
			return mapConstraintError(err)
		}
		var lists int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM lists`).Scan(&lists); err != nil {
			return err
		}
		if lists > 0 {
			return nil
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO lists (id, name, created_at) VALUES (?, ?, ?)`,
			uuid.NewString(), DefaultListName, now,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("provision account: %w", err)
	}
	slog.Info("provisioned household account", "email", creds.Email)
	return id, nil
}

func (d *DB) issueToken(id, email string) (string, error) {
	now := d.now()
	claims := jwt.MapClaims{
		"sub":    id,
		"userId": id,
		"email":  email,
		"iat":    now.Unix(),
		"exp":    now.Add(d.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// loadSigningKey returns the token signing key, generating and storing one
// on first use.
func (d *DB) loadSigningKey(ctx context.Context) ([]byte, error) {
	var encoded string
	err := d.q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, signingKeySetting,
	).Scan(&encoded)
	if err == nil {
		return hex.DecodeString(encoded)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if _, err := d.q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)`,
		signingKeySetting, hex.EncodeToString(key),
	); err != nil {
		return nil, err
	}
	return key, nil
}
