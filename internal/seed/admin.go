package seed

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin creates a default admin account when the users table is empty,
// so a fresh database is loginable. Best effort: failures are logged, not
// fatal.
func EnsureAdmin(db *sqlx.DB, log zerolog.Logger, email, password string) {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM users`); err != nil {
		log.Warn().Err(err).Msg("unable to check for existing users")
		return
	}
	if count > 0 {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Warn().Err(err).Msg("unable to hash default admin password")
		return
	}
	if _, err := db.Exec(`INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)`,
		"admin", email, string(hashed), "admin"); err != nil {
		log.Warn().Err(err).Msg("unable to seed default admin")
		return
	}
	log.Info().Str("email", email).Msg("seeded default admin account")
}
