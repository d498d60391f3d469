package store

import (
	"database/sql"
	"errors"

	"minim/models"
)

// CreateOrGetUser returns the user with the given username, creating it
// first if it does not exist yet. Idempotent and race-safe: concurrent
// calls with the same username resolve to the same row.
func (s *Store) CreateOrGetUser(username string) (models.User, error) {
	if _, err := s.conn.Exec("INSERT OR IGNORE INTO users (username) VALUES (?)", username); err != nil {
		return models.User{}, err
	}
	return s.userByName(username)
}

// FindUsersMatching returns users whose username contains the given
// substring. The match is case-sensitive (instr, not LIKE, поскольку LIKE
// в SQLite не учитывает регистр для ASCII).
func (s *Store) FindUsersMatching(substring string) ([]models.User, error) {
	rows, err := s.conn.Query("SELECT id, username FROM users WHERE instr(username, ?) > 0", substring)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// AddContact records a directed contact edge from owner to target.
// Returns ErrNotFound when either username does not resolve to a user and
// ErrContactExists when the edge is already present.
func (s *Store) AddContact(owner, target string) error {
	ownerUser, err := s.userByName(owner)
	if err != nil {
		return err
	}
	targetUser, err := s.userByName(target)
	if err != nil {
		return err
	}

	result, err := s.conn.Exec(
		"INSERT OR IGNORE INTO contacts (owner_id, contact_id) VALUES (?, ?)",
		ownerUser.ID, targetUser.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrContactExists
	}

	return nil
}

// ListContacts returns the usernames of owner's contacts in the order the
// edges were added.
func (s *Store) ListContacts(owner string) ([]string, error) {
	query := `
		SELECT u.username
		FROM contacts c
		JOIN users u ON u.id = c.contact_id
		JOIN users o ON o.id = c.owner_id
		WHERE o.username = ?
		ORDER BY c.id ASC
	`

	rows, err := s.conn.Query(query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (s *Store) userByName(username string) (models.User, error) {
	var u models.User
	err := s.conn.QueryRow("SELECT id, username FROM users WHERE username = ?", username).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}
