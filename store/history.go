package store

import (
	"time"

	"minim/models"
)

// AppendMessage persists a message between two usernames. There is no
// existence check on sender or receiver: history is append-only and lenient
// by design.
func (s *Store) AppendMessage(sender, receiver, text string) (models.Message, error) {
	now := time.Now().UTC()
	result, err := s.conn.Exec(
		"INSERT INTO messages (sender, receiver, text, created_at) VALUES (?, ?, ?, ?)",
		sender, receiver, text, now.Format(time.RFC3339),
	)
	if err != nil {
		return models.Message{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Message{}, err
	}

	return models.Message{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Text:      text,
		CreatedAt: now,
	}, nil
}

// GetConversation returns all messages exchanged between a and b, in either
// direction, ordered by creation.
func (s *Store) GetConversation(a, b string) ([]models.Message, error) {
	query := `
		SELECT id, sender, receiver, text, created_at
		FROM messages
		WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)
		ORDER BY id ASC
	`

	rows, err := s.conn.Query(query, a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Text, &createdAt); err != nil {
			return nil, err
		}

		timestamp, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, err
		}
		m.CreatedAt = timestamp

		messages = append(messages, m)
	}

	return messages, rows.Err()
}
