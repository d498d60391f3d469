package models

import "time"

type User struct {
	ID       int64
	Username string
}

type Contact struct {
	ID        int64
	OwnerID   int64
	ContactID int64
}

type Message struct {
	ID        int64
	Sender    string
	Receiver  string
	Text      string
	CreatedAt time.Time
}
