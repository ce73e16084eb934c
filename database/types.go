package database

import "time"

// Envelope links a forwarded complaint, as seen in an admin's chat, back to
// the user who sent it.
type Envelope struct {
	AdminChatId int64 `gorm:"primaryKey;autoIncrement:false"`
	AdminMsgId  int64 `gorm:"primaryKey;autoIncrement:false"`
	UserId      int64 `gorm:"index"`
	CreatedAt   time.Time
}

// Contact is what the bridge knows about a user who wrote in.
type Contact struct {
	UserId    int64 `gorm:"primaryKey;autoIncrement:false"`
	FirstName string
	LastName  string
	Username  string
	UpdatedAt time.Time
}

func (c Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	if c.FirstName == "" {
		return c.LastName
	}
	return c.FirstName + " " + c.LastName
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Envelope{},
		&Contact{},
	)
}
